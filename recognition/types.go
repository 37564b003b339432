package recognition

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/provider"
	"github.com/kbukum/chunkscribe/transcript"
)

// Provider is the interface recognition backends implement.
type Provider interface {
	provider.Provider

	// Recognize transcribes one segment's audio.
	Recognize(ctx context.Context, req Request) (*Response, error)
}

// Request is one recognition call.
type Request struct {
	// Audio is the encoded segment audio.
	Audio []byte
	// FileName is the segment file name, used by backends that upload files.
	FileName string
	// LanguageHint is a BCP-47 language tag such as "he-IL".
	LanguageHint string
}

// Response holds the ordered results for one segment.
type Response struct {
	Results  []Result
	Language string
}

// Result is one recognized utterance with its ranked alternatives.
type Result struct {
	Alternatives []Alternative
}

// Alternative is one hypothesis for a result.
type Alternative struct {
	Transcript string
	Confidence float64
	Words      []Word
}

// Word is a recognized word with segment-local times. Start or End is nil
// when the backend did not time the word.
type Word struct {
	Text  string
	Start *decimal.Decimal
	End   *decimal.Decimal
}

// BestWords flattens a response into word tokens: for every result the
// highest-confidence alternative is taken (the first wins ties) and words
// without both times are dropped.
func BestWords(resp *Response) []transcript.WordToken {
	if resp == nil {
		return nil
	}
	var out []transcript.WordToken
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		best := r.Alternatives[0]
		for _, alt := range r.Alternatives[1:] {
			if alt.Confidence > best.Confidence {
				best = alt
			}
		}
		for _, w := range best.Words {
			if w.Start == nil || w.End == nil {
				continue
			}
			out = append(out, transcript.WordToken{Text: w.Text, Start: *w.Start, End: *w.End})
		}
	}
	return out
}
