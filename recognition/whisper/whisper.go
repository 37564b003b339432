// Package whisper adapts a faster-whisper HTTP sidecar to recognition.Provider.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/recognition"
	"github.com/kbukum/chunkscribe/version"
)

const (
	// ProviderName is the registered name for the Whisper provider.
	ProviderName = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 120 * time.Second
	maxErrorBody          = 1024
)

// Config holds configuration for the Whisper provider.
type Config struct {
	URL      string
	Model    string
	Language string
	Timeout  time.Duration
}

// Provider implements recognition.Provider against a faster-whisper sidecar.
type Provider struct {
	cfg    Config
	client *http.Client
}

var _ recognition.Provider = (*Provider)(nil)

// NewProvider creates a new Whisper provider.
func NewProvider(cfg Config) *Provider {
	if cfg.URL == "" {
		cfg.URL = defaultWhisperURL
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Factory builds a Provider from the recognition config section.
func Factory(cfg recognition.Config) (recognition.Provider, error) {
	return NewProvider(Config{
		URL:      cfg.URL,
		Model:    cfg.Model,
		Language: cfg.Language,
		Timeout:  cfg.Timeout,
	}), nil
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable checks if the Whisper sidecar is reachable.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Recognize uploads one segment and returns its word-timed results.
func (p *Provider) Recognize(ctx context.Context, req recognition.Request) (*recognition.Response, error) {
	name := req.FileName
	if name == "" {
		name = "segment.wav"
	}

	lang := p.cfg.Language
	if req.LanguageHint != "" {
		lang = req.LanguageHint
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", name)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, errors.Internal(err)
	}
	_ = writer.WriteField("model", p.cfg.Model)
	_ = writer.WriteField("word_timestamps", "true")
	if lang != "" {
		_ = writer.WriteField("language", whisperLanguage(lang))
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Internal(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return nil, errors.Internal(err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("whisper request: %w", ctx.Err())
		}
		return nil, errors.RecognitionFailure(name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		appErr := errors.RecognitionFailure(name, fmt.Errorf("whisper status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))).
			WithDetail("status", resp.StatusCode)
		appErr.Retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		return nil, appErr
	}

	var result whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		appErr := errors.RecognitionFailure(name, fmt.Errorf("decode whisper response: %w", err))
		appErr.Retryable = false
		return nil, appErr
	}

	return toResponse(&result), nil
}

// whisperLanguage reduces a BCP-47 tag to the ISO 639-1 code whisper expects.
func whisperLanguage(tag string) string {
	lang, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(lang)
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

type whisperSegment struct {
	Text       string          `json:"text"`
	Start      decimal.Decimal `json:"start"`
	End        decimal.Decimal `json:"end"`
	AvgLogprob *float64        `json:"avg_logprob"`
	Words      []whisperWord   `json:"words"`
}

type whisperWord struct {
	Text        string           `json:"word"`
	Start       *decimal.Decimal `json:"start"`
	End         *decimal.Decimal `json:"end"`
	Probability float64          `json:"probability"`
}

// toResponse maps each whisper segment to one result with a single
// alternative. Whisper returns one hypothesis, so the confidence is only
// informative.
func toResponse(resp *whisperResponse) *recognition.Response {
	out := &recognition.Response{
		Results:  make([]recognition.Result, 0, len(resp.Segments)),
		Language: resp.Language,
	}
	for _, seg := range resp.Segments {
		alt := recognition.Alternative{
			Transcript: strings.TrimSpace(seg.Text),
			Confidence: segmentConfidence(seg),
			Words:      make([]recognition.Word, 0, len(seg.Words)),
		}
		for _, w := range seg.Words {
			alt.Words = append(alt.Words, recognition.Word{
				Text:  strings.TrimSpace(w.Text),
				Start: w.Start,
				End:   w.End,
			})
		}
		out.Results = append(out.Results, recognition.Result{Alternatives: []recognition.Alternative{alt}})
	}
	return out
}

func segmentConfidence(seg whisperSegment) float64 {
	if seg.AvgLogprob != nil {
		return math.Exp(*seg.AvgLogprob)
	}
	if len(seg.Words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range seg.Words {
		sum += w.Probability
	}
	return sum / float64(len(seg.Words))
}
