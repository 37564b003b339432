package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/chunkscribe/errors"
)

// WriteChunk writes one two-line record.
func WriteChunk(w io.Writer, c Chunk) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n", c.Range(), c.Text)
	return err
}

// Parse reads a transcript document back into chunks. Trailing blank lines
// are ignored; a range line without a text line yields an empty text.
func Parse(r io.Reader) ([]Chunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.IOFailure("read transcript", "", err)
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	chunks := make([]Chunk, 0, (len(lines)+1)/2)
	for i := 0; i < len(lines); i += 2 {
		c, err := parseRange(lines[i])
		if err != nil {
			return nil, err.WithDetail("line", i+1)
		}
		if c.Open && i+2 < len(lines) {
			return nil, errors.InvalidInput("transcript", "EOF chunk is not the last record").WithDetail("line", i+1)
		}
		if i+1 < len(lines) {
			c.Text = strings.TrimSpace(lines[i+1])
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func parseRange(line string) (Chunk, *errors.AppError) {
	startText, endText, ok := strings.Cut(strings.TrimSpace(line), "-")
	if !ok {
		return Chunk{}, errors.InvalidInput("transcript", fmt.Sprintf("malformed range line %q", line))
	}
	start, err := ParseSeconds(startText)
	if err != nil {
		return Chunk{}, errors.InvalidInput("transcript", fmt.Sprintf("malformed range start %q", line)).WithCause(err)
	}
	if strings.TrimSpace(endText) == EOFMarker {
		return Chunk{Start: start, Open: true}, nil
	}
	end, err := ParseSeconds(endText)
	if err != nil {
		return Chunk{}, errors.InvalidInput("transcript", fmt.Sprintf("malformed range end %q", line)).WithCause(err)
	}
	if end.LessThan(start) {
		return Chunk{}, errors.InvalidInput("transcript", fmt.Sprintf("range ends before it starts %q", line))
	}
	return Chunk{Start: start, End: end}, nil
}
