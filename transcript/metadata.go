package transcript

import (
	"path/filepath"
	"strings"
)

// MetadataType is the type tag of audio metadata documents.
const MetadataType = "audio"

// Metadata is the JSON document describing one transcribed audio file, in
// the shape the downstream indexer consumes.
type Metadata struct {
	FileName      string          `json:"file_name"`
	Type          string          `json:"type"`
	Transcription []MetadataEntry `json:"transcription"`
}

// MetadataEntry is one chunk in a Metadata document. Times are rendered
// exactly as in the transcript; EndTime is "EOF" for the final chunk.
type MetadataEntry struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Content   string `json:"content"`
}

// NewMetadata builds the metadata document for a transcript file.
func NewMetadata(transcriptPath string, chunks []Chunk) *Metadata {
	m := &Metadata{
		FileName:      MetadataFileName(transcriptPath),
		Type:          MetadataType,
		Transcription: make([]MetadataEntry, 0, len(chunks)),
	}
	for _, c := range chunks {
		end := EOFMarker
		if !c.Open {
			end = FormatSeconds(c.End)
		}
		m.Transcription = append(m.Transcription, MetadataEntry{
			StartTime: FormatSeconds(c.Start),
			EndTime:   end,
			Content:   c.Text,
		})
	}
	return m
}

// MetadataFileName is the base name of path without its final extension.
// Dots inside a source name are kept, so distinct transcripts never share a
// document.
func MetadataFileName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ObjectKey is the storage key of the metadata document.
func (m *Metadata) ObjectKey() string {
	return MetadataType + "/" + m.FileName + "_audio.json"
}
