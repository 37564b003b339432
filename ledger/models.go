package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kbukum/chunkscribe/database"
)

// Status values shared by runs and sources.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	// StatusUnchanged marks a source reused from an earlier completed run.
	StatusUnchanged = "unchanged"
)

// Run is one invocation of the walker.
type Run struct {
	database.BaseModel
	Dir        string `gorm:"size:1024"`
	Version    string `gorm:"size:64"`
	Chained    bool
	Status     string `gorm:"size:16;index"`
	Sources    int
	Failed     int
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      string
}

// SourceRecord is the outcome of one source within a run.
type SourceRecord struct {
	database.BaseModel
	RunID       string          `gorm:"size:36;index"`
	Path        string          `gorm:"size:1024"`
	Name        string          `gorm:"size:255"`
	Fingerprint string          `gorm:"size:64;index"`
	Status      string          `gorm:"size:16;index"`
	Offset      decimal.Decimal `gorm:"type:text"`
	Duration    decimal.Decimal `gorm:"type:text"`
	Segments    int
	Chunks      int
	Transcript  string `gorm:"size:1024"`
	Error       string
	Elapsed     time.Duration

	SegmentRecords []SegmentRecord `gorm:"foreignKey:SourceID"`
}

// End returns the source's offset plus its duration, the offset the next
// chained source starts at.
func (s *SourceRecord) End() decimal.Decimal {
	return s.Offset.Add(s.Duration)
}

// SegmentRecord is the outcome of one segment of a source.
type SegmentRecord struct {
	database.BaseModel
	SourceID string          `gorm:"size:36;index"`
	Index    int             `gorm:"column:position"`
	Offset   decimal.Decimal `gorm:"type:text"`
	Duration decimal.Decimal `gorm:"type:text"`
	Attempts int
	Words    int
	Chunks   int
	Error    string
}

// Models lists the tables the ledger needs migrated.
func Models() []interface{} {
	return []interface{}{&Run{}, &SourceRecord{}, &SegmentRecord{}}
}
