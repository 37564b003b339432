package ledger

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/chunkscribe/database"
	"github.com/kbukum/chunkscribe/logger"
)

// Store persists ledger records. A nil *Store is a valid no-op ledger, so
// callers need not branch when the ledger is disabled.
type Store struct {
	db  *database.DB
	log *logger.Logger
}

// NewStore wraps an open database. Models must already be migrated.
func NewStore(db *database.DB, log *logger.Logger) *Store {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Store{db: db, log: log.WithComponent("ledger")}
}

// BeginRun inserts a running Run row.
func (s *Store) BeginRun(ctx context.Context, dir, version string, chained bool) (*Run, error) {
	run := &Run{Dir: dir, Version: version, Chained: chained, Status: StatusRunning, StartedAt: time.Now().UTC()}
	if s == nil {
		return run, nil
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, database.FromDatabase(err, "run")
	}
	s.log.Debug("run started", logger.Fields(logger.FieldRunID, run.ID, "dir", dir))
	return run, nil
}

// FinishRun stores the final counts and status of run.
func (s *Store) FinishRun(ctx context.Context, run *Run, runErr error) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = StatusCompleted
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	if s == nil {
		return nil
	}
	err := s.db.WithContext(ctx).Model(run).Select("Status", "Sources", "Failed", "FinishedAt", "Error").Updates(run).Error
	if err != nil {
		return database.FromDatabase(err, "run")
	}
	return nil
}

// RecordSource inserts a source outcome and its segments in one transaction.
func (s *Store) RecordSource(ctx context.Context, runID string, rec *SourceRecord) error {
	rec.RunID = runID
	if s == nil {
		return nil
	}
	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	if err != nil {
		return database.FromDatabase(err, "source")
	}
	return nil
}

// LastCompleted returns the most recent completed record of a source with
// the given fingerprint whose transcript still exists on disk according to
// exists, or nil when there is none.
func (s *Store) LastCompleted(ctx context.Context, fingerprint string, exists func(path string) bool) (*SourceRecord, error) {
	if s == nil || fingerprint == "" {
		return nil, nil
	}
	var recs []SourceRecord
	err := s.db.WithContext(ctx).
		Where("fingerprint = ? AND status = ?", fingerprint, StatusCompleted).
		Order("created_at DESC").
		Limit(5).
		Find(&recs).Error
	if err != nil {
		return nil, database.FromDatabase(err, "source")
	}
	for i := range recs {
		if recs[i].Transcript == "" || exists == nil || exists(recs[i].Transcript) {
			return &recs[i], nil
		}
	}
	return nil, nil
}

// LoadRun loads a run with its sources and their segments.
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, []SourceRecord, error) {
	if s == nil {
		return nil, nil, stderrors.New("ledger: disabled")
	}
	var run Run
	if err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, nil, database.FromDatabase(err, "run")
	}
	var sources []SourceRecord
	err := s.db.WithContext(ctx).
		Preload("SegmentRecords", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("run_id = ?", id).
		Order("created_at ASC").
		Find(&sources).Error
	if err != nil {
		return nil, nil, database.FromDatabase(err, "source")
	}
	return &run, sources, nil
}
