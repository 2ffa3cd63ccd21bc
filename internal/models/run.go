package models

import (
	"time"

	"github.com/google/uuid"
)

// NewRun creates a run with a generated UUID and its start time set.
func NewRun(domain, rootDir, outPath string, exclude []string) *Run {
	return &Run{
		ID:        uuid.New(),
		Domain:    domain,
		RootDir:   rootDir,
		OutPath:   outPath,
		Exclude:   exclude,
		StartedAt: time.Now().UTC(),
	}
}

// Finish records the entries produced by the run.
func (r *Run) Finish(entries []URLEntry) {
	r.Entries = entries
	r.URLCount = len(entries)
	r.FinishedAt = time.Now().UTC()
}
