// Package orchestrator schedules multiple runs over N tracks, gating
// parallel launch with file-ownership admission control (spec.md §4.11).
//
// Persistence follows the run store's discipline (internal/store): a
// temp-file-plus-rename write so a crash mid-write never corrupts the
// last-good snapshot, the same technique the teacher's workspace store
// uses for its own atomic writes (internal/workspace/store.go).
package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/weldr-dev/runr/internal/clock"
	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
)

// Store persists one OrchestrationState snapshot per orchestration_id under
// <runsRoot>/orchestrations/<id>/orchestration.json.
type Store struct {
	runsRoot string
	clock    clock.Clock
}

// NewStore creates a Store rooted at runsRoot.
func NewStore(runsRoot string, c clock.Clock) *Store {
	if c == nil {
		c = clock.RealClock{}
	}
	return &Store{runsRoot: runsRoot, clock: c}
}

func (s *Store) dir(id string) string {
	return filepath.Join(s.runsRoot, constants.OrchestrationsDirName, id)
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir(id), constants.OrchestrationStateFileName)
}

// Init creates the orchestration directory and writes the initial snapshot.
func (s *Store) Init(state *domain.OrchestrationState) error {
	if err := os.MkdirAll(s.dir(state.OrchestrationID), constants.DirPerm); err != nil {
		return errors.Wrap(err, "create orchestration directory")
	}
	now := s.clock.Now()
	state.SchemaVersion = constants.RunSchemaVersion
	state.CreatedAt = now
	state.UpdatedAt = now
	return s.Write(state)
}

// Write persists state, updating UpdatedAt first (spec.md §4.11 "persisted
// after every scheduling action").
func (s *Store) Write(state *domain.OrchestrationState) error {
	state.UpdatedAt = s.clock.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal orchestration state")
	}
	return atomicWrite(s.path(state.OrchestrationID), data)
}

// Read loads the orchestration snapshot by ID.
func (s *Store) Read(id string) (*domain.OrchestrationState, error) {
	data, err := os.ReadFile(s.path(id)) //#nosec G304 -- path constructed from trusted runs root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrStoreIO, "orchestration not found: "+id)
		}
		return nil, errors.Wrap(err, "read orchestration state")
	}
	var state domain.OrchestrationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, "parse orchestration state")
	}
	return &state, nil
}

func atomicWrite(path string, data []byte) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.FilePerm) //#nosec G304 -- path constructed from trusted run root
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "write temp file")
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "sync temp file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "rename temp file")
	}
	return nil
}
