// Package store implements the Run Store: durable, append-only persistence
// for one run (spec.md §4.1, §6 run directory layout).
//
// All whole-file writes use temp-file+rename so a crash mid-write never
// corrupts an existing file, the same discipline the teacher's task and
// hook stores use (internal/task/store.go, internal/hook/store.go), built
// here on top of the shared internal/flock helpers instead of duplicating
// syscall.Flock calls per package.
package store

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/weldr-dev/runr/internal/clock"
	"github.com/weldr-dev/runr/internal/constants"
	"github.com/weldr-dev/runr/internal/domain"
	"github.com/weldr-dev/runr/internal/errors"
	"github.com/weldr-dev/runr/internal/flock"
)

// Store is the durable record for one run, rooted at <runsRoot>/<runID>.
type Store struct {
	root  string
	runID string
	clock clock.Clock
}

// Init creates the run directory tree and an empty timeline/sequence
// counter (spec.md §4.1). It is an error for the run directory to already
// exist.
func Init(runsRoot, runID string, c clock.Clock) (*Store, error) {
	if c == nil {
		c = clock.RealClock{}
	}
	dir := filepath.Join(runsRoot, runID)
	if _, err := os.Stat(dir); err == nil {
		return nil, errors.Wrapf(errors.ErrStoreIO, "run directory already exists: %s", dir)
	}

	for _, sub := range []string{"", constants.ArtifactsDir, constants.HandoffsDir, constants.CheckpointsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), constants.DirPerm); err != nil {
			return nil, errors.Wrap(err, "create run directory")
		}
	}

	s := &Store{root: dir, runID: runID, clock: c}
	if err := s.writeSeq(0); err != nil {
		return nil, err
	}
	if err := atomicWrite(s.path(constants.TimelineFileName), nil); err != nil {
		return nil, err
	}
	return s, nil
}

// Open attaches to an existing run directory without recreating it.
func Open(runsRoot, runID string, c clock.Clock) (*Store, error) {
	if c == nil {
		c = clock.RealClock{}
	}
	dir := filepath.Join(runsRoot, runID)
	if _, err := os.Stat(dir); err != nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "run directory not found: %s", dir)
	}
	return &Store{root: dir, runID: runID, clock: c}, nil
}

// Root returns the run's root directory.
func (s *Store) Root() string { return s.root }

// path resolves name to an absolute path inside the run directory, refusing
// any name that would escape it (spec.md §4.1).
func (s *Store) path(name string) string {
	clean := filepath.Clean(filepath.Join(s.root, name))
	if clean != s.root && !strings.HasPrefix(clean, s.root+string(filepath.Separator)) {
		return ""
	}
	return clean
}

// WriteState atomically replaces state.json (spec.md §4.1).
func (s *Store) WriteState(state *domain.RunState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal run state")
	}
	path := s.path(constants.StateFileName)
	if path == "" {
		return errors.ErrPathEscapesRoot
	}
	return atomicWrite(path, data)
}

// ReadState reads the current state.json, or ErrNotFound if absent.
func (s *Store) ReadState() (*domain.RunState, error) {
	data, err := os.ReadFile(s.path(constants.StateFileName)) //#nosec G304 -- path constructed from trusted run root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "read run state")
	}
	var state domain.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, "parse run state")
	}
	return &state, nil
}

// AppendEvent reads-and-increments the sequence counter and appends one
// JSON line to the timeline, returning the assigned event (spec.md §4.1).
// readSeq reconciles the counter against the timeline's own tail, so a
// crash between appending the line and persisting the advanced counter
// cannot cause the next call to reissue an already-used seq; a failure
// before the line is appended still leaves the counter unconsumed.
func (s *Store) AppendEvent(kind domain.EventType, source string, payload map[string]any) (domain.Event, error) {
	lockPath := s.path(constants.SeqFileName + ".lock")
	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, constants.FilePerm) //#nosec G302,G304 -- lock file path constructed from trusted run root
	if err != nil {
		return domain.Event{}, errors.Wrap(err, "open sequence lock")
	}
	defer func() { _ = lf.Close() }()

	if err := flock.Exclusive(lf.Fd()); err != nil {
		return domain.Event{}, errors.Wrap(err, "acquire sequence lock")
	}
	defer func() { _ = flock.Unlock(lf.Fd()) }()

	seq, err := s.readSeq()
	if err != nil {
		return domain.Event{}, err
	}
	nextSeq := seq + 1

	evt := domain.Event{
		Seq:       nextSeq,
		Timestamp: s.clock.Now().UTC(),
		Type:      kind,
		Source:    source,
		Payload:   payload,
	}
	line, err := json.Marshal(evt)
	if err != nil {
		return domain.Event{}, errors.Wrap(err, "marshal event")
	}

	if err := appendLine(s.path(constants.TimelineFileName), line); err != nil {
		return domain.Event{}, errors.Wrap(err, "append event")
	}
	if err := s.writeSeq(nextSeq); err != nil {
		return domain.Event{}, err
	}
	return evt, nil
}

// ReadTimeline reads every event appended so far, in seq order.
func (s *Store) ReadTimeline() ([]domain.Event, error) {
	f, err := os.Open(s.path(constants.TimelineFileName)) //#nosec G304 -- path constructed from trusted run root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "open timeline")
	}
	defer func() { _ = f.Close() }()

	var events []domain.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var evt domain.Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return nil, errors.Wrap(err, "parse timeline event")
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan timeline")
	}
	return events, nil
}

// WriteArtifact writes a whole-file artifact under artifacts/ (spec.md §4.1).
func (s *Store) WriteArtifact(name string, data []byte) error {
	path := s.path(filepath.Join(constants.ArtifactsDir, name))
	if path == "" {
		return errors.ErrPathEscapesRoot
	}
	return atomicWrite(path, data)
}

// WriteMemo writes a whole-file text memo under handoffs/ (spec.md §4.1).
func (s *Store) WriteMemo(name, text string) error {
	path := s.path(filepath.Join(constants.HandoffsDir, name))
	if path == "" {
		return errors.ErrPathEscapesRoot
	}
	return atomicWrite(path, []byte(text))
}

// WriteFingerprint persists the environment fingerprint (spec.md §3, §6).
func (s *Store) WriteFingerprint(fp *domain.EnvFingerprint) error {
	return s.writeJSON(constants.FingerprintFileName, fp)
}

// ReadFingerprint reads the persisted environment fingerprint, if any.
func (s *Store) ReadFingerprint() (*domain.EnvFingerprint, error) {
	var fp domain.EnvFingerprint
	ok, err := s.readJSON(constants.FingerprintFileName, &fp)
	if err != nil || !ok {
		return nil, err
	}
	return &fp, nil
}

// WriteCheckpointSidecar persists the authoritative per-commit metadata
// sidecar keyed by commit SHA (spec.md §3, §4.10).
func (s *Store) WriteCheckpointSidecar(sidecar *domain.CheckpointSidecar) error {
	name := filepath.Join(constants.CheckpointsDir, sidecar.CommitSHA+".json")
	path := s.path(name)
	if path == "" {
		return errors.ErrPathEscapesRoot
	}
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal checkpoint sidecar")
	}
	return atomicWrite(path, data)
}

// ReadCheckpointSidecar reads the sidecar for the given commit SHA.
func (s *Store) ReadCheckpointSidecar(commitSHA string) (*domain.CheckpointSidecar, error) {
	name := filepath.Join(constants.CheckpointsDir, commitSHA+".json")
	data, err := os.ReadFile(s.path(name)) //#nosec G304 -- path constructed from trusted run root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrNotFound
		}
		return nil, errors.Wrap(err, "read checkpoint sidecar")
	}
	var sidecar domain.CheckpointSidecar
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return nil, errors.Wrap(err, "parse checkpoint sidecar")
	}
	return &sidecar, nil
}

// WritePlan writes the raw planner output (spec.md §6).
func (s *Store) WritePlan(text string) error {
	return atomicWrite(s.path(constants.PlanFileName), []byte(text))
}

// WriteSummary writes the finalization summary (spec.md §6).
func (s *Store) WriteSummary(text string) error {
	return atomicWrite(s.path(constants.SummaryFileName), []byte(text))
}

// WriteConfigSnapshot persists the config observed at INIT (spec.md §6).
func (s *Store) WriteConfigSnapshot(snapshot any) error {
	return s.writeJSON(constants.ConfigSnapshotFileName, snapshot)
}

func (s *Store) writeJSON(name string, v any) error {
	path := s.path(name)
	if path == "" {
		return errors.ErrPathEscapesRoot
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal "+name)
	}
	return atomicWrite(path, data)
}

func (s *Store) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(s.path(name)) //#nosec G304 -- path constructed from trusted run root
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "read "+name)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrap(err, "parse "+name)
	}
	return true, nil
}

// readSeq returns the last-assigned sequence number, reconciled against the
// timeline's own tail. AppendEvent appends the timeline line before
// persisting the advanced counter, so a crash (or failed write) between the
// two leaves seq.txt behind the timeline; reconciling here, under the same
// lock AppendEvent holds, means the next call still hands out a seq one
// past the last event actually on disk instead of reissuing one already
// used (spec.md §8 seq values are unique/contiguous).
func (s *Store) readSeq() (int, error) {
	fileSeq, err := s.readSeqFile()
	if err != nil {
		return 0, err
	}
	tailSeq, err := s.readTimelineTailSeq()
	if err != nil {
		return 0, err
	}
	if tailSeq > fileSeq {
		return tailSeq, nil
	}
	return fileSeq, nil
}

func (s *Store) readSeqFile() (int, error) {
	data, err := os.ReadFile(s.path(constants.SeqFileName)) //#nosec G304 -- path constructed from trusted run root
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "read sequence counter")
	}
	seq, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "parse sequence counter")
	}
	return seq, nil
}

// readTimelineTailSeq returns the Seq of the last line in the timeline, or 0
// if the timeline is absent or empty.
func (s *Store) readTimelineTailSeq() (int, error) {
	f, err := os.Open(s.path(constants.TimelineFileName)) //#nosec G304 -- path constructed from trusted run root
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "open timeline for tail read")
	}
	defer func() { _ = f.Close() }()

	var lastLine string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lastLine = line
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.Wrap(err, "scan timeline for tail read")
	}
	if lastLine == "" {
		return 0, nil
	}
	var evt domain.Event
	if err := json.Unmarshal([]byte(lastLine), &evt); err != nil {
		return 0, errors.Wrap(err, "parse timeline tail event")
	}
	return evt.Seq, nil
}

func (s *Store) writeSeq(seq int) error {
	return atomicWrite(s.path(constants.SeqFileName), []byte(strconv.Itoa(seq)))
}

// atomicWrite writes data to path via temp-file+rename, fsyncing before the
// rename so a crash mid-write never corrupts an existing file (spec.md
// §4.1 invariants).
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
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "rename temp file")
	}
	return nil
}

// appendLine opens path for append, creating it if necessary, and writes
// line followed by a newline.
func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FilePerm) //#nosec G304 -- path constructed from trusted run root
	if err != nil {
		return errors.Wrap(err, "open timeline for append")
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return errors.Wrap(err, "write timeline line")
	}
	return f.Sync()
}
