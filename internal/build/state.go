package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// State is a component's lifecycle position within a run. Transitions are
// strictly forward except Failed, which is reachable from any active state
// and terminal for the run.
type State string

const (
	StatePending     State = "pending"
	StateFetching    State = "fetching"
	StateFetched     State = "fetched"
	StateConfiguring State = "configuring"
	StateBuilding    State = "building"
	StateBuilt       State = "built"
	StateInstalling  State = "installing"
	StateInstalled   State = "installed"
	StateFailed      State = "failed"
)

// Record is the persisted per-component state. Flags are kept as a sorted
// list so two records compare deterministically.
type Record struct {
	Pin   string    `json:"pin,omitempty"` // revision requested by the spec
	Rev   string    `json:"rev,omitempty"` // commit actually checked out
	Flags []string  `json:"flags,omitempty"`
	State State     `json:"state"`
	Time  time.Time `json:"time"`

	// Prereqs maps each prerequisite to the stamp it was installed as when
	// this component was built. A prerequisite whose current stamp differs
	// invalidates this component, regardless of which run rebuilt it.
	Prereqs map[string]string `json:"prereqs,omitempty"`
}

// stamp condenses what a component install looks like to its dependents.
func (r *Record) stamp() string {
	return strings.Join(append([]string{r.Rev}, r.Flags...), " ")
}

const stateFileName = "state.json"

// stateFile persists one Record per component under the cache directory.
// Writes go through a temp-file-then-rename so a killed process never leaves
// a half-written file behind.
type stateFile struct {
	path string

	mu      sync.Mutex
	records map[string]*Record
}

func loadStateFile(cacheDir string) *stateFile {
	s := &stateFile{
		path:    filepath.Join(cacheDir, stateFileName),
		records: make(map[string]*Record),
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s
	}
	// A file that doesn't parse is discarded rather than trusted; every
	// component then re-verifies against the prefix on its own.
	var records map[string]*Record
	if json.Unmarshal(data, &records) == nil && records != nil {
		s.records = records
	}
	return s
}

// get returns a copy of the record for name, or nil.
func (s *stateFile) get(name string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[name]
	if !ok {
		return nil
	}
	out := *rec
	out.Flags = append([]string(nil), rec.Flags...)
	if rec.Prereqs != nil {
		out.Prereqs = make(map[string]string, len(rec.Prereqs))
		for dep, stamp := range rec.Prereqs {
			out.Prereqs[dep] = stamp
		}
	}
	return &out
}

// set transitions name to state, updating revision info when provided, and
// persists the whole file before returning.
func (s *stateFile) set(name string, state State, update func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[name]
	if !ok {
		rec = &Record{}
		s.records[name] = rec
	}
	rec.State = state
	rec.Time = time.Now().UTC()
	if update != nil {
		update(rec)
	}
	return s.save()
}

// forget drops the records for the given names and persists.
func (s *stateFile) forget(names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		delete(s.records, name)
	}
	return s.save()
}

// names returns all recorded component names, sorted.
func (s *stateFile) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for name := range s.records {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// save writes the records atomically. Callers hold s.mu.
func (s *stateFile) save() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), stateFileName+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
