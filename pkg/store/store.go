// Package store implements candidate/active rule-text management with
// commit and rollback support, shared by the REPL and the compile
// service.
package store

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/camuslang/camus/pkg/p4"
	"github.com/camuslang/camus/pkg/pipeline"
	"github.com/camuslang/camus/pkg/query"
	"github.com/camuslang/camus/pkg/rules"
)

// maxHistory bounds the rollback window: snapshots beyond it are evicted
// oldest-first.
const maxHistory = 50

// snapshot is one committed rule text kept for rollback.
type snapshot struct {
	text      string
	rules     int // rule count at commit time
	timestamp time.Time
	comment   string
}

// Store manages the candidate and active rule text. Commit compiles the
// candidate fully before swapping it in, so the active text is always
// compilable.
type Store struct {
	mu        sync.RWMutex
	active    string
	candidate string
	compiled    *p4.Program // program of the active text
	activeRules int         // rule count of the active text
	history     []snapshot  // committed texts, oldest first
	dirty     bool
	filePath  string
	catalog   *rules.Catalog
}

// New creates a new rule store resolving fields against the given catalog.
func New(filePath string, catalog *rules.Catalog) *Store {
	if catalog == nil {
		catalog = rules.DefaultCatalog()
	}
	return &Store{
		filePath: filePath,
		catalog:  catalog,
	}
}

// Load loads the active rules from disk. A missing file starts the store
// empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read rules: %w", err)
	}

	prog, ruleCount, err := s.compile(string(data))
	if err != nil {
		return fmt.Errorf("compile rules: %w", err)
	}
	s.active = string(data)
	s.candidate = string(data)
	s.compiled = prog
	s.activeRules = ruleCount
	return nil
}

// Save persists the active rules to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.filePath == "" {
		return nil
	}
	return os.WriteFile(s.filePath, []byte(s.active), 0644)
}

// Active returns the committed rule text.
func (s *Store) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Candidate returns the working rule text.
func (s *Store) Candidate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candidate
}

// Dirty reports whether the candidate differs from the active text.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Program returns the compiled program of the active text, or nil before
// the first successful load/commit.
func (s *Store) Program() *p4.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compiled
}

// SetCandidate replaces the candidate text.
func (s *Store) SetCandidate(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidate = text
	s.dirty = s.candidate != s.active
}

// AppendRule parse-checks one rule and appends it to the candidate.
func (s *Store) AppendRule(line string) error {
	if _, err := rules.Compile(line, s.catalog); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.candidate != "" && s.candidate[len(s.candidate)-1] != '\n' {
		s.candidate += "\n"
	}
	s.candidate += line + "\n"
	s.dirty = true
	return nil
}

// Clear empties the candidate.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidate = ""
	s.dirty = s.active != ""
}

// CompileText compiles arbitrary rule text against the store's catalog
// without touching the store state.
func (s *Store) CompileText(text string) (*p4.Program, error) {
	prog, _, err := s.compile(text)
	return prog, err
}

// CompileCandidate compiles the current candidate without committing.
func (s *Store) CompileCandidate() (*p4.Program, error) {
	s.mu.RLock()
	text := s.candidate
	s.mu.RUnlock()
	prog, _, err := s.compile(text)
	return prog, err
}

// compile runs the full chain on one text and also reports how many rules
// it holds, for history bookkeeping.
func (s *Store) compile(text string) (*p4.Program, int, error) {
	rs, err := rules.Compile(text, s.catalog)
	if err != nil {
		return nil, 0, err
	}
	p, err := pipeline.Compile(rs)
	if err != nil {
		return nil, 0, err
	}
	prog, err := p4.Lower(p)
	if err != nil {
		return nil, 0, err
	}
	return prog, len(rs.Rules), nil
}

// Pipeline compiles the candidate only as far as the abstract pipeline,
// for inspection.
func (s *Store) Pipeline() (*pipeline.Pipeline, error) {
	s.mu.RLock()
	text := s.candidate
	s.mu.RUnlock()

	rs, err := rules.Compile(text, s.catalog)
	if err != nil {
		return nil, err
	}
	return pipeline.Compile(rs)
}

// RuleSet parses and compiles the candidate to typed rules.
func (s *Store) RuleSet() (*query.RuleSet, error) {
	s.mu.RLock()
	text := s.candidate
	s.mu.RUnlock()
	return rules.Compile(text, s.catalog)
}

// Commit compiles the candidate and, on success, makes it the active text,
// keeping the previous active text as a rollback snapshot.
func (s *Store) Commit(comment string) (*p4.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prog, ruleCount, err := s.compile(s.candidate)
	if err != nil {
		return nil, fmt.Errorf("commit check failed: %w", err)
	}

	// Snapshot what was active until now.
	s.history = append(s.history, snapshot{
		text:      s.active,
		rules:     s.activeRules,
		timestamp: time.Now(),
		comment:   comment,
	})
	if len(s.history) > maxHistory {
		s.history = s.history[1:]
	}

	s.active = s.candidate
	s.compiled = prog
	s.activeRules = ruleCount
	s.dirty = false
	return prog, nil
}

// Rollback replaces the candidate with the nth most recent committed text
// (0 = the text active before the last commit).
func (s *Store) Rollback(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 || n >= len(s.history) {
		return fmt.Errorf("rollback %d: no such rule set (have %d commits)", n, len(s.history))
	}
	// Snapshots are stored oldest-first, so index from the end.
	snap := s.history[len(s.history)-1-n]
	s.candidate = snap.text
	s.dirty = s.candidate != s.active
	return nil
}

// HistoryLen returns the number of rollback snapshots available.
func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// History returns one summary line per rollback snapshot, most recent
// first, for the REPL's "show history".
func (s *Store) History() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		snap := s.history[i]
		line := fmt.Sprintf("-%d: %s  %d rules", len(s.history)-1-i,
			snap.timestamp.Format("2006-01-02 15:04:05"), snap.rules)
		if snap.comment != "" {
			line += "  (" + snap.comment + ")"
		}
		out = append(out, line)
	}
	return out
}
