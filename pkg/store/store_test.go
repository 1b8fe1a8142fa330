package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAppendAndCommit(t *testing.T) {
	s := New("", nil)

	if err := s.AppendRule(`tcp.dport = 22 : fwd(1) ;`); err != nil {
		t.Fatal(err)
	}
	if !s.Dirty() {
		t.Error("store should be dirty after append")
	}

	prog, err := s.Commit("add ssh rule")
	if err != nil {
		t.Fatal(err)
	}
	if prog.EntryCount() == 0 {
		t.Error("committed program has no entries")
	}
	if s.Dirty() {
		t.Error("store should be clean after commit")
	}
	if s.Program() != prog {
		t.Error("Program() should return the committed program")
	}
}

func TestAppendRejectsBadRule(t *testing.T) {
	s := New("", nil)
	if err := s.AppendRule(`tcp.dport << 22 : fwd(1) ;`); err == nil {
		t.Error("bad rule should be rejected")
	}
	if s.Candidate() != "" {
		t.Error("rejected rule must not reach the candidate")
	}
}

func TestCommitFailureKeepsActive(t *testing.T) {
	s := New("", nil)
	if err := s.AppendRule(`tcp.dport = 22 : fwd(1) ;`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(""); err != nil {
		t.Fatal(err)
	}

	// A candidate that parses rule-by-rule but fails in the pipeline:
	// mixing fwd with a user action.
	s.SetCandidate(`tcp.dport = 22 : fwd(1), log_pkt(1) ;`)
	if _, err := s.Commit(""); err == nil {
		t.Fatal("expected commit failure")
	}
	if !strings.Contains(s.Active(), "fwd(1) ;") {
		t.Error("active text lost on failed commit")
	}
}

func TestRollback(t *testing.T) {
	s := New("", nil)

	if err := s.AppendRule(`tcp.dport = 22 : fwd(1) ;`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit("first"); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendRule(`tcp.dport = 80 : fwd(2) ;`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit("second"); err != nil {
		t.Fatal(err)
	}

	// Rollback 0 restores the text active before the last commit.
	if err := s.Rollback(0); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(s.Candidate(), "dport = 80") {
		t.Error("rollback candidate still has the second rule")
	}
	if !s.Dirty() {
		t.Error("rolled-back candidate should be dirty")
	}

	if err := s.Rollback(99); err == nil {
		t.Error("out-of-range rollback should fail")
	}
}

func TestHistorySummaries(t *testing.T) {
	s := New("", nil)
	if err := s.AppendRule(`tcp.dport = 22 : fwd(1) ;`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit("first"); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendRule(`tcp.dport = 80 : fwd(2) ;`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit("second"); err != nil {
		t.Fatal(err)
	}

	lines := s.History()
	if len(lines) != 2 {
		t.Fatalf("history lines = %d", len(lines))
	}
	// Most recent snapshot first: the one-rule text displaced by the
	// second commit, tagged with that commit's comment.
	if !strings.HasPrefix(lines[0], "-0:") || !strings.Contains(lines[0], "1 rules") ||
		!strings.Contains(lines[0], "(second)") {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "-1:") || !strings.Contains(lines[1], "0 rules") {
		t.Errorf("lines[1] = %q", lines[1])
	}
	if s.HistoryLen() != 2 {
		t.Errorf("HistoryLen = %d", s.HistoryLen())
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.camus")
	if err := os.WriteFile(path, []byte(`tcp.dport = 22 : fwd(1) ;`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(path, nil)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if s.Program() == nil {
		t.Fatal("load should compile the active text")
	}

	if err := s.AppendRule(`tcp.dport = 80 : fwd(2) ;`); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Commit(""); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "dport = 80") {
		t.Errorf("saved file missing committed rule:\n%s", data)
	}
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent.camus"), nil)
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if s.Active() != "" {
		t.Error("missing file should start the store empty")
	}
}

func TestLoadRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.camus")
	if err := os.WriteFile(path, []byte(`this is not a rule`), 0644); err != nil {
		t.Fatal(err)
	}
	s := New(path, nil)
	if err := s.Load(); err == nil {
		t.Error("bad rule file should fail to load")
	}
}
