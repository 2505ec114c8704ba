package session

import (
	"testing"
	"time"

	"github.com/sensei-labs/sensei/internal/domain"
)

func TestEnsureInitializedIdempotent(t *testing.T) {
	s := &Session{ID: "s1"}
	s.EnsureInitialized()
	s.AppendTurn(domain.RoleCompanion, "hello")
	s.EnsureInitialized()

	turns := s.Turns()
	if len(turns) != 1 || turns[0].Content != "hello" {
		t.Fatalf("expected history preserved, got %+v", turns)
	}
}

func TestResolveCompanionPrecedence(t *testing.T) {
	s := &Session{ID: "sess-42"}
	s.EnsureInitialized()

	if got := s.ResolveCompanion(); got != "sess-42" {
		t.Fatalf("anonymous session should use session id, got %q", got)
	}
	if got := s.ResolveCompanion(); got != "sess-42" {
		t.Fatalf("established identity should be stable, got %q", got)
	}

	s.SetAccount("cmp_1")
	if got := s.ResolveCompanion(); got != "cmp_1" {
		t.Fatalf("account should take precedence, got %q", got)
	}
}

func TestPollDeliversTerminalOnce(t *testing.T) {
	s := &Session{ID: "s1"}
	s.EnsureInitialized()
	s.BeginRequest("r1")

	entry, ok := s.PollRequest("r1")
	if !ok || entry.Status != domain.RequestStatusProcessing {
		t.Fatalf("expected processing entry, got %+v ok=%v", entry, ok)
	}

	// Processing entries survive polling.
	if _, ok := s.PollRequest("r1"); !ok {
		t.Fatalf("processing entry should not be evicted")
	}

	s.CompleteRequest("r1", &domain.Result{Role: domain.RoleGuide, Content: "done"})

	entry, ok = s.PollRequest("r1")
	if !ok || entry.Status != domain.RequestStatusCompleted {
		t.Fatalf("expected completed entry, got %+v ok=%v", entry, ok)
	}
	result, ok := entry.Data.(*domain.Result)
	if !ok || result.Content != "done" {
		t.Fatalf("unexpected result payload %+v", entry.Data)
	}

	// Terminal entries are delivered at most once.
	if _, ok := s.PollRequest("r1"); ok {
		t.Fatalf("terminal entry should be evicted after delivery")
	}
}

func TestTerminalWriteHappensOnce(t *testing.T) {
	s := &Session{ID: "s1"}
	s.EnsureInitialized()
	s.BeginRequest("r1")

	s.CompleteRequest("r1", &domain.Result{Content: "first"})
	s.FailRequest("r1", domain.ErrorKindInternal, "late failure")

	entry, ok := s.PollRequest("r1")
	if !ok || entry.Status != domain.RequestStatusCompleted {
		t.Fatalf("later terminal write should not overwrite, got %+v", entry)
	}
}

func TestPollUnknownRequest(t *testing.T) {
	s := &Session{ID: "s1"}
	s.EnsureInitialized()
	if _, ok := s.PollRequest("nope"); ok {
		t.Fatalf("unknown request id should report not found")
	}
}

func TestRemoteRefsFirstWins(t *testing.T) {
	s := &Session{ID: "s1"}
	s.EnsureInitialized()

	s.SetGuideRef("asst_1")
	s.SetGuideRef("asst_2")
	if got := s.GuideRef(); got != "asst_1" {
		t.Fatalf("guide ref should be create-once, got %q", got)
	}

	s.SetThreadRef("thread_1")
	s.SetThreadRef("thread_2")
	if got := s.ThreadRef(); got != "thread_1" {
		t.Fatalf("thread ref should be create-once, got %q", got)
	}
}

func TestManagerGetCreatesOnFirstTouch(t *testing.T) {
	m := NewManager(time.Hour, time.Hour)
	a := m.Get("s1")
	b := m.Get("s1")
	if a != b {
		t.Fatalf("expected the same session instance for one id")
	}
	if m.Get("s2") == a {
		t.Fatalf("distinct ids must get distinct sessions")
	}
}

func TestSweepEvictsStaleTerminalEntries(t *testing.T) {
	m := NewManager(time.Hour, 10*time.Millisecond)
	s := m.Get("s1")
	s.BeginRequest("r1")
	s.CompleteRequest("r1", &domain.Result{Content: "done"})

	m.Sweep(time.Now().Add(time.Second))

	if _, ok := s.PollRequest("r1"); ok {
		t.Fatalf("stale terminal entry should be swept")
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	m := NewManager(10*time.Millisecond, time.Hour)
	s := m.Get("s1")
	s.SetAccount("cmp_1")
	s.ResolveCompanion()

	m.Sweep(time.Now().Add(time.Second))

	if m.Get("s1").Companion() != "" {
		t.Fatalf("idle session should have been evicted and recreated fresh")
	}
}

func TestSweepKeepsActiveSessions(t *testing.T) {
	m := NewManager(time.Hour, time.Hour)
	s := m.Get("s1")
	s.BeginRequest("r1")

	m.Sweep(time.Now())

	if _, ok := s.PollRequest("r1"); !ok {
		t.Fatalf("active session state should survive the sweep")
	}
}
