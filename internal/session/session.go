// Package session holds per-conversation state. Every piece of dialogue
// state hangs off a Session object passed explicitly through the
// orchestrator; there is no process-wide conversation state.
package session

import (
	"sync"
	"time"

	"github.com/sensei-labs/sensei/internal/domain"
)

// Session is the present state of one companion's dialogue: accumulated turn
// history, the remote assistant/thread handles (assistant mode only), and the
// table of in-flight request outcomes.
type Session struct {
	ID string

	mu          sync.Mutex
	companionID string
	accountID   string
	turns       []domain.Turn
	guideRef    string
	threadRef   string
	threadSeen  int
	requests    map[string]*requestSlot
	lastActive  time.Time

	// runGate serializes orchestrations for this session so concurrent
	// prompts cannot interleave and corrupt turn ordering.
	runGate sync.Mutex
}

type requestSlot struct {
	entry      domain.RequestEntry
	terminalAt time.Time
}

// EnsureInitialized idempotently sets defaults for the session's fields.
// It never overwrites values that are already set, so it is safe (and
// required) to call at the top of every handler that touches the session.
func (s *Session) EnsureInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.turns == nil {
		s.turns = []domain.Turn{}
	}
	if s.requests == nil {
		s.requests = make(map[string]*requestSlot)
	}
	s.lastActive = time.Now()
}

// ResolveCompanion applies the identity resolution policy for one incoming
// prompt: authenticated account id first, then a previously established
// companion id, then the session id as a pseudo-identity.
func (s *Session) ResolveCompanion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accountID != "" {
		s.companionID = s.accountID
	} else if s.companionID == "" {
		s.companionID = s.ID
	}
	return s.companionID
}

// Companion returns the resolved companion id, or "" before the first
// prompt of an anonymous session.
func (s *Session) Companion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.companionID
}

// SetAccount binds an authenticated account to the session.
func (s *Session) SetAccount(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountID = accountID
}

// Turns returns a copy of the accumulated turn history.
func (s *Session) Turns() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// AppendTurn appends one turn to the history.
func (s *Session) AppendTurn(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, domain.Turn{Role: role, Content: content})
}

// GuideRef returns the remote assistant handle, or "" if not yet created.
func (s *Session) GuideRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guideRef
}

// SetGuideRef records the remote assistant handle. The first non-empty value
// wins: the handle is created at most once per session and reused.
func (s *Session) SetGuideRef(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guideRef == "" {
		s.guideRef = ref
	}
}

// ThreadRef returns the remote thread handle, or "" if not yet created.
func (s *Session) ThreadRef() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadRef
}

// SetThreadRef records the remote thread handle, first value wins.
func (s *Session) SetThreadRef(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.threadRef == "" {
		s.threadRef = ref
	}
}

// ThreadSeen returns how many remote thread messages this session has
// already consumed. The remote thread is cumulative; the session keeps only
// the incremental slice past this count.
func (s *Session) ThreadSeen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadSeen
}

// SetThreadSeen records the new consumed-message count.
func (s *Session) SetThreadSeen(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > s.threadSeen {
		s.threadSeen = n
	}
}

// BeginRequest stores a processing entry for a freshly accepted request id.
func (s *Session) BeginRequest(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requests == nil {
		s.requests = make(map[string]*requestSlot)
	}
	s.requests[requestID] = &requestSlot{
		entry: domain.RequestEntry{Status: domain.RequestStatusProcessing},
	}
	s.lastActive = time.Now()
}

// CompleteRequest writes the terminal completed entry for a request.
func (s *Session) CompleteRequest(requestID string, result *domain.Result) {
	s.finishRequest(requestID, domain.RequestEntry{
		Status: domain.RequestStatusCompleted,
		Data:   result,
	})
}

// FailRequest writes the terminal failed entry for a request.
func (s *Session) FailRequest(requestID string, kind domain.ErrorKind, message string) {
	s.finishRequest(requestID, domain.RequestEntry{
		Status: domain.RequestStatusFailed,
		Kind:   kind,
		Data:   message,
	})
}

func (s *Session) finishRequest(requestID string, entry domain.RequestEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.requests[requestID]
	if !ok || slot.entry.Status != domain.RequestStatusProcessing {
		// Terminal writes happen exactly once.
		return
	}
	slot.entry = entry
	slot.terminalAt = time.Now()
}

// PollRequest reads the entry for a request id. Terminal entries are
// returned and evicted in the same step, so a terminal result is delivered
// at most once; processing entries stay in place for the next poll.
func (s *Session) PollRequest(requestID string) (domain.RequestEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.requests[requestID]
	if !ok {
		return domain.RequestEntry{}, false
	}
	if slot.entry.Status != domain.RequestStatusProcessing {
		delete(s.requests, requestID)
	}
	s.lastActive = time.Now()
	return slot.entry, true
}

// LockRun acquires the session's run gate.
func (s *Session) LockRun() { s.runGate.Lock() }

// UnlockRun releases the session's run gate.
func (s *Session) UnlockRun() { s.runGate.Unlock() }

// sweepRequests evicts terminal entries that were never polled after ttl.
func (s *Session) sweepRequests(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, slot := range s.requests {
		if slot.entry.Status != domain.RequestStatusProcessing && now.Sub(slot.terminalAt) > ttl {
			delete(s.requests, id)
		}
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive)
}
