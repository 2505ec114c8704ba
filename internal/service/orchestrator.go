package service

import (
	"context"
	"log"

	"github.com/sensei-labs/sensei/internal/domain"
	"github.com/sensei-labs/sensei/internal/session"
)

// Respond runs one full orchestration for an accepted prompt and writes the
// terminal entry into the session's request table. It is launched on its own
// goroutine by the transport layer; the submitting request has already
// returned the request id to the client.
func (s *Service) Respond(ctx context.Context, sess *session.Session, requestID, prompt string) {
	// One orchestration at a time per session. Concurrent prompts queue
	// here rather than interleave their turns.
	sess.LockRun()
	defer sess.UnlockRun()

	companionID := sess.ResolveCompanion()
	sess.AppendTurn(domain.RoleCompanion, prompt)
	s.saveMessage(ctx, sess, domain.RoleCompanion, prompt)

	var (
		reply string
		err   error
	)
	switch s.Target() {
	case domain.TargetAssistant:
		reply, err = s.callAssistant(ctx, sess, companionID, prompt)
	default:
		reply, err = s.callChat(ctx, sess)
	}
	if err != nil {
		log.Printf("ERROR: orchestration failed for request %s: %v", requestID, err)
		sess.FailRequest(requestID, domain.ErrorKindProvider, err.Error())
		return
	}

	audioURL, err := s.speech.Synthesize(ctx, reply, requestID)
	if err != nil {
		log.Printf("ERROR: speech synthesis failed for request %s: %v", requestID, err)
		sess.FailRequest(requestID, domain.ErrorKindSpeech, err.Error())
		return
	}

	sess.AppendTurn(domain.RoleGuide, reply)
	s.saveMessage(ctx, sess, domain.RoleGuide, reply)

	sess.CompleteRequest(requestID, &domain.Result{
		Role:     domain.RoleGuide,
		Content:  reply,
		AudioURL: audioURL,
	})
}
