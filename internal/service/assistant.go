package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sensei-labs/sensei/internal/adapter/openai"
	"github.com/sensei-labs/sensei/internal/domain"
	"github.com/sensei-labs/sensei/internal/guides"
	"github.com/sensei-labs/sensei/internal/session"
)

const (
	uploadMaxAttempts = 3
	uploadRetryDelay  = time.Second
)

// callAssistant answers a prompt through the stateful assistant pipeline:
// create-once assistant and thread, post the prompt, start a run, poll it to
// a terminal state servicing tool calls along the way, then read back the
// messages the run produced.
func (s *Service) callAssistant(ctx context.Context, sess *session.Session, companionID, prompt string) (string, error) {
	if err := s.ensureGuide(ctx, sess); err != nil {
		return "", err
	}
	if err := s.ensureThread(ctx, sess); err != nil {
		return "", err
	}
	threadID := sess.ThreadRef()

	if err := s.provider.CreateThreadMessage(ctx, threadID, domain.RoleUser, prompt); err != nil {
		return "", fmt.Errorf("failed to post thread message: %w", err)
	}

	run, err := s.provider.CreateRun(ctx, threadID, sess.GuideRef())
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	run, err = s.pollRun(ctx, companionID, threadID, run)
	if err != nil {
		return "", err
	}
	if run.Status != domain.RunStatusCompleted {
		if run.LastError != nil {
			return "", fmt.Errorf("run ended %s: %s", run.Status, run.LastError.Message)
		}
		return "", fmt.Errorf("run ended %s", run.Status)
	}

	return s.collectReply(ctx, sess, threadID)
}

// pollRun drives a run to a terminal state, answering requires_action states
// with one batched tool-output submission per round.
func (s *Service) pollRun(ctx context.Context, companionID, threadID string, run *openai.Run) (*openai.Run, error) {
	interval := s.config.RunPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	for !run.Status.Terminal() {
		if run.Status == domain.RunStatusRequiresAction {
			outputs := s.serviceGuideCalls(ctx, companionID, run)
			next, err := s.provider.SubmitToolOutputs(ctx, threadID, run.ID, outputs)
			if err != nil {
				return nil, fmt.Errorf("failed to submit tool outputs: %w", err)
			}
			run = next
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		next, err := s.provider.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll run: %w", err)
		}
		run = next
	}
	return run, nil
}

// serviceGuideCalls answers every pending tool call of a requires_action run.
// Each call gets exactly one output: the guide's serialized result, or the
// sentinel string when the guide is unknown, blocked by policy, or fails.
func (s *Service) serviceGuideCalls(ctx context.Context, companionID string, run *openai.Run) []domain.GuideOutput {
	if run.RequiredAction == nil || run.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}
	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	outputs := make([]domain.GuideOutput, 0, len(calls))
	for _, call := range calls {
		outputs = append(outputs, domain.GuideOutput{
			ToolCallID: call.ID,
			Output:     s.invokeGuide(ctx, companionID, call),
		})
	}
	return outputs
}

func (s *Service) invokeGuide(ctx context.Context, companionID string, call openai.RunToolCall) string {
	name := call.Function.Name

	var args map[string]interface{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			log.Printf("WARN: unparseable arguments for guide %s: %v", name, err)
			return guides.SentinelOutput
		}
	}

	decision, err := s.policyEngine.Evaluate(ctx, map[string]interface{}{
		"guide_name":   name,
		"args":         args,
		"companion_id": companionID,
	})
	if err != nil {
		log.Printf("ERROR: policy evaluation failed for guide %s: %v", name, err)
		return guides.SentinelOutput
	}
	if decision != "allow" {
		log.Printf("WARN: policy blocked guide %s for companion %s", name, companionID)
		return guides.SentinelOutput
	}

	out, err := s.registry.Invoke(ctx, name, json.RawMessage(call.Function.Arguments))
	if err != nil {
		if errors.Is(err, guides.ErrGuideNotFound) {
			log.Printf("WARN: model requested unknown guide %s", name)
		} else {
			log.Printf("ERROR: guide %s failed: %v", name, err)
		}
		return guides.SentinelOutput
	}
	return out
}

// collectReply reads back the thread messages the completed run produced.
// The remote thread is cumulative and newest-first; only messages past the
// session's consumed count are new. Intermediate new replies are folded into
// the turn history; the newest one is the reply.
func (s *Service) collectReply(ctx context.Context, sess *session.Session, threadID string) (string, error) {
	msgs, err := s.provider.ListThreadMessages(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("failed to list thread messages: %w", err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("thread has no messages")
	}

	seen := sess.ThreadSeen()
	fresh := len(msgs) - seen
	if fresh < 1 {
		fresh = 1
	}
	// Walk the new slice oldest-first, skipping the echoed prompt.
	for i := fresh - 1; i >= 1; i-- {
		msg := msgs[i]
		if msg.Role != domain.RoleAssistant {
			continue
		}
		sess.AppendTurn(domain.RoleGuide, msg.Text())
		s.saveMessage(ctx, sess, domain.RoleGuide, msg.Text())
	}
	sess.SetThreadSeen(len(msgs))

	newest := msgs[0]
	if newest.Role != domain.RoleAssistant {
		return "", fmt.Errorf("run completed without an assistant reply")
	}
	return newest.Text(), nil
}

// ensureGuide creates the remote assistant once per session, attaching the
// loaded guide declarations and any configured reference files.
func (s *Service) ensureGuide(ctx context.Context, sess *session.Session) error {
	if sess.GuideRef() != "" {
		return nil
	}

	tools := []openai.AssistantTool{}
	for _, decl := range s.registry.Declarations() {
		d := decl
		tools = append(tools, openai.AssistantTool{Type: "function", Function: &d})
	}

	req := &openai.AssistantRequest{
		Name:         s.persona.Name,
		Description:  s.persona.Description,
		Instructions: s.instructions,
		Model:        s.persona.Model,
		Tools:        tools,
		Temperature:  s.persona.Temperature,
	}

	if fileIDs := s.uploadReferenceFiles(ctx); len(fileIDs) > 0 {
		req.Tools = append(req.Tools, openai.AssistantTool{Type: "code_interpreter"})
		req.ToolResources = &openai.ToolResources{
			CodeInterpreter: &openai.CodeInterpreterResources{FileIDs: fileIDs},
		}
		// file_search needs the files grouped into a vector store first.
		// If that fails the assistant is still created with the files
		// reachable through the code interpreter.
		vectorStoreID, err := s.provider.CreateVectorStore(ctx, s.persona.Name, fileIDs)
		if err != nil {
			log.Printf("ERROR: failed to create vector store: %v", err)
		} else {
			req.Tools = append(req.Tools, openai.AssistantTool{Type: "file_search"})
			req.ToolResources.FileSearch = &openai.FileSearchResources{VectorStoreIDs: []string{vectorStoreID}}
		}
	}

	assistant, err := s.provider.CreateAssistant(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}
	sess.SetGuideRef(assistant.ID)
	return nil
}

// ensureThread creates the remote thread once per session.
func (s *Service) ensureThread(ctx context.Context, sess *session.Session) error {
	if sess.ThreadRef() != "" {
		return nil
	}
	thread, err := s.provider.CreateThread(ctx)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	sess.SetThreadRef(thread.ID)
	return nil
}

// uploadReferenceFiles uploads every file under the configured reference
// directory, retrying transient failures. A file that never uploads is
// skipped; the assistant is still created without it.
func (s *Service) uploadReferenceFiles(ctx context.Context) []string {
	if s.config.FilesDir == "" {
		return nil
	}
	entries, err := os.ReadDir(s.config.FilesDir)
	if err != nil {
		log.Printf("WARN: failed to read reference files dir: %v", err)
		return nil
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.config.FilesDir, entry.Name())
		id, err := s.uploadWithRetry(ctx, path)
		if err != nil {
			log.Printf("ERROR: failed to upload reference file %s: %v", entry.Name(), err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (s *Service) uploadWithRetry(ctx context.Context, path string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= uploadMaxAttempts; attempt++ {
		id, err := s.provider.UploadFile(ctx, path)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if attempt < uploadMaxAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(uploadRetryDelay):
			}
		}
	}
	return "", fmt.Errorf("upload failed after %d attempts: %w", uploadMaxAttempts, lastErr)
}
