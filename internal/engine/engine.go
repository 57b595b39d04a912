// Package engine implements the brainstorming dialogue state machine.
// Given an identity, an incoming message, and stored session state it
// decides the next utterances and state transition, emitting an ordered
// event sequence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wackypm/brainstormd/internal/command"
	"github.com/wackypm/brainstormd/internal/events"
	"github.com/wackypm/brainstormd/internal/llm"
	"github.com/wackypm/brainstormd/internal/observability"
	"github.com/wackypm/brainstormd/internal/prd"
	"github.com/wackypm/brainstormd/internal/session"
)

// Error codes surfaced to the user in copilot_errors events.
const (
	codeGeneratorFailure   = "generator_failure"
	codeTurnInFlight       = "turn_in_flight"
	codeSessionStore       = "session_store_failure"
	codeExternalAPIFailure = "external_api_failure"
)

const defaultGeneratorTimeout = 60 * time.Second

// IssueFiler files the finalized document with an external tracker.
type IssueFiler interface {
	FileIssue(ctx context.Context, credential, title, body string) error
}

// Turn is one inbound request for one identity.
type Turn struct {
	// OwnerID is the resolved user identity.
	OwnerID string
	// Credential is the caller's token, passed through to the idea
	// generator and issue filer.
	Credential string
	// RawText is the user's message.
	RawText string
	// ConfirmationState is "accepted" or "dismissed" when the message
	// answers an outstanding confirmation, "" otherwise.
	ConfirmationState string
}

// Options configures an Engine.
type Options struct {
	Store     session.Store
	Guard     *session.TurnGuard
	Generator llm.Generator
	// Filer is optional; when nil no issue is created on acceptance.
	Filer IssueFiler
	// GeneratorTimeout bounds every idea-generator call.
	GeneratorTimeout time.Duration
	Logger           *zap.Logger
	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

// Engine runs the dialogue state machine.
type Engine struct {
	store      session.Store
	guard      *session.TurnGuard
	gen        llm.Generator
	filer      IssueFiler
	genTimeout time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Generator == nil {
		return nil, errors.New("engine: generator is required")
	}
	if opts.Guard == nil {
		opts.Guard = session.NewTurnGuard()
	}
	if opts.GeneratorTimeout <= 0 {
		opts.GeneratorTimeout = defaultGeneratorTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:      opts.Store,
		guard:      opts.Guard,
		gen:        opts.Generator,
		filer:      opts.Filer,
		genTimeout: opts.GeneratorTimeout,
		logger:     opts.Logger,
		now:        opts.Now,
	}, nil
}

// HandleTurn processes one inbound turn, emitting events in order. All
// turn-level failures are converted to a single error event; the
// returned error reports transport problems only.
func (e *Engine) HandleTurn(ctx context.Context, turn Turn, out events.Emitter) error {
	ctx, span := observability.StartSpan(ctx, "engine.turn")
	defer span.End()

	if err := e.guard.Acquire(turn.OwnerID); err != nil {
		observability.RecordTurn("any", "rejected")
		return out.Errors(events.AgentError(codeTurnInFlight,
			"Another request of yours is still being processed. Please wait for it to finish.",
			codeTurnInFlight))
	}
	defer e.guard.Release(turn.OwnerID)

	sess, err := e.store.Get(ctx, turn.OwnerID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return e.handleIdle(ctx, turn, out)
	case err != nil:
		e.logger.Error("session lookup failed", zap.String("owner", turn.OwnerID), zap.Error(err))
		return out.Errors(events.AgentError(codeSessionStore,
			"Could not load your brainstorming session. Please try again.", codeSessionStore))
	}

	if sess.State == session.StateAwaitingConfirm {
		return e.handleConfirmation(ctx, turn, sess, out)
	}
	return e.handleBrainstorming(ctx, turn, sess, out)
}

// handleIdle covers turns for identities with no open dialogue. Only a
// start command opens one; everything else gets a greeting and leaves
// the store untouched.
func (e *Engine) handleIdle(ctx context.Context, turn Turn, out events.Emitter) error {
	intent, _ := command.Parse(turn.RawText)

	if intent != command.IntentStart {
		observability.RecordTurn(string(intent), "greeted")
		if err := out.Text(idleGreeting(turn.OwnerID)); err != nil {
			return err
		}
		return out.Done()
	}

	idea, err := e.generate(ctx, startPrompt(), turn.Credential)
	if err != nil {
		return e.generatorError(turn, intent, err, out)
	}

	now := e.now().UTC()
	sess := &session.Session{
		OwnerID:     turn.OwnerID,
		State:       session.StateBrainstorming,
		CurrentIdea: idea,
		TurnCount:   1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.Put(ctx, sess); err != nil {
		e.logger.Error("session create failed", zap.String("owner", turn.OwnerID), zap.Error(err))
		return out.Errors(events.AgentError(codeSessionStore,
			"Could not open a brainstorming session. Please try again.", codeSessionStore))
	}
	observability.SessionOpened()
	observability.RecordTurn(string(intent), "ok")

	for _, msg := range []string{brainstormGreeting(turn.OwnerID), idea + "\n", followupFirst} {
		if err := out.Text(msg); err != nil {
			return err
		}
	}
	return out.Done()
}

// handleBrainstorming covers turns inside an open dialogue that is not
// awaiting a confirmation answer.
func (e *Engine) handleBrainstorming(ctx context.Context, turn Turn, sess *session.Session, out events.Emitter) error {
	intent, text := command.Parse(turn.RawText)

	switch intent {
	case command.IntentFinalize:
		return e.requestConfirmation(ctx, turn, sess, out)

	case command.IntentNext:
		idea, err := e.generate(ctx, nextPrompt(sess.CurrentIdea, sess.PendingSuggestion), turn.Credential)
		if err != nil {
			return e.generatorError(turn, intent, err, out)
		}
		sess.CurrentIdea = idea
		sess.TurnCount++
		sess.PendingSuggestion = ""
		sess.UpdatedAt = e.now().UTC()
		if err := e.putSession(ctx, sess, out); err != nil {
			return err
		}
		observability.RecordTurn(string(intent), "ok")
		return e.emitIdea(out, anotherIdeaPreamble, idea)

	default:
		// Anything else, including a stray start token, is treated as
		// a suggestion to improve the current idea.
		sess.PendingSuggestion = text
		idea, err := e.generate(ctx, refinePrompt(sess.CurrentIdea, text), turn.Credential)
		if err != nil {
			return e.generatorError(turn, command.IntentFreeform, err, out)
		}
		sess.CurrentIdea = idea
		sess.TurnCount++
		sess.UpdatedAt = e.now().UTC()
		if err := e.putSession(ctx, sess, out); err != nil {
			return err
		}
		observability.RecordTurn(string(command.IntentFreeform), "ok")
		return e.emitIdea(out, improvedIdeaPreamble, idea)
	}
}

// requestConfirmation issues the finalization confirmation. The idea
// and turn count are left untouched; only the phase advances.
func (e *Engine) requestConfirmation(ctx context.Context, turn Turn, sess *session.Session, out events.Emitter) error {
	confirmation := events.Confirmation{
		ID:      "prd-confirmation-" + uuid.New().String(),
		Title:   confirmTitle,
		Message: confirmMessage,
		Metadata: events.ConfirmationMetadata{
			User:        sess.OwnerID,
			FeatureIdea: sess.CurrentIdea,
			Suggestion:  sess.PendingSuggestion,
		},
	}

	sess.State = session.StateAwaitingConfirm
	sess.UpdatedAt = e.now().UTC()
	if err := e.putSession(ctx, sess, out); err != nil {
		return err
	}

	observability.RecordTurn(string(command.IntentFinalize), "ok")
	return out.Confirm(confirmation)
}

// handleConfirmation resolves an outstanding finalization request.
// Anything that is not an explicit acceptance counts as a decline, so
// a user who just keeps typing falls back to a clean close.
func (e *Engine) handleConfirmation(ctx context.Context, turn Turn, sess *session.Session, out events.Emitter) error {
	if turn.ConfirmationState != events.ConfirmationAccepted {
		if err := e.deleteSession(ctx, sess.OwnerID, out); err != nil {
			return err
		}
		observability.RecordTurn("confirm", "declined")
		if err := out.Text(declineAck); err != nil {
			return err
		}
		return out.Done()
	}

	doc := prd.Render(prd.Snapshot{
		Owner:      sess.OwnerID,
		Idea:       sess.CurrentIdea,
		Suggestion: sess.PendingSuggestion,
	}, e.now())

	if err := e.deleteSession(ctx, sess.OwnerID, out); err != nil {
		return err
	}
	observability.RecordTurn("confirm", "accepted")

	if err := out.Text(prdPreamble); err != nil {
		return err
	}
	if err := out.Text("```markdown\n" + doc + "\n```\n"); err != nil {
		return err
	}

	if e.filer != nil {
		title := fmt.Sprintf("PRD: wacky product feature for %s", sess.OwnerID)
		if err := e.filer.FileIssue(ctx, turn.Credential, title, doc); err != nil {
			e.logger.Error("issue creation failed", zap.String("owner", sess.OwnerID), zap.Error(err))
			return out.Errors(events.AgentError(codeExternalAPIFailure,
				"Your PRD was generated but could not be filed as an issue.", codeExternalAPIFailure))
		}
	}
	return out.Done()
}

func (e *Engine) emitIdea(out events.Emitter, preamble, idea string) error {
	for _, msg := range []string{preamble, idea + "\n", followup} {
		if err := out.Text(msg); err != nil {
			return err
		}
	}
	return out.Done()
}

func (e *Engine) putSession(ctx context.Context, sess *session.Session, out events.Emitter) error {
	if err := e.store.Put(ctx, sess); err != nil {
		e.logger.Error("session update failed", zap.String("owner", sess.OwnerID), zap.Error(err))
		return out.Errors(events.AgentError(codeSessionStore,
			"Could not save your brainstorming session. Please try again.", codeSessionStore))
	}
	return nil
}

func (e *Engine) deleteSession(ctx context.Context, ownerID string, out events.Emitter) error {
	if err := e.store.Delete(ctx, ownerID); err != nil {
		e.logger.Error("session delete failed", zap.String("owner", ownerID), zap.Error(err))
		return out.Errors(events.AgentError(codeSessionStore,
			"Could not close your brainstorming session. Please try again.", codeSessionStore))
	}
	observability.SessionClosed()
	return nil
}

// generate runs one idea-generator call under the configured deadline.
// The session is never mutated in the store on failure, so the user can
// simply retry the turn.
func (e *Engine) generate(ctx context.Context, prompt, credential string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.genTimeout)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "generator.generate")
	defer span.End()

	start := e.now()
	idea, err := e.gen.Generate(ctx, prompt, credential)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
	}
	observability.RecordGeneratorCall(e.gen.Name(), status, time.Since(start))
	return idea, err
}

func (e *Engine) generatorError(turn Turn, intent command.Intent, err error, out events.Emitter) error {
	e.logger.Warn("idea generation failed",
		zap.String("owner", turn.OwnerID),
		zap.String("intent", string(intent)),
		zap.Error(err))
	observability.RecordTurn(string(intent), "error")
	return out.Errors(events.AgentError(codeGeneratorFailure,
		"I couldn't come up with an idea just now. Please try again.", codeGeneratorFailure))
}
