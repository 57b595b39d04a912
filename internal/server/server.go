// Package server exposes the agent over HTTP: it authenticates and
// verifies inbound extension requests, resolves the caller's identity,
// and streams the dialogue engine's events back as SSE.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wackypm/brainstormd/internal/engine"
	"github.com/wackypm/brainstormd/internal/events"
	"github.com/wackypm/brainstormd/internal/github"
	"github.com/wackypm/brainstormd/internal/observability"
)

// maxBodyBytes bounds the inbound payload; conversation histories stay
// far below this.
const maxBodyBytes = 4 << 20

const welcomeBody = "Hello! This is the Wacky Product Manager. Install the extension and type '/feature' in Copilot Chat to brainstorm."

// Verifier checks the signature of an inbound request body.
type Verifier interface {
	Verify(ctx context.Context, body []byte, signature, keyID string) error
}

// IdentityResolver maps a caller token to a stable login.
type IdentityResolver interface {
	Login(ctx context.Context, token string) (string, error)
}

// TurnHandler runs one dialogue turn against an event sink.
type TurnHandler interface {
	HandleTurn(ctx context.Context, turn engine.Turn, out events.Emitter) error
}

// Options configures a Handler.
type Options struct {
	Engine   TurnHandler
	Resolver IdentityResolver
	// Verifier may be nil only when SkipVerify is set.
	Verifier Verifier
	// SkipVerify disables signature checking for local development.
	SkipVerify bool
	Limiter    *Limiter
	Logger     *zap.Logger
}

// Handler is the extension API endpoint.
type Handler struct {
	engine     TurnHandler
	resolver   IdentityResolver
	verifier   Verifier
	skipVerify bool
	limiter    *Limiter
	logger     *zap.Logger
}

// New creates the extension API handler.
func New(opts Options) (*Handler, error) {
	if opts.Engine == nil {
		return nil, errors.New("server: engine is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("server: identity resolver is required")
	}
	if opts.Verifier == nil && !opts.SkipVerify {
		return nil, errors.New("server: verifier is required unless verification is skipped")
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(0, 0)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handler{
		engine:     opts.Engine,
		resolver:   opts.Resolver,
		verifier:   opts.Verifier,
		skipVerify: opts.SkipVerify,
		limiter:    opts.Limiter,
		logger:     opts.Logger,
	}, nil
}

// ServeHTTP routes the two endpoints: a GET landing page and the POST
// agent endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	switch r.Method {
	case http.MethodGet:
		h.handleWelcome(sw, r)
	case http.MethodPost:
		h.handleAgent(sw, r)
	default:
		http.Error(sw, "method not allowed", http.StatusMethodNotAllowed)
	}

	observability.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(sw.status), time.Since(start))
}

func (h *Handler) handleWelcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, welcomeBody)
}

func (h *Handler) handleAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return
	}

	if !h.skipVerify {
		sig := r.Header.Get(github.HeaderSignature)
		keyID := r.Header.Get(github.HeaderKeyIdentifier)
		if err := h.verifier.Verify(ctx, body, sig, keyID); err != nil {
			h.logger.Warn("signature verification failed", zap.Error(err))
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	// From here on all failures are reported in-stream so the chat
	// client can show them to the user.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	out := events.NewStreamWriter(w)

	token := r.Header.Get("X-GitHub-Token")
	if token == "" {
		h.emitError(out, "missing_github_token",
			"No GitHub token was provided with the request.")
		return
	}

	owner, err := h.resolver.Login(ctx, token)
	if err != nil {
		h.logger.Warn("identity resolution failed", zap.Error(err))
		h.emitError(out, "identity_resolution_failed",
			"Could not resolve your GitHub identity. Please try again.")
		return
	}

	if !h.limiter.Allow(owner) {
		h.emitError(out, "rate_limited",
			"You're sending requests too quickly. Please slow down and try again.")
		return
	}

	payload, err := events.ParsePayload(body)
	if err != nil {
		h.logger.Warn("payload parse failed", zap.String("owner", owner), zap.Error(err))
		h.emitError(out, "invalid_payload",
			"The request payload could not be understood.")
		return
	}

	if err := out.Ack(); err != nil {
		h.logger.Warn("stream write failed", zap.Error(err))
		return
	}

	turn := engine.Turn{
		OwnerID:           owner,
		Credential:        token,
		RawText:           payload.UserMessage(),
		ConfirmationState: payload.ConfirmationState(),
	}
	if err := h.engine.HandleTurn(ctx, turn, out); err != nil {
		h.logger.Warn("turn failed mid-stream", zap.String("owner", owner), zap.Error(err))
	}
}

func (h *Handler) emitError(out *events.StreamWriter, code, message string) {
	if err := out.Errors(events.AgentError(code, message, code)); err != nil {
		h.logger.Warn("error event write failed", zap.Error(err))
	}
}

// statusWriter captures the response status for metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE streaming keeps working
// through the wrapper.
func (s *statusWriter) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
