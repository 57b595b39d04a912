package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wackypm/brainstormd/internal/events"
	"github.com/wackypm/brainstormd/internal/session"
)

// scriptGenerator returns canned ideas in order and records the prompts
// it was asked for.
type scriptGenerator struct {
	ideas   []string
	prompts []string
	err     error
	calls   int
}

func (g *scriptGenerator) Generate(ctx context.Context, prompt, credential string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	idea := g.ideas[0]
	if len(g.ideas) > 1 {
		g.ideas = g.ideas[1:]
	}
	return idea, nil
}

func (g *scriptGenerator) Name() string { return "script" }

// recorded is one emitted event, flattened for assertions.
type recorded struct {
	kind    string // "ack", "text", "confirm", "errors", "done"
	text    string
	confirm events.Confirmation
	errs    []events.Error
}

type recorder struct {
	got []recorded
}

func (r *recorder) Ack() error { r.got = append(r.got, recorded{kind: "ack"}); return nil }

func (r *recorder) Text(content string) error {
	r.got = append(r.got, recorded{kind: "text", text: content})
	return nil
}

func (r *recorder) Confirm(c events.Confirmation) error {
	r.got = append(r.got, recorded{kind: "confirm", confirm: c})
	return nil
}

func (r *recorder) Errors(errs ...events.Error) error {
	r.got = append(r.got, recorded{kind: "errors", errs: errs})
	return nil
}

func (r *recorder) Done() error { r.got = append(r.got, recorded{kind: "done"}); return nil }

func (r *recorder) kinds() []string {
	kinds := make([]string, len(r.got))
	for i, ev := range r.got {
		kinds[i] = ev.kind
	}
	return kinds
}

func (r *recorder) allText() string {
	var b strings.Builder
	for _, ev := range r.got {
		if ev.kind == "text" {
			b.WriteString(ev.text)
		}
	}
	return b.String()
}

func newTestEngine(t *testing.T, gen *scriptGenerator) (*Engine, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { store.Close() })

	eng, err := New(Options{
		Store:     store,
		Generator: gen,
		Now:       func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return eng, store
}

func runTurn(t *testing.T, eng *Engine, turn Turn) *recorder {
	t.Helper()
	out := &recorder{}
	require.NoError(t, eng.HandleTurn(context.Background(), turn, out))
	return out
}

func TestIdleNonStartGreetsWithoutSession(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"unused"}}
	eng, store := newTestEngine(t, gen)

	out := runTurn(t, eng, Turn{OwnerID: "alice", RawText: "hello there"})

	assert.Equal(t, []string{"text", "done"}, out.kinds())
	assert.Contains(t, out.got[0].text, "alice")
	assert.Contains(t, out.got[0].text, "/feature")
	assert.Zero(t, gen.calls)

	_, err := store.Get(context.Background(), "alice")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestStartOpensSession(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"a toaster that tweets"}}
	eng, store := newTestEngine(t, gen)

	out := runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})

	assert.Equal(t, []string{"text", "text", "text", "done"}, out.kinds())
	assert.Contains(t, out.got[0].text, "alice")
	assert.Equal(t, "a toaster that tweets\n", out.got[1].text)
	assert.Contains(t, out.got[2].text, "/new")
	assert.Contains(t, out.got[2].text, "/done")

	sess, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, session.StateBrainstorming, sess.State)
	assert.Equal(t, "a toaster that tweets", sess.CurrentIdea)
	assert.Equal(t, 1, sess.TurnCount)
	assert.Empty(t, sess.PendingSuggestion)
}

func TestNextReplacesIdeaAndClearsSuggestion(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one", "idea two"}}
	eng, store := newTestEngine(t, gen)

	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})

	// Park a suggestion so we can see it both folded into the prompt
	// and cleared afterwards.
	sess, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	sess.PendingSuggestion = "more glitter"
	require.NoError(t, store.Put(context.Background(), sess))

	out := runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/new"})

	assert.Equal(t, []string{"text", "text", "text", "done"}, out.kinds())
	assert.Contains(t, out.got[0].text, "another idea")
	assert.Equal(t, "idea two\n", out.got[1].text)

	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], `"idea one"`)
	assert.Contains(t, gen.prompts[1], `"more glitter"`)

	sess, err = store.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "idea two", sess.CurrentIdea)
	assert.Equal(t, 2, sess.TurnCount)
	assert.Empty(t, sess.PendingSuggestion)
}

func TestFreeformRefinesWithSuggestion(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one", "idea one, now with cats"}}
	eng, store := newTestEngine(t, gen)

	runTurn(t, eng, Turn{OwnerID: "bob", RawText: "/feature"})
	out := runTurn(t, eng, Turn{OwnerID: "bob", RawText: "Make it about cats"})

	assert.Equal(t, []string{"text", "text", "text", "done"}, out.kinds())
	assert.Contains(t, out.got[0].text, "improved idea")
	assert.Equal(t, "idea one, now with cats\n", out.got[1].text)

	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], `"idea one"`)
	assert.Contains(t, gen.prompts[1], `"make it about cats"`)

	sess, err := store.Get(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "idea one, now with cats", sess.CurrentIdea)
	assert.Equal(t, "make it about cats", sess.PendingSuggestion)
	assert.Equal(t, 2, sess.TurnCount)
}

func TestFinalizeRequestsConfirmation(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one"}}
	eng, store := newTestEngine(t, gen)

	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})
	before, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)

	out := runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/done"})

	// A confirmation closes the turn by itself; no done event follows.
	require.Equal(t, []string{"confirm"}, out.kinds())
	c := out.got[0].confirm
	assert.True(t, strings.HasPrefix(c.ID, "prd-confirmation-"))
	assert.NotEmpty(t, c.Title)
	assert.Equal(t, "alice", c.Metadata.User)
	assert.Equal(t, "idea one", c.Metadata.FeatureIdea)

	after, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, session.StateAwaitingConfirm, after.State)
	assert.Equal(t, before.CurrentIdea, after.CurrentIdea)
	assert.Equal(t, before.TurnCount, after.TurnCount)
	assert.Equal(t, before.PendingSuggestion, after.PendingSuggestion)
}

func TestAcceptEmitsDocumentAndClosesSession(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one", "idea with cats"}}
	eng, store := newTestEngine(t, gen)

	runTurn(t, eng, Turn{OwnerID: "bob", RawText: "/feature"})
	runTurn(t, eng, Turn{OwnerID: "bob", RawText: "make it about cats"})
	runTurn(t, eng, Turn{OwnerID: "bob", RawText: "/done"})

	out := runTurn(t, eng, Turn{
		OwnerID:           "bob",
		ConfirmationState: events.ConfirmationAccepted,
	})

	assert.Equal(t, []string{"text", "text", "done"}, out.kinds())
	doc := out.got[1].text
	assert.True(t, strings.HasPrefix(doc, "```markdown\n"))
	assert.True(t, strings.HasSuffix(doc, "\n```\n"))
	assert.Contains(t, doc, "idea with cats")
	assert.Contains(t, doc, "User Suggestion")
	assert.Contains(t, doc, "make it about cats")
	assert.Contains(t, doc, "bob")

	_, err := store.Get(context.Background(), "bob")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestAcceptWithoutSuggestionOmitsSuggestionSection(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one"}}
	eng, _ := newTestEngine(t, gen)

	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})
	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/done"})

	out := runTurn(t, eng, Turn{
		OwnerID:           "alice",
		ConfirmationState: events.ConfirmationAccepted,
	})

	doc := out.got[1].text
	assert.NotContains(t, doc, "User Suggestion")
	assert.Contains(t, doc, "## 3. Requirements")
}

func TestDeclineClosesSessionWithoutDocument(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one"}}
	eng, store := newTestEngine(t, gen)

	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})
	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/done"})

	out := runTurn(t, eng, Turn{
		OwnerID:           "alice",
		ConfirmationState: events.ConfirmationDismissed,
	})

	assert.Equal(t, []string{"text", "done"}, out.kinds())
	assert.NotContains(t, out.allText(), "```markdown")
	assert.Contains(t, out.got[0].text, "/feature")

	_, err := store.Get(context.Background(), "alice")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestUnexpectedInputWhileAwaitingConfirmDeclines(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one"}}
	eng, store := newTestEngine(t, gen)

	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})
	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/done"})

	out := runTurn(t, eng, Turn{OwnerID: "alice", RawText: "actually wait"})

	assert.Equal(t, []string{"text", "done"}, out.kinds())
	assert.Equal(t, 1, gen.calls)

	_, err := store.Get(context.Background(), "alice")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestGeneratorFailureLeavesSessionUntouched(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one"}}
	eng, store := newTestEngine(t, gen)

	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})
	before, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)

	gen.err = errors.New("upstream unavailable")
	out := runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/new"})

	require.Equal(t, []string{"errors"}, out.kinds())
	require.Len(t, out.got[0].errs, 1)
	assert.Equal(t, "generator_failure", out.got[0].errs[0].Code)

	after, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGeneratorFailureOnStartLeavesNoSession(t *testing.T) {
	gen := &scriptGenerator{err: errors.New("upstream unavailable")}
	eng, store := newTestEngine(t, gen)

	out := runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})

	require.Equal(t, []string{"errors"}, out.kinds())
	_, err := store.Get(context.Background(), "alice")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestConcurrentTurnRejected(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one"}}
	eng, _ := newTestEngine(t, gen)

	require.NoError(t, eng.guard.Acquire("alice"))
	defer eng.guard.Release("alice")

	out := runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})

	require.Equal(t, []string{"errors"}, out.kinds())
	assert.Equal(t, "turn_in_flight", out.got[0].errs[0].Code)
	assert.Zero(t, gen.calls)
}

func TestIntentPriorityFinalizeWins(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one"}}
	eng, store := newTestEngine(t, gen)

	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})
	out := runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/new or /done, you pick"})

	require.Equal(t, []string{"confirm"}, out.kinds())
	sess, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, session.StateAwaitingConfirm, sess.State)
}

type recordingFiler struct {
	title string
	body  string
	err   error
	calls int
}

func (f *recordingFiler) FileIssue(ctx context.Context, credential, title, body string) error {
	f.calls++
	f.title = title
	f.body = body
	return f.err
}

func TestAcceptFilesIssueWhenConfigured(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one"}}
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { store.Close() })

	filer := &recordingFiler{}
	eng, err := New(Options{Store: store, Generator: gen, Filer: filer})
	require.NoError(t, err)

	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})
	runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/done"})
	out := runTurn(t, eng, Turn{OwnerID: "alice", ConfirmationState: events.ConfirmationAccepted})

	assert.Equal(t, []string{"text", "text", "done"}, out.kinds())
	assert.Equal(t, 1, filer.calls)
	assert.Contains(t, filer.title, "alice")
	assert.Contains(t, filer.body, "idea one")
}

func TestFullBrainstormRun(t *testing.T) {
	gen := &scriptGenerator{ideas: []string{"idea one", "idea two"}}
	eng, store := newTestEngine(t, gen)

	out := runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/feature"})
	assert.Equal(t, []string{"text", "text", "text", "done"}, out.kinds())

	out = runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/new"})
	assert.Equal(t, []string{"text", "text", "text", "done"}, out.kinds())

	out = runTurn(t, eng, Turn{OwnerID: "alice", RawText: "/done"})
	require.Equal(t, []string{"confirm"}, out.kinds())
	assert.Equal(t, "idea two", out.got[0].confirm.Metadata.FeatureIdea)

	out = runTurn(t, eng, Turn{OwnerID: "alice", ConfirmationState: events.ConfirmationAccepted})
	assert.Equal(t, []string{"text", "text", "done"}, out.kinds())
	assert.Contains(t, out.got[1].text, "idea two")

	_, err := store.Get(context.Background(), "alice")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Equal(t, 0, store.Len())
}
