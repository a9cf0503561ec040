package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/koopa0/atelier/internal/artifact"
	"github.com/koopa0/atelier/internal/prompt"
	"github.com/koopa0/atelier/internal/session"
	"github.com/koopa0/atelier/internal/testutil"
)

const modelResponse = "Here you go\n" +
	"```go\nfunc Btn() ui.Node { return ui.Text(\"hi\") }\n```\n" +
	"```css\n.btn{color:red}\n```"

// fakeGen is a scriptable Generator. When block is non-nil, Generate
// waits on it before returning.
type fakeGen struct {
	mu       sync.Mutex
	response string
	err      error
	block    chan struct{}
	calls    int
}

func (f *fakeGen) Generate(_ context.Context, _ []*ai.Message) (string, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	response, err := f.response, f.err
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return response, err
}

type savedState struct {
	turns []session.Turn
	set   artifact.Set
}

type fakeSaver struct {
	mu    sync.Mutex
	err   error
	saves []savedState
}

func (f *fakeSaver) Save(_ context.Context, _ string, _ uuid.UUID, turns []session.Turn, set artifact.Set) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return time.Time{}, f.err
	}
	f.saves = append(f.saves, savedState{turns: turns, set: set})
	return time.Now(), nil
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func newTestConversation(t *testing.T, gen Generator, saver Saver) *Conversation {
	t.Helper()
	return NewConversation(uuid.New(), "owner-1", nil, saver, gen, testutil.NewTestLogger(t))
}

func TestConversation_Submit(t *testing.T) {
	gen := &fakeGen{response: modelResponse}
	saver := &fakeSaver{}
	c := newTestConversation(t, gen, saver)

	res, err := c.Submit(context.Background(), "build a red button", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.SaveErr != nil {
		t.Errorf("SaveErr = %v", res.SaveErr)
	}
	if c.State() != StateFinal {
		t.Errorf("state = %v, want final", c.State())
	}

	turns := c.Turns()
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	if turns[0].Role != session.RoleUser || turns[0].Text != "build a red button" {
		t.Errorf("user turn = %+v", turns[0])
	}
	if turns[1].Role != session.RoleAssistant || turns[1].Text != "Here you go" {
		t.Errorf("assistant turn = %+v", turns[1])
	}
	if turns[1].Artifacts == nil || turns[1].Artifacts.Sentinel(artifact.KindComponent) {
		t.Error("assistant turn missing extracted component")
	}

	set := c.Artifacts()
	if !strings.Contains(set.Component, "func Btn()") {
		t.Errorf("component = %q", set.Component)
	}
	if set.Stylesheet != ".btn{color:red}" {
		t.Errorf("stylesheet = %q", set.Stylesheet)
	}

	if saver.count() != 1 {
		t.Errorf("saves = %d, want 1", saver.count())
	}
}

func TestConversation_PlaceholderDuringGeneration(t *testing.T) {
	block := make(chan struct{})
	gen := &fakeGen{response: modelResponse, block: block}
	c := newTestConversation(t, gen, &fakeSaver{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Submit(context.Background(), "build a button", "")
	}()

	waitForState(t, c, StatePendingAssistant)
	turns := c.Turns()
	if last := turns[len(turns)-1]; last.Text != ThinkingText || last.Artifacts != nil {
		t.Errorf("placeholder turn = %+v", last)
	}

	close(block)
	<-done
	if got := c.Turns(); got[len(got)-1].Text == ThinkingText {
		t.Error("placeholder not replaced after generation")
	}
}

func TestConversation_GenerationFailureResolvesPlaceholder(t *testing.T) {
	gen := &fakeGen{err: ErrGenerationFailed}
	saver := &fakeSaver{}
	c := newTestConversation(t, gen, saver)

	_, err := c.Submit(context.Background(), "build a button", "")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}

	turns := c.Turns()
	if len(turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(turns))
	}
	final := turns[1]
	if final.Text == ThinkingText {
		t.Error("placeholder left dangling after failure")
	}
	if !strings.Contains(final.Text, "Generation failed") {
		t.Errorf("error turn text = %q", final.Text)
	}
	if c.State() != StateFinal {
		t.Errorf("state = %v, want final", c.State())
	}
	if saver.count() != 1 {
		t.Error("error turn was not persisted")
	}
}

func TestConversation_MalformedImageRejectedBeforeCall(t *testing.T) {
	gen := &fakeGen{response: modelResponse}
	c := newTestConversation(t, gen, &fakeSaver{})

	_, err := c.Submit(context.Background(), "look at this", "not-a-data-uri")
	if !errors.Is(err, prompt.ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	if len(c.Turns()) != 0 {
		t.Error("rejected input still appended a turn")
	}
	if gen.calls != 0 {
		t.Error("model called despite rejected input")
	}
}

func TestConversation_SaveFailureIsNonBlocking(t *testing.T) {
	saveErr := errors.New("connection refused")
	c := newTestConversation(t, &fakeGen{response: modelResponse}, &fakeSaver{err: saveErr})

	res, err := c.Submit(context.Background(), "build a button", "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !errors.Is(res.SaveErr, saveErr) {
		t.Errorf("SaveErr = %v, want %v", res.SaveErr, saveErr)
	}
	if c.State() != StateFinal {
		t.Errorf("state = %v, in-memory state must stay authoritative", c.State())
	}
}

func TestConversation_RejectsConcurrentSubmit(t *testing.T) {
	block := make(chan struct{})
	c := newTestConversation(t, &fakeGen{response: modelResponse, block: block}, &fakeSaver{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Submit(context.Background(), "first", "")
	}()
	waitForState(t, c, StatePendingAssistant)

	_, err := c.Submit(context.Background(), "second", "")
	if !errors.Is(err, ErrPending) {
		t.Errorf("err = %v, want ErrPending", err)
	}

	close(block)
	<-done
}

func TestConversation_DiscardDropsInFlightResponse(t *testing.T) {
	block := make(chan struct{})
	c := newTestConversation(t, &fakeGen{response: modelResponse, block: block}, &fakeSaver{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Submit(context.Background(), "build a button", "")
	}()
	waitForState(t, c, StatePendingAssistant)

	c.Discard()
	close(block)
	<-done

	if n := len(c.Turns()); n != 0 {
		t.Errorf("turns = %d, want discarded conversation empty", n)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
	if !c.Artifacts().Empty() {
		t.Error("stale response still replaced the artifact set")
	}
}

func TestConversation_ArtifactSetReplacedWholesale(t *testing.T) {
	gen := &fakeGen{response: modelResponse}
	c := newTestConversation(t, gen, &fakeSaver{})

	if _, err := c.Submit(context.Background(), "build a red button", ""); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if c.Artifacts().Sentinel(artifact.KindStylesheet) {
		t.Fatal("first response should carry a stylesheet")
	}

	// Second response has no stylesheet block: the set is replaced, not
	// merged, so the stylesheet reverts to its sentinel.
	gen.mu.Lock()
	gen.response = "Done\n```go\nfunc Btn() ui.Node { return ui.Text(\"v2\") }\n```"
	gen.mu.Unlock()

	if _, err := c.Submit(context.Background(), "remove the styling", ""); err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	set := c.Artifacts()
	if !strings.Contains(set.Component, "v2") {
		t.Errorf("component = %q, want refined version", set.Component)
	}
	if !set.Sentinel(artifact.KindStylesheet) {
		t.Errorf("stylesheet = %q, want sentinel after wholesale swap", set.Stylesheet)
	}
}

func TestConversation_ResumeFromRecord(t *testing.T) {
	set := artifact.EmptySet()
	set.Component = "func Btn() ui.Node { return ui.Text(\"hi\") }"
	rec := &session.Record{
		Turns: []session.Turn{
			{Role: session.RoleUser, Text: "build a button"},
			{Role: session.RoleAssistant, Text: "Here you go", Artifacts: &set},
		},
		Artifacts: set,
	}

	c := NewConversation(uuid.New(), "owner-1", rec, &fakeSaver{}, &fakeGen{}, testutil.NewTestLogger(t))
	if c.State() != StateFinal {
		t.Errorf("state = %v, want final", c.State())
	}
	if len(c.Turns()) != 2 {
		t.Errorf("turns = %d, want 2", len(c.Turns()))
	}
	if c.Artifacts().Component != set.Component {
		t.Error("artifact set not restored")
	}
}

func waitForState(t *testing.T, c *Conversation, want State) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if c.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("state = %v, never reached %v", c.State(), want)
		case <-time.After(time.Millisecond):
		}
	}
}
