package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/atelier/internal/artifact"
	"github.com/koopa0/atelier/internal/prompt"
	"github.com/koopa0/atelier/internal/session"
)

// State is the conversation's position in a submit cycle.
type State int

const (
	StateIdle State = iota
	StatePendingUser
	StatePendingAssistant
	StateFinal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingUser:
		return "pending-user"
	case StatePendingAssistant:
		return "pending-assistant"
	case StateFinal:
		return "final"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ThinkingText is the placeholder assistant turn's text while a
// generation call is in flight.
const ThinkingText = "Thinking..."

// ErrPending rejects a submit while a generation call is in flight.
// One active call per conversation; resubmission is user-initiated.
var ErrPending = errors.New("a generation call is already pending")

// Saver is the persistence collaborator the conversation writes back
// to after each final turn. *session.Store satisfies it.
type Saver interface {
	Save(ctx context.Context, ownerID string, id uuid.UUID, turns []session.Turn, set artifact.Set) (updatedAt time.Time, err error)
}

// Result is the outcome of one submit cycle. SaveErr reports a failed
// persistence write-back: the in-memory state remains authoritative,
// so it is a warning, not a rollback.
type Result struct {
	Turn    session.Turn
	SaveErr error
}

// Conversation is the turn state machine for one session. Submitting
// appends the user turn and a thinking placeholder, calls the model,
// and replaces the placeholder in place with the final turn. The
// current artifact set is swapped wholesale on every final turn.
//
// A Conversation is safe for concurrent use, but only one generation
// call runs at a time; concurrent submits fail with ErrPending.
type Conversation struct {
	id      uuid.UUID
	ownerID string
	store   Saver
	gen     Generator
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	turns     []session.Turn
	artifacts artifact.Set
	epoch     int // bumped on discard so in-flight responses detect staleness
}

// NewConversation resumes a conversation from a loaded session record.
// An empty record starts idle.
func NewConversation(id uuid.UUID, ownerID string, rec *session.Record, store Saver, gen Generator, logger *slog.Logger) *Conversation {
	c := &Conversation{
		id:        id,
		ownerID:   ownerID,
		store:     store,
		gen:       gen,
		logger:    logger,
		artifacts: artifact.EmptySet(),
	}
	if rec != nil {
		c.turns = append(c.turns, rec.Turns...)
		c.artifacts = rec.Artifacts
		if len(c.turns) > 0 {
			c.state = StateFinal
		}
	}
	return c
}

// ID returns the session id the conversation belongs to.
func (c *Conversation) ID() uuid.UUID { return c.id }

// State returns the current machine state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Turns returns a copy of the turn sequence.
func (c *Conversation) Turns() []session.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Artifacts returns the current artifact set.
func (c *Conversation) Artifacts() artifact.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artifacts
}

// Submit runs one full cycle: reject malformed input, append the user
// turn and the thinking placeholder, call the model, extract artifacts,
// replace the placeholder in place, persist.
//
// A malformed image is rejected before any state change or external
// call. A generation failure still resolves the placeholder; it is
// replaced by a chat-visible error turn, never left dangling.
func (c *Conversation) Submit(ctx context.Context, text, imageDataURI string) (Result, error) {
	c.mu.Lock()
	if c.state == StatePendingUser || c.state == StatePendingAssistant {
		c.mu.Unlock()
		return Result{}, ErrPending
	}

	msgs, err := prompt.Assemble(prompt.Input{
		History:      c.turns,
		Current:      &c.artifacts,
		Text:         text,
		ImageDataURI: imageDataURI,
	})
	if err != nil {
		c.mu.Unlock()
		return Result{}, err
	}

	c.turns = append(c.turns, session.Turn{
		Role:     session.RoleUser,
		Text:     text,
		ImageRef: imageDataURI,
	})
	c.state = StatePendingUser

	c.turns = append(c.turns, session.Turn{
		Role: session.RoleAssistant,
		Text: ThinkingText,
	})
	placeholder := len(c.turns) - 1
	c.state = StatePendingAssistant
	epoch := c.epoch
	c.mu.Unlock()

	raw, genErr := c.gen.Generate(ctx, msgs)

	c.mu.Lock()
	if c.epoch != epoch {
		// Discarded while in flight: the placeholder no longer exists,
		// the response has nowhere to go.
		c.mu.Unlock()
		c.logger.Debug("dropping stale generation response", "session", c.id)
		return Result{}, genErr
	}

	var final session.Turn
	if genErr != nil {
		final = session.Turn{
			Role: session.RoleAssistant,
			Text: fmt.Sprintf("Generation failed: %v. Resubmit to try again.", genErr),
		}
	} else {
		explanation, set := artifact.Extract(raw)
		final = session.Turn{
			Role:      session.RoleAssistant,
			Text:      explanation,
			Artifacts: &set,
		}
		c.artifacts = set
	}
	c.turns[placeholder] = final
	c.state = StateFinal
	turns := make([]session.Turn, len(c.turns))
	copy(turns, c.turns)
	set := c.artifacts
	c.mu.Unlock()

	res := Result{Turn: final}
	if _, err := c.store.Save(ctx, c.ownerID, c.id, turns, set); err != nil {
		c.logger.Warn("persisting session", "session", c.id, "error", err)
		res.SaveErr = err
	}
	return res, genErr
}

// Discard abandons any in-flight generation: the pending user turn and
// placeholder are removed and the eventual response is dropped when it
// arrives. Used on session switch.
func (c *Conversation) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	if c.state == StatePendingAssistant {
		c.turns = c.turns[:len(c.turns)-2]
		if len(c.turns) == 0 {
			c.state = StateIdle
		} else {
			c.state = StateFinal
		}
	}
}
