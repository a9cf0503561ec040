// Package session provides conversation persistence for the component
// studio. A session owns an ordered, append-only sequence of turns plus
// the current artifact set, scoped to a single owner.
//
// Thread safety: Store is safe for concurrent use. Turn slices returned
// from Load are copies owned by the caller.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/atelier/internal/artifact"
)

// ErrNotFound indicates the session does not exist or is not owned by
// the requesting account. The two cases are deliberately
// indistinguishable to the caller.
var ErrNotFound = errors.New("session not found")

// Role identifies the author of a turn. Roles alternate by convention
// but alternation is not enforced.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Turns are never mutated after
// being finalized; the only in-place replacement is a pending
// placeholder resolving to its final assistant turn.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`

	// ImageRef holds the user-attached image as a data URI, empty when
	// the turn carries no image.
	ImageRef string `json:"imageRef,omitempty"`

	// Artifacts is the snapshot extracted from this assistant turn's
	// response; nil for user turns and for assistant turns that carried
	// no code.
	Artifacts *artifact.Set `json:"artifacts,omitempty"`
}

// Session is the stored conversation metadata.
type Session struct {
	ID        uuid.UUID
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Record is a fully loaded session: the turn history plus the current
// artifact set.
type Record struct {
	Turns     []Turn
	Artifacts artifact.Set
	CreatedAt time.Time
	UpdatedAt time.Time
}
