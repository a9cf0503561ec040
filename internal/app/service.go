package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/atelier/internal/artifact"
	"github.com/koopa0/atelier/internal/chat"
	"github.com/koopa0/atelier/internal/export"
	"github.com/koopa0/atelier/internal/render"
	"github.com/koopa0/atelier/internal/render/bridge"
	"github.com/koopa0/atelier/internal/session"
)

// ErrNoSession indicates an operation that needs a selected session
// was called before one was created or opened.
var ErrNoSession = errors.New("no session selected")

// ErrNothingToCopy indicates the requested artifact kind holds only
// its sentinel.
var ErrNothingToCopy = errors.New("nothing to copy for this kind")

// SessionStore is the persistence surface the service consumes.
// *session.Store satisfies it.
type SessionStore interface {
	Create(ctx context.Context, ownerID string) (*session.Session, error)
	List(ctx context.Context, ownerID string) ([]*session.Session, error)
	Load(ctx context.Context, ownerID string, id uuid.UUID) (*session.Record, error)
	Delete(ctx context.Context, ownerID string, id uuid.UUID) error
	Save(ctx context.Context, ownerID string, id uuid.UUID, turns []session.Turn, set artifact.Set) (time.Time, error)
}

// ServiceConfig contains the service's collaborators.
type ServiceConfig struct {
	Owner     string
	Store     SessionStore
	Generator chat.Generator
	Host      *bridge.Host
	Document  *render.Document
	Logger    *slog.Logger
}

// Service is the user-facing operation surface: submit, session
// selection, render requests, copy, and export. One session is
// current at a time; switching discards any in-flight generation.
type Service struct {
	owner  string
	store  SessionStore
	gen    chat.Generator
	host   *bridge.Host
	doc    *render.Document
	logger *slog.Logger

	mu       sync.Mutex
	conv     *chat.Conversation
	outcomes chan render.Outcome
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		owner:    cfg.Owner,
		store:    cfg.Store,
		gen:      cfg.Generator,
		host:     cfg.Host,
		doc:      cfg.Document,
		logger:   cfg.Logger,
		outcomes: make(chan render.Outcome, 16),
	}
}

// CreateSession creates and selects a fresh session.
func (s *Service) CreateSession(ctx context.Context) (uuid.UUID, error) {
	sess, err := s.store.Create(ctx, s.owner)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating session: %w", err)
	}
	s.setConversation(chat.NewConversation(sess.ID, s.owner, nil, s.store, s.gen, s.logger))
	s.persistCurrentID(sess.ID)
	return sess.ID, nil
}

// SelectSession loads an existing session and makes it current. A
// NotFound from storage is terminal for the requested id; the caller
// returns to the session list.
func (s *Service) SelectSession(ctx context.Context, id uuid.UUID) error {
	rec, err := s.store.Load(ctx, s.owner, id)
	if err != nil {
		return fmt.Errorf("loading session %s: %w", id, err)
	}
	s.setConversation(chat.NewConversation(id, s.owner, rec, s.store, s.gen, s.logger))
	s.persistCurrentID(id)
	return nil
}

// OpenLast re-selects the session recorded in the local state file.
// Returns ErrNoSession when none is recorded.
func (s *Service) OpenLast(ctx context.Context) (uuid.UUID, error) {
	id, err := session.LoadCurrentID()
	if err != nil {
		return uuid.Nil, fmt.Errorf("reading state file: %w", err)
	}
	if id == nil {
		return uuid.Nil, ErrNoSession
	}
	if err := s.SelectSession(ctx, *id); err != nil {
		return uuid.Nil, err
	}
	return *id, nil
}

// Sessions lists the owner's sessions, most recently updated first.
func (s *Service) Sessions(ctx context.Context) ([]*session.Session, error) {
	return s.store.List(ctx, s.owner)
}

// DeleteSession removes a session. Deleting the current session
// deselects it.
func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, s.owner, id); err != nil {
		return err
	}

	s.mu.Lock()
	current := s.conv != nil && s.conv.ID() == id
	if current {
		s.conv.Discard()
		s.conv = nil
	}
	s.mu.Unlock()

	if current {
		if err := session.ClearCurrentID(); err != nil {
			s.logger.Warn("clearing state file", "error", err)
		}
	}
	return nil
}

// Conversation returns the current conversation, or nil.
func (s *Service) Conversation() *chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv
}

// Submit runs one chat turn against the current session.
func (s *Service) Submit(ctx context.Context, text, imageDataURI string) (chat.Result, error) {
	conv := s.Conversation()
	if conv == nil {
		return chat.Result{}, ErrNoSession
	}
	return conv.Submit(ctx, text, imageDataURI)
}

// RequestRender posts the artifact set at turnIndex to the sandbox; a
// negative index renders the session's current set. The post is
// asynchronous; the outcome arrives via WaitOutcome.
func (s *Service) RequestRender(ctx context.Context, turnIndex int) error {
	conv := s.Conversation()
	if conv == nil {
		return ErrNoSession
	}

	set := conv.Artifacts()
	if turnIndex >= 0 {
		turns := conv.Turns()
		if turnIndex >= len(turns) {
			return fmt.Errorf("turn index %d out of range", turnIndex)
		}
		snapshot := turns[turnIndex].Artifacts
		if snapshot == nil {
			return fmt.Errorf("turn %d carries no artifacts", turnIndex)
		}
		set = *snapshot
	}

	return s.host.Post(ctx, render.PayloadFromSet(set))
}

// WaitOutcome blocks until the next render outcome or context expiry.
func (s *Service) WaitOutcome(ctx context.Context) (render.Outcome, error) {
	select {
	case out := <-s.outcomes:
		return out, nil
	case <-ctx.Done():
		return render.Outcome{}, ctx.Err()
	}
}

// CanvasHTML returns the rendered document.
func (s *Service) CanvasHTML() string {
	return s.doc.HTML()
}

// Copy returns the current artifact text for kind. Sentinel kinds are
// not copyable.
func (s *Service) Copy(kind artifact.Kind) (string, error) {
	conv := s.Conversation()
	if conv == nil {
		return "", ErrNoSession
	}
	set := conv.Artifacts()
	if set.Sentinel(kind) {
		return "", ErrNothingToCopy
	}
	return set.Get(kind), nil
}

// Export bundles the current artifact set into a zip archive and
// returns the bytes with a suggested file name.
func (s *Service) Export() ([]byte, string, error) {
	conv := s.Conversation()
	if conv == nil {
		return nil, "", ErrNoSession
	}
	set := conv.Artifacts()

	entry := ""
	if !set.Sentinel(artifact.KindComponent) {
		entry, _ = render.ResolveEntry(render.Sanitize(set.Component))
	}

	data, err := export.Archive(set, entry)
	if err != nil {
		return nil, "", err
	}
	name := entry
	if name == "" {
		name = export.DefaultBaseName
	}
	return data, name + ".zip", nil
}

// recordOutcome is the sandbox's outcome callback. The channel is
// drop-oldest so a slow reader never blocks the render loop.
func (s *Service) recordOutcome(out render.Outcome) {
	for {
		select {
		case s.outcomes <- out:
			return
		default:
		}
		select {
		case <-s.outcomes:
		default:
		}
	}
}

func (s *Service) setConversation(conv *chat.Conversation) {
	s.mu.Lock()
	if s.conv != nil {
		s.conv.Discard()
	}
	s.conv = conv
	s.mu.Unlock()
}

// persistCurrentID records the selection in the local state file.
// Best-effort: a failure is a warning, not a blocked selection.
func (s *Service) persistCurrentID(id uuid.UUID) {
	if err := session.SaveCurrentID(id); err != nil {
		s.logger.Warn("writing state file", "error", err)
	}
}
