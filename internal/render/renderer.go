package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/koopa0/atelier/internal/artifact"
	"github.com/koopa0/atelier/internal/render/ui"
)

// DefaultTimeout bounds one component execution.
const DefaultTimeout = 3 * time.Second

// Payload is the artifact triple handed to a renderer. Empty strings
// mean the kind is absent; sentinel normalization happens in
// PayloadFromSet.
type Payload struct {
	Component  string `json:"component"`
	Stylesheet string `json:"stylesheet"`
	Markup     string `json:"markup"`
}

// PayloadFromSet converts a stored artifact set, mapping sentinel kinds
// to absent.
func PayloadFromSet(s artifact.Set) Payload {
	pick := func(k artifact.Kind) string {
		if s.Sentinel(k) {
			return ""
		}
		return s.Get(k)
	}
	return Payload{
		Component:  pick(artifact.KindComponent),
		Stylesheet: pick(artifact.KindStylesheet),
		Markup:     pick(artifact.KindMarkup),
	}
}

// Outcome reports one render request. It is transient: recomputed on
// every request, never stored.
type Outcome struct {
	Mounted bool
	Entry   string
	Err     error
}

// Renderer owns one mount point in a document and runs the pipeline:
// sanitize, resolve entry, transpile, execute, mount. Component state
// lives in the runtime and survives re-renders of identical source;
// new source resets it.
type Renderer struct {
	id      string
	doc     *Document
	rt      *ui.Runtime
	logger  *slog.Logger
	timeout time.Duration

	lastSrc string // hash of the last executed source
}

func NewRenderer(id string, doc *Document, logger *slog.Logger) *Renderer {
	return &Renderer{
		id:      id,
		doc:     doc,
		rt:      ui.NewRuntime(),
		logger:  logger,
		timeout: DefaultTimeout,
	}
}

// WithTimeout overrides the per-execution deadline.
func (r *Renderer) WithTimeout(d time.Duration) *Renderer {
	r.timeout = d
	return r
}

// Render mounts the payload. Absent component with present markup
// displays the markup as a fallback; absent both unmounts and clears.
// Any pipeline failure is captured in the outcome and displayed in
// place of the previous mount, never propagated.
func (r *Renderer) Render(ctx context.Context, p Payload) Outcome {
	if strings.TrimSpace(p.Component) == "" {
		if strings.TrimSpace(p.Markup) != "" {
			root := r.doc.EnsureRoot(r.id)
			root.Content = p.Markup
			root.Error = ""
			r.applyStyle(p.Stylesheet)
			r.logger.Debug("markup fallback mounted", "renderer", r.id)
			return Outcome{Mounted: true}
		}
		r.doc.RemoveRoot(r.id)
		r.rt.Reset()
		r.lastSrc = ""
		return Outcome{}
	}

	src := Sanitize(p.Component)
	entry, rule := ResolveEntry(src)

	lowered, err := Transpile(src)
	if err != nil {
		return r.fail(err)
	}

	if h := srcHash(lowered); h != r.lastSrc {
		r.rt.Reset()
		r.lastSrc = h
	}

	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	node, err := Execute(cctx, lowered, entry, r.rt)
	if err != nil {
		return r.fail(err)
	}

	root := r.doc.EnsureRoot(r.id)
	root.Content = node.HTML()
	root.Error = ""
	r.applyStyle(p.Stylesheet)

	r.logger.Debug("component mounted", "renderer", r.id, "entry", entry, "rule", rule)
	return Outcome{Mounted: true, Entry: entry}
}

func (r *Renderer) applyStyle(css string) {
	if strings.TrimSpace(css) == "" {
		r.doc.RemoveStyle(r.id)
		return
	}
	r.doc.SetStyle(r.id, css)
}

// fail clears any previous mount and displays the failure in its place.
func (r *Renderer) fail(err error) Outcome {
	msg := err.Error()
	var rerr *RenderError
	if errors.As(err, &rerr) && rerr.Trace != "" {
		msg += "\n" + rerr.Trace
	}

	root := r.doc.EnsureRoot(r.id)
	root.Content = ""
	root.Error = msg
	r.doc.RemoveStyle(r.id)

	r.logger.Warn("render failed", "renderer", r.id, "error", err)
	return Outcome{Err: err}
}

func srcHash(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}
