package cmd

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/koopa0/atelier/internal/app"
	"github.com/koopa0/atelier/internal/artifact"
	"github.com/koopa0/atelier/internal/config"
	"github.com/koopa0/atelier/internal/log"
	"github.com/koopa0/atelier/internal/prompt"
	"github.com/koopa0/atelier/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing atelier: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown", "error", closeErr)
		}
	}()

	id, err := a.Service.OpenLast(ctx)
	switch {
	case err == nil:
	case errors.Is(err, app.ErrNoSession), errors.Is(err, session.ErrNotFound):
		if id, err = a.Service.CreateSession(ctx); err != nil {
			return err
		}
	default:
		return err
	}

	loop := &chatLoop{
		svc:     a.Service,
		md:      newMarkdownRenderer(defaultWrapWidth),
		out:     os.Stdout,
		timeout: cfg.RenderTimeout() + 2*time.Second,
	}

	fmt.Fprintln(loop.out, bannerStyle.Render("atelier "+AppVersion))
	fmt.Fprintln(loop.out, infoStyle.Render("Describe a component to build it. /help lists commands."))
	fmt.Fprintln(loop.out, infoStyle.Render("Session "+shortID(id)))
	fmt.Fprintln(loop.out)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(loop.out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(loop.out, "\n"+infoStyle.Render("Bye."))
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			exit, cmdErr := loop.handleCommand(ctx, input)
			if cmdErr != nil {
				fmt.Fprintln(loop.out, errorStyle.Render(cmdErr.Error()))
			}
			if exit {
				break
			}
			continue
		}

		loop.submit(ctx, input)
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// chatLoop holds the interactive session's mutable state.
type chatLoop struct {
	svc     *app.Service
	md      *markdownRenderer
	out     io.Writer
	timeout time.Duration

	// pendingImage is a data URI attached via /attach, consumed by the
	// next submit.
	pendingImage string
}

func (l *chatLoop) submit(ctx context.Context, text string) {
	image := l.pendingImage
	l.pendingImage = ""

	fmt.Fprintln(l.out, thinkingStyle.Render("Thinking..."))
	res, err := l.svc.Submit(ctx, text, image)
	if err != nil {
		switch {
		case errors.Is(err, prompt.ErrMalformedInput):
			fmt.Fprintln(l.out, errorStyle.Render("Attachment rejected: "+err.Error()))
		default:
			fmt.Fprintln(l.out, errorStyle.Render(err.Error()))
		}
		return
	}

	if res.Turn.Role == "" {
		// Discarded while in flight (session switched): nothing to show.
		return
	}

	fmt.Fprintln(l.out, l.md.Render(res.Turn.Text))
	if res.SaveErr != nil {
		fmt.Fprintln(l.out, errorStyle.Render("Warning: session not saved: "+res.SaveErr.Error()))
	}

	// A turn that produced code goes straight to the canvas.
	if res.Turn.Artifacts != nil {
		l.render(ctx, -1)
	}
}

// render posts a render request and reports the outcome.
func (l *chatLoop) render(ctx context.Context, turnIndex int) {
	if err := l.svc.RequestRender(ctx, turnIndex); err != nil {
		fmt.Fprintln(l.out, errorStyle.Render(err.Error()))
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	out, err := l.svc.WaitOutcome(waitCtx)
	if err != nil {
		fmt.Fprintln(l.out, errorStyle.Render("No render outcome: "+err.Error()))
		return
	}
	switch {
	case out.Err != nil:
		fmt.Fprintln(l.out, errorStyle.Render("Render failed: "+out.Err.Error()))
	case out.Mounted:
		fmt.Fprintln(l.out, infoStyle.Render("Canvas: mounted "+out.Entry))
	default:
		fmt.Fprintln(l.out, infoStyle.Render("Canvas cleared"))
	}
}

// handleCommand dispatches a slash command. Returns true to exit.
func (l *chatLoop) handleCommand(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	switch parts[0] {
	case "/help":
		l.printHelp()

	case "/new":
		id, err := l.svc.CreateSession(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(l.out, infoStyle.Render("Started session "+shortID(id)))

	case "/open":
		if len(parts) < 2 {
			return false, errors.New("usage: /open <session-id>")
		}
		id, err := uuid.Parse(parts[1])
		if err != nil {
			return false, fmt.Errorf("invalid session id %q", parts[1])
		}
		if err := l.svc.SelectSession(ctx, id); err != nil {
			return false, err
		}
		l.printHistory()

	case "/sessions":
		sessions, err := l.svc.Sessions(ctx)
		if err != nil {
			return false, err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(l.out, infoStyle.Render("No sessions yet."))
			break
		}
		for _, s := range sessions {
			fmt.Fprintf(l.out, "  %s  updated %s\n", s.ID, formatTime(s.UpdatedAt))
		}

	case "/delete":
		if len(parts) < 2 {
			return false, errors.New("usage: /delete <session-id>")
		}
		id, err := uuid.Parse(parts[1])
		if err != nil {
			return false, fmt.Errorf("invalid session id %q", parts[1])
		}
		if err := l.svc.DeleteSession(ctx, id); err != nil {
			return false, err
		}
		fmt.Fprintln(l.out, infoStyle.Render("Deleted "+shortID(id)))

	case "/attach":
		if len(parts) < 2 {
			return false, errors.New("usage: /attach <image-path>")
		}
		uri, err := dataURIFromFile(parts[1])
		if err != nil {
			return false, err
		}
		l.pendingImage = uri
		fmt.Fprintln(l.out, infoStyle.Render("Image attached to your next message."))

	case "/render":
		turnIndex := -1
		if len(parts) > 1 {
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				return false, fmt.Errorf("invalid turn index %q", parts[1])
			}
			turnIndex = n
		}
		l.render(ctx, turnIndex)

	case "/canvas":
		fmt.Fprintln(l.out, l.svc.CanvasHTML())

	case "/copy":
		if len(parts) < 2 {
			return false, errors.New("usage: /copy <component|stylesheet|markup>")
		}
		kind, err := parseKind(parts[1])
		if err != nil {
			return false, err
		}
		text, err := l.svc.Copy(kind)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(l.out, text)

	case "/export":
		dir := "."
		if len(parts) > 1 {
			dir = parts[1]
		}
		path, err := l.export(dir)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(l.out, infoStyle.Render("Exported "+path))

	case "/quit", "/exit":
		fmt.Fprintln(l.out, infoStyle.Render("Bye."))
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %s (type /help)", parts[0])
	}
	return false, nil
}

func (l *chatLoop) export(dir string) (string, error) {
	data, name, err := l.svc.Export()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}
	return path, nil
}

// printHistory replays a reopened session's turns.
func (l *chatLoop) printHistory() {
	conv := l.svc.Conversation()
	if conv == nil {
		return
	}
	turns := conv.Turns()
	fmt.Fprintln(l.out, infoStyle.Render(fmt.Sprintf("Session %s, %d turns", shortID(conv.ID()), len(turns))))
	for _, t := range turns {
		if t.Role == session.RoleUser {
			fmt.Fprintln(l.out, promptStyle.Render("you> ")+t.Text)
		} else {
			fmt.Fprintln(l.out, l.md.Render(t.Text))
		}
	}
}

func (l *chatLoop) printHelp() {
	fmt.Fprintln(l.out, `Commands:
  /new                start a fresh session
  /open <id>          switch to a session
  /sessions           list sessions
  /delete <id>        delete a session
  /attach <path>      attach an image to your next message
  /render [turn]      re-render the canvas (optionally from a past turn)
  /canvas             print the canvas document
  /copy <kind>        print an artifact (component, stylesheet, markup)
  /export [dir]       export the artifact set as a zip archive
  /quit               leave`)
}

// parseKind maps a /copy argument to an artifact kind.
func parseKind(s string) (artifact.Kind, error) {
	switch strings.ToLower(s) {
	case "component", "code", "go":
		return artifact.KindComponent, nil
	case "stylesheet", "css", "style":
		return artifact.KindStylesheet, nil
	case "markup", "html":
		return artifact.KindMarkup, nil
	}
	return "", fmt.Errorf("unknown artifact kind %q", s)
}

// dataURIFromFile reads an image file into a base64 data URI.
func dataURIFromFile(path string) (string, error) {
	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%s is not an image file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// formatTime renders a timestamp relative to now.
func formatTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
