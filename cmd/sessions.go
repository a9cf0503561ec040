package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/koopa0/atelier/internal/config"
	"github.com/koopa0/atelier/internal/log"
	"github.com/koopa0/atelier/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved sessions",
}

func init() {
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), runSessionsList)
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's turns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store *session.Store, owner string) error {
				return runSessionsShow(ctx, store, owner, args[0])
			})
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store *session.Store, owner string) error {
				return runSessionsDelete(ctx, store, owner, args[0])
			})
		},
	})
	rootCmd.AddCommand(sessionsCmd)
}

// withStore opens a connection pool for one store operation. Session
// management does not need the model or the sandbox, so it skips the
// full application container.
func withStore(ctx context.Context, fn func(context.Context, *session.Store, string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	store := session.NewWithPool(pool, log.NewNop())
	return fn(ctx, store, cfg.Owner)
}

func runSessionsList(ctx context.Context, store *session.Store, owner string) error {
	sessions, err := store.List(ctx, owner)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions yet.")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  created %s  updated %s\n", s.ID, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	}
	return nil
}

func runSessionsShow(ctx context.Context, store *session.Store, owner, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session id %q", rawID)
	}
	rec, err := store.Load(ctx, owner, id)
	if err != nil {
		return err
	}

	fmt.Printf("Session: %s\n", id)
	fmt.Printf("Turns: %d\n", len(rec.Turns))
	fmt.Println()
	for _, t := range rec.Turns {
		who := "you"
		if t.Role == session.RoleAssistant {
			who = "atelier"
		}
		fmt.Printf("%s> %s\n\n", who, t.Text)
	}
	return nil
}

func runSessionsDelete(ctx context.Context, store *session.Store, owner, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session id %q", rawID)
	}
	if err := store.Delete(ctx, owner, id); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", id)
	return nil
}
