package session_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/atelier/internal/artifact"
	"github.com/koopa0/atelier/internal/session"
	"github.com/koopa0/atelier/internal/testutil"
)

// TestStoreLifecycle exercises create/list/load/save/delete against a
// real PostgreSQL instance. Requires Docker; skipped in short mode.
func TestStoreLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	testDB, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := session.NewWithPool(testDB.Pool, testutil.NewTestLogger(t))

	sess, err := store.Create(ctx, "owner-a")
	require.NoError(t, err)

	// Fresh session loads empty with the sentinel artifact set.
	rec, err := store.Load(ctx, "owner-a", sess.ID)
	require.NoError(t, err)
	assert.Empty(t, rec.Turns)
	assert.True(t, rec.Artifacts.Empty(), "new session artifact set should be sentinel-only")

	// Ownership is enforced: another owner sees NotFound.
	_, err = store.Load(ctx, "owner-b", sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	turns := []session.Turn{
		{Role: session.RoleUser, Text: "build a red button"},
		{Role: session.RoleAssistant, Text: "here you go", Artifacts: &artifact.Set{
			Component:  "func Btn() ui.Node { return ui.E(\"button\", nil, ui.Text(\"go\")) }",
			Stylesheet: "button { color: red; }",
			Markup:     artifact.MarkupSentinel,
		}},
	}
	set := *turns[1].Artifacts

	updatedAt, err := store.Save(ctx, "owner-a", sess.ID, turns, set)
	require.NoError(t, err)
	assert.True(t, updatedAt.After(sess.UpdatedAt), "Save should advance updated_at")

	rec, err = store.Load(ctx, "owner-a", sess.ID)
	require.NoError(t, err)
	require.Len(t, rec.Turns, 2)
	require.NotNil(t, rec.Turns[1].Artifacts)
	assert.Equal(t, set.Component, rec.Turns[1].Artifacts.Component, "artifact snapshot round-trip")
	assert.Equal(t, set, rec.Artifacts)

	// Save is wholesale: shrinking the history is honored.
	_, err = store.Save(ctx, "owner-a", sess.ID, turns[:1], artifact.EmptySet())
	require.NoError(t, err)
	rec, err = store.Load(ctx, "owner-a", sess.ID)
	require.NoError(t, err)
	assert.Len(t, rec.Turns, 1)
	assert.True(t, rec.Artifacts.Empty(), "save should replace the stored record wholesale")

	sessions, err := store.List(ctx, "owner-a")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sess.ID, sessions[0].ID)

	require.NoError(t, store.Delete(ctx, "owner-a", sess.ID))
	_, err = store.Load(ctx, "owner-a", sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// Saving into a deleted session reports NotFound as well.
	_, err = store.Save(ctx, "owner-a", uuid.New(), nil, artifact.EmptySet())
	assert.ErrorIs(t, err, session.ErrNotFound)
}
