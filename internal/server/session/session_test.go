package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkeller/flowdeck/internal/server/db"
)

func testManager(t *testing.T) (*Manager, *db.DB, int64) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	ctx := context.Background()
	if err := database.InitSchema(ctx); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	user, err := database.CreateUser(ctx, "Session User", "session@example.com", "password123")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return NewManager(database.RawDB(), DefaultTTL), database, user.ID
}

func TestCreateAndLookup(t *testing.T) {
	mgr, _, userID := testManager(t)
	ctx := context.Background()

	token, err := mgr.Create(ctx, userID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	got, err := mgr.Lookup(ctx, token)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != userID {
		t.Errorf("expected user %d, got %d", userID, got)
	}

	if _, err := mgr.Lookup(ctx, "no-such-token"); err != ErrNoSession {
		t.Errorf("unknown token: expected ErrNoSession, got %v", err)
	}
}

func TestDeleteRevokesToken(t *testing.T) {
	mgr, _, userID := testManager(t)
	ctx := context.Background()

	token, _ := mgr.Create(ctx, userID)
	if err := mgr.Delete(ctx, token); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := mgr.Lookup(ctx, token); err != ErrNoSession {
		t.Errorf("deleted token: expected ErrNoSession, got %v", err)
	}
}

func TestExpiredSessionRejectedAndPruned(t *testing.T) {
	mgr, database, userID := testManager(t)
	ctx := context.Background()

	token, err := mgr.Create(ctx, userID)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Backdate the expiry.
	expired := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	if _, err := database.RawDB().ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE token = ?`, expired, token); err != nil {
		t.Fatalf("failed to backdate session: %v", err)
	}

	if _, err := mgr.Lookup(ctx, token); err != ErrNoSession {
		t.Errorf("expired token: expected ErrNoSession, got %v", err)
	}

	// Lookup already deleted it, so a prune finds nothing further.
	n, err := mgr.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("PruneExpired failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 pruned after lookup cleanup, got %d", n)
	}
}
