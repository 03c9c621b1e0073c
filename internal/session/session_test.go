package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

var testUser = dental.User{ID: "u1", Name: "Dr. Sari", Email: "sari@klinik.id"}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   testUser.ID,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestManager_SaveRestoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	m := NewManager(store)

	token := signedToken(t, time.Now().Add(time.Hour))
	if err := m.Save(ctx, Session{Token: token, User: testUser}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s, ok := m.Restore(ctx)
	if !ok {
		t.Fatal("expected a session")
	}
	if s.Token != token || s.User != testUser {
		t.Errorf("unexpected session %+v", s)
	}
	if m.Token() != token {
		t.Errorf("expected current token, got %q", m.Token())
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := m.Restore(ctx); ok {
		t.Error("expected no session after Clear")
	}
	if _, ok := m.Current(); ok {
		t.Error("expected no current session after Clear")
	}
}

func TestManager_RestoreOpaqueToken(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewFileStore(t.TempDir()))
	if err := m.Save(ctx, Session{Token: "opaque-token", User: testUser}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := m.Restore(ctx); !ok {
		t.Error("opaque tokens must be accepted")
	}
}

func TestManager_RestoreHalfSession(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	m := NewManager(store)

	if err := store.Set(ctx, TokenKey, "orphan", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := m.Restore(ctx); ok {
		t.Fatal("token without user must not restore")
	}
	if _, err := store.Get(ctx, TokenKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected orphan token to be discarded, got %v", err)
	}
}

func TestManager_RestoreMalformedUser(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	m := NewManager(store)

	if err := store.Set(ctx, TokenKey, "opaque-token", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, UserKey, "{not json", time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := m.Restore(ctx); ok {
		t.Fatal("malformed user must not restore")
	}
	for _, key := range []string{TokenKey, UserKey} {
		if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected discarded, got %v", key, err)
		}
	}
}

func TestManager_RestoreExpiredJWT(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)
	m := NewManager(NewFileStore(t.TempDir()), WithClock(func() time.Time { return now }))

	token := signedToken(t, now.Add(-time.Minute))
	if err := m.Save(ctx, Session{Token: token, User: testUser}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok := m.Restore(ctx); ok {
		t.Error("expired token must not restore")
	}
}

func TestFileStore_TTL(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	now := time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Set(ctx, "k", "v", DefaultTTL); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, err := store.Get(ctx, "k"); err != nil || v != "v" {
		t.Fatalf("Get: %q, %v", v, err)
	}

	now = now.Add(DefaultTTL)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expiry after %s, got %v", DefaultTTL, err)
	}
}

func TestFileStore_DeleteMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Delete(context.Background(), "absent", TokenKey); err != nil {
		t.Errorf("deleting absent keys: %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("DENTALPRO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("DENTALPRO_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := DialRedis(ctx, url)
	if err != nil {
		t.Fatalf("DialRedis: %v", err)
	}
	defer client.Close()

	m := NewManager(NewRedisStore(client, "test-"+t.Name()))
	defer m.Clear(ctx)

	if err := m.Save(ctx, Session{Token: "opaque-token", User: testUser}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s, ok := m.Restore(ctx)
	if !ok || s.User != testUser {
		t.Fatalf("Restore: %+v, %v", s, ok)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := m.Restore(ctx); ok {
		t.Error("expected no session after Clear")
	}
}
