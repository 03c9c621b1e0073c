package integration

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Multiverse88/Dentalpro/internal/clinic"
	"github.com/Multiverse88/Dentalpro/internal/gateway"
	"github.com/Multiverse88/Dentalpro/internal/platform/auth"
	"github.com/Multiverse88/Dentalpro/internal/platform/db"
	"github.com/Multiverse88/Dentalpro/internal/sandbox"
	"github.com/Multiverse88/Dentalpro/internal/session"
)

// Postgres-backed tests run when DENTALPRO_TEST_DATABASE_URL points at a
// scratch database, or when DENTALPRO_TEST_DOCKER=1 lets the suite start one.
const (
	envDatabaseURL = "DENTALPRO_TEST_DATABASE_URL"
	envDocker      = "DENTALPRO_TEST_DOCKER"
)

// globalPool is nil when no database is available.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	cleanup, err := setupPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up postgres: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupPostgres(ctx context.Context) (func(), error) {
	connStr := os.Getenv(envDatabaseURL)
	stop := func() {}
	if connStr == "" && os.Getenv(envDocker) == "1" {
		var err error
		connStr, stop, err = startPostgresContainer(ctx)
		if err != nil {
			return nil, err
		}
	}
	if connStr == "" {
		return stop, nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{URL: connStr, MaxConns: 5, MinConns: 1, AppName: "dentalpro-integration"})
	if err != nil {
		stop()
		return nil, err
	}
	if _, err := db.NewMigrator(pool, sandbox.Migrations()).Up(ctx); err != nil {
		pool.Close()
		stop()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	globalPool = pool
	return func() {
		pool.Close()
		stop()
	}, nil
}

// requirePostgres skips t without a database and empties it otherwise.
func requirePostgres(t *testing.T) *sandbox.PGStore {
	t.Helper()
	if globalPool == nil {
		t.Skipf("set %s or %s=1 to run postgres tests", envDatabaseURL, envDocker)
	}
	store := sandbox.NewPGStore(globalPool)
	if err := store.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	return store
}

// startSandbox serves the sandbox API over a real listener.
func startSandbox(t *testing.T, store sandbox.Store) *httptest.Server {
	t.Helper()
	e := sandbox.NewServer(sandbox.ServerConfig{
		Store:  store,
		Tokens: auth.NewIssuer([]byte("integration-signing-key-0123"), "dentalpro-sandbox"),
		Logger: zerolog.Nop(),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

// newClient builds a gateway client and a session manager that feeds it
// tokens, the way the CLI wires them.
func newClient(t *testing.T, srv *httptest.Server) (*gateway.Client, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(session.NewFileStore(t.TempDir()))
	gw := gateway.New(srv.URL+"/api",
		gateway.WithHTTPClient(srv.Client()),
		gateway.WithTimeout(5*time.Second),
		gateway.WithTokenSource(mgr.Token),
	)
	return gw, mgr
}

func newWorkspace(t *testing.T, srv *httptest.Server) *clinic.Workspace {
	t.Helper()
	gw, mgr := newClient(t, srv)
	return clinic.New(gw, mgr, clinic.WithLocation(time.UTC))
}
