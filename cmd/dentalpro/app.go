package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/user"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Multiverse88/Dentalpro/internal/clinic"
	"github.com/Multiverse88/Dentalpro/internal/config"
	"github.com/Multiverse88/Dentalpro/internal/gateway"
	"github.com/Multiverse88/Dentalpro/internal/platform/logging"
	"github.com/Multiverse88/Dentalpro/internal/session"
)

var errNotLoggedIn = errors.New("not logged in; run `dentalpro login` first")

// app carries what every command needs. The workspace is built on first use
// so sandbox commands never touch the session store.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	out    io.Writer
	in     *bufio.Reader

	redis *redis.Client
	ws    *clinic.Workspace
	now   func() time.Time
}

func newApp(cfg *config.Config, out, logOut io.Writer) *app {
	logger := logging.New(logging.Options{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
		Dev:   cfg.IsDev(),
		Out:   logOut,
	})
	return &app{cfg: cfg, logger: logger, out: out, now: time.Now}
}

func (a *app) sessionStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.SessionStore {
	case config.SessionRedis:
		client, err := session.DialRedis(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = client
		return session.NewRedisStore(client, namespace()), nil
	default:
		return session.NewFileStore(a.cfg.SessionDir), nil
	}
}

// namespace scopes redis keys to the operating-system user.
func namespace() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}

func (a *app) workspace(ctx context.Context) (*clinic.Workspace, error) {
	if a.ws != nil {
		return a.ws, nil
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	store, err := a.sessionStore(ctx)
	if err != nil {
		return nil, err
	}
	mgr := session.NewManager(store,
		session.WithTTL(a.cfg.SessionTTL),
		session.WithLogger(a.logger),
		session.WithClock(a.now),
	)
	gw := gateway.New(a.cfg.APIBaseURL,
		gateway.WithTimeout(a.cfg.HTTPTimeout),
		gateway.WithLogger(a.logger),
		gateway.WithTokenSource(mgr.Token),
	)
	a.ws = clinic.New(gw, mgr,
		clinic.WithLogger(a.logger),
		clinic.WithClock(a.now),
		clinic.WithLocale(a.cfg.Language()),
		clinic.WithPhoneRegion(a.cfg.PhoneRegion),
	)
	return a.ws, nil
}

// loggedIn restores the stored session, loading the patient list with it.
func (a *app) loggedIn(ctx context.Context) (*clinic.Workspace, error) {
	ws, err := a.workspace(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := ws.Start(ctx); !ok {
		return nil, errNotLoggedIn
	}
	if err := ws.PatientsError(); err != nil {
		return nil, err
	}
	return ws, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
