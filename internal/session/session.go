// Package session wires the client components into one running session:
// the HTTP client, page view, local state, refresh orchestrator, message
// dispatcher and realtime connection manager.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/listsync/internal/api"
	"github.com/rickgao/listsync/internal/config"
	"github.com/rickgao/listsync/internal/connection"
	"github.com/rickgao/listsync/internal/dispatch"
	"github.com/rickgao/listsync/internal/model"
	"github.com/rickgao/listsync/internal/page"
	"github.com/rickgao/listsync/internal/refresh"
	"github.com/rickgao/listsync/internal/state"
)

// ErrLoginRequired is returned when the server sends the client to the
// login page.
var ErrLoginRequired = errors.New("login required")

// Session is one client session against a list server.
type Session struct {
	Client     *api.Client
	View       *page.View
	State      *state.State
	Refresh    *refresh.Orchestrator
	Dispatcher *dispatch.Dispatcher
	Actions    *state.Actions
	Manager    connection.Manager

	loginPath string
	wake      <-chan os.Signal
	logger    *slog.Logger
}

type options struct {
	confirm state.Confirmer
	dialer  connection.Dialer
	wake    <-chan os.Signal
}

// Option configures a Session.
type Option func(*options)

// WithConfirmer sets the prompt used before destructive actions.
func WithConfirmer(c state.Confirmer) Option {
	return func(o *options) { o.confirm = c }
}

// WithDialer replaces the realtime transport.
func WithDialer(d connection.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithWake makes every value received on ch wake the connection, the way
// a page becoming visible again does.
func WithWake(ch <-chan os.Signal) Option {
	return func(o *options) { o.wake = ch }
}

// New builds a session from cfg. Nothing is contacted until Bootstrap or Run.
func New(cfg *config.ClientConfig, logger *slog.Logger, opts ...Option) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	wsURL, err := connection.WebSocketURL(cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("derive socket url: %w", err)
	}

	view := page.NewView(logger.With("component", "page"))
	client := api.NewClient(cfg.Server.BaseURL,
		api.WithTimeout(cfg.Server.Timeout),
		api.WithLogger(logger.With("component", "api")),
		api.WithLoginPath(cfg.Server.LoginPath),
		api.WithNavigator(view),
	)
	st := state.New()
	orch := refresh.NewOrchestrator(client, view, st, logger.With("component", "refresh"))
	disp := dispatch.NewDispatcher(orch, view, logger.With("component", "dispatch"))

	mcfg := connection.ManagerConfig{
		URL:                  wsURL,
		Jar:                  client.Jar(),
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
		ReconnectBaseDelay:   cfg.Connection.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Connection.ReconnectMaxDelay,
		PingInterval:         cfg.Connection.PingInterval,
		WriteTimeout:         cfg.Connection.WriteTimeout,
		HandshakeTimeout:     cfg.Connection.HandshakeTimeout,
		BufferSize:           cfg.Connection.BufferSize,
	}
	var mopts []connection.ManagerOption
	if o.dialer != nil {
		mopts = append(mopts, connection.WithDialer(o.dialer))
	}

	return &Session{
		Client:     client,
		View:       view,
		State:      st,
		Refresh:    orch,
		Dispatcher: disp,
		Actions:    state.NewActions(client, orch, o.confirm, view, logger.With("component", "actions")),
		Manager:    connection.NewManager(mcfg, disp, logger.With("component", "connection"), mopts...),
		loginPath:  cfg.Server.LoginPath,
		wake:       o.wake,
		logger:     logger,
	}, nil
}

// Bootstrap seeds the view from the server's stats and preferences and
// loads the page.
func (s *Session) Bootstrap(ctx context.Context) error {
	var seed page.Seed

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.Client.Stats(gctx)
		if err != nil {
			return fmt.Errorf("fetch stats: %w", err)
		}
		seed.Stats = stats
		return nil
	})
	g.Go(func() error {
		prefs, err := s.Client.Preferences(gctx)
		if err != nil {
			return fmt.Errorf("fetch preferences: %w", err)
		}
		helper, err := model.ParseMobileHelper(string(prefs.MobileHelper))
		if err != nil {
			s.logger.Warn("ignoring stored preference", "error", err)
			return nil
		}
		seed.MobileHelper = helper
		return nil
	})
	if err := g.Wait(); err != nil {
		return s.CheckLogin(err)
	}
	s.View.ApplySeed(seed)

	doc, err := s.Client.Page(ctx)
	if err != nil {
		return s.CheckLogin(fmt.Errorf("load page: %w", err))
	}
	if err := s.View.LoadPage(doc); err != nil {
		return err
	}

	s.logger.Info("session ready",
		"total_items", seed.Stats.TotalItems,
		"completed_items", seed.Stats.CompletedItems,
		"mobile_helper", s.View.MobileHelper(),
	)
	return nil
}

// Run keeps the session live until ctx is cancelled or the server sends
// the client to the login page. Background refreshes are drained before
// it returns.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Manager.Run(gctx)
	})
	g.Go(func() error {
		return s.watchNavigation(gctx)
	})
	if s.wake != nil {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case sig := <-s.wake:
					s.logger.Debug("wake", "signal", sig)
					s.Manager.Wake()
				}
			}
		})
	}

	err := g.Wait()
	s.Refresh.Wait()
	return err
}

// Wake retries the connection immediately.
func (s *Session) Wake() {
	s.Manager.Wake()
}

// watchNavigation ends the session when the page is sent to login. Any
// other navigation reloads the page.
func (s *Session) watchNavigation(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case loc := <-s.View.Navigated():
			if s.isLogin(loc) {
				s.logger.Warn("session ended, login required", "location", loc)
				return ErrLoginRequired
			}
			s.logger.Info("page navigated, reloading", "location", loc)
			s.Refresh.RequestFullReload(ctx)
		}
	}
}

func (s *Session) isLogin(loc string) bool {
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	return u.Path == s.loginPath
}

// CheckLogin wraps err with ErrLoginRequired when it, or the navigation it
// caused, means the session has ended.
func (s *Session) CheckLogin(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrUnauthorized) || s.isLogin(s.View.Location()) {
		return fmt.Errorf("%w: %v", ErrLoginRequired, err)
	}
	return err
}
