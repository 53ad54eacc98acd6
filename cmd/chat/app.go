package main

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chatsync/internal/api"
	"chatsync/internal/chat"
	"chatsync/internal/config"
	"chatsync/internal/hub"
	"chatsync/internal/kv"
	"chatsync/internal/logging"
)

// errReported marks a failure whose notice was already printed.
var errReported = errors.New("reported")

var errSignedOut = errors.New("not signed in; run `chat login` first")

type app struct {
	cfg     *config.ClientConfig
	client  *api.Client
	coord   *chat.Coordinator
	store   kv.Store
	logger  zerolog.Logger
	notices atomic.Int32
}

// openApp wires config, session storage, the API client and the coordinator,
// then restores any persisted session.
func openApp(cmd *cobra.Command, opts *rootOptions, env config.Env) (*app, error) {
	cfg, err := config.LoadClient(opts.configPath, env)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.verbose {
		level = "debug"
	}
	logger := logging.New(level, true, cmd.ErrOrStderr())

	store, err := openSessionStore(cmd, cfg)
	if err != nil {
		return nil, err
	}

	client := api.New(api.Config{
		AuthURL:     cfg.AuthURL,
		MessagesURL: cfg.MessagesURL,
		GroupsURL:   cfg.GroupsURL,
		UsersURL:    cfg.UsersURL,
		Timeout:     cfg.Timeout,
		Logger:      logger,
	})

	a := &app{cfg: cfg, client: client, store: store, logger: logger}
	h := hub.New()
	stderr := cmd.ErrOrStderr()
	h.Subscribe(hub.KindNotice, hub.SinkFunc(func(ev hub.Event) error {
		a.notices.Add(1)
		_, err := fmt.Fprintf(stderr, "! %s\n", ev.Message)
		return err
	}))

	a.coord = chat.NewCoordinator(chat.Options{Service: client, Store: store, Hub: h, Logger: logger})
	a.coord.Start(cmd.Context())
	return a, nil
}

func openSessionStore(cmd *cobra.Command, cfg *config.ClientConfig) (kv.Store, error) {
	if cfg.RedisURL != "" {
		return kv.NewRedisStore(cmd.Context(), cfg.RedisURL)
	}
	return kv.NewFileStore(cfg.SessionFile), nil
}

// check turns an error that already produced a notice into errReported.
func (a *app) check(err error) error {
	if err == nil {
		return nil
	}
	if a.notices.Swap(0) > 0 {
		return errReported
	}
	return err
}

func (a *app) requireSession() error {
	if a.coord.State() != chat.StateAuthenticated {
		return errSignedOut
	}
	return nil
}

func (a *app) Close() error {
	a.coord.Wait()
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// withApp runs fn with an open app and closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, env config.Env, fn func(a *app) error) error {
	a, err := openApp(cmd, opts, env)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.check(fn(a))
}
