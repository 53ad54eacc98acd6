package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"chatsync/internal/auth"
	"chatsync/internal/config"
	"chatsync/internal/logging"
	"chatsync/internal/middleware"
	"chatsync/internal/server"
	"chatsync/internal/store"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd(env config.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatd",
		Short: "chatd serves the auth, messages and groups services",
		// serve is the default action.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, env, false)
		},
	}
	cmd.AddCommand(newServeCmd(env))
	cmd.AddCommand(newMigrateCmd(env))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newServeCmd(env config.Env) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, env, pretty)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "human-readable logs")
	return cmd
}

func runServe(cmd *cobra.Command, env config.Env, pretty bool) error {
	cfg, err := config.LoadConfigFromEnv(env)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, pretty, cmd.ErrOrStderr())
	gin.SetMode(cfg.GinMode)

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	tokenCfg := auth.DefaultTokenConfig(cfg.TokenSecret)
	tokenCfg.Expiry = cfg.TokenExpiry
	if !tokenCfg.Enabled() {
		logger.Warn().Msg("TOKEN_SECRET not set; trusting X-User-Id without bearer tokens")
	}

	router := server.NewRouter(server.Deps{
		Store:       st,
		TokenConfig: tokenCfg,
		Logger:      logger,
		AuthLimiter: middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute),
		Version:     Version,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Str("database", cfg.DatabasePath).Str("version", Version).Msg("starting chatd")
	return server.Run(ctx, cfg, router, logger)
}

func newMigrateCmd(env config.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigFromEnv(env)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date in %s\n", cfg.DatabasePath)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatd %s (commit: %s)\n", Version, Commit)
		},
	}
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	root := newRootCmd(config.OSEnv())
	root.SetContext(context.Background())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
