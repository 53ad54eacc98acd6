package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"chatsync/internal/config"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd(env config.Env) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "chat",
		Short:         "chat is a terminal client for the chatsync messaging services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", env.Getenv("CHAT_CONFIG"), "path to client config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLoginCmd(opts, env))
	cmd.AddCommand(newRegisterCmd(opts, env))
	cmd.AddCommand(newLogoutCmd(opts, env))
	cmd.AddCommand(newWhoamiCmd(opts, env))
	cmd.AddCommand(newChatsCmd(opts, env))
	cmd.AddCommand(newOpenCmd(opts, env))
	cmd.AddCommand(newSendCmd(opts, env))
	cmd.AddCommand(newUsersCmd(opts, env))
	cmd.AddCommand(newGroupCmd(opts, env))
	cmd.AddCommand(newProfileCmd(opts, env))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chat %s (commit: %s)\n", Version, Commit)
		},
	}
}

func execute(cmd *cobra.Command, stderr io.Writer) int {
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "chat: %v\n", err)
		}
		return 1
	}
	return 0
}

func main() {
	_ = godotenv.Load()
	os.Exit(execute(newRootCmd(config.OSEnv()), os.Stderr))
}
