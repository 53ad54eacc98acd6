package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatsync/internal/config"
	"chatsync/internal/model"
)

type credentials struct {
	username string
	password string
}

func (c *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "password (or CHAT_PASSWORD)")
}

func (c *credentials) resolve(env config.Env) {
	if c.password == "" {
		c.password = env.Getenv("CHAT_PASSWORD")
	}
}

func newLoginCmd(opts *rootOptions, env config.Env) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds.resolve(env)
			return withApp(cmd, opts, env, func(a *app) error {
				sess, err := a.coord.Login(cmd.Context(), creds.username, creds.password)
				if err != nil {
					return err
				}
				printWelcome(cmd, sess)
				return nil
			})
		},
	}
	creds.bind(cmd)
	return cmd
}

func newRegisterCmd(opts *rootOptions, env config.Env) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds.resolve(env)
			return withApp(cmd, opts, env, func(a *app) error {
				sess, err := a.coord.Register(cmd.Context(), creds.username, creds.password)
				if err != nil {
					return err
				}
				printWelcome(cmd, sess)
				return nil
			})
		},
	}
	creds.bind(cmd)
	return cmd
}

func printWelcome(cmd *cobra.Command, sess model.Session) {
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (id %d)\n", sess.DisplayName(), sess.ID)
}

func newLogoutCmd(opts *rootOptions, env config.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, env, func(a *app) error {
				if err := a.coord.Logout(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *rootOptions, env config.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, env, func(a *app) error {
				sess, ok := a.coord.Session()
				if !ok {
					return errSignedOut
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (@%s, id %d)\n", sess.DisplayName(), sess.Username, sess.ID)
				return nil
			})
		},
	}
}
