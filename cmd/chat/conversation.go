package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chatsync/internal/config"
	"chatsync/internal/model"
)

type target struct {
	user  int64
	group int64
}

func (t *target) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&t.user, "user", 0, "direct conversation with this user id")
	cmd.Flags().Int64Var(&t.group, "group", 0, "group conversation with this group id")
}

func (t *target) key() (model.ConversationKey, error) {
	if (t.user > 0) == (t.group > 0) {
		return model.ConversationKey{}, errors.New("specify exactly one of --user or --group")
	}
	if t.group > 0 {
		return model.GroupKey(t.group), nil
	}
	return model.DirectKey(t.user), nil
}

func newChatsCmd(opts *rootOptions, env config.Env) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List direct chats and groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, env, func(a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				printChats(cmd.OutOrStdout(), a.coord.Chats(filter))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "case-insensitive name filter")
	return cmd
}

// openConversation selects key and waits for its history.
func openConversation(cmd *cobra.Command, a *app, key model.ConversationKey) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if err := a.coord.Select(cmd.Context(), key); err != nil {
		return err
	}
	a.coord.Wait()
	return nil
}

func newOpenCmd(opts *rootOptions, env config.Env) *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Print a conversation's history",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := t.key()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, env, func(a *app) error {
				if err := openConversation(cmd, a, key); err != nil {
					return err
				}
				sess, _ := a.coord.Session()
				conv, _ := a.coord.Selection()
				printHistory(cmd.OutOrStdout(), sess, conv, a.coord.SelectionStale(), a.coord.Messages())
				return nil
			})
		},
	}
	t.bind(cmd)
	return cmd
}

func newSendCmd(opts *rootOptions, env config.Env) *cobra.Command {
	var t target
	cmd := &cobra.Command{
		Use:   "send [text...]",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := t.key()
			if err != nil {
				return err
			}
			return withApp(cmd, opts, env, func(a *app) error {
				if err := openConversation(cmd, a, key); err != nil {
					return err
				}
				msg, err := a.coord.Send(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sent message %d\n", msg.ID)
				return nil
			})
		},
	}
	t.bind(cmd)
	return cmd
}

func newUsersCmd(opts *rootOptions, env config.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "users <query>",
		Short: "Search people by username or nickname",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, env, func(a *app) error {
				sess, ok := a.coord.Session()
				if !ok {
					return errSignedOut
				}
				users, err := a.client.SearchUsers(cmd.Context(), sess.Identity(), args[0])
				if err != nil {
					return err
				}
				printUsers(cmd.OutOrStdout(), users)
				return nil
			})
		},
	}
}
