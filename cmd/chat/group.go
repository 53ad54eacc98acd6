package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatsync/internal/chat"
	"chatsync/internal/config"
)

func newGroupCmd(opts *rootOptions, env config.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Group commands",
	}
	cmd.AddCommand(newGroupCreateCmd(opts, env))
	cmd.AddCommand(newGroupAddMemberCmd(opts, env))
	return cmd
}

func newGroupCreateCmd(opts *rootOptions, env config.Env) *cobra.Command {
	var draft chat.GroupDraft
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a group with you as its first member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, env, func(a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				a.coord.SetGroupDraft(draft)
				g, err := a.coord.CreateGroup(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created group %d %q\n", g.ID, g.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&draft.Name, "name", "", "group name (required)")
	cmd.Flags().StringVar(&draft.Description, "description", "", "group description")
	return cmd
}

func newGroupAddMemberCmd(opts *rootOptions, env config.Env) *cobra.Command {
	var groupID, memberID int64
	cmd := &cobra.Command{
		Use:   "add-member",
		Short: "Add a user to a group you belong to",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, env, func(a *app) error {
				if err := a.requireSession(); err != nil {
					return err
				}
				if err := a.coord.AddGroupMember(cmd.Context(), groupID, memberID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added user %d to group %d\n", memberID, groupID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&groupID, "group", 0, "group id (required)")
	cmd.Flags().Int64Var(&memberID, "member", 0, "user id to add (required)")
	cmd.MarkFlagRequired("group")
	cmd.MarkFlagRequired("member")
	return cmd
}
