package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatsync/internal/config"
)

func newProfileCmd(opts *rootOptions, env config.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}
	cmd.AddCommand(newProfileShowCmd(opts, env))
	cmd.AddCommand(newProfileSetCmd(opts, env))
	return cmd
}

func newProfileShowCmd(opts *rootOptions, env config.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, env, func(a *app) error {
				sess, ok := a.coord.Session()
				if !ok {
					return errSignedOut
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Username: %s\n", sess.Username)
				fmt.Fprintf(out, "Nickname: %s\n", sess.Nickname)
				fmt.Fprintf(out, "Bio:      %s\n", sess.Bio)
				fmt.Fprintf(out, "Avatar:   %s\n", sess.AvatarURL)
				return nil
			})
		},
	}
}

func newProfileSetCmd(opts *rootOptions, env config.Env) *cobra.Command {
	var nickname, bio, avatar string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change profile fields; unset flags keep their current value",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, env, func(a *app) error {
				fields, err := a.coord.OpenProfile()
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("nickname") {
					fields.Nickname = nickname
				}
				if cmd.Flags().Changed("bio") {
					fields.Bio = bio
				}
				if cmd.Flags().Changed("avatar") {
					fields.AvatarURL = avatar
				}
				if err := a.coord.SetProfileDraft(fields); err != nil {
					return err
				}
				sess, err := a.coord.SaveProfile(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Profile saved for %s\n", sess.DisplayName())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "display name")
	cmd.Flags().StringVar(&bio, "bio", "", "short bio")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	return cmd
}
