package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"chatsync/internal/api"
	"chatsync/internal/model"
)

func printChats(w io.Writer, chats []model.ConversationSummary) {
	if len(chats) == 0 {
		fmt.Fprintln(w, "No conversations yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tNAME\tLAST\tTIME\tUNREAD")
	for _, c := range chats {
		kind := "user"
		last := c.LastMessage
		if c.IsGroup {
			kind = "group"
			last = fmt.Sprintf("%d members", c.MemberCount)
		}
		unread := ""
		if c.UnreadCount > 0 {
			unread = fmt.Sprintf("%d", c.UnreadCount)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", kind, c.ID, c.Name, last, c.LastTime, unread)
	}
	tw.Flush()
}

func printHistory(w io.Writer, self model.Session, conv model.ConversationSummary, stale bool, msgs []model.Message) {
	title := conv.Name
	if title == "" {
		title = conv.Key().String()
	}
	if stale {
		title += " (not in your conversation list)"
	}
	fmt.Fprintf(w, "== %s ==\n", title)
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages yet.")
		return
	}
	for _, m := range msgs {
		fmt.Fprintf(w, "[%s] %s: %s\n", m.Time, senderLabel(self, conv, m), m.Text)
	}
}

func senderLabel(self model.Session, conv model.ConversationSummary, m model.Message) string {
	switch {
	case m.SenderID == self.ID:
		return "you"
	case m.SenderNickname != "":
		return m.SenderNickname
	case !conv.IsGroup && conv.Name != "":
		return conv.Name
	}
	return fmt.Sprintf("user %d", m.SenderID)
}

func printUsers(w io.Writer, users []api.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No matching users.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNICKNAME\tONLINE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", u.ID, u.Username, u.Nickname, u.Online)
	}
	tw.Flush()
}
