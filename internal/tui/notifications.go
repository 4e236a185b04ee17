package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/gateway"
)

type notificationsMsg struct {
	inbox gateway.NotificationList
	err   error
}

type notificationReadMsg struct {
	id  string
	err error
}

type notificationsView struct {
	items      []contract.Notification
	cursor     int
	unreadOnly bool
	loading    bool
	err        string
}

func newNotificationsView() *notificationsView {
	return &notificationsView{}
}

func (v *notificationsView) Load(a *App) tea.Cmd {
	v.loading = true
	ctx, api, unreadOnly := a.ctx, a.backend, v.unreadOnly
	return func() tea.Msg {
		inbox, err := api.ListNotifications(ctx, unreadOnly)
		return notificationsMsg{inbox: inbox, err: err}
	}
}

func (v *notificationsView) markRead(a *App, id string) tea.Cmd {
	ctx, api := a.ctx, a.backend
	return func() tea.Msg {
		return notificationReadMsg{id: id, err: api.MarkNotificationRead(ctx, id)}
	}
}

func (v *notificationsView) Update(a *App, msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case notificationsMsg:
		v.loading = false
		if msg.err != nil {
			v.err = gateway.Describe(msg.err)
			a.backgroundFailure("notifications", msg.err)
			return nil
		}
		v.err = ""
		v.items = msg.inbox.Notifications
		if v.cursor >= len(v.items) {
			v.cursor = max(0, len(v.items)-1)
		}
		unread := 0
		for _, n := range v.items {
			if !n.Read {
				unread++
			}
		}
		a.unread = max(unread, msg.inbox.UnreadCount)
	case notificationReadMsg:
		if msg.err != nil {
			v.err = gateway.Describe(msg.err)
			return nil
		}
		for i := range v.items {
			if v.items[i].ID == msg.id && !v.items[i].Read {
				v.items[i].Read = true
				if a.unread > 0 {
					a.unread--
				}
			}
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
			}
		case "down", "j":
			if v.cursor < len(v.items)-1 {
				v.cursor++
			}
		case "enter":
			if v.cursor < len(v.items) && !v.items[v.cursor].Read {
				return v.markRead(a, v.items[v.cursor].ID)
			}
		case "u":
			v.unreadOnly = !v.unreadOnly
			return v.Load(a)
		case "r":
			return v.Load(a)
		}
	}
	return nil
}

func (v *notificationsView) View(width int) string {
	var b strings.Builder
	heading := "Notifications"
	if v.unreadOnly {
		heading += " (unread)"
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n\n")
	switch {
	case v.loading:
		b.WriteString(mutedStyle.Render("Loading…"))
	case v.err != "":
		b.WriteString(errorBanner.Render("✗ " + v.err))
	case len(v.items) == 0:
		b.WriteString(mutedStyle.Render("Nothing here."))
	}
	for i, n := range v.items {
		marker := "  "
		title := n.Title
		if i == v.cursor {
			marker = selectedLine.Render("› ")
			title = selectedLine.Render(n.Title)
		}
		dot := mutedStyle.Render("·")
		if !n.Read {
			dot = warnStyle.Render("●")
		}
		when := ""
		if !n.CreatedAt.IsZero() {
			when = mutedStyle.Render(" " + n.CreatedAt.Local().Format("Jan 2 15:04"))
		}
		b.WriteString(fmt.Sprintf("%s%s %s%s\n", marker, dot, title, when))
		if i == v.cursor && n.Message != "" {
			b.WriteString(mutedStyle.Render("    " + truncate(n.Message, width-4)))
			b.WriteString("\n")
		}
	}
	b.WriteString(hintStyle.Render("enter mark read · u unread only · r refresh · esc back"))
	return b.String()
}
