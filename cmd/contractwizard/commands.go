package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/contract-wizard/internal/archive"
	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/draft"
	"github.com/kingrea/contract-wizard/internal/eventbridge"
)

const markReadConcurrency = 4

var (
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Width(12)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

func (c *cli) draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "List locally saved drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := draft.Open(c.cfg.DraftsPath())
			if err != nil {
				return err
			}
			defer repo.Close()
			summaries, err := repo.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No saved drafts.")
				return nil
			}
			fmt.Fprintln(out, draftsTable(summaries))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <draft-id>",
		Short: "Delete a saved draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := draft.Open(c.cfg.DraftsPath())
			if err != nil {
				return err
			}
			defer repo.Close()
			if err := repo.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted draft %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func draftsTable(summaries []draft.Summary) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "TITLE", "STEP", "DONE", "STATUS", "SAVED")
	for _, s := range summaries {
		status := s.Status
		if status == "" {
			status = "-"
		}
		t.Row(
			s.ID,
			s.Title,
			strconv.Itoa(s.Step),
			fmt.Sprintf("%d%%", s.Completion),
			status,
			s.SavedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return t.Render()
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <contract-id>",
		Short: "Show a contract's status and signature progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := c.client().GetContract(cmd.Context(), args[0])
			if err != nil {
				return c.friendly("get contract", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderContract(ct))
			return nil
		},
	}
}

func renderContract(ct *contract.Contract) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(ct.Title()))
	b.WriteString("\n")
	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	row("ID", ct.ID)
	row("Status", ct.Status.FriendlyName())
	if ct.CompletionPercentage > 0 {
		row("Progress", fmt.Sprintf("%d%%", ct.CompletionPercentage))
	}
	if ct.Status.AtLeast(contract.StatusSentForSignature) {
		row("Signatures", fmt.Sprintf("%d%%", contract.SignatureProgress(ct)))
	}
	d := ct.Details
	if d.FirstParty.Name != "" || d.SecondParty.Name != "" {
		row("Parties", d.FirstParty.Name+" ↔ "+d.SecondParty.Name)
	}
	row("PDF", ct.Documents.PDFURL)
	row("Signed PDF", ct.Documents.SignedPDFURL)
	return b.String()
}

func (c *cli) notificationsCmd() *cobra.Command {
	var unreadOnly, markRead bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client := c.client()
			inbox, err := client.ListNotifications(ctx, unreadOnly)
			if err != nil {
				return c.friendly("list notifications", err)
			}
			out := cmd.OutOrStdout()
			writeNotifications(out, inbox.Notifications)
			fmt.Fprintf(out, "%d unread\n", inbox.UnreadCount)
			if !markRead {
				return nil
			}
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(markReadConcurrency)
			marked := 0
			for _, n := range inbox.Notifications {
				if n.Read {
					continue
				}
				id := n.ID
				marked++
				g.Go(func() error {
					return client.MarkNotificationRead(gctx, id)
				})
			}
			if err := g.Wait(); err != nil {
				return c.friendly("mark notifications read", err)
			}
			fmt.Fprintf(out, "Marked %d as read\n", marked)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only show unread notifications")
	cmd.Flags().BoolVar(&markRead, "mark-read", false, "mark the listed notifications as read")
	return cmd
}

func writeNotifications(out io.Writer, items []contract.Notification) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No notifications.")
		return
	}
	for _, n := range items {
		marker := " "
		if !n.Read {
			marker = "●"
		}
		line := marker + " " + n.Title
		if n.ContractID != "" {
			line += " [" + n.ContractID + "]"
		}
		fmt.Fprintln(out, line)
		if n.Message != "" {
			fmt.Fprintln(out, "    "+n.Message)
		}
	}
}

func (c *cli) archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <contract-id>",
		Short: "Download a signed contract and archive it",
		Long: `Downloads the signed PDF of a fully signed contract into
.contractwizard/archive and, when archive.enabled is set in config.yaml,
uploads it to the configured S3-compatible bucket.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := c.client()
			ct, err := client.GetContract(ctx, args[0])
			if err != nil {
				return c.friendly("get contract", err)
			}
			docURL := ct.Documents.SignedPDFURL
			if docURL == "" {
				docURL = ct.Documents.PDFURL
			}
			if docURL == "" {
				return fmt.Errorf("contract %s has no document yet", ct.ID)
			}
			archiver, err := archive.FromConfig(c.cfg, c.logger)
			if err != nil {
				return err
			}
			pdf, err := client.DownloadDocument(ctx, docURL)
			if err != nil {
				return c.friendly("download document", err)
			}
			res, err := archiver.Archive(ctx, ct, pdf)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved %s\n", res.LocalPath)
			if res.ObjectKey != "" {
				fmt.Fprintf(out, "Uploaded %s\n", res.ObjectKey)
			}
			if res.URL != "" {
				fmt.Fprintf(out, "Share link %s\n", res.URL)
			}
			return nil
		},
	}
}

func (c *cli) loginCmd() *cobra.Command {
	var token, baseURL string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the API token and backend URL in config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" && baseURL == "" {
				return fmt.Errorf("nothing to update: pass --token and/or --url")
			}
			if baseURL != "" {
				if err := c.cfg.SetBaseURL(baseURL); err != nil {
					return err
				}
			}
			if token != "" {
				if err := c.cfg.SetToken(token); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", c.cfg.ProjectConfigPath())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token for the contract service")
	cmd.Flags().StringVar(&baseURL, "url", "", "backend base URL, e.g. https://contracts.example.com/api")
	return cmd
}

func (c *cli) listenCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Run the webhook receiver and print events as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			settings := eventbridge.SettingsFromConfig(c.cfg)
			settings.Enabled = true
			if cmd.Flags().Changed("port") {
				settings.Port = port
			}
			router := eventbridge.NewRouter(eventbridge.RouterWithLogger(c.logger))
			feed := router.SubscribeAll()
			defer feed.Close()

			server := eventbridge.NewServer(settings,
				eventbridge.WithProcessor(router),
				eventbridge.WithLogger(c.logger),
			)
			if err := server.Start(ctx); err != nil {
				return err
			}
			defer c.shutdown(server)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Listening for webhooks on %s (ctrl+c to stop)\n", server.WebhookURL())
			for {
				select {
				case <-ctx.Done():
					return nil
				case evt, ok := <-feed.Events:
					if !ok {
						return nil
					}
					fmt.Fprintln(out, formatEvent(evt))
				}
			}
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override bridge.port")
	return cmd
}

func formatEvent(evt eventbridge.Event) string {
	parts := []string{evt.OccurredAt.Local().Format("15:04:05"), evt.Type, evt.ContractID}
	if evt.Status != "" {
		parts = append(parts, evt.Status.FriendlyName())
	}
	if evt.Notification != nil && evt.Notification.Title != "" {
		parts = append(parts, evt.Notification.Title)
	}
	return strings.Join(parts, "  ")
}
