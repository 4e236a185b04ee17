// internal/tui/app.go
//
// This is the terminal front end of the contract wizard. It uses bubbletea,
// which follows The Elm Architecture:
//
// 1. Model: the App and, while a draft is open, its wizardView
// 2. Update: messages (keys, gateway results, webhook events) change state
// 3. View: the current state rendered to a string
//
// Gateway calls never run inside Update; they are tea.Cmds whose results come
// back as messages and are dispatched into the wizard store.

package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/contract-wizard/internal/archive"
	"github.com/kingrea/contract-wizard/internal/config"
	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/draft"
	"github.com/kingrea/contract-wizard/internal/eventbridge"
	"github.com/kingrea/contract-wizard/internal/gateway"
	"github.com/kingrea/contract-wizard/internal/logbook"
	"github.com/kingrea/contract-wizard/internal/wizard"
)

// appState represents which screen we're on
type appState int

const (
	stateMainMenu      appState = iota // New contract, resume, notifications
	stateDrafts                        // Saved drafts picker
	stateWizard                        // An open draft
	stateNotifications                 // Backend notifications
)

const (
	defaultUsageRefresh = time.Minute
	journeyLogName      = "journey.log"
)

const (
	actionNew           = "new"
	actionResume        = "resume"
	actionNotifications = "notifications"
	actionExit          = "exit"
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithDrafts enables resuming and auto-saving drafts.
func WithDrafts(store draft.Store) AppOption {
	return func(a *App) { a.drafts = store }
}

// WithRouter subscribes the TUI to webhook events.
func WithRouter(router *eventbridge.Router) AppOption {
	return func(a *App) { a.router = router }
}

// WithBridgeAddress shows where the webhook bridge listens.
func WithBridgeAddress(addr string) AppOption {
	return func(a *App) { a.bridgeAddr = addr }
}

// WithArchiver enables archiving signed PDFs from the signature step.
func WithArchiver(archiver *archive.Archiver) AppOption {
	return func(a *App) { a.archiver = archiver }
}

// WithLogbook overrides the journey log.
func WithLogbook(book *logbook.Logbook) AppOption {
	return func(a *App) {
		if book != nil {
			a.logbook = book
		}
	}
}

// WithLogger attaches the diagnostic logger.
func WithLogger(l *zap.Logger) AppOption {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithUsageRefresh sets how often AI usage is polled. Zero disables polling.
func WithUsageRefresh(d time.Duration) AppOption {
	return func(a *App) { a.usageRefresh = d }
}

type bootstrapMsg struct {
	usage  contract.AIUsage
	unread int
	err    error
}

type usageTickMsg struct{}

type usageMsg struct {
	usage contract.AIUsage
	err   error
}

type feedMsg struct {
	event eventbridge.Event
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state    appState
	cfg      *config.Config
	backend  Backend
	drafts   draft.Store
	router   *eventbridge.Router
	archiver *archive.Archiver
	logbook  *logbook.Logbook
	logger   *zap.Logger
	registry *wizard.Registry[stepView]

	ctx          context.Context
	stop         context.CancelFunc
	feed         *eventbridge.Subscription
	usageRefresh time.Duration
	bridgeAddr   string

	// UI components
	mainMenu      list.Model
	draftsMenu    list.Model
	wizard        *wizardView
	notifications *notificationsView
	statusMsg     string

	usage  contract.AIUsage
	unread int
	width  int
	height int
}

// menuItem implements list.Item interface for our menu items
type menuItem struct {
	title  string
	desc   string
	action string
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

type draftItem struct {
	summary draft.Summary
}

func (i draftItem) Title() string { return i.summary.Title }
func (i draftItem) Description() string {
	s := i.summary
	info, _ := wizard.Step(s.Step)
	desc := fmt.Sprintf("step %d %s · %d%%", s.Step, info.Title, s.Completion)
	if s.Status != "" {
		desc += " · " + s.Status
	}
	if !s.SavedAt.IsZero() {
		desc += " · saved " + humanizeDuration(time.Since(s.SavedAt)) + " ago"
	}
	return desc
}
func (i draftItem) FilterValue() string { return i.summary.Title }

// NewApp creates a new App instance
func NewApp(cfg *config.Config, backend Backend, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, errors.New("tui: config is required")
	}
	if backend == nil {
		return nil, errors.New("tui: backend is required")
	}
	mainMenu := list.New(buildMainMenu(), list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "⚖ CONTRACT WIZARD"
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)
	draftsMenu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	draftsMenu.Title = "Saved drafts"
	draftsMenu.SetShowStatusBar(false)
	draftsMenu.SetFilteringEnabled(false)

	app := &App{
		state:        stateMainMenu,
		cfg:          cfg,
		backend:      backend,
		logger:       zap.NewNop(),
		registry:     defaultRegistry(),
		usageRefresh: defaultUsageRefresh,
		mainMenu:     mainMenu,
		draftsMenu:   draftsMenu,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.logbook == nil {
		lb, err := logbook.New(filepath.Join(cfg.LogsDir(), journeyLogName))
		if err != nil {
			app.logger.Warn("journey log unavailable", zap.Error(err))
		} else {
			app.logbook = lb
		}
	}
	if missing := app.registry.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("tui: no view registered for steps %v", missing)
	}
	app.ctx, app.stop = context.WithCancel(context.Background())
	if app.router != nil {
		sub := app.router.SubscribeAll()
		app.feed = &sub
	}
	app.logInfo("Session opened · backend %s", orDash(cfg.BaseURL()))
	return app, nil
}

// defaultRegistry wires one view factory per wizard step.
func defaultRegistry() *wizard.Registry[stepView] {
	reg := wizard.NewRegistry[stepView]()
	reg.MustRegister(wizard.StepDescribe, newDescribeStep)
	reg.MustRegister(wizard.StepTemplate, newTemplateStep)
	reg.MustRegister(wizard.StepDetails, newDetailsStep)
	reg.MustRegister(wizard.StepMandatoryClauses, newMandatoryClauseStep)
	reg.MustRegister(wizard.StepOptionalClauses, newOptionalClauseStep)
	reg.MustRegister(wizard.StepParties, newPartiesStep)
	reg.MustRegister(wizard.StepReview, newReviewStep)
	reg.MustRegister(wizard.StepSignature, newSignatureStep)
	return reg
}

func buildMainMenu() []list.Item {
	return []list.Item{
		menuItem{title: "New contract", desc: "Describe what you need and let the AI pick a template", action: actionNew},
		menuItem{title: "Resume draft", desc: "Continue a saved contract draft", action: actionResume},
		menuItem{title: "Notifications", desc: "Signatures, witness confirmations and reminders", action: actionNotifications},
		menuItem{title: "Exit", desc: "Save and quit", action: actionExit},
	}
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.bootstrap()}
	if a.feed != nil {
		cmds = append(cmds, waitForFeed(a.feed.Events))
	}
	if a.usageRefresh > 0 {
		cmds = append(cmds, a.scheduleUsageRefresh())
	}
	return tea.Batch(cmds...)
}

// Close releases the open draft and the webhook subscription.
func (a *App) Close() {
	a.closeWizard()
	if a.feed != nil {
		a.feed.Close()
		a.feed = nil
	}
	a.stop()
}

// bootstrap loads the AI usage and the unread count in parallel.
func (a *App) bootstrap() tea.Cmd {
	ctx, api := a.ctx, a.backend
	return func() tea.Msg {
		var msg bootstrapMsg
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			usage, err := api.AIUsage(gctx)
			msg.usage = usage
			return err
		})
		g.Go(func() error {
			inbox, err := api.ListNotifications(gctx, true)
			msg.unread = inbox.UnreadCount
			if msg.unread == 0 {
				msg.unread = len(inbox.Notifications)
			}
			return err
		})
		msg.err = g.Wait()
		return msg
	}
}

func (a *App) scheduleUsageRefresh() tea.Cmd {
	return tea.Tick(a.usageRefresh, func(time.Time) tea.Msg { return usageTickMsg{} })
}

func (a *App) fetchUsage() tea.Cmd {
	ctx, api := a.ctx, a.backend
	return func() tea.Msg {
		usage, err := api.AIUsage(ctx)
		return usageMsg{usage: usage, err: err}
	}
}

func waitForFeed(events <-chan eventbridge.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return nil
		}
		return feedMsg{event: evt}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.mainMenu.SetSize(max(0, msg.Width-40), max(0, msg.Height-14))
		a.draftsMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-14))
		return a, nil

	case bootstrapMsg:
		if msg.err != nil {
			a.backgroundFailure("startup refresh", msg.err)
			return a, nil
		}
		a.usage = msg.usage
		a.unread = msg.unread
		return a, nil

	case usageTickMsg:
		return a, a.fetchUsage()

	case usageMsg:
		if msg.err != nil {
			a.backgroundFailure("AI usage refresh", msg.err)
		} else {
			a.usage = msg.usage
			if a.wizard != nil {
				a.wizard.store.Dispatch(wizard.UpdateAIUsage{Usage: msg.usage})
			}
		}
		return a, a.scheduleUsageRefresh()

	case feedMsg:
		return a, a.handleFeed(msg.event)

	case resultMsg:
		if a.wizard == nil || msg.owner != a.wizard {
			return a, nil
		}
		return a, a.updateWizard(msg)

	case contractEventMsg:
		if a.wizard == nil || msg.owner != a.wizard {
			return a, nil
		}
		return a, a.updateWizard(msg)

	case spinner.TickMsg:
		if a.wizard == nil {
			return a, nil
		}
		return a, a.updateWizard(msg)

	case notificationsMsg, notificationReadMsg:
		if a.notifications == nil {
			return a, nil
		}
		return a, a.notifications.Update(a, msg)

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			a.closeWizard()
			return a, tea.Quit
		}
		switch a.state {
		case stateWizard:
			return a, a.updateWizard(msg)
		case stateNotifications:
			if key == "esc" {
				return a.returnToMainMenu()
			}
			return a, a.notifications.Update(a, msg)
		case stateDrafts:
			switch key {
			case "esc":
				return a.returnToMainMenu()
			case "enter":
				return a.resumeSelectedDraft()
			case "d":
				a.deleteSelectedDraft()
				return a, nil
			}
		case stateMainMenu:
			switch key {
			case "q":
				return a, tea.Quit
			case "enter":
				return a.handleMainMenuSelection()
			}
		}
	}

	var cmd tea.Cmd
	switch a.state {
	case stateMainMenu:
		a.mainMenu, cmd = a.mainMenu.Update(msg)
	case stateDrafts:
		a.draftsMenu, cmd = a.draftsMenu.Update(msg)
	case stateWizard:
		cmd = a.updateWizard(msg)
	}
	return a, cmd
}

func (a *App) updateWizard(msg tea.Msg) tea.Cmd {
	if a.wizard == nil {
		return nil
	}
	cmd, leave := a.wizard.Update(msg)
	if !leave {
		return cmd
	}
	a.returnToMainMenu()
	return cmd
}

func (a *App) backgroundFailure(what string, err error) {
	a.logger.Warn("background refresh failed", zap.String("what", what), zap.Error(err))
	a.logWarn("%s failed: %s", what, gateway.Describe(err))
}

func (a *App) handleFeed(evt eventbridge.Event) tea.Cmd {
	var next tea.Cmd
	if a.feed != nil {
		next = waitForFeed(a.feed.Events)
	}
	switch evt.Type {
	case eventbridge.TypeNotificationCreated:
		a.unread++
		if evt.Notification != nil {
			a.logInfo("Notification: %s", evt.Notification.Title)
			a.statusMsg = "🔔 " + evt.Notification.Title
		}
	case eventbridge.TypeSigned:
		a.logInfo("Contract %s received a signature", evt.ContractID)
	case eventbridge.TypeCancelled:
		a.logWarn("Contract %s was cancelled", evt.ContractID)
	case eventbridge.TypeWitnessConfirmed:
		a.logInfo("A witness confirmed on contract %s", evt.ContractID)
	}
	return next
}

// handleMainMenuSelection processes menu item selection
func (a *App) handleMainMenuSelection() (tea.Model, tea.Cmd) {
	item, ok := a.mainMenu.SelectedItem().(menuItem)
	if !ok {
		return a, nil
	}
	switch item.action {
	case actionNew:
		a.logInfo("Started a new contract draft")
		return a, a.openWizard(wizard.InitialState())
	case actionResume:
		return a.showDrafts()
	case actionNotifications:
		a.notifications = newNotificationsView()
		a.state = stateNotifications
		return a, a.notifications.Load(a)
	case actionExit:
		a.closeWizard()
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) openWizard(st wizard.State) tea.Cmd {
	a.closeWizard()
	if st.AIUsage == (contract.AIUsage{}) {
		st.AIUsage = a.usage
	}
	a.wizard = newWizardView(a, st)
	a.state = stateWizard
	a.statusMsg = ""
	return a.wizard.Init()
}

func (a *App) closeWizard() {
	if a.wizard == nil {
		return
	}
	w := a.wizard
	a.wizard = nil
	if err := w.Close(); err != nil {
		a.logger.Warn("draft flush failed", zap.Error(err))
		a.logError("Could not save draft: %v", err)
		a.statusMsg = "Draft could not be saved: " + err.Error()
		return
	}
	if w.autosaver != nil && !w.State().LastSavedAt.IsZero() {
		a.statusMsg = "Draft saved"
	}
}

func (a *App) showDrafts() (tea.Model, tea.Cmd) {
	if a.drafts == nil {
		a.statusMsg = "Draft storage is not available"
		return a, nil
	}
	if err := a.refreshDrafts(); err != nil {
		a.statusMsg = err.Error()
		return a, nil
	}
	if len(a.draftsMenu.Items()) == 0 {
		a.statusMsg = "No saved drafts yet"
		return a, nil
	}
	a.state = stateDrafts
	a.statusMsg = "enter resume · d delete · esc back"
	return a, nil
}

func (a *App) refreshDrafts() error {
	summaries, err := a.drafts.List()
	if err != nil {
		a.logger.Warn("list drafts", zap.Error(err))
		return fmt.Errorf("could not list drafts: %w", err)
	}
	items := make([]list.Item, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, draftItem{summary: s})
	}
	a.draftsMenu.SetItems(items)
	return nil
}

func (a *App) resumeSelectedDraft() (tea.Model, tea.Cmd) {
	item, ok := a.draftsMenu.SelectedItem().(draftItem)
	if !ok {
		return a, nil
	}
	d, err := a.drafts.Load(item.summary.ID)
	if err != nil {
		a.statusMsg = err.Error()
		a.logError("Could not open draft %s: %v", item.summary.ID, err)
		return a, nil
	}
	a.logInfo("Resumed draft: %s", item.summary.Title)
	return a, a.openWizard(d.State)
}

func (a *App) deleteSelectedDraft() {
	item, ok := a.draftsMenu.SelectedItem().(draftItem)
	if !ok {
		return
	}
	if err := a.drafts.Delete(item.summary.ID); err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.logInfo("Deleted draft: %s", item.summary.Title)
	if err := a.refreshDrafts(); err != nil {
		a.statusMsg = err.Error()
		return
	}
	if len(a.draftsMenu.Items()) == 0 {
		a.returnToMainMenu()
		a.statusMsg = "No saved drafts left"
	}
}

func (a *App) returnToMainMenu() (tea.Model, tea.Cmd) {
	a.closeWizard()
	a.notifications = nil
	a.state = stateMainMenu
	return a, nil
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	height := a.height
	if height <= 0 {
		height = 30
	}
	var content string
	switch a.state {
	case stateMainMenu:
		content = a.renderMainMenu(width, height)
	case stateDrafts:
		a.draftsMenu.SetSize(max(20, width-6), max(8, height-14))
		content = panelStyle.Width(width - 4).Render(a.draftsMenu.View())
	case stateNotifications:
		content = panelStyle.Width(width - 4).Render(a.notifications.View(width - 8))
	case stateWizard:
		if a.wizard != nil {
			content = a.wizard.View(width)
		}
	}
	return a.renderStatusBoard(content)
}

func (a *App) renderMainMenu(width, height int) string {
	rightWidth := max(30, width/3)
	leftWidth := width - rightWidth - 6
	a.mainMenu.SetSize(max(20, leftWidth-4), max(10, height-14))
	left := panelStyle.Width(max(20, leftWidth)).Render(a.mainMenu.View())
	right := panelStyle.Width(rightWidth).Render(a.renderAccountPanel())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}

func (a *App) renderAccountPanel() string {
	lines := []string{
		titleStyle.Render("Account"),
		mutedStyle.Render("Backend ") + orDash(a.cfg.BaseURL()),
		usageLine(a.usage),
	}
	if left := a.usage.Remaining(); left >= 0 {
		lines = append(lines, fmt.Sprintf("AI calls left: %d", left))
	}
	bell := fmt.Sprintf("Notifications: %d unread", a.unread)
	if a.unread > 0 {
		bell = warnStyle.Render(bell)
	}
	lines = append(lines, bell)
	if a.bridgeAddr != "" {
		lines = append(lines, mutedStyle.Render("Webhooks ")+a.bridgeAddr)
	}
	if a.cfg.Token() == "" {
		lines = append(lines, "", warnStyle.Render("No API token configured."), mutedStyle.Render("Run: contractwizard login --token …"))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := fmt.Sprintf("LOG · %s", fileName)
	if total > len(lines) {
		head += fmt.Sprintf(" (last %d of %d)", len(lines), total)
	}
	body := lipgloss.NewStyle().
		Foreground(colorFaint).
		Render(strings.Join(lines, "\n"))
	return panelStyle.Render(fmt.Sprintf("%s\n%s", titleStyle.Render(head), body))
}

func (a *App) renderStatusBoard(mainContent string) string {
	title := "⚖ CONTRACT WIZARD"
	if a.unread > 0 {
		title += fmt.Sprintf("  🔔 %d", a.unread)
	}
	sections := []string{headerStyle.Render(title), mainContent}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(colorMuted).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func humanizeDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 48*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
