package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/draft"
	"github.com/kingrea/contract-wizard/internal/eventbridge"
	"github.com/kingrea/contract-wizard/internal/gateway"
	"github.com/kingrea/contract-wizard/internal/logbook"
	"github.com/kingrea/contract-wizard/internal/wizard"
)

// stepView renders one wizard step. Views are rebuilt from the registry each
// time their step becomes current, so they only hold input widgets; the
// draft itself always lives in the store.
type stepView interface {
	Enter(w *wizardView) tea.Cmd
	Update(w *wizardView, msg tea.Msg) (tea.Cmd, bool)
	View(w *wizardView, width int) string
	Hints() string
	// Editing reports whether a text field has focus, in which case single
	// letter shortcuts are typed rather than interpreted.
	Editing() bool
}

// callFunc performs gateway work off the update loop and returns the state
// changes to apply once the result is known to be current.
type callFunc func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error)

// resultMsg carries the outcome of a callFunc. gen 0 marks loads that
// survive step changes.
type resultMsg struct {
	owner *wizardView
	gen   int
	op    string
	quiet bool
	apply func(*wizardView) tea.Cmd
	err   error
}

type contractEventMsg struct {
	owner  *wizardView
	events <-chan eventbridge.Event
	event  eventbridge.Event
}

type confirmation struct {
	prompt string
	run    func() tea.Cmd
}

// wizardView hosts one draft session: the store, its listeners, the step
// view for the current step and the per-step request context.
type wizardView struct {
	app       *App
	store     *wizard.Store
	autosaver *draft.Autosaver
	unsubs    []func()

	root   context.Context
	stop   context.CancelFunc
	ctx    context.Context
	cancel context.CancelFunc
	gen    int

	inflight  int
	restoring bool

	step int
	view stepView

	watching string
	sub      *eventbridge.Subscription

	spinner spinner.Model
	confirm *confirmation
}

func newWizardView(app *App, st wizard.State) *wizardView {
	if st.DraftID == "" {
		st.DraftID = draft.NewID()
	}
	store := wizard.NewStoreFrom(st)
	w := &wizardView{
		app:     app,
		store:   store,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(colorAccent))),
	}
	w.root, w.stop = context.WithCancel(context.Background())
	w.ctx, w.cancel = context.WithCancel(w.root)
	w.unsubs = append(w.unsubs, store.Subscribe(logbook.Journey(app.logbook, store.State())))
	if app.drafts != nil && app.cfg.AutosaveEnabled() {
		w.autosaver = draft.NewAutosaver(app.drafts, app.cfg.AutosaveInterval(),
			draft.WithLogger(app.logger),
			draft.OnSaved(func(d draft.Draft) {
				store.Dispatch(wizard.MarkSaved{At: d.SavedAt})
			}),
		)
		w.unsubs = append(w.unsubs, store.Subscribe(w.autosaver.Listener()))
	}
	return w
}

// Init enters the current step and, for a resumed draft, reloads the
// contract workspace from the backend.
func (w *wizardView) Init() tea.Cmd {
	st := w.store.State()
	id := st.ContractID()
	if id != "" {
		w.restoring = true
	}
	cmds := []tea.Cmd{w.sync()}
	if id != "" {
		w.inflight++
		w.store.Dispatch(wizard.SetLoading{Loading: true, Operation: "Loading contract"})
		cmds = append(cmds, w.spinner.Tick, w.run(w.root, 0, "Loading contract", false,
			func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
				ws, err := api.LoadWorkspace(ctx, id)
				if err != nil {
					return func(w *wizardView) tea.Cmd {
						w.restoring = false
						return nil
					}, err
				}
				return func(w *wizardView) tea.Cmd {
					w.restoring = false
					w.store.Dispatch(wizard.SetContract{Contract: ws.Contract})
					w.store.Dispatch(wizard.SetClauses{Clauses: ws.Clauses})
					w.store.Dispatch(wizard.SetWitnesses{Witnesses: ws.Witnesses})
					if w.view == nil {
						return nil
					}
					return w.view.Enter(w)
				}, nil
			}))
	}
	return tea.Batch(cmds...)
}

// Update routes a message and reports whether the user asked to leave.
func (w *wizardView) Update(msg tea.Msg) (tea.Cmd, bool) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case resultMsg:
		cmd = w.handleResult(msg)
	case contractEventMsg:
		cmd = w.handleContractEvent(msg)
	case spinner.TickMsg:
		if !w.store.State().Loading {
			return nil, false
		}
		w.spinner, cmd = w.spinner.Update(msg)
		return cmd, false
	case tea.KeyMsg:
		var leave bool
		cmd, leave = w.handleKey(msg)
		if leave {
			return cmd, true
		}
	default:
		if w.view != nil {
			cmd, _ = w.view.Update(w, msg)
		}
	}
	return tea.Batch(cmd, w.sync()), false
}

func (w *wizardView) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if w.confirm != nil {
		c := w.confirm
		w.confirm = nil
		switch msg.String() {
		case "y", "Y", "enter":
			return c.run(), false
		}
		w.app.logbook.Info("cancelled: %s", c.prompt)
		return nil, false
	}

	st := w.store.State()
	editing := w.view != nil && w.view.Editing()
	key := msg.String()
	switch key {
	case "ctrl+n":
		w.store.Dispatch(wizard.NextStep{})
		return nil, false
	case "ctrl+b":
		w.store.Dispatch(wizard.PreviousStep{})
		return nil, false
	case "esc":
		if st.Error != "" {
			w.store.Dispatch(wizard.ClearError{})
			return nil, false
		}
		if w.view != nil {
			if cmd, handled := w.view.Update(w, msg); handled {
				return cmd, false
			}
		}
		return nil, true
	case "x":
		if st.Error != "" && !editing {
			w.store.Dispatch(wizard.ClearError{})
			return nil, false
		}
	}
	if n, ok := stepShortcut(key); ok {
		w.store.Dispatch(wizard.GoToStep{Step: n})
		return nil, false
	}
	if w.view == nil {
		return nil, false
	}
	cmd, _ := w.view.Update(w, msg)
	return cmd, false
}

func stepShortcut(key string) (int, bool) {
	if len(key) != len("alt+1") || !strings.HasPrefix(key, "alt+") {
		return 0, false
	}
	n := int(key[4] - '0')
	if n < 1 || n > wizard.TotalSteps {
		return 0, false
	}
	return n, true
}

// sync rebuilds the step view when the store moved to another step and
// follows the open contract on the webhook router.
func (w *wizardView) sync() tea.Cmd {
	st := w.store.State()
	var cmds []tea.Cmd
	if st.CurrentStep != w.step {
		cmds = append(cmds, w.enterStep(st.CurrentStep))
	}
	if id := st.ContractID(); id != w.watching {
		cmds = append(cmds, w.watch(id))
	}
	return tea.Batch(cmds...)
}

func (w *wizardView) enterStep(n int) tea.Cmd {
	w.cancel()
	w.ctx, w.cancel = context.WithCancel(w.root)
	w.gen++
	if w.inflight > 0 {
		w.inflight = 0
		w.store.Dispatch(wizard.SetLoading{Loading: false})
	}
	w.confirm = nil
	w.step = n
	view, err := w.app.registry.Resolve(n)
	if err != nil {
		w.view = nil
		w.app.logger.Error("resolve step view", zap.Int("step", n), zap.Error(err))
		w.store.Dispatch(wizard.SetError{Message: err.Error()})
		return nil
	}
	w.view = view
	return view.Enter(w)
}

func (w *wizardView) watch(id string) tea.Cmd {
	if w.sub != nil {
		w.sub.Close()
		w.sub = nil
	}
	w.watching = id
	if id == "" || w.app.router == nil {
		return nil
	}
	sub := w.app.router.Subscribe(id)
	w.sub = &sub
	return waitForContractEvent(w, sub.Events)
}

func waitForContractEvent(w *wizardView, events <-chan eventbridge.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return nil
		}
		return contractEventMsg{owner: w, events: events, event: evt}
	}
}

func (w *wizardView) handleContractEvent(msg contractEventMsg) tea.Cmd {
	var next tea.Cmd
	if w.sub != nil && msg.events == w.sub.Events {
		next = waitForContractEvent(w, msg.events)
	}
	st := w.store.State()
	evt := msg.event
	if st.CurrentContract == nil || strings.TrimSpace(evt.ContractID) != strings.TrimSpace(st.ContractID()) {
		return next
	}
	status := evt.Status
	if evt.Type == eventbridge.TypeCancelled {
		status = contract.StatusCancelled
	}
	if status != "" && status != st.Status() {
		updated := *st.CurrentContract
		updated.Status = status
		w.store.Dispatch(wizard.SetContract{Contract: &updated})
		if status.Signed() {
			w.store.Dispatch(wizard.SetSuccess{Message: "Contract fully signed"})
		}
	}
	id := st.ContractID()
	refresh := w.background("Refreshing contract", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		c, err := api.GetContract(ctx, id)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.SetContract{Contract: c})
			return nil
		}, nil
	})
	return tea.Batch(next, refresh)
}

// call runs fn with the loading banner raised. The result is discarded if
// the user has left the step in the meantime.
func (w *wizardView) call(op string, fn callFunc) tea.Cmd {
	w.inflight++
	w.store.Dispatch(wizard.SetLoading{Loading: true, Operation: op})
	return tea.Batch(w.spinner.Tick, w.run(w.ctx, w.gen, op, false, fn))
}

// background runs fn without the loading banner; failures only reach the
// logs.
func (w *wizardView) background(op string, fn callFunc) tea.Cmd {
	return w.run(w.ctx, w.gen, op, true, fn)
}

func (w *wizardView) run(ctx context.Context, gen int, op string, quiet bool, fn callFunc) tea.Cmd {
	api := w.app.backend
	return func() tea.Msg {
		apply, err := fn(ctx, api)
		return resultMsg{owner: w, gen: gen, op: op, quiet: quiet, apply: apply, err: err}
	}
}

func (w *wizardView) handleResult(msg resultMsg) tea.Cmd {
	if msg.gen != 0 && msg.gen != w.gen {
		w.app.logger.Debug("dropping stale result",
			zap.String("op", msg.op),
			zap.Int("gen", msg.gen),
			zap.Int("current", w.gen),
		)
		return nil
	}
	if !msg.quiet && w.inflight > 0 {
		w.inflight--
	}
	if msg.err != nil {
		text := gateway.Describe(msg.err)
		w.app.logger.Warn("operation failed", zap.String("op", msg.op), zap.Error(msg.err))
		if msg.quiet {
			w.app.logbook.Warn("%s failed: %s", msg.op, text)
			return nil
		}
		w.store.Dispatch(wizard.SetError{Message: fmt.Sprintf("%s failed: %s", msg.op, text)})
		if msg.apply != nil {
			return msg.apply(w)
		}
		return nil
	}
	if !msg.quiet && w.inflight == 0 {
		w.store.Dispatch(wizard.SetLoading{Loading: false})
	}
	if msg.apply == nil {
		return nil
	}
	return msg.apply(w)
}

// fail reports a local validation problem without touching the network.
func (w *wizardView) fail(err error) tea.Cmd {
	w.store.Dispatch(wizard.SetError{Message: err.Error()})
	return nil
}

func (w *wizardView) ask(prompt string, run func() tea.Cmd) {
	w.confirm = &confirmation{prompt: prompt, run: run}
}

// requireAI blocks AI calls once the usage limit is exhausted.
func (w *wizardView) requireAI() bool {
	if w.store.State().AIUsage.Remaining() == 0 {
		w.store.Dispatch(wizard.SetError{Message: "AI usage limit reached. Clause drafting and reviews are unavailable until it resets."})
		return false
	}
	return true
}

// cancelContract asks for confirmation and then cancels the open contract.
func (w *wizardView) cancelContract() tea.Cmd {
	st := w.store.State()
	id := st.ContractID()
	if id == "" || st.Status().Terminal() {
		return nil
	}
	w.ask("Cancel this contract? The counterparty will be notified.", func() tea.Cmd {
		return w.call("Cancelling contract", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
			c, err := api.CancelContract(ctx, id, "Cancelled from the contract wizard")
			if err != nil {
				return nil, err
			}
			return func(w *wizardView) tea.Cmd {
				w.store.Dispatch(wizard.SetContract{Contract: c})
				w.store.Dispatch(wizard.SetSuccess{Message: "Contract cancelled"})
				return nil
			}, nil
		})
	})
	return nil
}

// Close ends the session: in-flight calls are cancelled, subscriptions are
// dropped and the draft is flushed to disk.
func (w *wizardView) Close() error {
	w.cancel()
	w.stop()
	if w.sub != nil {
		w.sub.Close()
		w.sub = nil
	}
	for _, unsub := range w.unsubs {
		unsub()
	}
	w.unsubs = nil
	if w.autosaver == nil {
		return nil
	}
	return w.autosaver.Stop()
}

func (w *wizardView) State() wizard.State {
	return w.store.State()
}

func (w *wizardView) View(width int) string {
	st := w.store.State()
	navWidth := 30
	mainWidth := max(40, width-navWidth-6)

	nav := panelStyle.Width(navWidth).Render(w.renderNav(st))

	var body strings.Builder
	info, _ := wizard.Step(st.CurrentStep)
	body.WriteString(titleStyle.Render(fmt.Sprintf("Step %d of %d · %s", info.Number, st.TotalSteps, info.Title)))
	body.WriteString("\n")
	body.WriteString(mutedStyle.Render(info.Description))
	body.WriteString("\n\n")
	if banner := w.renderBanner(st, mainWidth); banner != "" {
		body.WriteString(banner)
		body.WriteString("\n\n")
	}
	if w.view != nil {
		body.WriteString(w.view.View(w, mainWidth-4))
	}
	hints := "ctrl+n next · ctrl+b back · alt+1..8 jump · esc menu"
	if w.view != nil && w.view.Hints() != "" {
		hints = w.view.Hints() + " · " + hints
	}
	body.WriteString("\n")
	body.WriteString(hintStyle.Render(hints))

	main := panelStyle.Width(mainWidth).Render(body.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, nav, " ", main)
}

func (w *wizardView) renderBanner(st wizard.State, width int) string {
	switch {
	case w.confirm != nil:
		return warnStyle.Render(w.confirm.prompt + " (y/n)")
	case st.Error != "":
		return errorBanner.Width(width - 4).Render("✗ " + st.Error + "   esc/x to dismiss")
	case st.Loading:
		op := st.Operation
		if op == "" {
			op = "Working"
		}
		return w.spinner.View() + " " + op + "…"
	case st.Success != "":
		return okBanner.Render("✓ " + st.Success)
	}
	return ""
}

func (w *wizardView) renderNav(st wizard.State) string {
	var b strings.Builder
	for _, info := range wizard.Steps() {
		var line string
		switch st.StepStatus(info.Number) {
		case wizard.StepStatusCurrent:
			line = selectedLine.Render(fmt.Sprintf("▶ %d %s", info.Number, info.Title))
		case wizard.StepStatusCompleted:
			line = okStyle.Render("✓") + fmt.Sprintf(" %d %s", info.Number, info.Title)
		case wizard.StepStatusAccessible:
			line = fmt.Sprintf("· %d %s", info.Number, info.Title)
		default:
			line = lockedStyle.Render(fmt.Sprintf("🔒 %d %s", info.Number, info.Title))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %d%%\n", progressBar(st.CompletionPercentage, 16), st.CompletionPercentage))
	if st.CurrentContract != nil {
		b.WriteString(mutedStyle.Render("Status: " + st.Status().FriendlyName()))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(usageLine(st.AIUsage)))
	if !st.LastSavedAt.IsZero() {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Saved " + st.LastSavedAt.Local().Format("15:04:05")))
	}
	return b.String()
}

func usageLine(u contract.AIUsage) string {
	line := fmt.Sprintf("AI calls: %d", u.Total())
	if u.Limit > 0 {
		line = fmt.Sprintf("AI calls: %d/%d", u.Total(), u.Limit)
	}
	if u.CostCents > 0 {
		line += fmt.Sprintf(" · $%.2f", float64(u.CostCents)/100)
	}
	return line
}
