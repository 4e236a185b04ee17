package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/gateway"
	"github.com/kingrea/contract-wizard/internal/wizard"
)

// clauseRow is a template clause definition, its generated clause, or both.
// Custom clauses have no definition.
type clauseRow struct {
	def    *contract.ClauseDefinition
	clause *contract.Clause
}

func (r clauseRow) title() string {
	if r.clause != nil && r.clause.Title != "" {
		return r.clause.Title
	}
	if r.def != nil {
		return r.def.Title
	}
	return "Untitled clause"
}

type clauseMode int

const (
	clauseBrowse clauseMode = iota
	clauseEditing
	clauseCustom
)

const (
	customTitle = iota
	customInstructions
)

// clauseStep drives both the mandatory and the optional clause steps.
type clauseStep struct {
	mandatory bool
	cursor    int
	mode      clauseMode
	editingID string
	editor    textarea.Model
	custom    *form
	preview   viewport.Model
	previewOf string
}

func newMandatoryClauseStep(wizard.StepInfo) (stepView, error) {
	return newClauseStep(true), nil
}

func newOptionalClauseStep(wizard.StepInfo) (stepView, error) {
	return newClauseStep(false), nil
}

func newClauseStep(mandatory bool) *clauseStep {
	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 20000
	editor.SetHeight(10)
	return &clauseStep{
		mandatory: mandatory,
		editor:    editor,
		custom:    newForm("Title", "Instructions"),
		preview:   viewport.New(60, 10),
	}
}

func (s *clauseStep) rows(st wizard.State) []clauseRow {
	var defs []contract.ClauseDefinition
	clauses := st.OptionalClauses
	if s.mandatory {
		clauses = st.MandatoryClauses
	}
	if st.SelectedTemplate != nil {
		defs = st.SelectedTemplate.OptionalClauses
		if s.mandatory {
			defs = st.SelectedTemplate.MandatoryClauses
		}
	}
	used := make([]bool, len(clauses))
	var out []clauseRow
	for i := range defs {
		row := clauseRow{def: &defs[i]}
		for j := range clauses {
			if !used[j] && clauses[j].ClauseKey == defs[i].Key {
				used[j] = true
				row.clause = &clauses[j]
				break
			}
		}
		out = append(out, row)
	}
	for j := range clauses {
		if !used[j] {
			out = append(out, clauseRow{clause: &clauses[j]})
		}
	}
	if !s.mandatory {
		for j := range st.CustomClauses {
			out = append(out, clauseRow{clause: &st.CustomClauses[j]})
		}
	}
	return out
}

func (s *clauseStep) selected(st wizard.State) (clauseRow, bool) {
	rows := s.rows(st)
	if s.cursor < 0 || s.cursor >= len(rows) {
		return clauseRow{}, false
	}
	return rows[s.cursor], true
}

func (s *clauseStep) Enter(w *wizardView) tea.Cmd {
	s.mode = clauseBrowse
	s.editor.Blur()
	s.custom.Blur()
	st := w.State()
	if n := len(s.rows(st)); s.cursor >= n {
		s.cursor = max(0, n-1)
	}
	if !s.mandatory || w.restoring || st.ContractID() == "" || len(st.MandatoryClauses) > 0 {
		return nil
	}
	return s.generateMissing(w)
}

// generateMissing drafts every definition without a clause. Each clause is
// its own request so one failure does not lose the others.
func (s *clauseStep) generateMissing(w *wizardView) tea.Cmd {
	if !w.requireAI() {
		return nil
	}
	var cmds []tea.Cmd
	for _, row := range s.rows(w.State()) {
		if row.def != nil && row.clause == nil {
			cmds = append(cmds, s.generate(w, *row.def, nil))
		}
	}
	return tea.Batch(cmds...)
}

func (s *clauseStep) generate(w *wizardView, def contract.ClauseDefinition, existing *contract.Clause) tea.Cmd {
	id := w.State().ContractID()
	if id == "" {
		return w.fail(&wizard.ValidationError{Field: "contract", Message: "save the contract details first"})
	}
	req := gateway.GenerateClauseRequest{ClauseKey: def.Key, Title: def.Title}
	var oldID string
	if existing != nil {
		oldID = existing.ID
	}
	mandatory := s.mandatory
	return w.call("Drafting "+def.Title, func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		res, err := api.GenerateClause(ctx, id, req)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			clause := res.Clause
			clause.Mandatory = mandatory
			if !mandatory {
				clause.Included = true
			}
			if oldID != "" && oldID != clause.ID {
				w.store.Dispatch(wizard.RemoveClause{ID: oldID})
			}
			w.store.Dispatch(wizard.UpsertClause{Clause: clause})
			if res.AIUsage != nil {
				w.store.Dispatch(wizard.UpdateAIUsage{Usage: *res.AIUsage})
			}
			w.app.logbook.Info("clause drafted: %s", clause.Title)
			return nil
		}, nil
	})
}

func (s *clauseStep) Update(w *wizardView, msg tea.Msg) (tea.Cmd, bool) {
	switch s.mode {
	case clauseEditing:
		return s.updateEditor(w, msg)
	case clauseCustom:
		return s.updateCustom(w, msg)
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, false
	}
	st := w.State()
	rows := s.rows(st)
	row, hasRow := s.selected(st)
	switch key.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(rows)-1 {
			s.cursor++
		}
	case "pgup":
		s.preview.HalfViewUp()
	case "pgdown":
		s.preview.HalfViewDown()
	case "g":
		if !hasRow || row.def == nil {
			return nil, true
		}
		if !w.requireAI() {
			return nil, true
		}
		return s.generate(w, *row.def, row.clause), true
	case "G":
		if !s.mandatory {
			return nil, false
		}
		return s.generateMissing(w), true
	case "a":
		if !hasRow || row.clause == nil || row.clause.ApprovedByFirstParty {
			return nil, true
		}
		return s.approve(w, *row.clause), true
	case "r":
		if s.mandatory || !hasRow || row.clause == nil || row.clause.Rejected {
			return nil, true
		}
		return s.reject(w, *row.clause), true
	case "d":
		if s.mandatory || !hasRow || row.clause == nil {
			return nil, true
		}
		clause := *row.clause
		w.ask(fmt.Sprintf("Remove %q from the contract?", clause.Title), func() tea.Cmd {
			return s.remove(w, clause)
		})
	case "e":
		if !hasRow || row.clause == nil {
			return nil, true
		}
		s.mode = clauseEditing
		s.editingID = row.clause.ID
		s.editor.SetValue(row.clause.Content)
		return s.editor.Focus(), true
	case "c":
		if s.mandatory {
			return nil, false
		}
		s.mode = clauseCustom
		s.custom.Reset()
		return s.custom.Focus(customTitle), true
	default:
		return nil, false
	}
	return nil, true
}

func (s *clauseStep) updateEditor(w *wizardView, msg tea.Msg) (tea.Cmd, bool) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			s.mode = clauseBrowse
			s.editor.Blur()
			return nil, true
		case "ctrl+s":
			return s.saveEdit(w), true
		}
	}
	var cmd tea.Cmd
	s.editor, cmd = s.editor.Update(msg)
	return cmd, true
}

func (s *clauseStep) saveEdit(w *wizardView) tea.Cmd {
	st := w.State()
	current, ok := st.Clause(s.editingID)
	content := strings.TrimSpace(s.editor.Value())
	if !ok {
		s.mode = clauseBrowse
		return nil
	}
	if content == "" {
		return w.fail(&wizard.ValidationError{Field: "clause", Message: "content cannot be empty"})
	}
	s.mode = clauseBrowse
	s.editor.Blur()
	if content == strings.TrimSpace(current.Content) {
		return nil
	}
	id, clauseID := st.ContractID(), current.ID
	return w.call("Saving "+current.Title, func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		updated, err := api.UpdateClause(ctx, id, clauseID, content)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.UpsertClause{Clause: mergeClause(current, *updated)})
			w.store.Dispatch(wizard.SetSuccess{Message: updated.Title + " updated"})
			return nil
		}, nil
	})
}

func (s *clauseStep) updateCustom(w *wizardView, msg tea.Msg) (tea.Cmd, bool) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			s.mode = clauseBrowse
			s.custom.Blur()
			return nil, true
		case "tab", "shift+tab", "up", "down":
			if s.custom.focus == customTitle {
				return s.custom.Focus(customInstructions), true
			}
			return s.custom.Focus(customTitle), true
		case "ctrl+s", "enter":
			if key.String() == "enter" && s.custom.focus == customTitle {
				return s.custom.Focus(customInstructions), true
			}
			return s.submitCustom(w), true
		}
	}
	return s.custom.Update(msg), true
}

func (s *clauseStep) submitCustom(w *wizardView) tea.Cmd {
	title := s.custom.Value(customTitle)
	instructions := s.custom.Value(customInstructions)
	switch {
	case title == "":
		return w.fail(&wizard.ValidationError{Field: "custom clause", Message: "title is required"})
	case instructions == "":
		return w.fail(&wizard.ValidationError{Field: "custom clause", Message: "describe what the clause should say"})
	}
	id := w.State().ContractID()
	if id == "" {
		return w.fail(&wizard.ValidationError{Field: "contract", Message: "save the contract details first"})
	}
	if !w.requireAI() {
		return nil
	}
	s.mode = clauseBrowse
	s.custom.Blur()
	req := gateway.GenerateClauseRequest{Title: title, Instructions: instructions, Custom: true}
	return w.call("Drafting "+title, func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		res, err := api.GenerateClause(ctx, id, req)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			clause := res.Clause
			clause.Custom = true
			clause.Included = true
			w.store.Dispatch(wizard.UpsertClause{Clause: clause})
			if res.AIUsage != nil {
				w.store.Dispatch(wizard.UpdateAIUsage{Usage: *res.AIUsage})
			}
			w.store.Dispatch(wizard.SetSuccess{Message: "Custom clause drafted: " + clause.Title})
			return nil
		}, nil
	})
}

func (s *clauseStep) approve(w *wizardView, clause contract.Clause) tea.Cmd {
	id := w.State().ContractID()
	return w.call("Approving "+clause.Title, func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		updated, err := api.ApproveClause(ctx, id, clause.ID)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			merged := mergeClause(clause, *updated)
			merged.ApprovedByFirstParty = true
			merged.Rejected = false
			w.store.Dispatch(wizard.UpsertClause{Clause: merged})
			w.app.logbook.Info("clause approved: %s", merged.Title)
			return nil
		}, nil
	})
}

func (s *clauseStep) reject(w *wizardView, clause contract.Clause) tea.Cmd {
	id := w.State().ContractID()
	return w.call("Rejecting "+clause.Title, func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		updated, err := api.RejectClause(ctx, id, clause.ID, "Not needed for this contract")
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			merged := mergeClause(clause, *updated)
			merged.Rejected = true
			merged.ApprovedByFirstParty = false
			w.store.Dispatch(wizard.UpsertClause{Clause: merged})
			w.app.logbook.Info("clause rejected: %s", merged.Title)
			return nil
		}, nil
	})
}

// remove drops the clause from the store only once the backend confirmed.
func (s *clauseStep) remove(w *wizardView, clause contract.Clause) tea.Cmd {
	id := w.State().ContractID()
	return w.call("Removing "+clause.Title, func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		if err := api.RemoveClause(ctx, id, clause.ID); err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.RemoveClause{ID: clause.ID})
			w.store.Dispatch(wizard.SetSuccess{Message: clause.Title + " removed"})
			return nil
		}, nil
	})
}

// mergeClause keeps the client-side kind flags when the backend echoes a
// clause without them.
func mergeClause(local, remote contract.Clause) contract.Clause {
	if remote.ID == "" {
		remote.ID = local.ID
	}
	if remote.Title == "" {
		remote.Title = local.Title
	}
	if remote.ClauseKey == "" {
		remote.ClauseKey = local.ClauseKey
	}
	if remote.Content == "" {
		remote.Content = local.Content
	}
	remote.Mandatory = remote.Mandatory || local.Mandatory
	remote.Custom = remote.Custom || local.Custom
	remote.Included = remote.Included || local.Included
	return remote
}

func clauseBadge(c *contract.Clause) string {
	switch {
	case c == nil:
		return mutedStyle.Render("○ not drafted")
	case c.ApprovedByFirstParty:
		return okStyle.Render("✓ approved")
	case c.Rejected:
		return lockedStyle.Render("✗ rejected")
	default:
		return warnStyle.Render("● awaiting decision")
	}
}

func riskBadge(level contract.RiskLevel) string {
	switch level {
	case contract.RiskHigh:
		return lipgloss.NewStyle().Foreground(colorBrand).Render("high risk")
	case contract.RiskMedium:
		return warnStyle.Render("medium risk")
	case contract.RiskLow:
		return mutedStyle.Render("low risk")
	}
	return ""
}

func (s *clauseStep) View(w *wizardView, width int) string {
	st := w.State()
	switch s.mode {
	case clauseEditing:
		s.editor.SetWidth(width)
		return titleStyle.Render("Editing clause") + "\n" + s.editor.View()
	case clauseCustom:
		return titleStyle.Render("New custom clause") + "\n" + s.custom.View(width)
	}

	rows := s.rows(st)
	if len(rows) == 0 {
		if s.mandatory {
			return mutedStyle.Render("This template has no mandatory clauses.")
		}
		return mutedStyle.Render("No optional clauses. Press c to write a custom one.")
	}
	var b strings.Builder
	approved := 0
	for i, row := range rows {
		if row.clause != nil && row.clause.ApprovedByFirstParty {
			approved++
		}
		marker := "  "
		name := row.title()
		if row.clause != nil && row.clause.Custom {
			name += mutedStyle.Render(" (custom)")
		}
		if i == s.cursor {
			marker = selectedLine.Render("› ")
			name = selectedLine.Render(row.title())
		}
		line := fmt.Sprintf("%s%s  %s", marker, name, clauseBadge(row.clause))
		if row.clause != nil {
			if risk := riskBadge(row.clause.RiskLevel); risk != "" {
				line += "  " + risk
			}
			if row.clause.ModificationCount > 0 {
				line += mutedStyle.Render(fmt.Sprintf("  edited %d×", row.clause.ModificationCount))
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d of %d approved", approved, len(rows))))
	b.WriteString("\n\n")

	if row, ok := s.selected(st); ok {
		key := row.title()
		content := ""
		if row.clause != nil {
			key = row.clause.ID
			content = row.clause.Content
		} else if row.def != nil {
			content = "_Not drafted yet._ " + row.def.Description
		}
		s.preview.Width = width
		s.preview.SetContent(markdown.Render(content, width-2))
		if key != s.previewOf {
			s.previewOf = key
			s.preview.GotoTop()
		}
		b.WriteString(panelStyle.Width(width - 2).Render(s.preview.View()))
	}
	return b.String()
}

func (s *clauseStep) Hints() string {
	switch s.mode {
	case clauseEditing:
		return "ctrl+s save · esc discard"
	case clauseCustom:
		return "tab switch field · ctrl+s draft · esc cancel"
	}
	if s.mandatory {
		return "g draft · G draft all · a approve · e edit · pgup/pgdn scroll"
	}
	return "g draft · a include · r reject · e edit · d remove · c custom"
}

func (s *clauseStep) Editing() bool { return s.mode != clauseBrowse }
