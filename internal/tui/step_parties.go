package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/gateway"
	"github.com/kingrea/contract-wizard/internal/wizard"
)

const (
	recipientName = iota
	recipientEmail
	recipientCompany
	recipientRole
)

const (
	witnessName = iota
	witnessEmail
	witnessPhone
)

type partiesFocus int

const (
	focusRecipient partiesFocus = iota
	focusWitnessForm
	focusWitnessList
)

type partiesStep struct {
	recipient *form
	witness   *form
	focus     partiesFocus
	cursor    int
}

func newPartiesStep(wizard.StepInfo) (stepView, error) {
	return &partiesStep{
		recipient: newForm("Name", "Email", "Company", "Role"),
		witness:   newForm("Witness", "Email", "Phone"),
	}, nil
}

func (s *partiesStep) Enter(w *wizardView) tea.Cmd {
	st := w.State()
	r := st.Recipient
	if r.FullName == "" && st.CurrentContract != nil {
		second := st.CurrentContract.Details.SecondParty
		r = contract.Recipient{FullName: second.Name, Email: second.Email, Company: second.Company}
	}
	s.recipient.Set(recipientName, r.FullName)
	s.recipient.Set(recipientEmail, r.Email)
	s.recipient.Set(recipientCompany, r.Company)
	s.recipient.Set(recipientRole, r.Role)
	s.focus = focusRecipient
	return s.recipient.Focus(recipientName)
}

func (s *partiesStep) formRecipient() contract.Recipient {
	return contract.Recipient{
		FullName: s.recipient.Value(recipientName),
		Email:    s.recipient.Value(recipientEmail),
		Company:  s.recipient.Value(recipientCompany),
		Role:     s.recipient.Value(recipientRole),
	}
}

func (s *partiesStep) Update(w *wizardView, msg tea.Msg) (tea.Cmd, bool) {
	key, isKey := msg.(tea.KeyMsg)
	if !isKey {
		return s.active().Update(msg), true
	}
	switch key.String() {
	case "esc":
		return nil, false
	case "ctrl+s":
		return s.saveRecipient(w), true
	case "ctrl+w":
		return s.invite(w), true
	case "tab", "enter":
		if key.String() == "enter" && s.focus == focusWitnessList {
			return nil, true
		}
		return s.next(), true
	case "shift+tab":
		return s.prev(), true
	}
	if s.focus == focusWitnessList {
		return s.updateList(w, key), true
	}
	return s.active().Update(msg), true
}

func (s *partiesStep) active() *form {
	if s.focus == focusWitnessForm {
		return s.witness
	}
	return s.recipient
}

func (s *partiesStep) next() tea.Cmd {
	switch s.focus {
	case focusRecipient:
		if cmd, ok := s.recipient.Next(); ok {
			return cmd
		}
		s.focus = focusWitnessForm
		return s.witness.Focus(witnessName)
	case focusWitnessForm:
		if cmd, ok := s.witness.Next(); ok {
			return cmd
		}
		s.focus = focusWitnessList
		return nil
	default:
		s.focus = focusRecipient
		return s.recipient.Focus(recipientName)
	}
}

func (s *partiesStep) prev() tea.Cmd {
	switch s.focus {
	case focusRecipient:
		if cmd, ok := s.recipient.Prev(); ok {
			return cmd
		}
		s.focus = focusWitnessList
		return nil
	case focusWitnessForm:
		if cmd, ok := s.witness.Prev(); ok {
			return cmd
		}
		s.focus = focusRecipient
		return s.recipient.Focus(recipientRole)
	default:
		s.focus = focusWitnessForm
		return s.witness.Focus(witnessPhone)
	}
}

func (s *partiesStep) updateList(w *wizardView, key tea.KeyMsg) tea.Cmd {
	witnesses := w.State().Witnesses
	switch key.String() {
	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}
	case "down", "j":
		if s.cursor < len(witnesses)-1 {
			s.cursor++
		}
	case "c":
		if s.cursor < len(witnesses) {
			return s.confirmWitness(w, witnesses[s.cursor])
		}
	case "d":
		if s.cursor < len(witnesses) {
			target := witnesses[s.cursor]
			w.ask(fmt.Sprintf("Remove witness %s?", target.FullName), func() tea.Cmd {
				return s.removeWitness(w, target)
			})
		}
	}
	return nil
}

func (s *partiesStep) saveRecipient(w *wizardView) tea.Cmd {
	r := s.formRecipient()
	if err := wizard.ValidateRecipient(r); err != nil {
		return w.fail(err)
	}
	id := w.State().ContractID()
	if id == "" {
		return w.fail(&wizard.ValidationError{Field: "contract", Message: "save the contract details first"})
	}
	return w.call("Saving recipient", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		c, err := api.SetRecipient(ctx, id, r)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.SetRecipient{Recipient: r})
			if c != nil && c.ID != "" {
				w.store.Dispatch(wizard.SetContract{Contract: c})
			}
			w.store.Dispatch(wizard.SetSuccess{Message: "Recipient saved: " + r.FullName})
			return nil
		}, nil
	})
}

func (s *partiesStep) invite(w *wizardView) tea.Cmd {
	st := w.State()
	candidate := contract.Witness{
		FullName: s.witness.Value(witnessName),
		Email:    s.witness.Value(witnessEmail),
		Phone:    s.witness.Value(witnessPhone),
	}
	recipient := st.Recipient
	if recipient.Email == "" {
		recipient = s.formRecipient()
	}
	if err := wizard.ValidateWitness(candidate, recipient); err != nil {
		return w.fail(err)
	}
	for _, existing := range st.Witnesses {
		if strings.EqualFold(existing.Email, candidate.Email) {
			return w.fail(&wizard.ValidationError{Field: "witness", Message: "already invited"})
		}
	}
	id := st.ContractID()
	if id == "" {
		return w.fail(&wizard.ValidationError{Field: "contract", Message: "save the contract details first"})
	}
	req := gateway.InviteWitnessRequest{
		FullName:         candidate.FullName,
		Email:            candidate.Email,
		Phone:            candidate.Phone,
		PresenceRequired: st.SelectedTemplate != nil && st.SelectedTemplate.Legal.RequiresNotary,
	}
	return w.call("Inviting "+candidate.FullName, func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		invited, err := api.InviteWitness(ctx, id, req)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.UpsertWitness{Witness: *invited})
			w.store.Dispatch(wizard.SetSuccess{Message: "Invitation sent to " + invited.Email})
			s.witness.Reset()
			return nil
		}, nil
	})
}

func (s *partiesStep) confirmWitness(w *wizardView, target contract.Witness) tea.Cmd {
	if target.Status == contract.WitnessConfirmed {
		return nil
	}
	id := w.State().ContractID()
	return w.call("Confirming "+target.FullName, func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		updated, err := api.ConfirmWitness(ctx, id, target.ID)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.UpsertWitness{Witness: *updated})
			return nil
		}, nil
	})
}

// removeWitness drops the witness from the store only once the backend
// confirmed.
func (s *partiesStep) removeWitness(w *wizardView, target contract.Witness) tea.Cmd {
	id := w.State().ContractID()
	return w.call("Removing "+target.FullName, func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		if err := api.RemoveWitness(ctx, id, target.ID); err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.RemoveWitness{ID: target.ID})
			w.store.Dispatch(wizard.SetSuccess{Message: target.FullName + " removed"})
			if n := len(w.State().Witnesses); s.cursor >= n {
				s.cursor = max(0, n-1)
			}
			return nil
		}, nil
	})
}

func witnessBadge(status contract.WitnessStatus) string {
	switch status {
	case contract.WitnessConfirmed:
		return okStyle.Render("confirmed")
	case contract.WitnessDeclined:
		return lockedStyle.Render("declined")
	default:
		return warnStyle.Render("invited")
	}
}

func (s *partiesStep) View(w *wizardView, width int) string {
	st := w.State()
	var b strings.Builder
	b.WriteString(titleStyle.Render("Recipient"))
	if err := wizard.ValidateRecipient(st.Recipient); err == nil {
		b.WriteString("  " + okStyle.Render("✓ saved"))
	}
	b.WriteString("\n")
	b.WriteString(s.recipient.View(width))
	b.WriteString("\n\n")

	required := st.SelectedTemplate.RequiredWitnesses()
	heading := "Witnesses"
	if required > 0 {
		heading = fmt.Sprintf("Witnesses (%d of %d required)", len(st.Witnesses), required)
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n")
	b.WriteString(s.witness.View(width))
	b.WriteString("\n")
	if len(st.Witnesses) == 0 {
		b.WriteString(mutedStyle.Render("No witnesses invited."))
	}
	for i, wit := range st.Witnesses {
		marker := "  "
		if s.focus == focusWitnessList && i == s.cursor {
			marker = selectedLine.Render("› ")
		}
		b.WriteString(fmt.Sprintf("%s%s <%s>  %s\n", marker, wit.FullName, wit.Email, witnessBadge(wit.Status)))
	}
	return b.String()
}

func (s *partiesStep) Hints() string {
	if s.focus == focusWitnessList {
		return "↑/↓ select · c confirm · d remove · tab fields"
	}
	return "tab move · ctrl+s save recipient · ctrl+w invite witness"
}

func (s *partiesStep) Editing() bool { return s.focus != focusWitnessList }
