package tui

import (
	"context"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/gateway"
	"github.com/kingrea/contract-wizard/internal/wizard"
)

const (
	detailTitle = iota
	detailFirstName
	detailFirstEmail
	detailFirstCompany
	detailSecondName
	detailSecondEmail
	detailSecondCompany
	detailValue
	detailCurrency
	detailStart
	detailEnd
)

const dateLayout = "2006-01-02"

type detailsStep struct {
	form *form
}

func newDetailsStep(wizard.StepInfo) (stepView, error) {
	f := newForm(
		"Title",
		"Your name",
		"Your email",
		"Your company",
		"Counterparty",
		"Their email",
		"Their company",
		"Value",
		"Currency",
		"Start date",
		"End date",
	)
	f.Placeholder(detailCurrency, "USD")
	f.Placeholder(detailStart, dateLayout)
	f.Placeholder(detailEnd, dateLayout)
	return &detailsStep{form: f}, nil
}

func (s *detailsStep) Enter(w *wizardView) tea.Cmd {
	st := w.State()
	var d contract.Details
	if st.CurrentContract != nil {
		d = st.CurrentContract.Details
	}
	if d.Title == "" && st.SelectedTemplate != nil {
		d.Title = st.SelectedTemplate.Name
	}
	s.form.Set(detailTitle, d.Title)
	s.form.Set(detailFirstName, d.FirstParty.Name)
	s.form.Set(detailFirstEmail, d.FirstParty.Email)
	s.form.Set(detailFirstCompany, d.FirstParty.Company)
	s.form.Set(detailSecondName, d.SecondParty.Name)
	s.form.Set(detailSecondEmail, d.SecondParty.Email)
	s.form.Set(detailSecondCompany, d.SecondParty.Company)
	if d.Value > 0 {
		s.form.Set(detailValue, strconv.FormatFloat(d.Value, 'f', -1, 64))
	}
	s.form.Set(detailCurrency, d.Currency)
	s.form.Set(detailStart, d.StartDate)
	s.form.Set(detailEnd, d.EndDate)
	return s.form.Focus(detailTitle)
}

func (s *detailsStep) Update(w *wizardView, msg tea.Msg) (tea.Cmd, bool) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return nil, false
		case "ctrl+s":
			return s.submit(w), true
		case "tab", "down", "enter":
			cmd, ok := s.form.Next()
			if !ok {
				cmd = s.form.Focus(detailTitle)
			}
			return cmd, true
		case "shift+tab", "up":
			cmd, ok := s.form.Prev()
			if !ok {
				cmd = s.form.Focus(detailEnd)
			}
			return cmd, true
		}
	}
	return s.form.Update(msg), true
}

// Details assembles the form into contract details, rejecting malformed
// numbers and dates before the shared validation runs.
func (s *detailsStep) Details() (contract.Details, error) {
	d := contract.Details{
		Title:       s.form.Value(detailTitle),
		FirstParty:  contract.Party{Name: s.form.Value(detailFirstName), Email: s.form.Value(detailFirstEmail), Company: s.form.Value(detailFirstCompany)},
		SecondParty: contract.Party{Name: s.form.Value(detailSecondName), Email: s.form.Value(detailSecondEmail), Company: s.form.Value(detailSecondCompany)},
		Currency:    strings.ToUpper(s.form.Value(detailCurrency)),
		StartDate:   s.form.Value(detailStart),
		EndDate:     s.form.Value(detailEnd),
	}
	if raw := strings.ReplaceAll(s.form.Value(detailValue), ",", ""); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return d, &wizard.ValidationError{Field: "value", Message: "must be a number"}
		}
		d.Value = v
	}
	var start, end time.Time
	if d.StartDate != "" {
		t, err := time.Parse(dateLayout, d.StartDate)
		if err != nil {
			return d, &wizard.ValidationError{Field: "start date", Message: "must look like " + dateLayout}
		}
		start = t
	}
	if d.EndDate != "" {
		t, err := time.Parse(dateLayout, d.EndDate)
		if err != nil {
			return d, &wizard.ValidationError{Field: "end date", Message: "must look like " + dateLayout}
		}
		end = t
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return d, &wizard.ValidationError{Field: "end date", Message: "is before the start date"}
	}
	return d, wizard.ValidateDetails(d)
}

func (s *detailsStep) submit(w *wizardView) tea.Cmd {
	details, err := s.Details()
	if err != nil {
		return w.fail(err)
	}
	st := w.State()
	if st.SelectedTemplate == nil {
		return w.fail(&wizard.ValidationError{Field: "template", Message: "choose a template first"})
	}
	id := st.ContractID()
	if id == "" {
		req := gateway.CreateContractRequest{
			TemplateID: st.SelectedTemplate.ID,
			UserInput:  st.UserInput,
			Details:    details,
		}
		return w.call("Creating contract", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
			c, err := api.CreateContract(ctx, req)
			if err != nil {
				return nil, err
			}
			return func(w *wizardView) tea.Cmd {
				w.store.Dispatch(wizard.SetContract{Contract: c})
				w.store.Dispatch(wizard.SetSuccess{Message: "Contract draft created"})
				w.store.Dispatch(wizard.NextStep{})
				return nil
			}, nil
		})
	}
	return w.call("Saving details", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		c, err := api.UpdateContract(ctx, id, details)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.SetContract{Contract: c})
			w.store.Dispatch(wizard.SetSuccess{Message: "Details saved"})
			w.store.Dispatch(wizard.NextStep{})
			return nil
		}, nil
	})
}

func (s *detailsStep) View(w *wizardView, width int) string {
	return s.form.View(width)
}

func (s *detailsStep) Hints() string { return "tab/↑/↓ move · ctrl+s save" }

func (s *detailsStep) Editing() bool { return true }
