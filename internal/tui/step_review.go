package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/gateway"
	"github.com/kingrea/contract-wizard/internal/wizard"
)

type reviewStep struct{}

func newReviewStep(wizard.StepInfo) (stepView, error) {
	return &reviewStep{}, nil
}

func (s *reviewStep) Enter(*wizardView) tea.Cmd { return nil }

func (s *reviewStep) Update(w *wizardView, msg tea.Msg) (tea.Cmd, bool) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, false
	}
	st := w.State()
	id := st.ContractID()
	if id == "" {
		return nil, false
	}
	if st.Status().Terminal() && key.String() != "esc" {
		return nil, true
	}
	switch key.String() {
	case "r":
		if !w.requireAI() {
			return nil, true
		}
		return w.call("Running AI review", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
			res, err := api.RequestReview(ctx, id)
			if err != nil {
				return nil, err
			}
			return func(w *wizardView) tea.Cmd {
				review := res.Review
				w.store.Dispatch(wizard.SetReview{Review: &review})
				if res.Contract != nil {
					w.store.Dispatch(wizard.SetContract{Contract: res.Contract})
				}
				if res.AIUsage != nil {
					w.store.Dispatch(wizard.UpdateAIUsage{Usage: *res.AIUsage})
				}
				w.store.Dispatch(wizard.SetSuccess{Message: fmt.Sprintf("AI review complete: score %d/100", review.Score)})
				return nil
			}, nil
		}), true
	case "p":
		return w.call("Generating PDF", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
			c, err := api.GeneratePDF(ctx, id)
			if err != nil {
				return nil, err
			}
			return func(w *wizardView) tea.Cmd {
				w.store.Dispatch(wizard.SetContract{Contract: c})
				w.store.Dispatch(wizard.SetSuccess{Message: "PDF generated"})
				return nil
			}, nil
		}), true
	case "s":
		if st.CurrentContract.Documents.PDFURL == "" {
			return w.fail(&wizard.ValidationError{Field: "document", Message: "generate the PDF first (p)"}), true
		}
		if err := wizard.ValidateRecipient(st.Recipient); err != nil {
			return w.fail(err), true
		}
		recipient := st.Recipient
		w.ask(fmt.Sprintf("Send the contract to %s <%s> for signature?", recipient.FullName, recipient.Email), func() tea.Cmd {
			return w.call("Sending contract", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
				c, err := api.SendContract(ctx, id)
				if err != nil {
					return nil, err
				}
				return func(w *wizardView) tea.Cmd {
					w.store.Dispatch(wizard.SetContract{Contract: c})
					w.store.Dispatch(wizard.SetSuccess{Message: "Sent to " + recipient.Email + " for signature"})
					w.store.Dispatch(wizard.NextStep{})
					return nil
				}, nil
			})
		})
		return nil, true
	case "c":
		return w.cancelContract(), true
	}
	return nil, false
}

func (s *reviewStep) View(w *wizardView, width int) string {
	st := w.State()
	c := st.CurrentContract
	if c == nil {
		return mutedStyle.Render("No contract yet.")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Title()))
	b.WriteString("\n")
	d := c.Details
	b.WriteString(fmt.Sprintf("%s ↔ %s\n", partyLine(d.FirstParty), partyLine(d.SecondParty)))
	if d.Value > 0 {
		b.WriteString(fmt.Sprintf("Value: %.2f %s\n", d.Value, d.Currency))
	}
	if d.StartDate != "" || d.EndDate != "" {
		b.WriteString(fmt.Sprintf("Term: %s → %s\n", orDash(d.StartDate), orDash(d.EndDate)))
	}
	approved, total := 0, 0
	for _, cl := range st.AllClauses() {
		if cl.Rejected {
			continue
		}
		total++
		if cl.ApprovedByFirstParty {
			approved++
		}
	}
	b.WriteString(fmt.Sprintf("Clauses: %d approved of %d\n", approved, total))
	b.WriteString(fmt.Sprintf("Recipient: %s <%s>\n", orDash(st.Recipient.FullName), orDash(st.Recipient.Email)))
	b.WriteString(fmt.Sprintf("Witnesses: %d\n", len(st.Witnesses)))
	b.WriteString(fmt.Sprintf("Status: %s\n", c.Status.FriendlyName()))
	if c.Documents.PDFURL != "" {
		b.WriteString(okStyle.Render("PDF ready") + mutedStyle.Render(" "+c.Documents.PDFURL) + "\n")
	}
	if st.Review != nil {
		b.WriteString("\n")
		b.WriteString(markdown.Render(reviewMarkdown(*st.Review), width))
	}
	return b.String()
}

func reviewMarkdown(r contract.Review) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### AI review · %d/100\n\n", r.Score)
	if r.Summary != "" {
		b.WriteString(r.Summary)
		b.WriteString("\n\n")
	}
	for _, f := range r.Findings {
		if f.ClauseKey != "" {
			fmt.Fprintf(&b, "- **%s** `%s`: %s\n", strings.ToUpper(string(f.Severity)), f.ClauseKey, f.Message)
			continue
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", strings.ToUpper(string(f.Severity)), f.Message)
	}
	return b.String()
}

func partyLine(p contract.Party) string {
	if p.Company != "" {
		return fmt.Sprintf("%s (%s)", p.Name, p.Company)
	}
	return p.Name
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "—"
	}
	return v
}

func (s *reviewStep) Hints() string { return "r AI review · p generate PDF · s send · c cancel contract" }

func (s *reviewStep) Editing() bool { return false }

// signatureStep collects the first party's typed signature and tracks the
// counterparty through webhook events or manual refresh.
type signatureStep struct {
	typed textinput.Model
}

func newSignatureStep(wizard.StepInfo) (stepView, error) {
	in := textinput.New()
	in.Placeholder = "Type your full name to sign"
	in.CharLimit = 128
	return &signatureStep{typed: in}, nil
}

func (s *signatureStep) Enter(w *wizardView) tea.Cmd {
	if s.needsSignature(w.State()) {
		return s.typed.Focus()
	}
	return nil
}

func (s *signatureStep) needsSignature(st wizard.State) bool {
	c := st.CurrentContract
	if c == nil || c.Status.Terminal() || c.Status.Signed() {
		return false
	}
	for _, sig := range c.Signatures {
		if sig.Party == partyFirst {
			return false
		}
	}
	return c.Status.AtLeast(contract.StatusSentForSignature)
}

const partyFirst = "first_party"

func (s *signatureStep) Update(w *wizardView, msg tea.Msg) (tea.Cmd, bool) {
	st := w.State()
	id := st.ContractID()
	key, isKey := msg.(tea.KeyMsg)
	if !isKey {
		if s.typed.Focused() {
			var cmd tea.Cmd
			s.typed, cmd = s.typed.Update(msg)
			return cmd, true
		}
		return nil, false
	}
	switch key.String() {
	case "esc":
		if s.typed.Focused() {
			s.typed.Blur()
			return nil, true
		}
		return nil, false
	case "tab":
		if s.typed.Focused() {
			s.typed.Blur()
			return nil, true
		}
		if s.needsSignature(st) {
			return s.typed.Focus(), true
		}
		return nil, true
	case "ctrl+s", "enter":
		if s.typed.Focused() {
			return s.sign(w), true
		}
	}
	if s.typed.Focused() {
		var cmd tea.Cmd
		s.typed, cmd = s.typed.Update(msg)
		return cmd, true
	}
	if id == "" {
		return nil, false
	}
	switch key.String() {
	case "f":
		return w.call("Refreshing status", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
			c, err := api.GetContract(ctx, id)
			if err != nil {
				return nil, err
			}
			return func(w *wizardView) tea.Cmd {
				w.store.Dispatch(wizard.SetContract{Contract: c})
				return nil
			}, nil
		}), true
	case "a":
		return s.archive(w), true
	case "c":
		return w.cancelContract(), true
	}
	return nil, false
}

func (s *signatureStep) sign(w *wizardView) tea.Cmd {
	st := w.State()
	typed := strings.TrimSpace(s.typed.Value())
	first := st.CurrentContract.Details.FirstParty
	if typed == "" {
		return w.fail(&wizard.ValidationError{Field: "signature", Message: "type your name to sign"})
	}
	if first.Name != "" && !strings.EqualFold(typed, strings.TrimSpace(first.Name)) {
		return w.fail(&wizard.ValidationError{Field: "signature", Message: fmt.Sprintf("must match %q", first.Name)})
	}
	id := st.ContractID()
	req := gateway.SignRequest{
		Party:          partyFirst,
		SignerName:     first.Name,
		SignerEmail:    first.Email,
		TypedSignature: typed,
	}
	s.typed.Blur()
	return w.call("Signing", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		c, err := api.SignContract(ctx, id, req)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			w.store.Dispatch(wizard.SetContract{Contract: c})
			msg := "Signed. Waiting for the counterparty."
			if c.Status.Signed() {
				msg = "Contract fully signed"
			}
			w.store.Dispatch(wizard.SetSuccess{Message: msg})
			return nil
		}, nil
	})
}

// archive downloads the signed PDF and stores it through the archiver.
func (s *signatureStep) archive(w *wizardView) tea.Cmd {
	st := w.State()
	c := st.CurrentContract
	if w.app.archiver == nil {
		return w.fail(fmt.Errorf("archiving is not configured"))
	}
	if !c.Status.Signed() {
		return w.fail(&wizard.ValidationError{Field: "archive", Message: "only fully signed contracts can be archived"})
	}
	url := c.Documents.SignedPDFURL
	if url == "" {
		url = c.Documents.PDFURL
	}
	if url == "" {
		return w.fail(&wizard.ValidationError{Field: "archive", Message: "the backend has not published a signed PDF yet"})
	}
	snapshot := *c
	archiver := w.app.archiver
	return w.call("Archiving signed PDF", func(ctx context.Context, api Backend) (func(*wizardView) tea.Cmd, error) {
		pdf, err := api.DownloadDocument(ctx, url)
		if err != nil {
			return nil, err
		}
		res, err := archiver.Archive(ctx, &snapshot, pdf)
		if err != nil {
			return nil, err
		}
		return func(w *wizardView) tea.Cmd {
			where := res.LocalPath
			if res.ObjectKey != "" {
				where += " and " + res.ObjectKey
			}
			w.store.Dispatch(wizard.SetSuccess{Message: "Archived to " + where})
			return nil
		}, nil
	})
}

func (s *signatureStep) View(w *wizardView, width int) string {
	st := w.State()
	c := st.CurrentContract
	if c == nil {
		return mutedStyle.Render("No contract yet.")
	}
	var b strings.Builder
	progress := st.SignatureProgress()
	b.WriteString(fmt.Sprintf("%s %d%%\n", progressBar(progress, max(10, width-8)), progress))
	b.WriteString(fmt.Sprintf("Status: %s\n\n", c.Status.FriendlyName()))
	if len(c.Signatures) == 0 {
		b.WriteString(mutedStyle.Render("No signatures yet."))
		b.WriteString("\n")
	}
	for _, sig := range c.Signatures {
		when := ""
		if !sig.SignedAt.IsZero() {
			when = sig.SignedAt.Local().Format("2006-01-02 15:04")
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n", okStyle.Render("✓"), partyLabel(sig.Party), mutedStyle.Render(when)))
	}
	switch {
	case c.Status.Terminal():
		b.WriteString("\n" + warnStyle.Render("This contract is "+strings.ToLower(c.Status.FriendlyName())+"."))
	case c.Status.Signed():
		b.WriteString("\n" + okStyle.Render("All signatures collected."))
		if w.app.archiver != nil {
			b.WriteString(mutedStyle.Render(" Press a to archive the signed PDF."))
		}
	case s.needsSignature(st):
		b.WriteString("\n")
		b.WriteString(s.typed.View())
	default:
		b.WriteString("\n" + mutedStyle.Render("Waiting for the counterparty to sign."))
	}
	return b.String()
}

func partyLabel(party string) string {
	switch party {
	case partyFirst:
		return "You"
	case "second_party":
		return "Counterparty"
	}
	return party
}

func (s *signatureStep) Hints() string {
	if s.typed.Focused() {
		return "enter sign · esc stop typing"
	}
	return "tab sign · f refresh · a archive · c cancel contract"
}

func (s *signatureStep) Editing() bool { return s.typed.Focused() }
