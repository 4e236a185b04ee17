package wizard

import (
	"time"

	"github.com/kingrea/contract-wizard/internal/contract"
)

// Action is the closed set of state transitions. The unexported marker keeps
// implementations inside this package so Reduce can switch exhaustively.
type Action interface {
	action()
}

type (
	// SetLoading toggles the busy flag. Operation names what is in flight.
	SetLoading struct {
		Loading   bool
		Operation string
	}
	// SetError records a human-readable failure and ends any loading state.
	SetError struct{ Message string }
	// ClearError dismisses the error banner.
	ClearError struct{}
	// SetSuccess records a transient confirmation message.
	SetSuccess struct{ Message string }
	// SetStep moves to a step unconditionally (clamped). Used when restoring drafts.
	SetStep struct{ Step int }
	// SetUserInput replaces the natural-language description.
	SetUserInput struct{ Input string }
	// SetTemplates replaces the browsable template list.
	SetTemplates struct{ Templates []contract.Template }
	// SetSuggestions replaces the AI template suggestions.
	SetSuggestions struct{ Suggestions []contract.TemplateSuggestion }
	// SelectTemplate picks the template the contract is built from.
	SelectTemplate struct{ Template *contract.Template }
	// SetContract replaces the server contract record.
	SetContract struct{ Contract *contract.Contract }
	// SetClauses replaces every clause list; clauses are partitioned by kind.
	SetClauses struct{ Clauses []contract.Clause }
	// UpsertClause inserts or replaces a single clause by ID.
	UpsertClause struct{ Clause contract.Clause }
	// RemoveClause drops a clause after the backend confirmed the removal.
	RemoveClause struct{ ID string }
	// SetWitnesses replaces the witness list.
	SetWitnesses struct{ Witnesses []contract.Witness }
	// UpsertWitness inserts or replaces a witness by ID.
	UpsertWitness struct{ Witness contract.Witness }
	// RemoveWitness drops a witness after the backend confirmed the removal.
	RemoveWitness struct{ ID string }
	// SetRecipient replaces the recipient.
	SetRecipient struct{ Recipient contract.Recipient }
	// SetReview stores the latest AI review.
	SetReview struct{ Review *contract.Review }
	// UpdateAIUsage replaces the AI usage counters with a server snapshot.
	UpdateAIUsage struct{ Usage contract.AIUsage }
	// MarkSaved records when the draft was last persisted.
	MarkSaved struct{ At time.Time }
	// NextStep advances when the current step is completed.
	NextStep struct{}
	// PreviousStep moves back one step.
	PreviousStep struct{}
	// GoToStep jumps to an accessible step.
	GoToStep struct{ Step int }
	// ResetState returns to InitialState.
	ResetState struct{}
)

func (SetLoading) action()     {}
func (SetError) action()       {}
func (ClearError) action()     {}
func (SetSuccess) action()     {}
func (SetStep) action()        {}
func (SetUserInput) action()   {}
func (SetTemplates) action()   {}
func (SetSuggestions) action() {}
func (SelectTemplate) action() {}
func (SetContract) action()    {}
func (SetClauses) action()     {}
func (UpsertClause) action()   {}
func (RemoveClause) action()   {}
func (SetWitnesses) action()   {}
func (UpsertWitness) action()  {}
func (RemoveWitness) action()  {}
func (SetRecipient) action()   {}
func (SetReview) action()      {}
func (UpdateAIUsage) action()  {}
func (MarkSaved) action()      {}
func (NextStep) action()       {}
func (PreviousStep) action()   {}
func (GoToStep) action()       {}
func (ResetState) action()     {}
