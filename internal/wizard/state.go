// internal/wizard/state.go
//
// State is the client-held draft of one contract creation session. Every
// step view reads it and dispatches actions into it; nothing else mutates it.

package wizard

import (
	"time"

	"github.com/kingrea/contract-wizard/internal/contract"
)

const (
	// TotalSteps is the number of wizard steps.
	TotalSteps = 8

	// MinUserInputLength is the shortest description the backend accepts for
	// template suggestion.
	MinUserInputLength = 20
)

// State captures the in-progress draft. CompletionPercentage is derived and
// recomputed after every reduction.
type State struct {
	DraftID     string `json:"draft_id,omitempty"`
	CurrentStep int    `json:"current_step"`
	TotalSteps  int    `json:"total_steps"`

	UserInput        string                        `json:"user_input,omitempty"`
	Templates        []contract.Template           `json:"templates,omitempty"`
	Suggestions      []contract.TemplateSuggestion `json:"suggestions,omitempty"`
	SelectedTemplate *contract.Template            `json:"selected_template,omitempty"`
	CurrentContract  *contract.Contract            `json:"current_contract,omitempty"`

	MandatoryClauses []contract.Clause  `json:"mandatory_clauses,omitempty"`
	OptionalClauses  []contract.Clause  `json:"optional_clauses,omitempty"`
	CustomClauses    []contract.Clause  `json:"custom_clauses,omitempty"`
	Witnesses        []contract.Witness `json:"witnesses,omitempty"`
	Recipient        contract.Recipient `json:"recipient"`
	Review           *contract.Review   `json:"review,omitempty"`
	AIUsage          contract.AIUsage   `json:"ai_usage"`

	Loading   bool   `json:"-"`
	Operation string `json:"-"`
	Error     string `json:"-"`
	Success   string `json:"-"`

	CompletionPercentage int       `json:"completion_percentage"`
	LastSavedAt          time.Time `json:"last_saved_at,omitempty"`
}

// InitialState returns the state a fresh wizard starts from.
func InitialState() State {
	return State{
		CurrentStep: 1,
		TotalSteps:  TotalSteps,
	}
}

// ContractID returns the backend contract ID, or "" before one exists.
func (s State) ContractID() string {
	if s.CurrentContract == nil {
		return ""
	}
	return s.CurrentContract.ID
}

// Status returns the backend status of the current contract.
func (s State) Status() contract.Status {
	if s.CurrentContract == nil {
		return ""
	}
	return s.CurrentContract.Status
}

// AllClauses returns mandatory, optional and custom clauses in that order.
func (s State) AllClauses() []contract.Clause {
	out := make([]contract.Clause, 0, len(s.MandatoryClauses)+len(s.OptionalClauses)+len(s.CustomClauses))
	out = append(out, s.MandatoryClauses...)
	out = append(out, s.OptionalClauses...)
	out = append(out, s.CustomClauses...)
	return out
}

// Clause looks a clause up by ID across every list.
func (s State) Clause(id string) (contract.Clause, bool) {
	for _, c := range s.AllClauses() {
		if c.ID == id {
			return c, true
		}
	}
	return contract.Clause{}, false
}

// SignatureProgress is the derived percentage of collected signatures.
func (s State) SignatureProgress() int {
	return contract.SignatureProgress(s.CurrentContract)
}

// Clone returns a deep copy so persisted snapshots never alias live slices.
func (s State) Clone() State {
	out := s
	out.Templates = cloneSlice(s.Templates)
	out.Suggestions = cloneSlice(s.Suggestions)
	out.MandatoryClauses = cloneSlice(s.MandatoryClauses)
	out.OptionalClauses = cloneSlice(s.OptionalClauses)
	out.CustomClauses = cloneSlice(s.CustomClauses)
	out.Witnesses = cloneSlice(s.Witnesses)
	if s.SelectedTemplate != nil {
		tpl := *s.SelectedTemplate
		tpl.MandatoryClauses = cloneSlice(tpl.MandatoryClauses)
		tpl.OptionalClauses = cloneSlice(tpl.OptionalClauses)
		out.SelectedTemplate = &tpl
	}
	if s.CurrentContract != nil {
		c := *s.CurrentContract
		c.Signatures = cloneSlice(c.Signatures)
		if c.Details.CustomFields != nil {
			fields := make(map[string]string, len(c.Details.CustomFields))
			for k, v := range c.Details.CustomFields {
				fields[k] = v
			}
			c.Details.CustomFields = fields
		}
		out.CurrentContract = &c
	}
	if s.Review != nil {
		r := *s.Review
		r.Findings = cloneSlice(r.Findings)
		out.Review = &r
	}
	return out
}

func cloneSlice[T any](values []T) []T {
	if len(values) == 0 {
		return nil
	}
	out := make([]T, len(values))
	copy(out, values)
	return out
}
