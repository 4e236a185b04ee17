package wizard

import (
	"strings"

	"github.com/kingrea/contract-wizard/internal/contract"
)

// Reduce applies an action to a state and returns the next state. It never
// performs I/O and never mutates the slices of the incoming state.
func Reduce(s State, a Action) State {
	next := reduce(s, a)
	next.CompletionPercentage = next.ComputeCompletion()
	return next
}

func reduce(s State, a Action) State {
	switch act := a.(type) {
	case SetLoading:
		s.Loading = act.Loading
		s.Operation = ""
		if act.Loading {
			s.Operation = strings.TrimSpace(act.Operation)
			s.Success = ""
		}
	case SetError:
		s.Error = strings.TrimSpace(act.Message)
		s.Loading = false
		s.Operation = ""
		s.Success = ""
	case ClearError:
		s.Error = ""
	case SetSuccess:
		s.Success = strings.TrimSpace(act.Message)
		s.Error = ""
		s.Loading = false
		s.Operation = ""
	case SetStep:
		s.CurrentStep = clampStep(act.Step, s.totalSteps())
	case SetUserInput:
		s.UserInput = act.Input
	case SetTemplates:
		s.Templates = cloneSlice(act.Templates)
	case SetSuggestions:
		s.Suggestions = cloneSlice(act.Suggestions)
	case SelectTemplate:
		s = selectTemplate(s, act.Template)
	case SetContract:
		if act.Contract == nil {
			s.CurrentContract = nil
			break
		}
		c := *act.Contract
		s.CurrentContract = &c
		if c.AIUsage != (contract.AIUsage{}) {
			s.AIUsage = c.AIUsage
		}
	case SetClauses:
		s.MandatoryClauses, s.OptionalClauses, s.CustomClauses = partitionClauses(act.Clauses)
	case UpsertClause:
		s = upsertClause(s, act.Clause)
	case RemoveClause:
		s.MandatoryClauses = removeClause(s.MandatoryClauses, act.ID)
		s.OptionalClauses = removeClause(s.OptionalClauses, act.ID)
		s.CustomClauses = removeClause(s.CustomClauses, act.ID)
	case SetWitnesses:
		s.Witnesses = cloneSlice(act.Witnesses)
	case UpsertWitness:
		s.Witnesses = upsertWitness(s.Witnesses, act.Witness)
	case RemoveWitness:
		s.Witnesses = removeWitness(s.Witnesses, act.ID)
	case SetRecipient:
		s.Recipient = contract.Recipient{
			FullName: strings.TrimSpace(act.Recipient.FullName),
			Email:    strings.TrimSpace(act.Recipient.Email),
			Company:  strings.TrimSpace(act.Recipient.Company),
			Role:     strings.TrimSpace(act.Recipient.Role),
		}
	case SetReview:
		if act.Review == nil {
			s.Review = nil
			break
		}
		r := *act.Review
		r.Findings = cloneSlice(r.Findings)
		s.Review = &r
	case UpdateAIUsage:
		s.AIUsage = act.Usage
	case MarkSaved:
		s.LastSavedAt = act.At
	case NextStep:
		if s.IsStepCompleted(s.CurrentStep) && s.CurrentStep < s.totalSteps() {
			s.CurrentStep++
		}
	case PreviousStep:
		if s.CurrentStep > 1 {
			s.CurrentStep--
		}
	case GoToStep:
		if act.Step >= 1 && act.Step <= s.totalSteps() && s.IsStepAccessible(act.Step) {
			s.CurrentStep = act.Step
		}
	case ResetState:
		return InitialState()
	}
	return s
}

// selectTemplate swaps the template. Picking a different template discards
// everything that was built on the previous one.
func selectTemplate(s State, tpl *contract.Template) State {
	if tpl == nil {
		s.SelectedTemplate = nil
		return s
	}
	copyTpl := *tpl
	copyTpl.MandatoryClauses = cloneSlice(tpl.MandatoryClauses)
	copyTpl.OptionalClauses = cloneSlice(tpl.OptionalClauses)
	if s.SelectedTemplate != nil && s.SelectedTemplate.ID != copyTpl.ID {
		s.CurrentContract = nil
		s.MandatoryClauses = nil
		s.OptionalClauses = nil
		s.CustomClauses = nil
		s.Witnesses = nil
		s.Review = nil
	}
	s.SelectedTemplate = &copyTpl
	return s
}

func partitionClauses(clauses []contract.Clause) (mandatory, optional, custom []contract.Clause) {
	for _, c := range clauses {
		switch {
		case c.Custom:
			custom = append(custom, c)
		case c.Mandatory:
			mandatory = append(mandatory, c)
		default:
			optional = append(optional, c)
		}
	}
	return mandatory, optional, custom
}

func upsertClause(s State, clause contract.Clause) State {
	// Keep the clause's position when it stays in the same list.
	idx := -1
	target := &s.OptionalClauses
	switch {
	case clause.Custom:
		target = &s.CustomClauses
	case clause.Mandatory:
		target = &s.MandatoryClauses
	}
	for i, existing := range *target {
		if existing.ID == clause.ID {
			idx = i
			break
		}
	}
	s.MandatoryClauses = removeClause(s.MandatoryClauses, clause.ID)
	s.OptionalClauses = removeClause(s.OptionalClauses, clause.ID)
	s.CustomClauses = removeClause(s.CustomClauses, clause.ID)
	*target = placeClause(*target, clause, idx)
	return s
}

func placeClause(list []contract.Clause, clause contract.Clause, idx int) []contract.Clause {
	if idx < 0 || idx > len(list) {
		return append(list, clause)
	}
	out := make([]contract.Clause, 0, len(list)+1)
	out = append(out, list[:idx]...)
	out = append(out, clause)
	out = append(out, list[idx:]...)
	return out
}

func removeClause(list []contract.Clause, id string) []contract.Clause {
	if len(list) == 0 {
		return nil
	}
	if id == "" {
		return cloneSlice(list)
	}
	out := make([]contract.Clause, 0, len(list))
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func upsertWitness(list []contract.Witness, w contract.Witness) []contract.Witness {
	out := cloneSlice(list)
	for i := range out {
		if out[i].ID == w.ID {
			out[i] = w
			return out
		}
	}
	return append(out, w)
}

func removeWitness(list []contract.Witness, id string) []contract.Witness {
	out := make([]contract.Witness, 0, len(list))
	for _, w := range list {
		if w.ID != id {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func clampStep(step, total int) int {
	if step < 1 {
		return 1
	}
	if step > total {
		return total
	}
	return step
}

func (s State) totalSteps() int {
	if s.TotalSteps <= 0 {
		return TotalSteps
	}
	return s.TotalSteps
}
