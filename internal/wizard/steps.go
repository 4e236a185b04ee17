package wizard

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kingrea/contract-wizard/internal/contract"
)

// Step ordinals.
const (
	StepDescribe = iota + 1
	StepTemplate
	StepDetails
	StepMandatoryClauses
	StepOptionalClauses
	StepParties
	StepReview
	StepSignature
)

// StepInfo describes one wizard step for navigation and rendering.
type StepInfo struct {
	Number      int
	Key         string
	Title       string
	Description string
}

var steps = []StepInfo{
	{StepDescribe, "describe", "Describe your need", "Explain in plain words what the contract should cover"},
	{StepTemplate, "template", "Choose a template", "Pick one of the AI-suggested templates or browse the catalog"},
	{StepDetails, "details", "Contract details", "Fill in the parties, value and dates"},
	{StepMandatoryClauses, "mandatory-clauses", "Mandatory clauses", "Generate and approve the clauses the template requires"},
	{StepOptionalClauses, "optional-clauses", "Optional clauses", "Add extra protection or write custom clauses"},
	{StepParties, "parties", "Recipients & witnesses", "Who receives the contract and who attests to it"},
	{StepReview, "review", "Review & send", "Run the AI review, generate the PDF and send for signature"},
	{StepSignature, "signature", "Signature", "Sign and track the counterparty's signature"},
}

// Steps returns the ordered step list.
func Steps() []StepInfo {
	return cloneSlice(steps)
}

// Step returns the metadata for ordinal n.
func Step(n int) (StepInfo, bool) {
	if n < 1 || n > len(steps) {
		return StepInfo{}, false
	}
	return steps[n-1], true
}

// StepStatus classifies a step for the navigation bar.
type StepStatus string

const (
	StepStatusCompleted  StepStatus = "completed"
	StepStatusCurrent    StepStatus = "current"
	StepStatusAccessible StepStatus = "accessible"
	StepStatusLocked     StepStatus = "locked"
)

// IsStepCompleted evaluates the completion predicate of step n.
func (s State) IsStepCompleted(n int) bool {
	switch n {
	case StepDescribe:
		return utf8.RuneCountInString(strings.TrimSpace(s.UserInput)) >= MinUserInputLength
	case StepTemplate:
		return s.SelectedTemplate != nil
	case StepDetails:
		return s.CurrentContract != nil && s.CurrentContract.Details.Complete()
	case StepMandatoryClauses:
		if len(s.MandatoryClauses) == 0 {
			return false
		}
		approved := make(map[string]bool, len(s.MandatoryClauses))
		for _, c := range s.MandatoryClauses {
			if !c.ApprovedByFirstParty {
				return false
			}
			approved[c.ClauseKey] = true
		}
		// Every clause the template requires must be drafted, not just the
		// ones whose generation succeeded.
		if s.SelectedTemplate != nil {
			for _, def := range s.SelectedTemplate.MandatoryClauses {
				if !approved[def.Key] {
					return false
				}
			}
		}
		return true
	case StepOptionalClauses:
		for _, list := range [][]contract.Clause{s.OptionalClauses, s.CustomClauses} {
			for _, c := range list {
				if c.Included && !c.Decided() {
					return false
				}
			}
		}
		return true
	case StepParties:
		if ValidateRecipient(s.Recipient) != nil {
			return false
		}
		return len(s.Witnesses) >= s.SelectedTemplate.RequiredWitnesses()
	case StepReview:
		return s.Status().AtLeast(contract.StatusSentForSignature)
	case StepSignature:
		return s.Status().Signed()
	default:
		return false
	}
}

// IsStepAccessible reports whether navigation to step n is allowed. Step 1
// is always open; every later step needs all previous steps completed.
func (s State) IsStepAccessible(n int) bool {
	if n < 1 || n > s.totalSteps() {
		return false
	}
	for i := 1; i < n; i++ {
		if !s.IsStepCompleted(i) {
			return false
		}
	}
	return true
}

// StepStatus classifies step n relative to the current position.
func (s State) StepStatus(n int) StepStatus {
	switch {
	case n == s.CurrentStep:
		return StepStatusCurrent
	case s.IsStepCompleted(n) && s.IsStepAccessible(n):
		return StepStatusCompleted
	case s.IsStepAccessible(n):
		return StepStatusAccessible
	default:
		return StepStatusLocked
	}
}

// CanAdvance reports whether NextStep would move forward.
func (s State) CanAdvance() bool {
	return s.CurrentStep < s.totalSteps() && s.IsStepCompleted(s.CurrentStep)
}

// ComputeCompletion derives the completion percentage from the state. Only
// steps reachable through the gate count, so the value never exceeds what
// the navigation bar shows.
func (s State) ComputeCompletion() int {
	total := s.totalSteps()
	done := 0
	for i := 1; i <= total; i++ {
		if !s.IsStepCompleted(i) {
			break
		}
		done++
	}
	pct := int(math.Round(float64(done) * 100 / float64(total)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
