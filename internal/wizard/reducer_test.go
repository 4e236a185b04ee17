package wizard

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/contract-wizard/internal/contract"
)

const longInput = "I need a freelance web design agreement with milestones"

func templateWithWitnesses(min int) *contract.Template {
	return &contract.Template{
		ID:           "tpl-service",
		ContractType: "service_agreement",
		Name:         "Service Agreement",
		Legal:        contract.LegalMetadata{RequiresWitnesses: min > 0, MinWitnesses: min},
	}
}

func detailedContract(status contract.Status) *contract.Contract {
	return &contract.Contract{
		ID:         "ctr-1",
		TemplateID: "tpl-service",
		Status:     status,
		Details: contract.Details{
			Title:       "Website redesign",
			FirstParty:  contract.Party{Name: "Acme Ltd"},
			SecondParty: contract.Party{Name: "Jane Doe"},
		},
	}
}

// progressedState walks the reducer up to (and including) the given step's
// completion requirements.
func progressedState(t *testing.T, through int) State {
	t.Helper()
	s := InitialState()
	apply := func(a Action) { s = Reduce(s, a) }
	if through >= StepDescribe {
		apply(SetUserInput{Input: longInput})
	}
	if through >= StepTemplate {
		apply(SelectTemplate{Template: templateWithWitnesses(0)})
	}
	if through >= StepDetails {
		apply(SetContract{Contract: detailedContract(contract.StatusDetailsCompleted)})
	}
	if through >= StepMandatoryClauses {
		apply(SetClauses{Clauses: []contract.Clause{
			{ID: "c1", ClauseKey: "payment", Mandatory: true, Included: true, ApprovedByFirstParty: true},
			{ID: "c2", ClauseKey: "liability", Mandatory: true, Included: true, ApprovedByFirstParty: true},
		}})
	}
	if through >= StepParties {
		apply(SetRecipient{Recipient: contract.Recipient{FullName: "Jane Doe", Email: "jane@example.com"}})
	}
	if through >= StepReview {
		apply(SetContract{Contract: detailedContract(contract.StatusSentForSignature)})
	}
	if through >= StepSignature {
		apply(SetContract{Contract: detailedContract(contract.StatusFullySigned)})
	}
	return s
}

func TestInitialState(t *testing.T) {
	s := InitialState()
	if s.CurrentStep != 1 || s.TotalSteps != TotalSteps {
		t.Fatalf("unexpected initial position %d/%d", s.CurrentStep, s.TotalSteps)
	}
	if s.CompletionPercentage != 0 {
		t.Fatalf("initial completion = %d", s.CompletionPercentage)
	}
	if !s.IsStepAccessible(1) || s.IsStepAccessible(2) {
		t.Fatalf("only step 1 should be accessible initially")
	}
}

func TestShortInputBlocksContinue(t *testing.T) {
	s := Reduce(InitialState(), SetUserInput{Input: "  short need  "})
	if s.IsStepCompleted(StepDescribe) {
		t.Fatalf("input under %d characters must not complete step 1", MinUserInputLength)
	}
	if s.CanAdvance() {
		t.Fatalf("continue must be disabled")
	}
	s = Reduce(s, NextStep{})
	if s.CurrentStep != 1 {
		t.Fatalf("NextStep on incomplete step must be a no-op, got step %d", s.CurrentStep)
	}
	s = Reduce(s, SetUserInput{Input: longInput})
	s = Reduce(s, NextStep{})
	if s.CurrentStep != 2 {
		t.Fatalf("expected step 2 after valid input, got %d", s.CurrentStep)
	}
}

func TestUserInputCountsRunesNotBytes(t *testing.T) {
	// 19 multi-byte runes would pass a byte-length check.
	s := Reduce(InitialState(), SetUserInput{Input: strings.Repeat("é", 19)})
	if s.IsStepCompleted(StepDescribe) {
		t.Fatalf("19 runes must not satisfy the minimum length")
	}
	s = Reduce(s, SetUserInput{Input: strings.Repeat("é", 20)})
	if !s.IsStepCompleted(StepDescribe) {
		t.Fatalf("20 runes should satisfy the minimum length")
	}
}

func TestMandatoryApprovalOpensOptionalStep(t *testing.T) {
	s := progressedState(t, StepDetails)
	s = Reduce(s, SetClauses{Clauses: []contract.Clause{
		{ID: "c1", Mandatory: true, Included: true, ApprovedByFirstParty: true},
		{ID: "c2", Mandatory: true, Included: true},
	}})
	if s.IsStepCompleted(StepMandatoryClauses) {
		t.Fatalf("step 4 must wait for every mandatory approval")
	}
	if s.IsStepAccessible(StepOptionalClauses) {
		t.Fatalf("step 5 must stay locked")
	}
	approved, _ := s.Clause("c2")
	approved.ApprovedByFirstParty = true
	s = Reduce(s, UpsertClause{Clause: approved})
	if !s.IsStepCompleted(StepMandatoryClauses) {
		t.Fatalf("step 4 should complete once every mandatory clause is approved")
	}
	if !s.IsStepAccessible(StepOptionalClauses) {
		t.Fatalf("step 5 should become accessible")
	}
}

func TestMandatoryStepNeedsEveryTemplateClause(t *testing.T) {
	s := progressedState(t, StepDetails)
	tpl := templateWithWitnesses(0)
	tpl.MandatoryClauses = []contract.ClauseDefinition{
		{Key: "payment", Title: "Payment"},
		{Key: "liability", Title: "Liability"},
		{Key: "termination", Title: "Termination"},
	}
	s = Reduce(s, SelectTemplate{Template: tpl})
	// Generation failed for two of the three definitions.
	s = Reduce(s, SetClauses{Clauses: []contract.Clause{
		{ID: "c1", ClauseKey: "payment", Mandatory: true, Included: true, ApprovedByFirstParty: true},
	}})
	if s.IsStepCompleted(StepMandatoryClauses) {
		t.Fatalf("undrafted required clauses must keep step 4 open")
	}
	s = Reduce(s, SetStep{Step: StepMandatoryClauses})
	s = Reduce(s, NextStep{})
	if s.CurrentStep != StepMandatoryClauses {
		t.Fatalf("navigation passed step 4 with missing clauses, at step %d", s.CurrentStep)
	}

	for _, c := range []contract.Clause{
		{ID: "c2", ClauseKey: "liability", Mandatory: true, Included: true, ApprovedByFirstParty: true},
		{ID: "c3", ClauseKey: "termination", Mandatory: true, Included: true, ApprovedByFirstParty: true},
	} {
		s = Reduce(s, UpsertClause{Clause: c})
	}
	if !s.IsStepCompleted(StepMandatoryClauses) || !s.IsStepAccessible(StepOptionalClauses) {
		t.Fatalf("step 4 should complete once every template clause is approved")
	}
}

func TestMandatoryStepNeedsAtLeastOneClause(t *testing.T) {
	s := progressedState(t, StepDetails)
	if s.IsStepCompleted(StepMandatoryClauses) {
		t.Fatalf("an empty mandatory list must not count as approved")
	}
}

func TestOptionalClausesRequireDecision(t *testing.T) {
	s := progressedState(t, StepMandatoryClauses)
	if !s.IsStepCompleted(StepOptionalClauses) {
		t.Fatalf("no optional clauses means nothing to decide")
	}
	s = Reduce(s, UpsertClause{Clause: contract.Clause{ID: "o1", Included: true}})
	if s.IsStepCompleted(StepOptionalClauses) {
		t.Fatalf("an included undecided clause blocks step 5")
	}
	s = Reduce(s, UpsertClause{Clause: contract.Clause{ID: "o1", Included: true, Rejected: true}})
	if !s.IsStepCompleted(StepOptionalClauses) {
		t.Fatalf("a rejected clause counts as decided")
	}
	s = Reduce(s, UpsertClause{Clause: contract.Clause{ID: "x1", Custom: true, Included: true}})
	if s.IsStepCompleted(StepOptionalClauses) {
		t.Fatalf("custom clauses need approval too")
	}
	if len(s.CustomClauses) != 1 || len(s.OptionalClauses) != 1 {
		t.Fatalf("clauses partitioned wrongly: %d optional, %d custom", len(s.OptionalClauses), len(s.CustomClauses))
	}
}

func TestPartiesStepHonoursWitnessRequirement(t *testing.T) {
	s := progressedState(t, StepParties)
	if !s.IsStepCompleted(StepParties) {
		t.Fatalf("valid recipient without witness requirement should complete step 6")
	}
	s = Reduce(s, SelectTemplate{Template: templateWithWitnesses(2)})
	if s.IsStepCompleted(StepParties) {
		t.Fatalf("template requiring 2 witnesses blocks step 6")
	}
	s = Reduce(s, UpsertWitness{Witness: contract.Witness{ID: "w1", FullName: "A", Email: "a@example.com"}})
	s = Reduce(s, UpsertWitness{Witness: contract.Witness{ID: "w2", FullName: "B", Email: "b@example.com"}})
	if !s.IsStepCompleted(StepParties) {
		t.Fatalf("two witnesses should satisfy the template")
	}
	s = Reduce(s, SetRecipient{Recipient: contract.Recipient{FullName: "Jane", Email: "not-an-email"}})
	if s.IsStepCompleted(StepParties) {
		t.Fatalf("invalid recipient email must block step 6")
	}
}

func TestSelectingDifferentTemplateDiscardsDraft(t *testing.T) {
	s := progressedState(t, StepMandatoryClauses)
	same := templateWithWitnesses(0)
	s = Reduce(s, SelectTemplate{Template: same})
	if s.CurrentContract == nil || len(s.MandatoryClauses) == 0 {
		t.Fatalf("re-selecting the same template must keep the draft")
	}
	other := &contract.Template{ID: "tpl-nda", Name: "NDA"}
	s = Reduce(s, SelectTemplate{Template: other})
	if s.CurrentContract != nil || s.MandatoryClauses != nil {
		t.Fatalf("switching template must discard the previous contract and clauses")
	}
	if s.SelectedTemplate.ID != "tpl-nda" {
		t.Fatalf("template not switched")
	}
}

func TestAccessibilityIsMonotonic(t *testing.T) {
	for through := 0; through <= TotalSteps; through++ {
		s := progressedState(t, through)
		for n := 2; n <= TotalSteps; n++ {
			if !s.IsStepCompleted(n-1) && s.IsStepAccessible(n) {
				t.Fatalf("through=%d: step %d accessible while step %d incomplete", through, n, n-1)
			}
		}
	}
}

func TestCompletionPercentageBoundedAndIdempotent(t *testing.T) {
	for through := 0; through <= TotalSteps; through++ {
		s := progressedState(t, through)
		first := s.ComputeCompletion()
		second := s.ComputeCompletion()
		if first != second {
			t.Fatalf("completion not idempotent: %d vs %d", first, second)
		}
		if first < 0 || first > 100 {
			t.Fatalf("completion out of range: %d", first)
		}
		if s.CompletionPercentage != first {
			t.Fatalf("stored completion %d differs from derived %d", s.CompletionPercentage, first)
		}
	}
	if got := progressedState(t, StepSignature).CompletionPercentage; got != 100 {
		t.Fatalf("fully signed draft completion = %d, want 100", got)
	}
}

func TestFullySignedGivesFullSignatureProgress(t *testing.T) {
	s := progressedState(t, StepSignature)
	if s.SignatureProgress() != 100 {
		t.Fatalf("signature progress = %d, want 100", s.SignatureProgress())
	}
	if !s.IsStepCompleted(StepSignature) {
		t.Fatalf("fully signed completes step 8")
	}
}

func TestResetReturnsInitialState(t *testing.T) {
	s := progressedState(t, StepSignature)
	s = Reduce(s, SetError{Message: "boom"})
	s = Reduce(s, MarkSaved{At: time.Unix(1730000000, 0)})
	s = Reduce(s, GoToStep{Step: 6})
	s = Reduce(s, ResetState{})
	if diff := cmp.Diff(InitialState(), s); diff != "" {
		t.Fatalf("reset mismatch (-want +got):\n%s", diff)
	}
}

func TestNavigationClampsAndGates(t *testing.T) {
	s := progressedState(t, StepSignature)
	s = Reduce(s, SetStep{Step: 99})
	if s.CurrentStep != TotalSteps {
		t.Fatalf("SetStep should clamp to %d, got %d", TotalSteps, s.CurrentStep)
	}
	s = Reduce(s, NextStep{})
	if s.CurrentStep != TotalSteps {
		t.Fatalf("NextStep past the last step must be a no-op")
	}
	s = Reduce(s, SetStep{Step: -3})
	s = Reduce(s, PreviousStep{})
	if s.CurrentStep != 1 {
		t.Fatalf("PreviousStep must clamp at 1, got %d", s.CurrentStep)
	}

	partial := progressedState(t, StepTemplate)
	partial = Reduce(partial, GoToStep{Step: StepReview})
	if partial.CurrentStep != 1 {
		t.Fatalf("GoToStep to a locked step must be ignored, got %d", partial.CurrentStep)
	}
	partial = Reduce(partial, GoToStep{Step: StepDetails})
	if partial.CurrentStep != StepDetails {
		t.Fatalf("GoToStep to an accessible step should move, got %d", partial.CurrentStep)
	}
	partial = Reduce(partial, GoToStep{Step: 0})
	if partial.CurrentStep != StepDetails {
		t.Fatalf("GoToStep out of range must be ignored")
	}
}

func TestErrorAndSuccessFlags(t *testing.T) {
	s := Reduce(InitialState(), SetLoading{Loading: true, Operation: "suggest templates"})
	if !s.Loading || s.Operation != "suggest templates" {
		t.Fatalf("loading not recorded: %+v", s)
	}
	s = Reduce(s, SetError{Message: " backend down "})
	if s.Loading || s.Error != "backend down" {
		t.Fatalf("error should end loading and be trimmed: %+v", s)
	}
	s = Reduce(s, SetSuccess{Message: "saved"})
	if s.Error != "" || s.Success != "saved" {
		t.Fatalf("success should clear error: %+v", s)
	}
	s = Reduce(s, SetError{Message: "again"})
	s = Reduce(s, ClearError{})
	if s.Error != "" {
		t.Fatalf("ClearError should dismiss the banner")
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := progressedState(t, StepMandatoryClauses)
	snapshot := before.Clone()
	updated := before.MandatoryClauses[0]
	updated.Content = "changed"
	_ = Reduce(before, UpsertClause{Clause: updated})
	_ = Reduce(before, RemoveClause{ID: "c2"})
	_ = Reduce(before, UpsertWitness{Witness: contract.Witness{ID: "w"}})
	if diff := cmp.Diff(snapshot, before); diff != "" {
		t.Fatalf("input state mutated (-want +got):\n%s", diff)
	}
}

func TestUpsertClauseKeepsPosition(t *testing.T) {
	s := progressedState(t, StepMandatoryClauses)
	first := s.MandatoryClauses[0]
	first.Content = "rewritten"
	first.ModificationCount++
	s = Reduce(s, UpsertClause{Clause: first})
	if s.MandatoryClauses[0].ID != "c1" || s.MandatoryClauses[0].Content != "rewritten" {
		t.Fatalf("upsert should replace in place, got %+v", s.MandatoryClauses)
	}
	s = Reduce(s, RemoveClause{ID: "c1"})
	if _, ok := s.Clause("c1"); ok {
		t.Fatalf("clause c1 should be removed")
	}
	if !s.IsStepCompleted(StepMandatoryClauses) {
		t.Fatalf("remaining approved clause keeps step 4 complete")
	}
}

func TestSetContractAdoptsUsage(t *testing.T) {
	c := detailedContract(contract.StatusDraft)
	c.AIUsage = contract.AIUsage{Suggestions: 3}
	s := Reduce(InitialState(), SetContract{Contract: c})
	if s.AIUsage.Suggestions != 3 {
		t.Fatalf("contract usage not adopted: %+v", s.AIUsage)
	}
	s = Reduce(s, UpdateAIUsage{Usage: contract.AIUsage{Suggestions: 4, Reviews: 1}})
	if s.AIUsage.Total() != 5 {
		t.Fatalf("usage total = %d", s.AIUsage.Total())
	}
}

func TestStepStatus(t *testing.T) {
	s := progressedState(t, StepTemplate)
	s = Reduce(s, GoToStep{Step: StepDetails})
	cases := map[int]StepStatus{
		StepDescribe:         StepStatusCompleted,
		StepTemplate:         StepStatusCompleted,
		StepDetails:          StepStatusCurrent,
		StepMandatoryClauses: StepStatusLocked,
	}
	for n, want := range cases {
		if got := s.StepStatus(n); got != want {
			t.Fatalf("StepStatus(%d) = %s, want %s", n, got, want)
		}
	}
	s = Reduce(s, PreviousStep{})
	if got := s.StepStatus(StepDetails); got != StepStatusAccessible {
		t.Fatalf("StepStatus(details) after going back = %s, want accessible", got)
	}
}
