package wizard

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kingrea/contract-wizard/internal/contract"
)

func TestStoreDispatchNotifiesListeners(t *testing.T) {
	store := NewStore()
	var seen []int
	unsubscribe := store.Subscribe(func(s State) {
		seen = append(seen, s.CurrentStep)
	})
	store.Dispatch(SetUserInput{Input: longInput})
	store.Dispatch(NextStep{})
	if len(seen) != 2 || seen[1] != 2 {
		t.Fatalf("listener saw %v, want two notifications ending at step 2", seen)
	}
	unsubscribe()
	store.Dispatch(PreviousStep{})
	if len(seen) != 2 {
		t.Fatalf("unsubscribed listener still notified: %v", seen)
	}
	if store.State().CurrentStep != 1 {
		t.Fatalf("store state not updated")
	}
}

func TestStoreSnapshotsAreIsolated(t *testing.T) {
	store := NewStore()
	store.Dispatch(SetClauses{Clauses: []contract.Clause{{ID: "c1", Mandatory: true}}})
	snap := store.State()
	snap.MandatoryClauses[0].ApprovedByFirstParty = true
	if store.State().MandatoryClauses[0].ApprovedByFirstParty {
		t.Fatalf("mutating a snapshot leaked into the store")
	}
}

func TestNewStoreFromRecomputesDerivedFields(t *testing.T) {
	restored := progressedState(t, StepTemplate)
	restored.CompletionPercentage = 87
	restored.CurrentStep = 42
	restored.TotalSteps = 0
	store := NewStoreFrom(restored)
	got := store.State()
	if got.CompletionPercentage != 25 {
		t.Fatalf("completion = %d, want 25", got.CompletionPercentage)
	}
	if got.CurrentStep != TotalSteps || got.TotalSteps != TotalSteps {
		t.Fatalf("restored position not clamped: %d/%d", got.CurrentStep, got.TotalSteps)
	}
	if !store.IsStepCompleted(StepTemplate) || !store.IsStepAccessible(StepDetails) {
		t.Fatalf("store getters disagree with restored state")
	}
	if store.StepStatus(StepMandatoryClauses) != StepStatusLocked {
		t.Fatalf("step 4 should be locked")
	}
}

func TestStoreResetFromAnyHistory(t *testing.T) {
	store := NewStoreFrom(progressedState(t, StepSignature))
	store.Dispatch(SetError{Message: "x"})
	got := store.Dispatch(ResetState{})
	want := InitialState()
	if got.CurrentStep != want.CurrentStep || got.CurrentContract != nil || got.UserInput != "" || got.Error != "" {
		t.Fatalf("reset left state behind: %+v", got)
	}
}

func TestRegistryResolvesStepComponents(t *testing.T) {
	reg := NewRegistry[string]()
	if err := reg.Register(0, func(StepInfo) (string, error) { return "", nil }); err == nil {
		t.Fatalf("expected unknown step error")
	}
	reg.MustRegister(StepDescribe, func(info StepInfo) (string, error) { return info.Title, nil })
	if err := reg.Register(StepDescribe, func(StepInfo) (string, error) { return "", nil }); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	reg.MustRegister(StepTemplate, func(StepInfo) (string, error) { return "", errors.New("boom") })
	view, err := reg.Resolve(StepDescribe)
	if err != nil || view != "Describe your need" {
		t.Fatalf("resolve describe = %q, %v", view, err)
	}
	if _, err := reg.Resolve(StepTemplate); err == nil {
		t.Fatalf("factory error should propagate")
	}
	if _, err := reg.Resolve(StepDetails); err == nil || !strings.Contains(err.Error(), "details") {
		t.Fatalf("expected missing registration error, got %v", err)
	}
	missing := reg.Missing()
	if len(missing) != TotalSteps-2 || missing[0] != StepDetails {
		t.Fatalf("missing = %v", missing)
	}
}

func TestValidationErrors(t *testing.T) {
	if err := ValidateUserInput("too short"); err == nil {
		t.Fatalf("expected short input error")
	} else {
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "description" {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if err := ValidateRecipient(contract.Recipient{FullName: "Jane"}); err == nil {
		t.Fatalf("missing recipient email must fail")
	}
	recipient := contract.Recipient{FullName: "Jane", Email: "jane@example.com"}
	if err := ValidateRecipient(recipient); err != nil {
		t.Fatalf("valid recipient rejected: %v", err)
	}
	if err := ValidateWitness(contract.Witness{FullName: "Jane", Email: "JANE@example.com"}, recipient); err == nil {
		t.Fatalf("recipient cannot witness their own contract")
	}
	if err := ValidateDetails(contract.Details{Title: "x", FirstParty: contract.Party{Name: "a"}, SecondParty: contract.Party{Name: "b", Email: "bad"}}); err == nil {
		t.Fatalf("invalid party email must fail")
	}
	if err := ValidateDetails(contract.Details{Title: "x", FirstParty: contract.Party{Name: "a"}, SecondParty: contract.Party{Name: "b"}}); err != nil {
		t.Fatalf("valid details rejected: %v", err)
	}
}

func TestConcurrentDispatchDeliversInOrder(t *testing.T) {
	store := NewStore()
	var (
		mu         sync.Mutex
		delivered  int
		outOfOrder []string
	)
	store.Subscribe(func(s State) {
		// Nothing can be reduced while a snapshot is being delivered.
		if latest := store.State(); latest.UserInput != s.UserInput {
			mu.Lock()
			outOfOrder = append(outOfOrder, s.UserInput)
			mu.Unlock()
		}
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				store.Dispatch(SetUserInput{Input: fmt.Sprintf("worker %d edit %d", g, i)})
			}
		}(g)
	}
	wg.Wait()

	if delivered != 400 {
		t.Fatalf("delivered %d snapshots, want 400", delivered)
	}
	if len(outOfOrder) > 0 {
		t.Fatalf("%d snapshots delivered after a newer reduction, e.g. %q", len(outOfOrder), outOfOrder[0])
	}
}
