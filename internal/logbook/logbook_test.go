package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/wizard"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journey.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestAppendFoldsWhitespaceAndUsesClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	book, err := New(filepath.Join(t.TempDir(), "logs", "journey.log"), WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatal(err)
	}
	book.Warn("line one\n  line two")
	book.Info("   ")
	lines, total := book.Tail(10)
	if total != 1 {
		t.Fatalf("blank entries should be skipped, total = %d", total)
	}
	want := "2024-03-01T09:30:00Z WARN  line one line two"
	if lines[0] != want {
		t.Fatalf("line = %q, want %q", lines[0], want)
	}
}

func TestTailOnMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "journey.log"))
	if err != nil {
		t.Fatal(err)
	}
	if lines, total := book.Tail(5); lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %v %d", lines, total)
	}
	var nilBook *Logbook
	nilBook.Info("ignored")
	if lines, _ := nilBook.Tail(1); lines != nil {
		t.Fatalf("nil logbook should tail nothing")
	}
}

func TestJourneyRecordsMilestones(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "journey.log"))
	if err != nil {
		t.Fatal(err)
	}
	store := wizard.NewStore()
	store.Subscribe(Journey(book, store.State()))

	store.Dispatch(wizard.SetUserInput{Input: "I need a freelance design agreement for a logo."})
	store.Dispatch(wizard.NextStep{})
	store.Dispatch(wizard.SelectTemplate{Template: &contract.Template{ID: "t1", Name: "Freelance"}})
	store.Dispatch(wizard.SetContract{Contract: &contract.Contract{ID: "c-9", Status: contract.StatusDraft}})
	store.Dispatch(wizard.SetError{Message: "backend unavailable"})
	store.Dispatch(wizard.ResetState{})

	lines, _ := book.Tail(20)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"step 2/8: Choose a template",
		"template selected: Freelance",
		"contract created: c-9",
		"ERROR backend unavailable",
		"draft reset",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("journey missing %q:\n%s", want, joined)
		}
	}
}

func TestJourneyLogsFirstDispatch(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "journey.log"))
	if err != nil {
		t.Fatal(err)
	}
	restored := wizard.InitialState()
	restored.UserInput = "Office lease for the new studio space downtown"
	store := wizard.NewStoreFrom(restored)
	store.Subscribe(Journey(book, store.State()))

	store.Dispatch(wizard.SetError{Message: "session expired"})

	lines, _ := book.Tail(5)
	if len(lines) != 1 || !strings.Contains(lines[0], "ERROR session expired") {
		t.Fatalf("first dispatch not recorded: %q", lines)
	}
}
