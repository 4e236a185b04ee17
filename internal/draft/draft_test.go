package draft

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/wizard"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "state", "drafts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleState(id string) wizard.State {
	s := wizard.InitialState()
	s.DraftID = id
	s.UserInput = "Website redesign contract with a freelance designer"
	return s
}

func TestRepositorySaveLoadDelete(t *testing.T) {
	repo := openRepo(t)
	state := sampleState("d-1")
	state.CurrentContract = &contract.Contract{ID: "c-1", Status: contract.StatusDetailsCompleted, Details: contract.Details{Title: "Website redesign"}}

	require.NoError(t, repo.Save(Draft{ID: "d-1", State: state}))

	got, err := repo.Load("d-1")
	require.NoError(t, err)
	require.Equal(t, "d-1", got.State.DraftID)
	require.Equal(t, "c-1", got.State.ContractID())
	require.False(t, got.SavedAt.IsZero())

	require.NoError(t, repo.Delete("d-1"))
	_, err = repo.Load("d-1")
	require.True(t, errors.Is(err, ErrDraftNotFound))
	require.ErrorIs(t, repo.Delete("d-1"), ErrDraftNotFound)
	require.Error(t, repo.Save(Draft{}))
}

func TestRepositoryListNewestFirst(t *testing.T) {
	repo := openRepo(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := sampleState("old")
	newer := sampleState("new")
	newer.SelectedTemplate = &contract.Template{ID: "t-1", Name: "Service agreement"}
	require.NoError(t, repo.Save(Draft{ID: "old", State: older, SavedAt: base}))
	require.NoError(t, repo.Save(Draft{ID: "new", State: newer, SavedAt: base.Add(time.Hour)}))

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "new", list[0].ID)
	require.Equal(t, "Service agreement", list[0].Title)
	require.Equal(t, 25, list[0].Completion)
	require.Equal(t, "Website redesign contract with a freelance desi…", list[1].Title)
}

type memoryStore struct {
	mu    sync.Mutex
	saves []Draft
	err   error
}

func (m *memoryStore) Save(d Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves = append(m.saves, d)
	return nil
}

func (m *memoryStore) Load(string) (Draft, error) { return Draft{}, ErrDraftNotFound }
func (m *memoryStore) List() ([]Summary, error)   { return nil, nil }
func (m *memoryStore) Delete(string) error        { return nil }

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func TestAutosaverDebouncesBursts(t *testing.T) {
	mem := &memoryStore{}
	saved := make(chan Draft, 4)
	auto := NewAutosaver(mem, 30*time.Millisecond, OnSaved(func(d Draft) { saved <- d }))

	store := wizard.NewStoreFrom(sampleState("d-1"))
	unsubscribe := store.Subscribe(auto.Listener())
	defer unsubscribe()

	store.Dispatch(wizard.SetUserInput{Input: "first revision of the description"})
	store.Dispatch(wizard.SetUserInput{Input: "second revision of the description"})
	store.Dispatch(wizard.SetUserInput{Input: "final revision of the description"})

	select {
	case d := <-saved:
		require.Equal(t, "final revision of the description", d.State.UserInput)
	case <-time.After(2 * time.Second):
		t.Fatal("autosave never fired")
	}
	require.NoError(t, auto.Stop())
	require.Equal(t, 1, mem.count())
}

func TestAutosaverFlushSkipsUnchangedAndEmptyStates(t *testing.T) {
	mem := &memoryStore{}
	auto := NewAutosaver(mem, time.Hour)

	auto.Touch(wizard.InitialState())
	wrote, err := auto.Flush()
	require.NoError(t, err)
	require.False(t, wrote, "states without a draft id are not saved")

	state := sampleState("d-1")
	auto.Touch(state)
	wrote, err = auto.Flush()
	require.NoError(t, err)
	require.True(t, wrote)

	state.LastSavedAt = time.Now()
	auto.Touch(state)
	wrote, err = auto.Flush()
	require.NoError(t, err)
	require.False(t, wrote, "recording a save must not cause another write")

	require.NoError(t, auto.Stop())
	auto.Touch(sampleState("d-2"))
	wrote, _ = auto.Flush()
	require.False(t, wrote, "stopped autosaver ignores changes")
	require.Equal(t, 1, mem.count())
}

func TestAutosaverReportsStoreErrors(t *testing.T) {
	mem := &memoryStore{err: errors.New("disk full")}
	auto := NewAutosaver(mem, time.Hour)
	auto.Touch(sampleState("d-1"))
	_, err := auto.Flush()
	require.EqualError(t, err, "disk full")
	require.NoError(t, auto.Stop())
}
