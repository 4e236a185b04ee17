package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/contract-wizard/internal/config"
	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/draft"
	"github.com/kingrea/contract-wizard/internal/eventbridge"
	"github.com/kingrea/contract-wizard/internal/wizard"
)

func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"CONTRACTWIZARD_API_URL",
		"CONTRACTWIZARD_TOKEN",
		"CONTRACTWIZARD_BRIDGE_ENABLED",
		"CONTRACTWIZARD_BRIDGE_HOST",
		"CONTRACTWIZARD_BRIDGE_PORT",
		"CONTRACTWIZARD_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return t.TempDir()
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginPersistsCredentials(t *testing.T) {
	dir := isolate(t)
	out, err := run(t, "--project", dir, "login", "--token", "secret-token", "--url", "https://contracts.example.com/api")
	require.NoError(t, err)
	require.Contains(t, out, "config.yaml")

	cfg, err := config.NewConfig(dir)
	require.NoError(t, err)
	require.Equal(t, "secret-token", cfg.Token())
	require.Equal(t, "https://contracts.example.com/api", cfg.BaseURL())
}

func TestLoginRequiresAFlag(t *testing.T) {
	dir := isolate(t)
	_, err := run(t, "--project", dir, "login")
	require.ErrorContains(t, err, "nothing to update")
}

func TestDraftsListAndDelete(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, config.InitProjectDir(dir))
	cfg, err := config.NewConfig(dir)
	require.NoError(t, err)
	repo, err := draft.Open(cfg.DraftsPath())
	require.NoError(t, err)
	st := wizard.InitialState()
	st.UserInput = "Freelance design agreement for the spring campaign"
	require.NoError(t, repo.Save(draft.Draft{ID: "d-42", State: st}))
	require.NoError(t, repo.Close())

	out, err := run(t, "--project", dir, "drafts")
	require.NoError(t, err)
	require.Contains(t, out, "d-42")
	require.Contains(t, out, "Freelance design")

	out, err = run(t, "--project", dir, "drafts", "delete", "d-42")
	require.NoError(t, err)
	require.Contains(t, out, "Deleted draft d-42")

	out, err = run(t, "--project", dir, "drafts")
	require.NoError(t, err)
	require.Contains(t, out, "No saved drafts.")
}

func TestStatusRendersContract(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v2/contracts/{id}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "id") != "c-9" {
			respond(w, http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		respond(w, http.StatusOK, contract.Contract{
			ID:     "c-9",
			Status: contract.StatusPartiallySigned,
			Details: contract.Details{
				Title:       "Office lease",
				FirstParty:  contract.Party{Name: "Ada"},
				SecondParty: contract.Party{Name: "Grace"},
			},
			Signatures:         []contract.Signature{{Party: "first_party", SignedAt: time.Now()}},
			RequiredSignatures: 2,
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	dir := isolate(t)
	t.Setenv("CONTRACTWIZARD_API_URL", srv.URL+"/api")

	out, err := run(t, "--project", dir, "status", "c-9")
	require.NoError(t, err)
	require.Contains(t, out, "Office lease")
	require.Contains(t, out, contract.StatusPartiallySigned.FriendlyName())
	require.Contains(t, out, "Ada ↔ Grace")

	_, err = run(t, "--project", dir, "status", "missing")
	require.EqualError(t, err, "That item no longer exists.")
}

func TestNotificationsMarkRead(t *testing.T) {
	var marked atomic.Int32
	r := chi.NewRouter()
	r.Get("/api/v2/notifications", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, map[string]any{
			"notifications": []contract.Notification{
				{ID: "n-1", Title: "Witness confirmed", ContractID: "c-1"},
				{ID: "n-2", Title: "Contract sent", Read: true},
			},
			"unread_count": 1,
		})
	})
	r.Post("/api/v2/notifications/{id}/read", func(w http.ResponseWriter, _ *http.Request) {
		marked.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	dir := isolate(t)
	t.Setenv("CONTRACTWIZARD_API_URL", srv.URL+"/api")

	out, err := run(t, "--project", dir, "notifications", "--mark-read")
	require.NoError(t, err)
	require.Contains(t, out, "● Witness confirmed [c-1]")
	require.Contains(t, out, "1 unread")
	require.Contains(t, out, "Marked 1 as read")
	require.EqualValues(t, 1, marked.Load())
}

func TestFormatEvent(t *testing.T) {
	evt := eventbridge.Event{
		Type:       eventbridge.TypeStatusChanged,
		ContractID: "c-1",
		Status:     contract.StatusFullySigned,
		OccurredAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.Local),
	}
	line := formatEvent(evt)
	require.Contains(t, line, "09:30:00")
	require.Contains(t, line, eventbridge.TypeStatusChanged)
	require.Contains(t, line, contract.StatusFullySigned.FriendlyName())
}
