// Package draft persists in-progress wizard sessions so they can be resumed.
package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/kingrea/contract-wizard/internal/wizard"
)

// ErrDraftNotFound is returned when no draft exists for an ID.
var ErrDraftNotFound = errors.New("draft: not found")

const draftsBucket = "drafts"

// Draft is one persisted wizard session.
type Draft struct {
	ID      string       `json:"id"`
	State   wizard.State `json:"state"`
	SavedAt time.Time    `json:"saved_at"`
}

// Summary is the lightweight listing row for a draft.
type Summary struct {
	ID         string
	Title      string
	Step       int
	Completion int
	ContractID string
	Status     string
	SavedAt    time.Time
}

// Store persists drafts.
type Store interface {
	Save(Draft) error
	Load(id string) (Draft, error)
	List() ([]Summary, error)
	Delete(id string) error
}

// NewID returns a fresh draft identifier.
func NewID() string {
	return uuid.NewString()
}

// Repository is a bbolt-backed Store.
type Repository struct {
	db *bolt.DB
}

// Open opens (or creates) the drafts database at path.
func Open(path string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("draft: ensure dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("draft: %s is in use by another contractwizard process: %w", path, err)
		}
		return nil, fmt.Errorf("draft: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(draftsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("draft: create bucket: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close releases the database.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Save writes or replaces a draft.
func (r *Repository) Save(d Draft) error {
	d.ID = strings.TrimSpace(d.ID)
	if d.ID == "" {
		return fmt.Errorf("draft: id is required")
	}
	d.State.DraftID = d.ID
	if d.SavedAt.IsZero() {
		d.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("draft: encode %s: %w", d.ID, err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(draftsBucket)).Put([]byte(d.ID), data)
	})
}

// Load reads a draft by ID.
func (r *Repository) Load(id string) (Draft, error) {
	var d Draft
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(draftsBucket)).Get([]byte(id))
		if data == nil {
			return ErrDraftNotFound
		}
		return json.Unmarshal(data, &d)
	})
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return Draft{}, fmt.Errorf("draft %s: %w", id, ErrDraftNotFound)
		}
		return Draft{}, fmt.Errorf("draft: load %s: %w", id, err)
	}
	return d, nil
}

// List returns every draft, most recently saved first. Entries that fail to
// decode are skipped.
func (r *Repository) List() ([]Summary, error) {
	var out []Summary
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(draftsBucket)).ForEach(func(_, v []byte) error {
			var d Draft
			if err := json.Unmarshal(v, &d); err != nil {
				return nil
			}
			out = append(out, summarize(d))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("draft: list: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out, nil
}

// Delete removes a draft.
func (r *Repository) Delete(id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(draftsBucket))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("draft %s: %w", id, ErrDraftNotFound)
		}
		return bucket.Delete([]byte(id))
	})
}

func summarize(d Draft) Summary {
	s := Summary{
		ID:         d.ID,
		Step:       d.State.CurrentStep,
		Completion: d.State.ComputeCompletion(),
		ContractID: d.State.ContractID(),
		SavedAt:    d.SavedAt,
	}
	if status := d.State.Status(); status != "" {
		s.Status = status.FriendlyName()
	}
	switch {
	case d.State.CurrentContract != nil:
		s.Title = d.State.CurrentContract.Title()
	case d.State.SelectedTemplate != nil:
		s.Title = d.State.SelectedTemplate.Name
	default:
		s.Title = truncate(strings.TrimSpace(d.State.UserInput), 48)
	}
	if s.Title == "" {
		s.Title = "Untitled draft"
	}
	return s
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
