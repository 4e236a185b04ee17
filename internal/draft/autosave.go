package draft

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/contract-wizard/internal/wizard"
)

// Autosaver persists the latest wizard state after a quiet period. Every
// Touch re-arms the timer, so a burst of changes produces one write.
type Autosaver struct {
	store    Store
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
	onSaved  func(Draft)

	mu        sync.Mutex
	timer     *time.Timer
	pending   *wizard.State
	lastPrint []byte
	stopped   bool
}

// AutosaveOption customises an Autosaver.
type AutosaveOption func(*Autosaver)

// WithLogger attaches a diagnostic logger.
func WithLogger(l *zap.Logger) AutosaveOption {
	return func(a *Autosaver) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides the SavedAt timestamp source.
func WithClock(now func() time.Time) AutosaveOption {
	return func(a *Autosaver) {
		if now != nil {
			a.now = now
		}
	}
}

// OnSaved registers a callback run after each successful write.
func OnSaved(fn func(Draft)) AutosaveOption {
	return func(a *Autosaver) { a.onSaved = fn }
}

// NewAutosaver creates an Autosaver writing to store after interval of quiet.
func NewAutosaver(store Store, interval time.Duration, opts ...AutosaveOption) *Autosaver {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	a := &Autosaver{
		store:    store,
		interval: interval,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Listener adapts Touch to a store subscription.
func (a *Autosaver) Listener() wizard.Listener {
	return a.Touch
}

// Touch records the latest state and re-arms the save timer.
func (a *Autosaver) Touch(s wizard.State) {
	if !saveable(s) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	snapshot := s.Clone()
	a.pending = &snapshot
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.interval, func() {
		_, _ = a.Flush()
	})
}

// Flush saves any pending state immediately. It reports whether a write
// happened.
func (a *Autosaver) Flush() (bool, error) {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()
	if pending == nil {
		return false, nil
	}

	fp := fingerprint(*pending)
	a.mu.Lock()
	unchanged := fp != nil && bytes.Equal(fp, a.lastPrint)
	a.mu.Unlock()
	if unchanged {
		return false, nil
	}

	d := Draft{ID: pending.DraftID, State: *pending, SavedAt: a.now().UTC()}
	if err := a.store.Save(d); err != nil {
		a.logger.Warn("autosave failed", zap.String("draft_id", d.ID), zap.Error(err))
		return false, err
	}
	a.mu.Lock()
	a.lastPrint = fp
	a.mu.Unlock()
	a.logger.Debug("draft saved", zap.String("draft_id", d.ID), zap.Int("step", d.State.CurrentStep))
	if a.onSaved != nil {
		a.onSaved(d)
	}
	return true, nil
}

// Stop cancels the timer and flushes anything pending. Later Touch calls are
// ignored.
func (a *Autosaver) Stop() error {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
	_, err := a.Flush()
	return err
}

// saveable skips states with nothing worth resuming.
func saveable(s wizard.State) bool {
	if s.DraftID == "" {
		return false
	}
	return s.UserInput != "" || s.CurrentContract != nil || s.SelectedTemplate != nil
}

// fingerprint ignores LastSavedAt so recording a save does not trigger another.
func fingerprint(s wizard.State) []byte {
	s.LastSavedAt = time.Time{}
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	return data
}
