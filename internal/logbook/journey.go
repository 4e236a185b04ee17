package logbook

import (
	"sync"

	"github.com/kingrea/contract-wizard/internal/wizard"
)

// Journey returns a store listener that records the user-visible milestones
// of a draft: step changes, status changes, errors and success notices.
// from is the store's state at subscription, so the first dispatch is
// compared against it.
func Journey(book *Logbook, from wizard.State) wizard.Listener {
	var (
		mu   sync.Mutex
		last = from
	)
	return func(next wizard.State) {
		mu.Lock()
		defer mu.Unlock()
		before := last
		last = next

		if next.CurrentStep != before.CurrentStep {
			if info, ok := wizard.Step(next.CurrentStep); ok {
				book.Info("step %d/%d: %s", info.Number, next.TotalSteps, info.Title)
			}
		}
		if next.SelectedTemplate != nil && (before.SelectedTemplate == nil || before.SelectedTemplate.ID != next.SelectedTemplate.ID) {
			book.Info("template selected: %s", next.SelectedTemplate.Name)
		}
		if next.ContractID() != "" && next.ContractID() != before.ContractID() {
			book.Info("contract created: %s", next.ContractID())
		}
		if next.Status() != before.Status() && next.ContractID() != "" {
			book.Info("status: %s", next.Status().FriendlyName())
		}
		if next.Error != "" && next.Error != before.Error {
			book.Error("%s", next.Error)
		}
		if next.Success != "" && next.Success != before.Success {
			book.Info("%s", next.Success)
		}
		if before.CurrentContract != nil && next.CurrentContract == nil && next.CurrentStep == 1 {
			book.Warn("draft reset")
		}
	}
}
