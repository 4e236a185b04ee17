// internal/contract/status.go
//
// Contract lifecycle statuses mirror the backend enum. The wizard never
// invents a status; it only reads what the backend returns and ranks it to
// decide how far the draft has progressed.

package contract

import (
	"fmt"
	"strings"
)

// Status is the server-authoritative lifecycle state of a contract.
type Status string

const (
	StatusDraft                    Status = "draft"
	StatusTemplateSelected         Status = "template_selected"
	StatusDetailsPending           Status = "details_pending"
	StatusDetailsCompleted         Status = "details_completed"
	StatusClausesGenerating        Status = "clauses_generating"
	StatusMandatoryClausesPending  Status = "mandatory_clauses_pending"
	StatusMandatoryClausesApproved Status = "mandatory_clauses_approved"
	StatusOptionalClausesPending   Status = "optional_clauses_pending"
	StatusOptionalClausesReviewed  Status = "optional_clauses_reviewed"
	StatusRecipientsPending        Status = "recipients_pending"
	StatusWitnessesPending         Status = "witnesses_pending"
	StatusReadyForReview           Status = "ready_for_review"
	StatusAIReviewInProgress       Status = "ai_review_in_progress"
	StatusAIReviewCompleted        Status = "ai_review_completed"
	StatusPDFGenerated             Status = "pdf_generated"
	StatusSentForSignature         Status = "sent_for_signature"
	StatusPartiallySigned          Status = "partially_signed"
	StatusFullySigned              Status = "fully_signed"
	StatusCompleted                Status = "completed"
	StatusCancelled                Status = "cancelled"
	StatusExpired                  Status = "expired"
	StatusRejected                 Status = "rejected"
)

// lifecycle lists non-terminal statuses in the order the backend walks them.
var lifecycle = []Status{
	StatusDraft,
	StatusTemplateSelected,
	StatusDetailsPending,
	StatusDetailsCompleted,
	StatusClausesGenerating,
	StatusMandatoryClausesPending,
	StatusMandatoryClausesApproved,
	StatusOptionalClausesPending,
	StatusOptionalClausesReviewed,
	StatusRecipientsPending,
	StatusWitnessesPending,
	StatusReadyForReview,
	StatusAIReviewInProgress,
	StatusAIReviewCompleted,
	StatusPDFGenerated,
	StatusSentForSignature,
	StatusPartiallySigned,
	StatusFullySigned,
	StatusCompleted,
}

var terminal = map[Status]struct{}{
	StatusCancelled: {},
	StatusExpired:   {},
	StatusRejected:  {},
}

// AllStatuses returns every known status, lifecycle first then terminal ones.
func AllStatuses() []Status {
	out := make([]Status, 0, len(lifecycle)+len(terminal))
	out = append(out, lifecycle...)
	out = append(out, StatusCancelled, StatusExpired, StatusRejected)
	return out
}

// ParseStatus normalizes a raw backend value. Unknown values are rejected so
// callers notice enum drift instead of silently ranking it as a draft.
func ParseStatus(raw string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range AllStatuses() {
		if s == candidate {
			return s, nil
		}
	}
	return "", fmt.Errorf("contract: unknown status %q", raw)
}

// Rank returns the position of the status in the lifecycle. Terminal and
// unknown statuses rank -1.
func (s Status) Rank() int {
	for i, candidate := range lifecycle {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether the contract can no longer progress.
func (s Status) Terminal() bool {
	_, ok := terminal[s]
	return ok
}

// AtLeast reports whether s has progressed to or past other.
func (s Status) AtLeast(other Status) bool {
	if s.Terminal() {
		return false
	}
	r := s.Rank()
	return r >= 0 && r >= other.Rank()
}

// Signed reports whether every required signature has been collected.
func (s Status) Signed() bool {
	return s == StatusFullySigned || s == StatusCompleted
}

// FriendlyName renders the status for humans.
func (s Status) FriendlyName() string {
	if s == "" {
		return "Not created"
	}
	if s == StatusAIReviewInProgress {
		return "AI review in progress"
	}
	if s == StatusAIReviewCompleted {
		return "AI review completed"
	}
	if s == StatusPDFGenerated {
		return "PDF generated"
	}
	words := strings.Fields(strings.ReplaceAll(string(s), "_", " "))
	if len(words) == 0 {
		return "Unknown"
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}
