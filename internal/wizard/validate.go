package wizard

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kingrea/contract-wizard/internal/contract"
)

// ValidationError is a client-side check that blocks an action before any
// network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateUserInput checks the description submitted for template suggestion.
func ValidateUserInput(input string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(input))
	if n < MinUserInputLength {
		return &ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("needs at least %d characters (have %d)", MinUserInputLength, n),
		}
	}
	return nil
}

// ValidateDetails checks the fields needed before clauses can be drafted.
func ValidateDetails(d contract.Details) error {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return &ValidationError{Field: "title", Message: "is required"}
	case strings.TrimSpace(d.FirstParty.Name) == "":
		return &ValidationError{Field: "first party", Message: "name is required"}
	case strings.TrimSpace(d.SecondParty.Name) == "":
		return &ValidationError{Field: "second party", Message: "name is required"}
	case d.FirstParty.Email != "" && !contract.ValidEmail(strings.TrimSpace(d.FirstParty.Email)):
		return &ValidationError{Field: "first party", Message: "email is invalid"}
	case d.SecondParty.Email != "" && !contract.ValidEmail(strings.TrimSpace(d.SecondParty.Email)):
		return &ValidationError{Field: "second party", Message: "email is invalid"}
	case d.Value < 0:
		return &ValidationError{Field: "value", Message: "cannot be negative"}
	}
	return nil
}

// ValidateRecipient checks the contract recipient.
func ValidateRecipient(r contract.Recipient) error {
	if strings.TrimSpace(r.FullName) == "" {
		return &ValidationError{Field: "recipient", Message: "name is required"}
	}
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return &ValidationError{Field: "recipient", Message: "email is required"}
	}
	if !contract.ValidEmail(email) {
		return &ValidationError{Field: "recipient", Message: "email is invalid"}
	}
	return nil
}

// ValidateWitness checks a witness before an invite is sent.
func ValidateWitness(w contract.Witness, recipient contract.Recipient) error {
	if strings.TrimSpace(w.FullName) == "" {
		return &ValidationError{Field: "witness", Message: "name is required"}
	}
	email := strings.TrimSpace(w.Email)
	if !contract.ValidEmail(email) {
		return &ValidationError{Field: "witness", Message: "email is invalid"}
	}
	if strings.EqualFold(email, strings.TrimSpace(recipient.Email)) {
		return &ValidationError{Field: "witness", Message: "cannot be the recipient"}
	}
	return nil
}
