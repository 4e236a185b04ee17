package contract

import (
	"strings"
	"time"
)

// ClauseDefinition is a template's description of a clause the backend can
// draft on request.
type ClauseDefinition struct {
	Key         string `json:"clause_key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// LegalMetadata captures the template's legal requirements.
type LegalMetadata struct {
	Jurisdiction      string `json:"jurisdiction,omitempty"`
	GoverningLaw      string `json:"governing_law,omitempty"`
	RequiresWitnesses bool   `json:"requires_witnesses,omitempty"`
	MinWitnesses      int    `json:"min_witnesses,omitempty"`
	RequiresNotary    bool   `json:"requires_notary,omitempty"`
}

// Template is a server-defined contract blueprint.
type Template struct {
	ID               string             `json:"id"`
	ContractType     string             `json:"contract_type"`
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	MandatoryClauses []ClauseDefinition `json:"mandatory_clauses,omitempty"`
	OptionalClauses  []ClauseDefinition `json:"optional_clauses,omitempty"`
	Legal            LegalMetadata      `json:"legal_metadata"`
}

// RequiredWitnesses returns how many witnesses the template demands.
func (t *Template) RequiredWitnesses() int {
	if t == nil || !t.Legal.RequiresWitnesses {
		return 0
	}
	if t.Legal.MinWitnesses <= 0 {
		return 1
	}
	return t.Legal.MinWitnesses
}

// TemplateSuggestion pairs a template with the backend's confidence that it
// fits the user's description.
type TemplateSuggestion struct {
	Template   Template `json:"template"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// Party identifies one signing side of the contract.
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
	Address string `json:"address,omitempty"`
}

// Details are the user-supplied contract fields.
type Details struct {
	Title        string            `json:"title"`
	FirstParty   Party             `json:"first_party"`
	SecondParty  Party             `json:"second_party"`
	Value        float64           `json:"value,omitempty"`
	Currency     string            `json:"currency,omitempty"`
	StartDate    string            `json:"start_date,omitempty"`
	EndDate      string            `json:"end_date,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
}

// Complete reports whether the fields required to draft clauses are present.
func (d Details) Complete() bool {
	return strings.TrimSpace(d.Title) != "" &&
		strings.TrimSpace(d.FirstParty.Name) != "" &&
		strings.TrimSpace(d.SecondParty.Name) != ""
}

// Documents references backend-rendered artifacts.
type Documents struct {
	PDFURL       string `json:"pdf_url,omitempty"`
	SignedPDFURL string `json:"signed_pdf_url,omitempty"`
}

// Signature records one party's signing event.
type Signature struct {
	Party    string    `json:"party"`
	SignerID string    `json:"signer_id,omitempty"`
	SignedAt time.Time `json:"signed_at"`
}

// Contract is the server-authoritative contract record.
type Contract struct {
	ID                   string      `json:"id"`
	TemplateID           string      `json:"template_id"`
	ContractType         string      `json:"contract_type,omitempty"`
	Status               Status      `json:"status"`
	Details              Details     `json:"details"`
	CompletionPercentage int         `json:"completion_percentage,omitempty"`
	AIUsage              AIUsage     `json:"ai_usage"`
	Documents            Documents   `json:"documents"`
	Signatures           []Signature `json:"signatures,omitempty"`
	RequiredSignatures   int         `json:"required_signatures,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// Title returns the contract title, falling back to its ID.
func (c *Contract) Title() string {
	if c == nil {
		return ""
	}
	if t := strings.TrimSpace(c.Details.Title); t != "" {
		return t
	}
	return c.ID
}

// RiskLevel classifies an AI-generated clause.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Clause is one clause of the contract.
type Clause struct {
	ID                    string    `json:"id"`
	ClauseKey             string    `json:"clause_key"`
	Title                 string    `json:"title"`
	Content               string    `json:"content"`
	Mandatory             bool      `json:"mandatory"`
	Custom                bool      `json:"custom,omitempty"`
	Included              bool      `json:"included"`
	ApprovedByFirstParty  bool      `json:"approved_by_first_party"`
	ApprovedBySecondParty bool      `json:"approved_by_second_party"`
	Rejected              bool      `json:"rejected,omitempty"`
	ModificationCount     int       `json:"modification_count"`
	AIGenerated           bool      `json:"ai_generated,omitempty"`
	RiskLevel             RiskLevel `json:"risk_level,omitempty"`
}

// Decided reports whether the first party has approved or rejected the clause.
func (c Clause) Decided() bool {
	return c.ApprovedByFirstParty || c.Rejected
}

// WitnessStatus tracks a witness invitation.
type WitnessStatus string

const (
	WitnessInvited   WitnessStatus = "invited"
	WitnessConfirmed WitnessStatus = "confirmed"
	WitnessDeclined  WitnessStatus = "declined"
)

// Witness is a third party invited to attest to contract execution.
type Witness struct {
	ID               string        `json:"id"`
	FullName         string        `json:"full_name"`
	Email            string        `json:"email"`
	Phone            string        `json:"phone,omitempty"`
	Status           WitnessStatus `json:"status"`
	PresenceRequired bool          `json:"presence_required"`
	InvitedAt        time.Time     `json:"invited_at"`
	ConfirmedAt      *time.Time    `json:"confirmed_at,omitempty"`
}

// Recipient is the second party that receives the contract for signature.
type Recipient struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Company  string `json:"company,omitempty"`
	Role     string `json:"role,omitempty"`
}

// AIUsage holds the backend's AI counters for the current account or contract.
type AIUsage struct {
	Suggestions       int `json:"suggestions"`
	ClauseGenerations int `json:"clause_generations"`
	Reviews           int `json:"reviews"`
	TokensUsed        int `json:"tokens_used"`
	CostCents         int `json:"cost_cents"`
	Limit             int `json:"limit,omitempty"`
}

// Total returns the number of AI calls made.
func (u AIUsage) Total() int {
	return u.Suggestions + u.ClauseGenerations + u.Reviews
}

// Remaining returns how many AI calls are left, or -1 when unlimited.
func (u AIUsage) Remaining() int {
	if u.Limit <= 0 {
		return -1
	}
	if left := u.Limit - u.Total(); left > 0 {
		return left
	}
	return 0
}

// Finding is one issue raised by an AI review.
type Finding struct {
	Severity  RiskLevel `json:"severity"`
	ClauseKey string    `json:"clause_key,omitempty"`
	Message   string    `json:"message"`
}

// Review is the backend's AI compliance review of a contract.
type Review struct {
	Score    int       `json:"score"`
	Summary  string    `json:"summary"`
	Findings []Finding `json:"findings,omitempty"`
}

// Notification is a backend notification about a contract.
type Notification struct {
	ID         string    `json:"id"`
	ContractID string    `json:"contract_id,omitempty"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
