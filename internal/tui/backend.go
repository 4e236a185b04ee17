package tui

import (
	"context"

	"github.com/kingrea/contract-wizard/internal/contract"
	"github.com/kingrea/contract-wizard/internal/gateway"
)

// Backend is the part of the gateway the wizard drives. *gateway.Client
// satisfies it.
type Backend interface {
	SuggestTemplates(ctx context.Context, description string) (gateway.SuggestResult, error)
	ListTemplates(ctx context.Context) ([]contract.Template, error)
	GetTemplate(ctx context.Context, id string) (*contract.Template, error)

	CreateContract(ctx context.Context, req gateway.CreateContractRequest) (*contract.Contract, error)
	GetContract(ctx context.Context, id string) (*contract.Contract, error)
	UpdateContract(ctx context.Context, id string, details contract.Details) (*contract.Contract, error)
	LoadWorkspace(ctx context.Context, id string) (gateway.Workspace, error)

	GenerateClause(ctx context.Context, contractID string, req gateway.GenerateClauseRequest) (gateway.ClauseResult, error)
	UpdateClause(ctx context.Context, contractID, clauseID, content string) (*contract.Clause, error)
	ApproveClause(ctx context.Context, contractID, clauseID string) (*contract.Clause, error)
	RejectClause(ctx context.Context, contractID, clauseID, reason string) (*contract.Clause, error)
	RemoveClause(ctx context.Context, contractID, clauseID string) error

	SetRecipient(ctx context.Context, id string, r contract.Recipient) (*contract.Contract, error)
	InviteWitness(ctx context.Context, contractID string, req gateway.InviteWitnessRequest) (*contract.Witness, error)
	ConfirmWitness(ctx context.Context, contractID, witnessID string) (*contract.Witness, error)
	RemoveWitness(ctx context.Context, contractID, witnessID string) error

	RequestReview(ctx context.Context, id string) (gateway.ReviewResult, error)
	GeneratePDF(ctx context.Context, id string) (*contract.Contract, error)
	SendContract(ctx context.Context, id string) (*contract.Contract, error)
	SignContract(ctx context.Context, id string, req gateway.SignRequest) (*contract.Contract, error)
	CancelContract(ctx context.Context, id, reason string) (*contract.Contract, error)
	DownloadDocument(ctx context.Context, rawURL string) ([]byte, error)

	ListNotifications(ctx context.Context, unreadOnly bool) (gateway.NotificationList, error)
	MarkNotificationRead(ctx context.Context, id string) error
	AIUsage(ctx context.Context) (contract.AIUsage, error)
}

var _ Backend = (*gateway.Client)(nil)
