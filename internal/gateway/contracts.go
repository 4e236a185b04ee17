package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kingrea/contract-wizard/internal/contract"
)

// CreateContractRequest starts a contract from a template.
type CreateContractRequest struct {
	TemplateID string           `json:"template_id"`
	UserInput  string           `json:"user_input,omitempty"`
	Details    contract.Details `json:"details"`
}

// SignRequest records a party's signature.
type SignRequest struct {
	Party          string `json:"party"`
	SignerName     string `json:"signer_name"`
	SignerEmail    string `json:"signer_email"`
	TypedSignature string `json:"typed_signature"`
}

// ReviewResult is returned by the AI review endpoint.
type ReviewResult struct {
	Review   contract.Review    `json:"review"`
	Contract *contract.Contract `json:"contract,omitempty"`
	AIUsage  *contract.AIUsage  `json:"ai_usage,omitempty"`
}

func contractPath(id string, rest ...string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("gateway: contract id is required")
	}
	path := "/contracts/" + url.PathEscape(id)
	for _, part := range rest {
		path += "/" + part
	}
	return path, nil
}

// CreateContract creates a draft contract.
func (c *Client) CreateContract(ctx context.Context, req CreateContractRequest) (*contract.Contract, error) {
	if strings.TrimSpace(req.TemplateID) == "" {
		return nil, fmt.Errorf("gateway: template id is required")
	}
	var out contract.Contract
	if err := c.do(ctx, http.MethodPost, "/contracts", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetContract fetches the latest contract record.
func (c *Client) GetContract(ctx context.Context, id string) (*contract.Contract, error) {
	return c.contractCall(ctx, http.MethodGet, id, nil)
}

// UpdateContract replaces the contract details.
func (c *Client) UpdateContract(ctx context.Context, id string, details contract.Details) (*contract.Contract, error) {
	return c.contractCall(ctx, http.MethodPatch, id, map[string]any{"details": details})
}

// SetRecipient stores the counterparty who receives the contract.
func (c *Client) SetRecipient(ctx context.Context, id string, r contract.Recipient) (*contract.Contract, error) {
	return c.contractCall(ctx, http.MethodPut, id, r, "recipient")
}

// RequestReview runs the AI review and returns its findings.
func (c *Client) RequestReview(ctx context.Context, id string) (ReviewResult, error) {
	path, err := contractPath(id, "ai-review")
	if err != nil {
		return ReviewResult{}, err
	}
	var out ReviewResult
	err = c.do(ctx, http.MethodPost, path, nil, &out)
	return out, err
}

// GeneratePDF renders the contract document.
func (c *Client) GeneratePDF(ctx context.Context, id string) (*contract.Contract, error) {
	return c.contractCall(ctx, http.MethodPost, id, nil, "generate-pdf")
}

// SendContract sends the contract out for signature.
func (c *Client) SendContract(ctx context.Context, id string) (*contract.Contract, error) {
	return c.contractCall(ctx, http.MethodPost, id, nil, "send")
}

// SignContract records a signature.
func (c *Client) SignContract(ctx context.Context, id string, req SignRequest) (*contract.Contract, error) {
	if strings.TrimSpace(req.SignerName) == "" || strings.TrimSpace(req.TypedSignature) == "" {
		return nil, fmt.Errorf("gateway: signer name and typed signature are required")
	}
	return c.contractCall(ctx, http.MethodPost, id, req, "sign")
}

// CancelContract cancels a contract that has not been fully signed.
func (c *Client) CancelContract(ctx context.Context, id, reason string) (*contract.Contract, error) {
	return c.contractCall(ctx, http.MethodPost, id, map[string]string{"reason": strings.TrimSpace(reason)}, "cancel")
}

func (c *Client) contractCall(ctx context.Context, method, id string, body any, rest ...string) (*contract.Contract, error) {
	path, err := contractPath(id, rest...)
	if err != nil {
		return nil, err
	}
	var out contract.Contract
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
