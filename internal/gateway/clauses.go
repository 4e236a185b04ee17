package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kingrea/contract-wizard/internal/contract"
)

// GenerateClauseRequest asks the backend to draft a clause. Set ClauseKey for
// a template clause, or Custom plus Title and Instructions for a custom one.
type GenerateClauseRequest struct {
	ClauseKey    string `json:"clause_key,omitempty"`
	Title        string `json:"title,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Custom       bool   `json:"custom,omitempty"`
}

// ClauseResult carries a generated clause and the updated AI usage.
type ClauseResult struct {
	Clause  contract.Clause   `json:"clause"`
	AIUsage *contract.AIUsage `json:"ai_usage,omitempty"`
}

func clausePath(contractID, clauseID string, rest ...string) (string, error) {
	if strings.TrimSpace(clauseID) == "" {
		return "", fmt.Errorf("gateway: clause id is required")
	}
	return contractPath(contractID, append([]string{"clauses", url.PathEscape(clauseID)}, rest...)...)
}

// ListClauses returns all clauses attached to a contract.
func (c *Client) ListClauses(ctx context.Context, contractID string) ([]contract.Clause, error) {
	path, err := contractPath(contractID, "clauses")
	if err != nil {
		return nil, err
	}
	var out struct {
		Clauses []contract.Clause `json:"clauses"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Clauses, nil
}

// GenerateClause drafts a single clause with AI.
func (c *Client) GenerateClause(ctx context.Context, contractID string, req GenerateClauseRequest) (ClauseResult, error) {
	if req.ClauseKey == "" && !(req.Custom && strings.TrimSpace(req.Title) != "") {
		return ClauseResult{}, fmt.Errorf("gateway: clause key or custom title is required")
	}
	path, err := contractPath(contractID, "clauses", "generate")
	if err != nil {
		return ClauseResult{}, err
	}
	var out ClauseResult
	err = c.do(ctx, http.MethodPost, path, req, &out)
	return out, err
}

// UpdateClause replaces the clause text.
func (c *Client) UpdateClause(ctx context.Context, contractID, clauseID, content string) (*contract.Clause, error) {
	return c.clauseCall(ctx, http.MethodPatch, contractID, clauseID, map[string]string{"content": content})
}

// ApproveClause marks a clause approved by the first party.
func (c *Client) ApproveClause(ctx context.Context, contractID, clauseID string) (*contract.Clause, error) {
	return c.clauseCall(ctx, http.MethodPost, contractID, clauseID, nil, "approve")
}

// RejectClause excludes an optional clause from the contract.
func (c *Client) RejectClause(ctx context.Context, contractID, clauseID, reason string) (*contract.Clause, error) {
	return c.clauseCall(ctx, http.MethodPost, contractID, clauseID, map[string]string{"reason": reason}, "reject")
}

// RemoveClause deletes a clause. Callers drop it locally only after this succeeds.
func (c *Client) RemoveClause(ctx context.Context, contractID, clauseID string) error {
	path, err := clausePath(contractID, clauseID)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) clauseCall(ctx context.Context, method, contractID, clauseID string, body any, rest ...string) (*contract.Clause, error) {
	path, err := clausePath(contractID, clauseID, rest...)
	if err != nil {
		return nil, err
	}
	var out contract.Clause
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
