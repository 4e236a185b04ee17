package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kingrea/contract-wizard/internal/contract"
)

// InviteWitnessRequest invites a witness to a contract.
type InviteWitnessRequest struct {
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	PresenceRequired bool   `json:"presence_required"`
}

func witnessPath(contractID, witnessID string, rest ...string) (string, error) {
	if strings.TrimSpace(witnessID) == "" {
		return "", fmt.Errorf("gateway: witness id is required")
	}
	return contractPath(contractID, append([]string{"witnesses", url.PathEscape(witnessID)}, rest...)...)
}

// ListWitnesses returns the contract's witnesses.
func (c *Client) ListWitnesses(ctx context.Context, contractID string) ([]contract.Witness, error) {
	path, err := contractPath(contractID, "witnesses")
	if err != nil {
		return nil, err
	}
	var out struct {
		Witnesses []contract.Witness `json:"witnesses"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Witnesses, nil
}

// InviteWitness adds a witness and emails the invitation.
func (c *Client) InviteWitness(ctx context.Context, contractID string, req InviteWitnessRequest) (*contract.Witness, error) {
	path, err := contractPath(contractID, "witnesses")
	if err != nil {
		return nil, err
	}
	var out contract.Witness
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmWitness marks a witness as confirmed.
func (c *Client) ConfirmWitness(ctx context.Context, contractID, witnessID string) (*contract.Witness, error) {
	path, err := witnessPath(contractID, witnessID, "confirm")
	if err != nil {
		return nil, err
	}
	var out contract.Witness
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveWitness deletes a witness.
func (c *Client) RemoveWitness(ctx context.Context, contractID, witnessID string) error {
	path, err := witnessPath(contractID, witnessID)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
