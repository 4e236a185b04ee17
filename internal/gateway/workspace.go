package gateway

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/contract-wizard/internal/contract"
)

// Workspace is everything the wizard needs to resume a contract.
type Workspace struct {
	Contract  *contract.Contract
	Clauses   []contract.Clause
	Witnesses []contract.Witness
}

// LoadWorkspace fetches the contract, its clauses and its witnesses in
// parallel. The first failure cancels the others and is returned.
func (c *Client) LoadWorkspace(ctx context.Context, contractID string) (Workspace, error) {
	if _, err := contractPath(contractID); err != nil {
		return Workspace{}, err
	}
	var ws Workspace
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		got, err := c.GetContract(gctx, contractID)
		ws.Contract = got
		return err
	})
	g.Go(func() error {
		got, err := c.ListClauses(gctx, contractID)
		ws.Clauses = got
		return err
	})
	g.Go(func() error {
		got, err := c.ListWitnesses(gctx, contractID)
		ws.Witnesses = got
		return err
	})
	if err := g.Wait(); err != nil {
		return Workspace{}, err
	}
	return ws, nil
}
