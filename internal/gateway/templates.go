package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kingrea/contract-wizard/internal/contract"
)

// SuggestResult is the response of the template suggestion endpoint.
type SuggestResult struct {
	Suggestions []contract.TemplateSuggestion `json:"suggestions"`
	AIUsage     *contract.AIUsage             `json:"ai_usage,omitempty"`
}

// SuggestTemplates asks the backend to rank templates for a free-text need.
func (c *Client) SuggestTemplates(ctx context.Context, description string) (SuggestResult, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return SuggestResult{}, fmt.Errorf("gateway: description is required")
	}
	var out SuggestResult
	err := c.do(ctx, http.MethodPost, "/templates/suggest", map[string]string{"user_input": description}, &out)
	return out, err
}

// ListTemplates returns every active template.
func (c *Client) ListTemplates(ctx context.Context) ([]contract.Template, error) {
	var out struct {
		Templates []contract.Template `json:"templates"`
	}
	if err := c.do(ctx, http.MethodGet, "/templates", nil, &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

// GetTemplate fetches a single template with its clause definitions.
func (c *Client) GetTemplate(ctx context.Context, id string) (*contract.Template, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("gateway: template id is required")
	}
	var out contract.Template
	if err := c.do(ctx, http.MethodGet, "/templates/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
