// Package agents fetches AI agent records scoped to an organization.
package agents

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/developersupreme/supreme-ai-sdk-sub000/rest"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
)

// Agent is a single AI agent record.
type Agent struct {
	ID          users.ID `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	RoleID      *int64   `json:"role_id,omitempty"`
}

// Client lists agents.
type Client struct {
	api *rest.Client
}

// NewClient creates an agent client. The rest client's base URL should be the
// API root (the agents endpoint is not under the credits prefix).
func NewClient(api *rest.Client) *Client {
	return &Client{api: api}
}

// ListOptions scopes an agent listing. Either All or RoleIDs must be set.
type ListOptions struct {
	OrganizationID users.ID
	// All requests every agent of the organization.
	All bool
	// RoleIDs limits the listing to agents for the given role IDs. Ignored
	// when All is set.
	RoleIDs []int64
}

// List fetches agents for an organization. The backend returns either a bare
// array, or an object keyed by role, which is flattened.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]Agent, error) {
	if opts.OrganizationID == "" {
		return nil, errors.New("[Client.List] organization id is required")
	}
	if !opts.All && len(opts.RoleIDs) == 0 {
		return nil, errors.New("[Client.List] either All or RoleIDs is required")
	}

	query := url.Values{}
	query.Set("organization_id", opts.OrganizationID.String())
	if opts.All {
		query.Set("all", "true")
	} else {
		ids := make([]string, len(opts.RoleIDs))
		for i, id := range opts.RoleIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		query.Set("role_ids", strings.Join(ids, ","))
	}

	res, err := c.api.Get(ctx, "/ai-agents?"+query.Encode())
	if err != nil {
		return nil, errors.Wrap(err, "[Client.List]")
	}
	if !res.Success {
		return nil, errors.Errorf("[Client.List] %s", res.Message)
	}
	return flatten(res.Data)
}

// flatten accepts either a JSON array of agents or an object whose values are
// agent arrays and returns a single flat slice.
func flatten(data json.RawMessage) ([]Agent, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var agents []Agent
		if err := json.Unmarshal(data, &agents); err != nil {
			return nil, errors.Wrap(err, "[flatten] agent array")
		}
		return agents, nil
	}

	var grouped map[string]json.RawMessage
	if err := json.Unmarshal(data, &grouped); err != nil {
		return nil, errors.Wrap(err, "[flatten] agent object")
	}
	agents := make([]Agent, 0)
	for _, raw := range grouped {
		value := strings.TrimSpace(string(raw))
		if value == "" || value[0] != '[' {
			continue
		}
		var group []Agent
		if err := json.Unmarshal(raw, &group); err != nil {
			return nil, errors.Wrap(err, "[flatten] agent group")
		}
		agents = append(agents, group...)
	}
	return agents, nil
}
