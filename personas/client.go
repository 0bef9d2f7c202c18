// Package personas fetches persona records, preferring a same-origin cookie
// cache over the API when no filters are applied.
package personas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/developersupreme/supreme-ai-sdk-sub000/rest"
	"github.com/developersupreme/supreme-ai-sdk-sub000/storage"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrMissingFilterPair is returned when only one of the organization/role
// filter parameters is supplied. The API requires both or neither.
var ErrMissingFilterPair = errors.New("organization and role filters must be provided together")

// Client lists and fetches personas.
type Client struct {
	api    *rest.Client
	jar    storage.CookieJar
	logger zerolog.Logger
}

// NewClient creates a persona client. jar may be nil, disabling the cookie
// fast path.
func NewClient(api *rest.Client, jar storage.CookieJar, logger zerolog.Logger) *Client {
	return &Client{api: api, jar: jar, logger: logger}
}

// ListOptions filters a persona listing. OrganizationID and RoleID must be
// supplied together; setting them bypasses the cookie cache.
type ListOptions struct {
	OrganizationID users.ID
	RoleID         *int64
}

func (o ListOptions) filtered() bool {
	return o.OrganizationID != "" || o.RoleID != nil
}

func (o ListOptions) validate() error {
	if (o.OrganizationID == "") != (o.RoleID == nil) {
		return errors.Wrap(ErrMissingFilterPair, "[ListOptions.validate]")
	}
	return nil
}

// List returns personas. Unfiltered calls read the persona cookie first and
// only fall back to the API when the cookie is absent or empty; filtered
// calls always hit the API.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]users.Persona, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if !opts.filtered() {
		if cached, ok := c.fromCookie(); ok {
			return cached, nil
		}
	}

	path := "/personas/jwt/list"
	if opts.filtered() {
		query := url.Values{}
		query.Set("organization_id", opts.OrganizationID.String())
		query.Set("role_id", fmt.Sprintf("%d", *opts.RoleID))
		path += "?" + query.Encode()
	}

	res, err := c.api.Get(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.List]")
	}
	if !res.Success {
		return nil, errors.Errorf("[Client.List] %s", res.Message)
	}

	var personas []users.Persona
	if err := res.Decode(&personas); err != nil {
		return nil, errors.Wrap(err, "[Client.List]")
	}
	return personas, nil
}

// Get fetches a single persona by ID.
func (c *Client) Get(ctx context.Context, id users.ID) (*users.Persona, error) {
	if id == "" {
		return nil, errors.New("[Client.Get] persona id is required")
	}
	res, err := c.api.Get(ctx, "/get-persona/"+url.PathEscape(id.String()))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Get]")
	}
	if !res.Success {
		return nil, errors.Errorf("[Client.Get] %s", res.Message)
	}
	var persona users.Persona
	if err := res.Decode(&persona); err != nil {
		return nil, errors.Wrap(err, "[Client.Get]")
	}
	return &persona, nil
}

// fromCookie reads the URL-encoded persona cookie. Malformed or empty values
// fall through to the API.
func (c *Client) fromCookie() ([]users.Persona, bool) {
	if c.jar == nil {
		return nil, false
	}
	raw, ok := c.jar.Get(storage.PersonasCookie)
	if !ok || raw == "" {
		return nil, false
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		c.logger.Debug().Err(err).Msg("personas: undecodable cookie, falling back to API")
		return nil, false
	}
	var personas []users.Persona
	if err := json.Unmarshal([]byte(decoded), &personas); err != nil {
		c.logger.Debug().Err(err).Msg("personas: malformed cookie JSON, falling back to API")
		return nil, false
	}
	if len(personas) == 0 {
		return nil, false
	}
	return personas, true
}
