package credits

import (
	"context"

	"github.com/developersupreme/supreme-ai-sdk-sub000/agents"
	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/developersupreme/supreme-ai-sdk-sub000/personas"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
)

// GetPersonas lists personas. Unfiltered calls are cookie-first; filtered
// calls (organization and role together) always hit the API. The unfiltered
// result is cached on the client state.
func (c *Client) GetPersonas(ctx context.Context, opts personas.ListOptions) ([]users.Persona, error) {
	if !c.IsAuthenticated() {
		return nil, errors.Wrap(ErrNotAuthenticated, "[Client.GetPersonas]")
	}
	list, err := c.personasClient.List(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.GetPersonas]")
	}
	if opts == (personas.ListOptions{}) {
		c.mu.Lock()
		c.personaList = list
		c.mu.Unlock()
	}
	return list, nil
}

// GetPersona fetches a single persona by ID.
func (c *Client) GetPersona(ctx context.Context, id users.ID) (*users.Persona, error) {
	if !c.IsAuthenticated() {
		return nil, errors.Wrap(ErrNotAuthenticated, "[Client.GetPersona]")
	}
	persona, err := c.personasClient.Get(ctx, id)
	return persona, errors.Wrap(err, "[Client.GetPersona]")
}

// GetAgents lists AI agents. When no organization is given, the current one
// is resolved.
func (c *Client) GetAgents(ctx context.Context, opts agents.ListOptions) ([]agents.Agent, error) {
	if !c.IsAuthenticated() {
		return nil, errors.Wrap(ErrNotAuthenticated, "[Client.GetAgents]")
	}
	if opts.OrganizationID == "" {
		orgID, err := c.resolveOrganizationID()
		if err != nil {
			return nil, errors.Wrap(err, "[Client.GetAgents]")
		}
		opts.OrganizationID = orgID
	}
	list, err := c.agentsClient.List(ctx, opts)
	return list, errors.Wrap(err, "[Client.GetAgents]")
}

// RequestUserPersonas asks the hosting parent for the user's personas.
// Embedded mode only.
func (c *Client) RequestUserPersonas(ctx context.Context) ([]users.Persona, error) {
	msg, err := c.parentRoundTrip(ctx, &channel.RequestUserPersonas{}, channel.TypeUserPersonasResponse)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.RequestUserPersonas]")
	}
	resp, ok := msg.Payload.(*channel.UserPersonasResponse)
	if !ok {
		return nil, errors.New("[Client.RequestUserPersonas] unexpected payload")
	}
	if resp.Error != "" {
		return nil, errors.Errorf("[Client.RequestUserPersonas] %s", resp.Error)
	}
	return resp.Personas, nil
}

// loadPersonas runs the ready-finalization persona load: cookie first, API
// fallback, failures logged and swallowed.
func (c *Client) loadPersonas(ctx context.Context) {
	list, err := c.personasClient.List(ctx, personas.ListOptions{})
	if err != nil {
		c.logger.Debug().Err(err).Msg("credits: persona load failed")
		return
	}
	c.mu.Lock()
	c.personaList = list
	c.mu.Unlock()
	c.emitter.Emit(EventPersonasLoaded, list)
}
