package credits

import (
	"context"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/developersupreme/supreme-ai-sdk-sub000/storage"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
)

// orgCookieTTL matches the backend's 30-day organization cookie.
const orgCookieTTL = 30 * 24 * time.Hour

// SwitchResult reports the outcome of an organization switch.
type SwitchResult struct {
	Organization *users.Organization
	// AlreadySelected marks the distinct no-op success of switching to the
	// organization that was already current.
	AlreadySelected bool
}

// CurrentOrganization returns a copy of the currently selected organization,
// or nil when none is resolvable from the user record.
func (c *Client) CurrentOrganization() *users.Organization {
	c.mu.Lock()
	defer c.mu.Unlock()
	selected := c.user.SelectedOrganization()
	if selected == nil {
		return nil
	}
	copied := *selected
	return &copied
}

// resolveOrganizationID resolves the current organization in priority order:
// the selected entry of the in-memory user record, then the same-origin
// cookie, and otherwise fails.
func (c *Client) resolveOrganizationID() (users.ID, error) {
	c.mu.Lock()
	selected := c.user.SelectedOrganization()
	c.mu.Unlock()
	if selected != nil {
		return selected.ID, nil
	}
	if value, ok := c.jar.Get(storage.SelectedOrgCookie); ok && value != "" {
		return users.ID(value), nil
	}
	return "", ErrNoOrganizationSelected
}

// SwitchOrganization makes the given organization current. The switch itself
// is local and synchronous: it updates the user record, the persisted
// session and the organization cookie without a network call, then triggers
// one balance refresh since the balance is organization-scoped.
func (c *Client) SwitchOrganization(ctx context.Context, id users.ID) (*SwitchResult, error) {
	if !c.IsAuthenticated() {
		return nil, errors.Wrap(ErrNotAuthenticated, "[Client.SwitchOrganization]")
	}

	c.mu.Lock()
	user := c.user
	if user == nil || len(user.Organizations) == 0 {
		c.mu.Unlock()
		return nil, errors.Wrap(ErrNoOrganizations, "[Client.SwitchOrganization]")
	}
	if current := user.SelectedOrganization(); current != nil && current.ID == id {
		copied := *current
		c.mu.Unlock()
		return &SwitchResult{Organization: &copied, AlreadySelected: true}, nil
	}
	selected := user.SelectOrganization(id)
	if selected == nil {
		c.mu.Unlock()
		return nil, errors.Wrapf(ErrOrganizationNotFound, "[Client.SwitchOrganization] id %s", id)
	}
	copied := *selected
	c.mu.Unlock()

	if session, err := c.store.Load(); err == nil && session != nil {
		session.User = user
		if err := c.store.Save(session); err != nil {
			c.logger.Debug().Err(err).Msg("credits: switched user not persisted")
		}
	}
	c.jar.Set(storage.SelectedOrgCookie, id.String(), orgCookieTTL)

	c.emitter.Emit(EventOrganizationSwitched, &copied)

	// Balance is organization-scoped; refetch once, best effort.
	if _, err := c.CheckBalance(ctx); err != nil {
		c.logger.Debug().Err(err).Msg("credits: post-switch balance refresh failed")
	}
	return &SwitchResult{Organization: &copied}, nil
}

// RequestUserOrgs asks the hosting parent for the user's organizations.
// Embedded mode only.
func (c *Client) RequestUserOrgs(ctx context.Context) ([]users.Organization, error) {
	msg, err := c.parentRoundTrip(ctx, &channel.RequestUserOrgs{}, channel.TypeUserOrgsResponse)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.RequestUserOrgs]")
	}
	resp, ok := msg.Payload.(*channel.UserOrgsResponse)
	if !ok {
		return nil, errors.New("[Client.RequestUserOrgs] unexpected payload")
	}
	if resp.Error != "" {
		return nil, errors.Errorf("[Client.RequestUserOrgs] %s", resp.Error)
	}
	return resp.Organizations, nil
}
