// Package credits is the core of the SDK: it orchestrates the dual-mode
// bootstrap (embedded behind a hosting parent, or standalone against the
// backend), the token lifecycle, and the credit, organization and persona
// operations.
package credits

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/agents"
	"github.com/developersupreme/supreme-ai-sdk-sub000/auth"
	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/developersupreme/supreme-ai-sdk-sub000/events"
	"github.com/developersupreme/supreme-ai-sdk-sub000/personas"
	"github.com/developersupreme/supreme-ai-sdk-sub000/rest"
	"github.com/developersupreme/supreme-ai-sdk-sub000/sessions"
	"github.com/developersupreme/supreme-ai-sdk-sub000/storage"
	"github.com/developersupreme/supreme-ai-sdk-sub000/token"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Dependencies are the external collaborators of a Client. Every field has an
// in-memory default, so tests and standalone hosts can construct a client
// from a Config alone.
type Dependencies struct {
	// Transport links the client to a hosting parent. Nil restricts the
	// client to standalone mode.
	Transport channel.Transport
	// Store backs the persisted session. Defaults to an in-memory store.
	Store storage.KeyValue
	// Cookies backs the organization and persona cookies. Defaults to an
	// in-memory jar.
	Cookies storage.CookieJar
	// HTTPClient overrides the HTTP client of all backend services.
	HTTPClient *http.Client
}

// Client is one independent SDK instance. All public operations are safe for
// concurrent use; event handlers run synchronously on the goroutine that
// triggered them.
type Client struct {
	cfg     Config
	logger  zerolog.Logger
	emitter *events.Emitter
	ch      *channel.Channel
	store   *sessions.Store
	jar     storage.CookieJar
	authSvc *auth.Service

	api            *rest.Client
	personasClient *personas.Client
	agentsClient   *agents.Client

	mu            sync.Mutex
	state         State
	mode          Mode
	initialized   bool
	authenticated bool
	accessToken   string
	user          *users.User
	balance       int64
	personaList   []users.Persona
	destroyed     bool
	refreshStop   chan struct{}
	balanceStop   chan struct{}

	refreshing  atomic.Bool
	controlSubs []*channel.Subscription
}

// ReadyEvent is the payload of EventReady.
type ReadyEvent struct {
	User *users.User
	Mode Mode
}

// New constructs a client. The client does nothing until Initialize is
// called; construction and initialization are separate so hosts control when
// the bootstrap network traffic happens.
func New(cfg Config, deps Dependencies) (*Client, error) {
	if err := cfg.normalize(); err != nil {
		return nil, errors.Wrap(err, "[New]")
	}
	logger := cfg.logger()

	kv := deps.Store
	if kv == nil {
		kv = storage.NewMemory()
	}
	jar := deps.Cookies
	if jar == nil {
		jar = storage.NewMemoryJar()
	}

	authOpts := []auth.Option{auth.WithLogger(logger)}
	if deps.HTTPClient != nil {
		authOpts = append(authOpts, auth.WithHTTPClient(deps.HTTPClient))
	}
	authSvc, err := auth.NewService(cfg.AuthURL, authOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "[New] auth service")
	}

	c := &Client{
		cfg:     cfg,
		logger:  logger,
		emitter: events.NewEmitter(logger),
		store:   sessions.NewStore(storage.NewPrefixed(kv, cfg.StoragePrefix)),
		jar:     jar,
		authSvc: authSvc,
		state:   StateUninitialized,
	}

	if err := c.buildAPIClients(deps.HTTPClient); err != nil {
		return nil, err
	}

	if deps.Transport != nil {
		allowed := cfg.AllowedOrigins
		if allowed == nil {
			allowed = []string{deps.Transport.Origin()}
		}
		c.ch = channel.New(deps.Transport, channel.Options{
			AllowedOrigins: allowed,
			Logger:         logger,
		})
		if c.ch.IsChild() {
			c.subscribeControlCommands()
		}
	}

	return c, nil
}

// On registers an event handler. See the Event* constants for names.
func (c *Client) On(event string, handler events.Handler) *events.Subscription {
	return c.emitter.On(event, handler)
}

// Off removes an event handler.
func (c *Client) Off(sub *events.Subscription) {
	c.emitter.Off(sub)
}

// Initialize runs the bootstrap sequence. It is idempotent: any call after
// the first is a no-op, regardless of the state the first call resolved to.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return errors.Wrap(ErrDestroyed, "[Client.Initialize]")
	}
	if c.state != StateUninitialized {
		c.mu.Unlock()
		return nil
	}
	c.state = StateModeDetecting

	mode := c.cfg.Mode
	if mode == ModeAuto {
		if c.ch != nil && c.ch.IsChild() {
			mode = ModeEmbedded
		} else {
			mode = ModeStandalone
		}
	}
	if mode == ModeEmbedded && c.ch == nil {
		c.mu.Unlock()
		return errors.New("[Client.Initialize] embedded mode requires a transport")
	}
	c.mode = mode
	c.mu.Unlock()

	c.logger.Debug().Str("mode", string(mode)).Msg("credits: mode resolved")

	if mode == ModeEmbedded {
		return c.initializeEmbedded(ctx)
	}
	return c.initializeStandalone(ctx)
}

// embeddedOutcome is the single decision of the embedded bootstrap race:
// either the parent's token response or the timeout, never both.
type embeddedOutcome struct {
	resp     *channel.TokenResponse
	timedOut bool
}

func (c *Client) initializeEmbedded(ctx context.Context) error {
	c.setState(StateEmbeddedWaiting)

	decided := make(chan embeddedOutcome, 1)
	var once sync.Once
	commit := func(o embeddedOutcome) {
		once.Do(func() { decided <- o })
	}

	sub := c.ch.Subscribe(channel.TypeTokenResponse, func(m channel.Message) {
		resp, ok := m.Payload.(*channel.TokenResponse)
		if !ok {
			return
		}
		commit(embeddedOutcome{resp: resp})
	})
	timer := time.AfterFunc(c.cfg.ParentTimeout, func() {
		commit(embeddedOutcome{timedOut: true})
	})

	if err := c.ch.SendToParent(&channel.RequestToken{Origin: c.ch.Origin()}); err != nil {
		c.logger.Debug().Err(err).Msg("credits: token request not sent, falling back")
		commit(embeddedOutcome{timedOut: true})
	}

	var outcome embeddedOutcome
	select {
	case outcome = <-decided:
	case <-ctx.Done():
		commit(embeddedOutcome{timedOut: true})
		timer.Stop()
		c.ch.Unsubscribe(sub)
		return errors.Wrap(ctx.Err(), "[Client.initializeEmbedded] wait for parent")
	}

	// Neutralize whichever of the two racers lost. A late parent response
	// has no subscriber anymore and is ignored.
	timer.Stop()
	c.ch.Unsubscribe(sub)

	switch {
	case outcome.timedOut:
		c.logger.Debug().Dur("timeout", c.cfg.ParentTimeout).Msg("credits: parent did not respond, falling back to standalone")
		return c.initializeStandalone(ctx)
	case outcome.resp.Error != "" || outcome.resp.Token == "":
		c.logger.Debug().Str("error", outcome.resp.Error).Msg("credits: parent has no token, falling back to standalone")
		c.emitter.Emit(EventAuthRequired, "parent has no token")
		return c.initializeStandalone(ctx)
	default:
		return c.adoptParentToken(ctx, outcome.resp)
	}
}

// adoptParentToken treats a parent token handoff as a successful
// authentication: any organization, persona and role data accompanying the
// token is merged into the user record before the session is persisted.
func (c *Client) adoptParentToken(ctx context.Context, resp *channel.TokenResponse) error {
	user := resp.User
	if user != nil {
		if len(resp.Organizations) > 0 {
			user.Organizations = resp.Organizations
		}
		if resp.Organization != nil {
			if !user.HasOrganization(resp.Organization.ID) {
				user.Organizations = append(user.Organizations, *resp.Organization)
			}
			user.SelectOrganization(resp.Organization.ID)
		}
		if user.SelectedOrganization() == nil && len(user.Organizations) > 0 {
			user.Organizations[0].SelectedStatus = true
		}
		if len(resp.Personas) > 0 {
			user.Personas = resp.Personas
		}
		if len(resp.UserRoleIDs) > 0 {
			user.UserRoleIDs = resp.UserRoleIDs
		}
	}

	session := &sessions.Session{
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
		User:         user,
	}
	if err := c.store.Save(session); err != nil {
		c.logger.Debug().Err(err).Msg("credits: session not persisted")
	}

	c.mu.Lock()
	c.accessToken = resp.Token
	c.user = user
	c.authenticated = true
	c.mu.Unlock()

	if selected := user.SelectedOrganization(); selected != nil {
		c.jar.Set(storage.SelectedOrgCookie, selected.ID.String(), orgCookieTTL)
	}

	return c.finalizeReady(ctx)
}

func (c *Client) initializeStandalone(ctx context.Context) error {
	c.setState(StateCheckingSession)

	session, err := c.store.Load()
	if err != nil {
		c.logger.Debug().Err(err).Msg("credits: discarding corrupt session")
	}
	if session == nil || session.Token == "" {
		return c.resolveAuthRequired("no stored session")
	}

	c.mu.Lock()
	c.accessToken = session.Token
	c.user = session.User
	c.mu.Unlock()

	valid := false
	if !token.IsExpired(session.Token, 0) {
		valid, err = c.authSvc.Validate(ctx, session.Token)
		if err != nil {
			c.logger.Debug().Err(err).Msg("credits: token validation failed")
		}
	}
	if valid {
		c.mu.Lock()
		c.authenticated = true
		c.mu.Unlock()
		return c.finalizeReady(ctx)
	}

	if session.RefreshToken == "" {
		return c.resolveAuthRequired("session expired")
	}
	if err := c.refreshToken(ctx); err != nil {
		return c.resolveAuthRequired("token refresh failed")
	}
	c.mu.Lock()
	c.authenticated = true
	c.mu.Unlock()
	return c.finalizeReady(ctx)
}

// resolveAuthRequired lands the bootstrap in the auth-required state. Auth
// failures never crash initialization; the host is signalled to show a login
// UI and Login picks it up from there.
func (c *Client) resolveAuthRequired(reason string) error {
	c.mu.Lock()
	c.state = StateAuthRequired
	c.authenticated = false
	c.mu.Unlock()

	c.logger.Debug().Str("reason", reason).Msg("credits: auth required")
	c.emitter.Emit(EventAuthRequired, reason)
	if c.cfg.OnAuthRequired != nil {
		c.cfg.OnAuthRequired(reason)
	}
	return nil
}

// finalizeReady is the single convergence point of both bootstrap paths.
func (c *Client) finalizeReady(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateReady
	c.initialized = true
	c.authenticated = true
	mode := c.mode
	user := c.user
	c.mu.Unlock()

	c.startRefreshLoop()

	if c.cfg.Features.Credits {
		if _, err := c.CheckBalance(ctx); err != nil {
			c.logger.Debug().Err(err).Msg("credits: initial balance fetch failed")
		}
		if !c.cfg.DisableBalanceRefresh {
			c.startBalanceLoop()
		}
	}

	if c.cfg.Features.Personas {
		c.loadPersonas(ctx)
	}

	c.emitter.Emit(EventReady, ReadyEvent{User: user, Mode: mode})
	if mode == ModeEmbedded {
		c.broadcast(&channel.SystemReady{User: user, Mode: string(mode)})
	}
	return nil
}

// Login authenticates with email and password; it is how a host leaves the
// auth-required state. A successful login persists the session and runs the
// same ready finalization as the bootstrap.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.LoginResult, error) {
	result, err := c.authSvc.Login(ctx, email, password)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Login]")
	}
	if !result.Success {
		return result, nil
	}

	session := &sessions.Session{
		Token:        result.Token,
		RefreshToken: result.RefreshToken,
		User:         result.User,
	}
	if err := c.store.Save(session); err != nil {
		c.logger.Debug().Err(err).Msg("credits: session not persisted")
	}

	c.mu.Lock()
	c.accessToken = result.Token
	c.user = result.User
	c.authenticated = true
	c.mu.Unlock()

	if err := c.finalizeReady(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// Logout invalidates the session server-side (best effort), clears all local
// state and resets the machine so Initialize can run again.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	accessToken := c.accessToken
	mode := c.mode
	c.mu.Unlock()

	if accessToken != "" {
		if err := c.authSvc.Logout(ctx, accessToken); err != nil {
			c.logger.Debug().Err(err).Msg("credits: server-side logout failed")
		}
	}

	c.stopTimers()
	c.store.Clear()

	c.mu.Lock()
	c.state = StateUninitialized
	c.initialized = false
	c.authenticated = false
	c.accessToken = ""
	c.user = nil
	c.balance = 0
	c.personaList = nil
	c.mu.Unlock()

	c.emitter.Emit(EventLogout, nil)
	if mode == ModeEmbedded {
		c.broadcast(&channel.Logout{})
	}
	return nil
}

// Destroy tears down timers, channel subscriptions and event handlers. The
// client is unusable afterwards.
func (c *Client) Destroy() {
	c.stopTimers()

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	subs := c.controlSubs
	c.controlSubs = nil
	c.mu.Unlock()

	if c.ch != nil {
		for _, sub := range subs {
			c.ch.Unsubscribe(sub)
		}
		if err := c.ch.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("credits: channel close failed")
		}
	}
	c.emitter.RemoveAll()
}

// subscribeControlCommands wires the parent's fire-and-forget control
// messages: balance refetch, status query, storage wipe.
func (c *Client) subscribeControlCommands() {
	c.controlSubs = append(c.controlSubs,
		c.ch.Subscribe(channel.TypeRefreshBalance, func(channel.Message) {
			if _, err := c.CheckBalance(context.Background()); err != nil {
				c.logger.Debug().Err(err).Msg("credits: commanded balance refresh failed")
			}
		}),
		c.ch.Subscribe(channel.TypeGetStatus, func(channel.Message) {
			c.mu.Lock()
			status := &channel.StatusResponse{
				Initialized:   c.initialized,
				Authenticated: c.authenticated,
				Mode:          string(c.mode),
				Balance:       c.balance,
			}
			c.mu.Unlock()
			if err := c.ch.SendToParent(status); err != nil {
				c.logger.Debug().Err(err).Msg("credits: status response not sent")
			}
		}),
		c.ch.Subscribe(channel.TypeClearStorage, func(channel.Message) {
			c.store.Clear()
			c.mu.Lock()
			c.authenticated = false
			c.accessToken = ""
			c.mu.Unlock()
			c.logger.Debug().Msg("credits: storage cleared on parent command")
		}),
	)
}

// broadcast posts a message to the parent, logging instead of failing:
// status broadcasts carry no response contract.
func (c *Client) broadcast(payload channel.Payload) {
	if c.ch == nil {
		return
	}
	if err := c.ch.SendToParent(payload); err != nil {
		c.logger.Debug().Err(err).Str("type", string(payload.MessageType())).Msg("credits: broadcast not sent")
	}
}

// State returns the current bootstrap state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the latched mode, empty before Initialize.
func (c *Client) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// IsInitialized reports whether a bootstrap reached the ready state.
func (c *Client) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// IsAuthenticated reports whether the client holds a live session.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// User returns the current user record, nil when unauthenticated.
func (c *Client) User() *users.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// Balance returns the last balance reported by the backend.
func (c *Client) Balance() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance
}

// Personas returns the personas loaded during finalization or the last
// unfiltered GetPersonas call.
func (c *Client) Personas() []users.Persona {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.personaList
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.logger.Debug().Stringer("state", s).Msg("credits: state transition")
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) currentMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}
