// Package parent implements the hosting side of the credit-system frame
// protocol: it answers the embedded SDK's token and user-state requests from
// a grant snapshot and surfaces the SDK's status broadcasts through
// callbacks.
package parent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TokenGrant is everything the parent hands the embedded SDK in one token
// response. Grants are treated as immutable snapshots; a refresh replaces the
// whole grant rather than mutating it.
type TokenGrant struct {
	Token         string
	RefreshToken  string
	User          *users.User
	Organization  *users.Organization
	Organizations []users.Organization
	Personas      []users.Persona
	UserRoleIDs   []int64
}

// TokenProvider produces the grant for a token request. Returning an error
// (or a nil grant) makes the adapter answer with an error-shaped token
// response instead of staying silent, so the child can fall back promptly
// rather than waiting out its timeout.
type TokenProvider func(ctx context.Context) (*TokenGrant, error)

// Options configures an Adapter. All callbacks are optional and run
// synchronously on the delivery goroutine.
type Options struct {
	AllowedOrigins []string
	Logger         zerolog.Logger

	OnReady         func(*channel.SystemReady)
	OnBalanceUpdate func(int64)
	OnCreditsSpent  func(*channel.CreditsSpent)
	OnCreditsAdded  func(*channel.CreditsAdded)
	OnTokenRefresh  func(token string)
	OnLogout        func()
	OnStatus        func(*channel.StatusResponse)
	OnError         func(*channel.ErrorNotice)
}

// Adapter is the parent end of the frame link.
type Adapter struct {
	ch       *channel.Channel
	logger   zerolog.Logger
	provider TokenProvider
	opts     Options

	mu    sync.Mutex
	grant *TokenGrant

	subs []*channel.Subscription
}

// New builds an adapter over the parent end of a transport and starts
// answering requests.
func New(transport channel.Transport, provider TokenProvider, opts Options) (*Adapter, error) {
	if provider == nil {
		return nil, errors.New("[parent.New] token provider is required")
	}
	if transport.IsChild() {
		return nil, errors.New("[parent.New] transport is the child end of the link")
	}

	a := &Adapter{
		logger:   opts.Logger,
		provider: provider,
		opts:     opts,
	}
	a.ch = channel.New(transport, channel.Options{
		AllowedOrigins: opts.AllowedOrigins,
		Logger:         opts.Logger,
	})
	a.subscribe()
	return a, nil
}

// Grant returns the last grant handed out, nil before the first token
// request.
func (a *Adapter) Grant() *TokenGrant {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.grant
}

// RefreshBalance commands the child to refetch its balance.
func (a *Adapter) RefreshBalance() error {
	return errors.Wrap(a.ch.Send(&channel.RefreshBalance{}), "[Adapter.RefreshBalance]")
}

// RequestStatus asks the child to report its status. The answer arrives via
// Options.OnStatus.
func (a *Adapter) RequestStatus() error {
	return errors.Wrap(a.ch.Send(&channel.GetStatus{}), "[Adapter.RequestStatus]")
}

// ClearStorage commands the child to wipe its persisted session.
func (a *Adapter) ClearStorage() error {
	return errors.Wrap(a.ch.Send(&channel.ClearStorage{}), "[Adapter.ClearStorage]")
}

// SendCustom posts a host-defined message to the child.
func (a *Adapter) SendCustom(name string, data json.RawMessage) error {
	return errors.Wrap(a.ch.Send(&channel.Custom{Name: name, Data: data}), "[Adapter.SendCustom]")
}

// Close tears down the channel and its transport.
func (a *Adapter) Close() error {
	for _, sub := range a.subs {
		a.ch.Unsubscribe(sub)
	}
	return a.ch.Close()
}

// send posts a response to the child, logging instead of failing: the child
// treats a missing answer as a timeout and falls back on its own.
func (a *Adapter) send(payload channel.Payload) {
	if err := a.ch.Send(payload); err != nil {
		a.logger.Debug().Err(err).Str("type", string(payload.MessageType())).Msg("parent: message not sent")
	}
}

func (a *Adapter) subscribe() {
	a.subs = append(a.subs,
		a.ch.Subscribe(channel.TypeRequestToken, func(m channel.Message) {
			a.answerTokenRequest()
		}),
		a.ch.Subscribe(channel.TypeRequestUserState, func(channel.Message) {
			grant := a.Grant()
			resp := &channel.UserStateResponse{}
			if grant == nil || grant.User == nil {
				resp.Error = "no user state available"
			} else {
				resp.UserState = grant.User
			}
			a.send(resp)
		}),
		a.ch.Subscribe(channel.TypeRequestUserOrgs, func(channel.Message) {
			grant := a.Grant()
			resp := &channel.UserOrgsResponse{}
			if grant == nil {
				resp.Error = "no organizations available"
			} else {
				resp.Organizations = grant.Organizations
			}
			a.send(resp)
		}),
		a.ch.Subscribe(channel.TypeRequestUserPersonas, func(channel.Message) {
			grant := a.Grant()
			resp := &channel.UserPersonasResponse{}
			if grant == nil {
				resp.Error = "no personas available"
			} else {
				resp.Personas = grant.Personas
			}
			a.send(resp)
		}),
		a.ch.Subscribe(channel.TypeTokenRefreshed, func(m channel.Message) {
			refreshed, ok := m.Payload.(*channel.TokenRefreshed)
			if !ok {
				return
			}
			a.adoptRefreshedToken(refreshed.Token)
			if a.opts.OnTokenRefresh != nil {
				a.opts.OnTokenRefresh(refreshed.Token)
			}
		}),
		a.ch.Subscribe(channel.TypeSystemReady, func(m channel.Message) {
			if ready, ok := m.Payload.(*channel.SystemReady); ok && a.opts.OnReady != nil {
				a.opts.OnReady(ready)
			}
		}),
		a.ch.Subscribe(channel.TypeBalanceUpdate, func(m channel.Message) {
			if update, ok := m.Payload.(*channel.BalanceUpdate); ok && a.opts.OnBalanceUpdate != nil {
				a.opts.OnBalanceUpdate(update.Balance)
			}
		}),
		a.ch.Subscribe(channel.TypeCreditsSpent, func(m channel.Message) {
			if spent, ok := m.Payload.(*channel.CreditsSpent); ok && a.opts.OnCreditsSpent != nil {
				a.opts.OnCreditsSpent(spent)
			}
		}),
		a.ch.Subscribe(channel.TypeCreditsAdded, func(m channel.Message) {
			if added, ok := m.Payload.(*channel.CreditsAdded); ok && a.opts.OnCreditsAdded != nil {
				a.opts.OnCreditsAdded(added)
			}
		}),
		a.ch.Subscribe(channel.TypeLogout, func(channel.Message) {
			a.mu.Lock()
			a.grant = nil
			a.mu.Unlock()
			if a.opts.OnLogout != nil {
				a.opts.OnLogout()
			}
		}),
		a.ch.Subscribe(channel.TypeStatusResponse, func(m channel.Message) {
			if status, ok := m.Payload.(*channel.StatusResponse); ok && a.opts.OnStatus != nil {
				a.opts.OnStatus(status)
			}
		}),
		a.ch.Subscribe(channel.TypeError, func(m channel.Message) {
			if notice, ok := m.Payload.(*channel.ErrorNotice); ok && a.opts.OnError != nil {
				a.opts.OnError(notice)
			}
		}),
	)
}

// answerTokenRequest answers exactly once per request: a success response
// carrying the grant, or an error response when the provider has none.
// Silence is never an option, the child should not have to wait out its
// timeout to learn there is no token.
func (a *Adapter) answerTokenRequest() {
	grant, err := a.provider(context.Background())
	if err != nil || grant == nil || grant.Token == "" {
		reason := "no token available"
		if err != nil {
			reason = err.Error()
		}
		a.logger.Debug().Str("reason", reason).Msg("parent: token request refused")
		a.send(&channel.TokenResponse{Error: reason})
		return
	}

	a.mu.Lock()
	a.grant = grant
	a.mu.Unlock()

	a.send(&channel.TokenResponse{
		Token:         grant.Token,
		RefreshToken:  grant.RefreshToken,
		User:          grant.User,
		Organization:  grant.Organization,
		Organizations: grant.Organizations,
		Personas:      grant.Personas,
		UserRoleIDs:   grant.UserRoleIDs,
	})
}

// adoptRefreshedToken replaces the grant snapshot with one carrying the new
// token.
func (a *Adapter) adoptRefreshedToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.grant == nil {
		return
	}
	updated := *a.grant
	updated.Token = token
	a.grant = &updated
}
