package parent_test

import (
	"context"
	"testing"

	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/developersupreme/supreme-ai-sdk-sub000/parent"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	parentOrigin = "https://host.example.com"
	childOrigin  = "https://credits.example.com"
)

type fixture struct {
	adapter *parent.Adapter
	child   *channel.Channel

	responses []channel.Message
}

func setup(t *testing.T, provider parent.TokenProvider, opts parent.Options) *fixture {
	t.Helper()
	parentEnd, childEnd := channel.NewPipe(parentOrigin, childOrigin)
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{childOrigin}
	}

	adapter, err := parent.New(parentEnd, provider, opts)
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	f := &fixture{
		adapter: adapter,
		child:   channel.New(childEnd, channel.Options{AllowedOrigins: []string{parentOrigin}}),
	}
	f.child.SubscribeAll(func(m channel.Message) {
		f.responses = append(f.responses, m)
	})
	return f
}

func testGrant() *parent.TokenGrant {
	return &parent.TokenGrant{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		User: &users.User{
			ID: "2",
			Organizations: []users.Organization{
				{ID: "5", Name: "Acme", SelectedStatus: true},
			},
			Personas: []users.Persona{{ID: "11", Name: "Analyst"}},
		},
		Organizations: []users.Organization{{ID: "5", Name: "Acme", SelectedStatus: true}},
		Personas:      []users.Persona{{ID: "11", Name: "Analyst"}},
	}
}

func staticProvider(grant *parent.TokenGrant) parent.TokenProvider {
	return func(context.Context) (*parent.TokenGrant, error) {
		return grant, nil
	}
}

func TestTokenRequestGetsExactlyOneResponse(t *testing.T) {
	f := setup(t, staticProvider(testGrant()), parent.Options{})

	require.NoError(t, f.child.SendToParent(&channel.RequestToken{Origin: childOrigin}))

	require.Len(t, f.responses, 1)
	resp, ok := f.responses[0].Payload.(*channel.TokenResponse)
	require.True(t, ok)
	require.Equal(t, "access-1", resp.Token)
	require.Equal(t, "refresh-1", resp.RefreshToken)
	require.Equal(t, users.ID("2"), resp.User.ID)
	require.Empty(t, resp.Error)

	require.Equal(t, "access-1", f.adapter.Grant().Token)
}

func TestProviderFailureAnswersWithErrorShape(t *testing.T) {
	f := setup(t, func(context.Context) (*parent.TokenGrant, error) {
		return nil, errors.New("user not logged in")
	}, parent.Options{})

	require.NoError(t, f.child.SendToParent(&channel.RequestToken{Origin: childOrigin}))

	// The child gets an explicit refusal, not silence.
	require.Len(t, f.responses, 1)
	resp, ok := f.responses[0].Payload.(*channel.TokenResponse)
	require.True(t, ok)
	require.Empty(t, resp.Token)
	require.Equal(t, "user not logged in", resp.Error)
}

func TestEmptyGrantAnswersWithErrorShape(t *testing.T) {
	f := setup(t, staticProvider(&parent.TokenGrant{}), parent.Options{})

	require.NoError(t, f.child.SendToParent(&channel.RequestToken{Origin: childOrigin}))

	resp := f.responses[0].Payload.(*channel.TokenResponse)
	require.Empty(t, resp.Token)
	require.NotEmpty(t, resp.Error)
	require.Nil(t, f.adapter.Grant())
}

func TestUserStateAnsweredFromGrant(t *testing.T) {
	f := setup(t, staticProvider(testGrant()), parent.Options{})

	// Before any grant the answer is an error shape.
	require.NoError(t, f.child.SendToParent(&channel.RequestUserState{Origin: childOrigin}))
	first := f.responses[0].Payload.(*channel.UserStateResponse)
	require.Nil(t, first.UserState)
	require.NotEmpty(t, first.Error)

	require.NoError(t, f.child.SendToParent(&channel.RequestToken{Origin: childOrigin}))
	require.NoError(t, f.child.SendToParent(&channel.RequestUserState{Origin: childOrigin}))

	last := f.responses[len(f.responses)-1].Payload.(*channel.UserStateResponse)
	require.NotNil(t, last.UserState)
	require.Equal(t, users.ID("2"), last.UserState.ID)
}

func TestOrgsAndPersonasAnsweredFromGrant(t *testing.T) {
	f := setup(t, staticProvider(testGrant()), parent.Options{})
	require.NoError(t, f.child.SendToParent(&channel.RequestToken{Origin: childOrigin}))

	require.NoError(t, f.child.SendToParent(&channel.RequestUserOrgs{}))
	orgs := f.responses[len(f.responses)-1].Payload.(*channel.UserOrgsResponse)
	require.Len(t, orgs.Organizations, 1)
	require.Equal(t, users.ID("5"), orgs.Organizations[0].ID)

	require.NoError(t, f.child.SendToParent(&channel.RequestUserPersonas{}))
	personas := f.responses[len(f.responses)-1].Payload.(*channel.UserPersonasResponse)
	require.Len(t, personas.Personas, 1)
	require.Equal(t, "Analyst", personas.Personas[0].Name)
}

func TestChildTokenRefreshReplacesGrantSnapshot(t *testing.T) {
	f := setup(t, staticProvider(testGrant()), parent.Options{})
	require.NoError(t, f.child.SendToParent(&channel.RequestToken{Origin: childOrigin}))

	before := f.adapter.Grant()
	require.NoError(t, f.child.SendToParent(&channel.TokenRefreshed{Token: "access-2"}))

	after := f.adapter.Grant()
	require.Equal(t, "access-2", after.Token)
	require.Equal(t, "refresh-1", after.RefreshToken)
	// The previous snapshot is untouched; refresh replaces, never mutates.
	require.Equal(t, "access-1", before.Token)
}

func TestChildLogoutClearsGrant(t *testing.T) {
	f := setup(t, staticProvider(testGrant()), parent.Options{})
	require.NoError(t, f.child.SendToParent(&channel.RequestToken{Origin: childOrigin}))
	require.NotNil(t, f.adapter.Grant())

	require.NoError(t, f.child.SendToParent(&channel.Logout{}))
	require.Nil(t, f.adapter.Grant())
}

func TestBroadcastCallbacks(t *testing.T) {
	var balances []int64
	var spent []*channel.CreditsSpent
	loggedOut := false

	f := setup(t, staticProvider(testGrant()), parent.Options{
		OnBalanceUpdate: func(b int64) { balances = append(balances, b) },
		OnCreditsSpent:  func(s *channel.CreditsSpent) { spent = append(spent, s) },
		OnLogout:        func() { loggedOut = true },
	})

	require.NoError(t, f.child.SendToParent(&channel.BalanceUpdate{Balance: 400}))
	require.NoError(t, f.child.SendToParent(&channel.CreditsSpent{Amount: 100, NewBalance: 400}))
	require.NoError(t, f.child.SendToParent(&channel.Logout{}))

	require.Equal(t, []int64{400}, balances)
	require.Len(t, spent, 1)
	require.Equal(t, int64(100), spent[0].Amount)
	require.True(t, loggedOut)
}

func TestNewRejectsChildEnd(t *testing.T) {
	_, childEnd := channel.NewPipe(parentOrigin, childOrigin)

	_, err := parent.New(childEnd, staticProvider(testGrant()), parent.Options{})
	require.Error(t, err)
}
