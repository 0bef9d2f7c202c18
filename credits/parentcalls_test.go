package credits_test

import (
	"context"
	"testing"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/developersupreme/supreme-ai-sdk-sub000/credits"
	"github.com/developersupreme/supreme-ai-sdk-sub000/parent"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/stretchr/testify/require"
)

func TestRequestUserStateRoundTrip(t *testing.T) {
	backend := newFakeBackend(t)
	_, childEnd := newEmbeddedHost(t, parent.Options{})

	client, err := credits.New(testConfig(backend), credits.Dependencies{Transport: childEnd})
	require.NoError(t, err)
	defer client.Destroy()
	require.NoError(t, client.Initialize(context.Background()))

	state, err := client.RequestUserState(context.Background())
	require.NoError(t, err)
	require.Equal(t, users.ID("2"), state.ID)
}

func TestRequestUserOrgsAndPersonasRoundTrip(t *testing.T) {
	backend := newFakeBackend(t)

	parentEnd, childEnd := channel.NewPipe(parentOrigin, childOrigin)
	host, err := parent.New(parentEnd, func(context.Context) (*parent.TokenGrant, error) {
		return &parent.TokenGrant{
			Token:         mintedToken(time.Hour),
			User:          testUser(),
			Organizations: testUser().Organizations,
			Personas:      []users.Persona{{ID: "11", Name: "Analyst"}},
		}, nil
	}, parent.Options{AllowedOrigins: []string{childOrigin}})
	require.NoError(t, err)
	defer host.Close()

	client, err := credits.New(testConfig(backend), credits.Dependencies{Transport: childEnd})
	require.NoError(t, err)
	defer client.Destroy()
	require.NoError(t, client.Initialize(context.Background()))

	orgs, err := client.RequestUserOrgs(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	require.Equal(t, users.ID("5"), orgs[0].ID)

	personas, err := client.RequestUserPersonas(context.Background())
	require.NoError(t, err)
	require.Len(t, personas, 1)
	require.Equal(t, "Analyst", personas[0].Name)
}

func TestParentRoundTripRequiresEmbeddedMode(t *testing.T) {
	backend := newFakeBackend(t)

	client, err := credits.New(testConfig(backend), credits.Dependencies{})
	require.NoError(t, err)
	defer client.Destroy()
	require.NoError(t, client.Initialize(context.Background()))

	_, err = client.RequestUserState(context.Background())
	require.ErrorIs(t, err, credits.ErrNotEmbedded)
}

func TestParentRoundTripTimesOut(t *testing.T) {
	backend := newFakeBackend(t)

	// A parent that listens but never answers anything.
	parentEnd, childEnd := channel.NewPipe(parentOrigin, childOrigin)
	channel.New(parentEnd, channel.Options{AllowedOrigins: []string{childOrigin}})

	client, err := credits.New(testConfig(backend), credits.Dependencies{Transport: childEnd})
	require.NoError(t, err)
	defer client.Destroy()
	require.NoError(t, client.Initialize(context.Background()))

	_, err = client.RequestUserState(context.Background())
	require.ErrorIs(t, err, credits.ErrParentTimeout)
}
