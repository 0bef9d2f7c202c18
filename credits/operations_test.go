package credits_test

import (
	"context"
	"testing"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/credits"
	"github.com/developersupreme/supreme-ai-sdk-sub000/storage"
	"github.com/stretchr/testify/require"
)

// readyClient bootstraps a standalone client from a seeded valid session.
func readyClient(t *testing.T, backend *fakeBackend) *credits.Client {
	t.Helper()
	kv := storage.NewMemory()
	seedSession(t, kv, mintedToken(time.Hour), "refresh-1")

	client, err := credits.New(testConfig(backend), credits.Dependencies{Store: kv})
	require.NoError(t, err)
	t.Cleanup(client.Destroy)

	require.NoError(t, client.Initialize(context.Background()))
	require.Equal(t, credits.StateReady, client.State())
	return client
}

func TestSpendAdoptsServerBalance(t *testing.T) {
	backend := newFakeBackend(t)
	backend.setBalance(500)
	client := readyClient(t, backend)
	require.Equal(t, int64(500), client.Balance())

	var spendEvents []credits.SpendEvent
	client.On(credits.EventCreditsSpent, func(payload any) {
		spendEvents = append(spendEvents, payload.(credits.SpendEvent))
	})

	result, err := client.SpendCredits(context.Background(), 100, "render job")
	require.NoError(t, err)

	// The balance is whatever the server said, not a local subtraction.
	require.Equal(t, int64(400), result.Balance)
	require.Equal(t, int64(400), client.Balance())
	require.NotNil(t, result.Transaction)
	require.Equal(t, int64(100), result.Transaction.Amount)

	require.Len(t, spendEvents, 1)
	require.Equal(t, int64(100), spendEvents[0].Amount)
	require.Equal(t, int64(500), spendEvents[0].Previous)
	require.Equal(t, int64(400), spendEvents[0].Balance)
}

func TestSpendInsufficientBalanceFailsLocally(t *testing.T) {
	backend := newFakeBackend(t)
	backend.setBalance(50)
	client := readyClient(t, backend)

	_, err := client.SpendCredits(context.Background(), 100, "too big")
	require.ErrorIs(t, err, credits.ErrInsufficientBalance)

	// The guard resolved before any request left the process.
	require.Zero(t, backend.count("/api/jwt/spend"))
	require.Equal(t, int64(50), client.Balance())
}

func TestSpendValidation(t *testing.T) {
	backend := newFakeBackend(t)
	client := readyClient(t, backend)

	_, err := client.SpendCredits(context.Background(), 0, "zero")
	require.ErrorIs(t, err, credits.ErrInvalidAmount)

	_, err = client.SpendCredits(context.Background(), -5, "negative")
	require.ErrorIs(t, err, credits.ErrInvalidAmount)

	require.Zero(t, backend.count("/api/jwt/spend"))
}

func TestSpendRequiresAuthentication(t *testing.T) {
	backend := newFakeBackend(t)
	client, err := credits.New(testConfig(backend), credits.Dependencies{})
	require.NoError(t, err)
	defer client.Destroy()

	_, err = client.SpendCredits(context.Background(), 10, "unauthenticated")
	require.ErrorIs(t, err, credits.ErrNotAuthenticated)
}

func TestAddCredits(t *testing.T) {
	backend := newFakeBackend(t)
	backend.setBalance(500)
	client := readyClient(t, backend)

	var addEvents []credits.SpendEvent
	client.On(credits.EventCreditsAdded, func(payload any) {
		addEvents = append(addEvents, payload.(credits.SpendEvent))
	})

	result, err := client.AddCredits(context.Background(), 200, "purchase", "top-up")
	require.NoError(t, err)
	require.Equal(t, int64(700), result.Balance)
	require.Equal(t, int64(700), client.Balance())
	require.Len(t, addEvents, 1)
}

func TestAddCreditsRequiresType(t *testing.T) {
	backend := newFakeBackend(t)
	client := readyClient(t, backend)

	_, err := client.AddCredits(context.Background(), 200, "", "no type")
	require.Error(t, err)
	require.Zero(t, backend.count("/api/jwt/add"))
}

func TestCheckBalanceRetriesOnceAfterRefresh(t *testing.T) {
	backend := newFakeBackend(t)
	backend.setBalance(500)
	client := readyClient(t, backend)
	balanceCallsAfterInit := backend.count("/api/jwt/balance")

	backend.mu.Lock()
	backend.failBalanceOnce = true
	backend.mu.Unlock()

	balance, err := client.CheckBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(500), balance)

	// One 401, one silent refresh, one retry.
	require.Equal(t, balanceCallsAfterInit+2, backend.count("/api/jwt/balance"))
	require.Equal(t, 1, backend.count("/api/secure-jwt/refresh"))
}

func TestCheckBalanceEmitsBalanceUpdated(t *testing.T) {
	backend := newFakeBackend(t)
	backend.setBalance(500)
	client := readyClient(t, backend)

	var events []credits.BalanceEvent
	client.On(credits.EventBalanceUpdated, func(payload any) {
		events = append(events, payload.(credits.BalanceEvent))
	})

	backend.setBalance(650)
	balance, err := client.CheckBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(650), balance)

	require.Len(t, events, 1)
	require.Equal(t, int64(500), events[0].Previous)
	require.Equal(t, int64(650), events[0].Balance)
}

func TestGetHistory(t *testing.T) {
	backend := newFakeBackend(t)
	client := readyClient(t, backend)

	history, err := client.GetHistory(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), history.Total)
	require.Len(t, history.Transactions, 1)
	require.Equal(t, int64(100), history.Transactions[0].Amount)
}

func TestTokenRefreshPreservesUnrotatedRefreshToken(t *testing.T) {
	backend := newFakeBackend(t)

	kv := storage.NewMemory()
	seedSession(t, kv, mintedToken(-time.Hour), "refresh-1")

	client, err := credits.New(testConfig(backend), credits.Dependencies{Store: kv})
	require.NoError(t, err)
	defer client.Destroy()

	refreshed := 0
	client.On(credits.EventTokenRefreshed, func(any) { refreshed++ })

	require.NoError(t, client.Initialize(context.Background()))
	require.Equal(t, 1, refreshed)
	require.Equal(t, "refresh-1", loadSession(t, kv).RefreshToken)
}

func TestTokenRefreshAdoptsRotatedRefreshToken(t *testing.T) {
	backend := newFakeBackend(t)
	backend.mu.Lock()
	backend.rotatedRefresh = "refresh-2"
	backend.mu.Unlock()

	kv := storage.NewMemory()
	seedSession(t, kv, mintedToken(-time.Hour), "refresh-1")

	client, err := credits.New(testConfig(backend), credits.Dependencies{Store: kv})
	require.NoError(t, err)
	defer client.Destroy()

	require.NoError(t, client.Initialize(context.Background()))
	require.Equal(t, "refresh-2", loadSession(t, kv).RefreshToken)
}
