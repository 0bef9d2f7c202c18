package events_test

import (
	"testing"

	"github.com/developersupreme/supreme-ai-sdk-sub000/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestEmitInRegistrationOrder(t *testing.T) {
	e := events.NewEmitter(zerolog.Nop())

	var order []string
	e.On("ready", func(any) { order = append(order, "first") })
	e.On("ready", func(any) { order = append(order, "second") })

	e.Emit("ready", nil)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestEmitPayload(t *testing.T) {
	e := events.NewEmitter(zerolog.Nop())

	var got any
	e.On("balanceUpdated", func(payload any) { got = payload })

	e.Emit("balanceUpdated", 400)
	require.Equal(t, 400, got)
}

func TestOnceFiresExactlyOnce(t *testing.T) {
	e := events.NewEmitter(zerolog.Nop())

	calls := 0
	e.Once("ready", func(any) { calls++ })

	e.Emit("ready", nil)
	e.Emit("ready", nil)
	require.Equal(t, 1, calls)
}

func TestOffRemovesHandler(t *testing.T) {
	e := events.NewEmitter(zerolog.Nop())

	calls := 0
	sub := e.On("logout", func(any) { calls++ })
	e.Emit("logout", nil)

	e.Off(sub)
	e.Off(sub) // second removal is a no-op
	e.Emit("logout", nil)
	require.Equal(t, 1, calls)
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	e := events.NewEmitter(zerolog.Nop())

	survived := false
	e.On("ready", func(any) { panic("boom") })
	e.On("ready", func(any) { survived = true })

	e.Emit("ready", nil)
	require.True(t, survived)
}

func TestEventsAreIsolatedByName(t *testing.T) {
	e := events.NewEmitter(zerolog.Nop())

	calls := 0
	e.On("creditsSpent", func(any) { calls++ })

	e.Emit("creditsAdded", nil)
	require.Zero(t, calls)
}
