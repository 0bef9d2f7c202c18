package storage_test

import (
	"testing"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/storage"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	kv := storage.NewMemory()

	_, ok := kv.Get("missing")
	require.False(t, ok)

	kv.Set("token", "abc")
	value, ok := kv.Get("token")
	require.True(t, ok)
	require.Equal(t, "abc", value)

	kv.Remove("token")
	_, ok = kv.Get("token")
	require.False(t, ok)
}

func TestMemoryClear(t *testing.T) {
	kv := storage.NewMemory()
	kv.Set("a", "1")
	kv.Set("b", "2")
	require.Len(t, kv.Keys(), 2)

	kv.Clear()
	require.Empty(t, kv.Keys())
}

func TestPrefixedIsolation(t *testing.T) {
	base := storage.NewMemory()
	base.Set("other_session", "keep me")

	kv := storage.NewPrefixed(base, "creditSystem_")
	kv.Set("session", "mine")

	// The underlying store sees the namespaced key.
	raw, ok := base.Get("creditSystem_session")
	require.True(t, ok)
	require.Equal(t, "mine", raw)

	// The prefixed view does not see foreign keys.
	_, ok = kv.Get("other_session")
	require.False(t, ok)
	require.Equal(t, []string{"session"}, kv.Keys())

	// Clear only wipes the namespace.
	kv.Clear()
	_, ok = base.Get("creditSystem_session")
	require.False(t, ok)
	_, ok = base.Get("other_session")
	require.True(t, ok)
}

func TestMemoryJarExpiry(t *testing.T) {
	now := time.Now()
	jar := storage.NewMemoryJarWithNow(func() time.Time { return now })

	jar.Set(storage.SelectedOrgCookie, "5", 30*24*time.Hour)
	value, ok := jar.Get(storage.SelectedOrgCookie)
	require.True(t, ok)
	require.Equal(t, "5", value)

	now = now.Add(31 * 24 * time.Hour)
	_, ok = jar.Get(storage.SelectedOrgCookie)
	require.False(t, ok)
}

func TestMemoryJarNoTTL(t *testing.T) {
	now := time.Now()
	jar := storage.NewMemoryJarWithNow(func() time.Time { return now })

	jar.Set("persistent", "value", 0)
	now = now.Add(1000 * time.Hour)
	value, ok := jar.Get("persistent")
	require.True(t, ok)
	require.Equal(t, "value", value)

	jar.Delete("persistent")
	_, ok = jar.Get("persistent")
	require.False(t, ok)
}
