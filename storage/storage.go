// Package storage provides the session-scoped key-value and cookie stores
// the SDK persists its state in. Implementations are expected to be safe for
// concurrent use.
package storage

// KeyValue is a minimal string key-value store. Lookups report presence via
// the second return value rather than an error; the store itself never fails.
type KeyValue interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
	Keys() []string
	Clear()
}
