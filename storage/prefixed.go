package storage

import "strings"

// Prefixed namespaces every key of an underlying store with a fixed prefix.
// Clear only removes keys belonging to the namespace, so multiple SDK
// instances can share one backing store without clobbering each other.
type Prefixed struct {
	store  KeyValue
	prefix string
}

var _ KeyValue = (*Prefixed)(nil)

// NewPrefixed wraps store so that all keys carry the given prefix.
func NewPrefixed(store KeyValue, prefix string) *Prefixed {
	return &Prefixed{store: store, prefix: prefix}
}

func (p *Prefixed) Get(key string) (string, bool) {
	return p.store.Get(p.prefix + key)
}

func (p *Prefixed) Set(key, value string) {
	p.store.Set(p.prefix+key, value)
}

func (p *Prefixed) Remove(key string) {
	p.store.Remove(p.prefix + key)
}

func (p *Prefixed) Keys() []string {
	keys := make([]string, 0)
	for _, k := range p.store.Keys() {
		if strings.HasPrefix(k, p.prefix) {
			keys = append(keys, strings.TrimPrefix(k, p.prefix))
		}
	}
	return keys
}

func (p *Prefixed) Clear() {
	for _, k := range p.store.Keys() {
		if strings.HasPrefix(k, p.prefix) {
			p.store.Remove(k)
		}
	}
}
