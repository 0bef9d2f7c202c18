package storage

import (
	"sync"
	"time"
)

// Cookie names shared between the SDK and the backend.
const (
	SelectedOrgCookie = "user-selected-org-id"
	PersonasCookie    = "user-personas"
)

// CookieJar models the same-origin cookies the backend uses for organization
// scoping and persona caching. Expired cookies behave as absent.
type CookieJar interface {
	Get(name string) (string, bool)
	Set(name, value string, ttl time.Duration)
	Delete(name string)
}

type cookie struct {
	value   string
	expires time.Time // zero means no expiry
}

// MemoryJar is an in-memory CookieJar.
type MemoryJar struct {
	mu      sync.RWMutex
	cookies map[string]cookie
	nowFunc func() time.Time
}

var _ CookieJar = (*MemoryJar)(nil)

// NewMemoryJar creates an empty in-memory cookie jar.
func NewMemoryJar() *MemoryJar {
	return NewMemoryJarWithNow(time.Now)
}

// NewMemoryJarWithNow creates a jar with an injectable clock, so expiry
// behavior can be tested without sleeping.
func NewMemoryJarWithNow(now func() time.Time) *MemoryJar {
	return &MemoryJar{
		cookies: make(map[string]cookie),
		nowFunc: now,
	}
}

func (j *MemoryJar) Get(name string) (string, bool) {
	j.mu.RLock()
	c, ok := j.cookies[name]
	j.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !c.expires.IsZero() && j.nowFunc().After(c.expires) {
		j.Delete(name)
		return "", false
	}
	return c.value, true
}

func (j *MemoryJar) Set(name, value string, ttl time.Duration) {
	var expires time.Time
	if ttl > 0 {
		expires = j.nowFunc().Add(ttl)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies[name] = cookie{value: value, expires: expires}
}

func (j *MemoryJar) Delete(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.cookies, name)
}
