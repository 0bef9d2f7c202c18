// Package sessions persists the authenticated session (token pair plus user
// record) in a key-value store under a single logical key.
package sessions

import (
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
)

// Session is the persisted authentication state. It is created on login or
// parent token handoff, updated in place on token refresh, and destroyed on
// logout.
type Session struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         *users.User `json:"user,omitempty"`
}
