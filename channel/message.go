// Package channel routes typed messages between a child frame (the SDK) and
// its hosting parent, validating message origins against an allow-list. It is
// the Go rendition of a postMessage bridge: transports carry JSON envelopes,
// and every message kind is a closed struct rather than a loose bag of
// fields.
package channel

import (
	"encoding/json"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
)

// Type tags a message kind. The set is closed: unknown types are dropped at
// decode time.
type Type string

// Child to parent.
const (
	TypeRequestToken        Type = "REQUEST_JWT_TOKEN"
	TypeRequestUserState    Type = "REQUEST_CURRENT_USER_STATE"
	TypeRequestUserOrgs     Type = "REQUEST_USER_ORGS"
	TypeRequestUserPersonas Type = "REQUEST_USER_PERSONAS"
	TypeSystemReady         Type = "CREDIT_SYSTEM_READY"
	TypeBalanceUpdate       Type = "BALANCE_UPDATE"
	TypeCreditsSpent        Type = "CREDITS_SPENT"
	TypeCreditsAdded        Type = "CREDITS_ADDED"
	TypeTokenRefreshed      Type = "JWT_TOKEN_REFRESHED"
	TypeLogout              Type = "LOGOUT"
	TypeError               Type = "ERROR"
	TypeStatusResponse      Type = "STATUS_RESPONSE"
)

// Parent to child.
const (
	TypeTokenResponse        Type = "JWT_TOKEN_RESPONSE"
	TypeUserStateResponse    Type = "RESPONSE_CURRENT_USER_STATE"
	TypeUserOrgsResponse     Type = "RESPONSE_USER_ORGS"
	TypeUserPersonasResponse Type = "RESPONSE_USER_PERSONAS"
	TypeRefreshBalance       Type = "REFRESH_BALANCE"
	TypeGetStatus            Type = "GET_STATUS"
	TypeClearStorage         Type = "CLEAR_STORAGE"
	TypeCustom               Type = "CUSTOM"
)

// Payload is implemented by every message body.
type Payload interface {
	MessageType() Type
}

// Message is the envelope every payload travels in. Origin is stamped by the
// sending transport and validated on receipt.
type Message struct {
	Type      Type      `json:"type"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin,omitempty"`
	Payload   Payload   `json:"-"`
}

// RequestToken asks the parent for the current JWT token.
type RequestToken struct {
	Origin string `json:"origin"`
}

// TokenResponse answers a RequestToken. Either Token or Error is set, never
// both. The optional user, organization and persona fields let the parent
// seed the child's state in the same handoff.
type TokenResponse struct {
	Token         string               `json:"token,omitempty"`
	RefreshToken  string               `json:"refreshToken,omitempty"`
	User          *users.User          `json:"user,omitempty"`
	Organization  *users.Organization  `json:"organization,omitempty"`
	Organizations []users.Organization `json:"organizations,omitempty"`
	Personas      []users.Persona      `json:"personas,omitempty"`
	UserRoleIDs   []int64              `json:"userRoleIds,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// RequestUserState asks the parent for its current user state.
type RequestUserState struct {
	Origin string `json:"origin"`
}

// UserStateResponse answers a RequestUserState.
type UserStateResponse struct {
	UserState *users.User `json:"userState,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// RequestUserOrgs asks the parent for the user's organizations.
type RequestUserOrgs struct{}

// UserOrgsResponse answers a RequestUserOrgs.
type UserOrgsResponse struct {
	Organizations []users.Organization `json:"organizations,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// RequestUserPersonas asks the parent for the user's personas.
type RequestUserPersonas struct{}

// UserPersonasResponse answers a RequestUserPersonas.
type UserPersonasResponse struct {
	Personas []users.Persona `json:"personas,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// SystemReady announces that the child finished initializing.
type SystemReady struct {
	User *users.User `json:"user,omitempty"`
	Mode string      `json:"mode"`
}

// BalanceUpdate broadcasts a new balance to the parent.
type BalanceUpdate struct {
	Balance int64 `json:"balance"`
}

// CreditsSpent broadcasts a successful spend operation.
type CreditsSpent struct {
	Amount      int64           `json:"amount"`
	NewBalance  int64           `json:"newBalance"`
	Description string          `json:"description,omitempty"`
	Transaction json.RawMessage `json:"transaction,omitempty"`
}

// CreditsAdded broadcasts a successful add operation.
type CreditsAdded struct {
	Amount      int64           `json:"amount"`
	NewBalance  int64           `json:"newBalance"`
	CreditType  string          `json:"type,omitempty"`
	Transaction json.RawMessage `json:"transaction,omitempty"`
}

// TokenRefreshed notifies the parent of a rotated access token.
type TokenRefreshed struct {
	Token string `json:"token"`
}

// Logout notifies the parent that the child logged out.
type Logout struct{}

// ErrorNotice carries a non-fatal error to the parent.
type ErrorNotice struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StatusResponse answers a GetStatus command.
type StatusResponse struct {
	Initialized   bool   `json:"initialized"`
	Authenticated bool   `json:"authenticated"`
	Mode          string `json:"mode"`
	Balance       int64  `json:"balance"`
}

// RefreshBalance commands the child to refetch its balance.
type RefreshBalance struct{}

// GetStatus commands the child to report its status.
type GetStatus struct{}

// ClearStorage commands the child to wipe its persisted session.
type ClearStorage struct{}

// Custom carries an arbitrary host-defined payload.
type Custom struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (RequestToken) MessageType() Type         { return TypeRequestToken }
func (TokenResponse) MessageType() Type        { return TypeTokenResponse }
func (RequestUserState) MessageType() Type     { return TypeRequestUserState }
func (UserStateResponse) MessageType() Type    { return TypeUserStateResponse }
func (RequestUserOrgs) MessageType() Type      { return TypeRequestUserOrgs }
func (UserOrgsResponse) MessageType() Type     { return TypeUserOrgsResponse }
func (RequestUserPersonas) MessageType() Type  { return TypeRequestUserPersonas }
func (UserPersonasResponse) MessageType() Type { return TypeUserPersonasResponse }
func (SystemReady) MessageType() Type          { return TypeSystemReady }
func (BalanceUpdate) MessageType() Type        { return TypeBalanceUpdate }
func (CreditsSpent) MessageType() Type         { return TypeCreditsSpent }
func (CreditsAdded) MessageType() Type         { return TypeCreditsAdded }
func (TokenRefreshed) MessageType() Type       { return TypeTokenRefreshed }
func (Logout) MessageType() Type               { return TypeLogout }
func (ErrorNotice) MessageType() Type          { return TypeError }
func (StatusResponse) MessageType() Type       { return TypeStatusResponse }
func (RefreshBalance) MessageType() Type       { return TypeRefreshBalance }
func (GetStatus) MessageType() Type            { return TypeGetStatus }
func (ClearStorage) MessageType() Type         { return TypeClearStorage }
func (Custom) MessageType() Type               { return TypeCustom }

type envelope struct {
	Type      Type            `json:"type"`
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Origin    string          `json:"origin,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Encode serializes a message into its wire form.
func Encode(m Message) ([]byte, error) {
	raw, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "[Encode] marshal payload")
	}
	return json.Marshal(envelope{
		Type:      m.Type,
		ID:        m.ID,
		Timestamp: m.Timestamp,
		Origin:    m.Origin,
		Payload:   raw,
	})
}

// Decode parses a wire frame into a typed message. Frames with an unknown
// type tag are rejected.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, errors.Wrap(err, "[Decode] unmarshal envelope")
	}
	payload, err := newPayload(env.Type)
	if err != nil {
		return Message{}, err
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return Message{}, errors.Wrapf(err, "[Decode] unmarshal %s payload", env.Type)
		}
	}
	return Message{
		Type:      env.Type,
		ID:        env.ID,
		Timestamp: env.Timestamp,
		Origin:    env.Origin,
		Payload:   payload,
	}, nil
}

func newPayload(t Type) (Payload, error) {
	switch t {
	case TypeRequestToken:
		return &RequestToken{}, nil
	case TypeTokenResponse:
		return &TokenResponse{}, nil
	case TypeRequestUserState:
		return &RequestUserState{}, nil
	case TypeUserStateResponse:
		return &UserStateResponse{}, nil
	case TypeRequestUserOrgs:
		return &RequestUserOrgs{}, nil
	case TypeUserOrgsResponse:
		return &UserOrgsResponse{}, nil
	case TypeRequestUserPersonas:
		return &RequestUserPersonas{}, nil
	case TypeUserPersonasResponse:
		return &UserPersonasResponse{}, nil
	case TypeSystemReady:
		return &SystemReady{}, nil
	case TypeBalanceUpdate:
		return &BalanceUpdate{}, nil
	case TypeCreditsSpent:
		return &CreditsSpent{}, nil
	case TypeCreditsAdded:
		return &CreditsAdded{}, nil
	case TypeTokenRefreshed:
		return &TokenRefreshed{}, nil
	case TypeLogout:
		return &Logout{}, nil
	case TypeError:
		return &ErrorNotice{}, nil
	case TypeStatusResponse:
		return &StatusResponse{}, nil
	case TypeRefreshBalance:
		return &RefreshBalance{}, nil
	case TypeGetStatus:
		return &GetStatus{}, nil
	case TypeClearStorage:
		return &ClearStorage{}, nil
	case TypeCustom:
		return &Custom{}, nil
	}
	return nil, errors.Errorf("[Decode] unknown message type %q", t)
}
