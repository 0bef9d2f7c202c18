// Package auth implements the stateless HTTP operations against the
// authentication endpoint: login, token validation, token refresh and
// logout. It holds no state of its own; session persistence belongs to the
// caller.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/internal/utils"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// Service performs authentication requests against a configured base URL.
type Service struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient overrides the HTTP client (primarily for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates an auth service for the given endpoint base URL.
func NewService(baseURL string, options ...Option) (*Service, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[NewService] baseURL is required")
	}
	s := &Service{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// envelope is the backend's fixed response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// LoginResult is the normalized outcome of a login attempt.
type LoginResult struct {
	Success      bool
	Token        string
	RefreshToken string
	ExpiresIn    int64
	User         *users.User
	Message      string
}

// RefreshResult is the normalized outcome of a refresh cycle. RefreshToken is
// empty when the backend chose to reuse the previous one.
type RefreshResult struct {
	Success bool
	Token   string
	// RefreshToken is only set when the backend rotated it.
	RefreshToken string
	Message      string
}

// Login authenticates with email and password. Credential shape is validated
// locally before any request is made.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	env, err := s.post(ctx, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login]")
	}
	if !env.Success {
		return &LoginResult{Success: false, Message: utils.FirstNonEmpty(env.Message, env.Error, "login failed")}, nil
	}

	var data struct {
		Tokens tokenPair   `json:"tokens"`
		User   *users.User `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, errors.Wrap(err, "[Service.Login] decode data")
	}
	if data.Tokens.AccessToken == "" {
		return &LoginResult{Success: false, Message: "login response missing access token"}, nil
	}
	return &LoginResult{
		Success:      true,
		Token:        data.Tokens.AccessToken,
		RefreshToken: data.Tokens.RefreshToken,
		ExpiresIn:    data.Tokens.ExpiresIn,
		User:         data.User,
		Message:      env.Message,
	}, nil
}

// Validate asks the backend whether the access token is still good. A 401
// answer is a clean "no", not an error.
func (s *Service) Validate(ctx context.Context, accessToken string) (bool, error) {
	if strings.TrimSpace(accessToken) == "" {
		return false, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/validate", nil)
	if err != nil {
		return false, errors.Wrap(err, "[Service.Validate] new request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, errors.Wrapf(ErrNetwork, "[Service.Validate] %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return false, nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return false, errors.Wrapf(ErrNetwork, "[Service.Validate] decode: %v", err)
	}
	return env.Success, nil
}

// Refresh exchanges a refresh token for a new access token. The backend may
// or may not rotate the refresh token; callers must preserve the old one when
// the result carries none.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, errors.Wrap(ErrNoRefreshToken, "[Service.Refresh]")
	}

	env, err := s.post(ctx, "/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, "")
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh]")
	}
	if !env.Success {
		return &RefreshResult{Success: false, Message: utils.FirstNonEmpty(env.Message, env.Error, "refresh failed")}, nil
	}

	var data struct {
		Tokens tokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] decode data")
	}
	if data.Tokens.AccessToken == "" {
		return &RefreshResult{Success: false, Message: "refresh response missing access token"}, nil
	}
	return &RefreshResult{
		Success:      true,
		Token:        data.Tokens.AccessToken,
		RefreshToken: data.Tokens.RefreshToken,
	}, nil
}

// Logout invalidates the session server-side. Best effort: callers clear
// local state regardless of the outcome.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	_, err := s.post(ctx, "/logout", struct{}{}, accessToken)
	if err != nil {
		return errors.Wrap(err, "[Service.Logout]")
	}
	return nil
}

func (s *Service) post(ctx context.Context, path string, body any, bearer string) (*envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshal body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrNetwork, "%v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errors.Wrapf(ErrNetwork, "decode response: %v", err)
	}
	s.logger.Debug().Str("path", path).Bool("success", env.Success).Msg("auth request")
	return &env, nil
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return errors.Wrap(ErrInvalidCredentials, "[validateCredentials] invalid email")
	}
	if password == "" {
		return errors.Wrap(ErrInvalidCredentials, "[validateCredentials] empty password")
	}
	return nil
}

