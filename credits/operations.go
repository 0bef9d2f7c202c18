package credits

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/developersupreme/supreme-ai-sdk-sub000/rest"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/pkg/errors"
)

// Transaction is a single credit ledger entry as reported by the backend.
type Transaction struct {
	ID          users.ID `json:"id"`
	Amount      int64    `json:"amount"`
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	ReferenceID string   `json:"reference_id,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// BalanceEvent is the payload of EventBalanceUpdated.
type BalanceEvent struct {
	Previous int64
	Balance  int64
}

// SpendEvent is the payload of EventCreditsSpent and EventCreditsAdded.
type SpendEvent struct {
	Amount      int64
	Previous    int64
	Balance     int64
	Transaction *Transaction
}

// SpendResult is the outcome of a successful spend or add operation. Balance
// is the authoritative server-reported balance, never computed locally.
type SpendResult struct {
	Balance     int64
	Transaction *Transaction
}

// History is a page of the transaction ledger.
type History struct {
	Transactions []Transaction
	Total        int64
}

// SpendOption customizes a spend or add request.
type SpendOption func(*spendRequest)

// WithReferenceID attaches a caller-defined reference to the transaction.
func WithReferenceID(id string) SpendOption {
	return func(r *spendRequest) {
		r.ReferenceID = id
	}
}

// WithUserRoleID overrides the role the operation is attributed to.
func WithUserRoleID(id int64) SpendOption {
	return func(r *spendRequest) {
		r.UserRoleID = &id
	}
}

type spendRequest struct {
	UserID         users.ID `json:"user_id"`
	OrganizationID users.ID `json:"organization_id"`
	Amount         int64    `json:"amount"`
	Type           string   `json:"type,omitempty"`
	Description    string   `json:"description,omitempty"`
	ReferenceID    string   `json:"reference_id,omitempty"`
	UserRoleID     *int64   `json:"user_role_id,omitempty"`
}

type balanceMutation struct {
	NewBalance  int64           `json:"new_balance"`
	Transaction json.RawMessage `json:"transaction,omitempty"`
}

// CheckBalance fetches the current balance. On a 401 it performs exactly one
// silent refresh-and-retry before surfacing the error; the other credit
// operations deliberately do not (see the package docs on this asymmetry).
func (c *Client) CheckBalance(ctx context.Context) (int64, error) {
	if !c.IsAuthenticated() {
		return 0, errors.Wrap(ErrNotAuthenticated, "[Client.CheckBalance]")
	}

	path := "/balance"
	if orgID, err := c.resolveOrganizationID(); err == nil {
		path += "?organization_id=" + url.QueryEscape(orgID.String())
	}

	res, err := c.api.Get(ctx, path)
	if errors.Is(err, rest.ErrUnauthorized) {
		if refreshErr := c.refreshToken(ctx); refreshErr != nil {
			return 0, errors.Wrap(err, "[Client.CheckBalance]")
		}
		res, err = c.api.Get(ctx, path)
	}
	if err != nil {
		return 0, errors.Wrap(err, "[Client.CheckBalance]")
	}
	if !res.Success {
		return 0, errors.Errorf("[Client.CheckBalance] %s", res.Message)
	}

	var data struct {
		Balance int64 `json:"balance"`
	}
	if err := res.Decode(&data); err != nil {
		return 0, errors.Wrap(err, "[Client.CheckBalance]")
	}

	c.applyBalance(data.Balance)
	return data.Balance, nil
}

// SpendCredits deducts credits from the current organization's balance. The
// insufficient-balance check is an advisory client-side guard resolved before
// any request; the backend remains the authority and may reject
// independently.
func (c *Client) SpendCredits(ctx context.Context, amount int64, description string, opts ...SpendOption) (*SpendResult, error) {
	req, err := c.buildMutation(amount, description, "", opts)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.SpendCredits]")
	}
	c.mu.Lock()
	balance := c.balance
	c.mu.Unlock()
	if amount > balance {
		return nil, errors.Wrapf(ErrInsufficientBalance, "[Client.SpendCredits] have %d, want %d", balance, amount)
	}

	res, err := c.api.Post(ctx, "/spend", req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.SpendCredits]")
	}
	if !res.Success {
		return nil, errors.Errorf("[Client.SpendCredits] %s", res.Message)
	}

	result, previous, raw, err := c.applyMutation(res)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.SpendCredits]")
	}

	c.emitter.Emit(EventCreditsSpent, SpendEvent{
		Amount:      amount,
		Previous:    previous,
		Balance:     result.Balance,
		Transaction: result.Transaction,
	})
	if c.currentMode() == ModeEmbedded {
		c.broadcast(&channel.CreditsSpent{
			Amount:      amount,
			NewBalance:  result.Balance,
			Description: description,
			Transaction: raw,
		})
	}
	return result, nil
}

// AddCredits grants credits to the current organization's balance.
// creditType labels the grant (purchase, bonus, refund and so on) and is
// required by the backend.
func (c *Client) AddCredits(ctx context.Context, amount int64, creditType, description string, opts ...SpendOption) (*SpendResult, error) {
	if creditType == "" {
		return nil, errors.New("[Client.AddCredits] credit type is required")
	}
	req, err := c.buildMutation(amount, description, creditType, opts)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.AddCredits]")
	}

	res, err := c.api.Post(ctx, "/add", req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.AddCredits]")
	}
	if !res.Success {
		return nil, errors.Errorf("[Client.AddCredits] %s", res.Message)
	}

	result, previous, raw, err := c.applyMutation(res)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.AddCredits]")
	}

	c.emitter.Emit(EventCreditsAdded, SpendEvent{
		Amount:      amount,
		Previous:    previous,
		Balance:     result.Balance,
		Transaction: result.Transaction,
	})
	if c.currentMode() == ModeEmbedded {
		c.broadcast(&channel.CreditsAdded{
			Amount:      amount,
			NewBalance:  result.Balance,
			CreditType:  creditType,
			Transaction: raw,
		})
	}
	return result, nil
}

// GetHistory returns a page of the organization-scoped transaction ledger.
func (c *Client) GetHistory(ctx context.Context, limit, offset int) (*History, error) {
	if !c.IsAuthenticated() {
		return nil, errors.Wrap(ErrNotAuthenticated, "[Client.GetHistory]")
	}
	orgID, err := c.resolveOrganizationID()
	if err != nil {
		return nil, errors.Wrap(err, "[Client.GetHistory]")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := url.Values{}
	query.Set("organization_id", orgID.String())
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	res, err := c.api.Get(ctx, "/history?"+query.Encode())
	if err != nil {
		return nil, errors.Wrap(err, "[Client.GetHistory]")
	}
	if !res.Success {
		return nil, errors.Errorf("[Client.GetHistory] %s", res.Message)
	}

	var data struct {
		Transactions []Transaction `json:"transactions"`
		Pagination   struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := res.Decode(&data); err != nil {
		return nil, errors.Wrap(err, "[Client.GetHistory]")
	}
	return &History{Transactions: data.Transactions, Total: data.Pagination.Total}, nil
}

// buildMutation runs the shared local validation of spend and add: the
// caller must be authenticated, the amount positive, and both a user id and
// a current organization resolvable. None of these failures hits the
// network.
func (c *Client) buildMutation(amount int64, description, creditType string, opts []SpendOption) (*spendRequest, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	c.mu.Lock()
	user := c.user
	c.mu.Unlock()
	if user == nil || user.ID == "" {
		return nil, ErrMissingUserID
	}

	orgID, err := c.resolveOrganizationID()
	if err != nil {
		return nil, err
	}

	req := &spendRequest{
		UserID:         user.ID,
		OrganizationID: orgID,
		Amount:         amount,
		Type:           creditType,
		Description:    description,
	}
	for _, opt := range opts {
		opt(req)
	}
	if req.UserRoleID == nil {
		if roleIDs := user.RoleIDsForOrganization(orgID); len(roleIDs) > 0 {
			req.UserRoleID = &roleIDs[0]
		}
	}
	return req, nil
}

// applyMutation adopts the server-returned balance as the new truth and
// decodes the transaction record.
func (c *Client) applyMutation(res *rest.Result) (*SpendResult, int64, json.RawMessage, error) {
	var data balanceMutation
	if err := res.Decode(&data); err != nil {
		return nil, 0, nil, err
	}

	previous := c.applyBalance(data.NewBalance)

	var tx *Transaction
	if len(data.Transaction) > 0 {
		tx = &Transaction{}
		if err := json.Unmarshal(data.Transaction, tx); err != nil {
			c.logger.Debug().Err(err).Msg("credits: undecodable transaction record")
			tx = nil
		}
	}
	return &SpendResult{Balance: data.NewBalance, Transaction: tx}, previous, data.Transaction, nil
}

// applyBalance replaces the in-memory balance with the server-reported one
// and returns the previous value. The balance is never derived by local
// arithmetic.
func (c *Client) applyBalance(balance int64) int64 {
	c.mu.Lock()
	previous := c.balance
	c.balance = balance
	mode := c.mode
	c.mu.Unlock()

	c.emitter.Emit(EventBalanceUpdated, BalanceEvent{Previous: previous, Balance: balance})
	if mode == ModeEmbedded {
		c.broadcast(&channel.BalanceUpdate{Balance: balance})
	}
	return previous
}
