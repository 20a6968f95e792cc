package helpdesk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LoginResult is the server's answer to a successful login.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Role        Role      `json:"role"`
	Name        string    `json:"name"`
	RedirectURL string    `json:"redirect_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login authenticates and stores the session. A bad email or password is an
// ErrUnauthorized APIError.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	res, err := c.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(Session{Token: res.AccessToken, Role: res.Role, Name: res.Name}); err != nil {
		return nil, err
	}
	return res, nil
}

// LoginAs authenticates for a specific dashboard. A token issued for any
// other role is discarded and ErrWrongRole returned; the stored session is
// left untouched.
func (c *Client) LoginAs(ctx context.Context, role Role, email, password string) (*LoginResult, error) {
	if !role.Valid() {
		return nil, &ValidationError{Field: "role", Reason: "must be admin, agent or customer"}
	}
	res, err := c.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if res.Role != role {
		return nil, ErrWrongRole
	}
	if err := c.store.Save(Session{Token: res.AccessToken, Role: res.Role, Name: res.Name}); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) authenticate(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" {
		return nil, &ValidationError{Field: "email", Reason: "required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Reason: "required"}
	}
	var res LoginResult
	form := url.Values{"email": {email}, "password": {password}}
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", formBody(form), false, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout asks the server to revoke the token, then clears the session. The
// session is cleared even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	session, err := c.store.Load()
	if err == nil && !session.Empty() {
		if err := c.call(ctx, http.MethodPost, "/api/auth/logout", nil, true, nil); err != nil {
			c.logger.Debug("server logout failed", zap.Error(err))
		}
	}
	return c.store.Clear()
}

// Session returns the stored session.
func (c *Client) Session() (Session, error) {
	return c.store.Load()
}

// RequireRole fails with ErrNoSession or ErrWrongRole unless the stored
// session holds one of roles.
func (c *Client) RequireRole(roles ...Role) (Session, error) {
	session, err := c.store.Load()
	if err != nil {
		return Session{}, err
	}
	if session.Empty() {
		return Session{}, ErrNoSession
	}
	for _, r := range roles {
		if session.Role == r {
			return session, nil
		}
	}
	return session, ErrWrongRole
}

// Me returns the account behind the current session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, true, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Registration holds the fields of a new account.
type Registration struct {
	Name     string
	Email    string
	Password string
}

func (r Registration) validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return &ValidationError{Field: "name", Reason: "required"}
	case strings.TrimSpace(r.Email) == "":
		return &ValidationError{Field: "email", Reason: "required"}
	case len(r.Password) < 6:
		return &ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}
	return nil
}

func (r Registration) form() url.Values {
	return url.Values{"name": {r.Name}, "email": {r.Email}, "password": {r.Password}}
}

// RegisterCustomer creates a customer account. It does not log in.
func (c *Client) RegisterCustomer(ctx context.Context, reg Registration) (*User, error) {
	if err := reg.validate(); err != nil {
		return nil, err
	}
	var u User
	if err := c.call(ctx, http.MethodPost, "/api/auth/register/customer", formBody(reg.form()), false, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RegisterAgent creates an agent account. Admin only.
func (c *Client) RegisterAgent(ctx context.Context, reg Registration) (*User, error) {
	if err := reg.validate(); err != nil {
		return nil, err
	}
	var u User
	if err := c.call(ctx, http.MethodPost, "/api/auth/register/agent", formBody(reg.form()), true, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListAgents returns every agent. Admin only.
func (c *Client) ListAgents(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.call(ctx, http.MethodGet, "/api/auth/agents", nil, true, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListUsers returns the accounts of one role. Admin only.
func (c *Client) ListUsers(ctx context.Context, role Role) ([]User, error) {
	if !role.Valid() {
		return nil, &ValidationError{Field: "role", Reason: "must be admin, agent or customer"}
	}
	var users []User
	if err := c.call(ctx, http.MethodGet, "/api/auth/users/"+string(role), nil, true, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteAgent removes an agent account. Admin only.
func (c *Client) DeleteAgent(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, "/api/auth/agent/"+strconv.FormatInt(id, 10), nil, true, nil)
}

// AgentUpdate changes an agent profile; empty fields are left as they are.
type AgentUpdate struct {
	Name  string
	Email string
}

// UpdateAgent edits an agent's name or email. Admin only.
func (c *Client) UpdateAgent(ctx context.Context, id int64, update AgentUpdate) (*User, error) {
	if strings.TrimSpace(update.Name) == "" && strings.TrimSpace(update.Email) == "" {
		return nil, &ValidationError{Field: "name", Reason: "name or email required"}
	}
	form := url.Values{}
	if update.Name != "" {
		form.Set("name", update.Name)
	}
	if update.Email != "" {
		form.Set("email", update.Email)
	}
	var u User
	if err := c.call(ctx, http.MethodPut, "/api/auth/agent/"+strconv.FormatInt(id, 10), formBody(form), true, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// IsNoSession reports whether err means the caller must log in first.
func IsNoSession(err error) bool {
	return errors.Is(err, ErrNoSession) || errors.Is(err, ErrUnauthorized)
}
