package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

type revocationSet map[string]bool

func (r revocationSet) Revoke(_ context.Context, id string, _ time.Time) error {
	r[id] = true
	return nil
}

func (r revocationSet) IsRevoked(_ context.Context, id string) (bool, error) {
	return r[id], nil
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	user := &domain.User{ID: 42, Name: "Ada", Role: domain.RoleAgent}

	raw, issued, err := tm.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	parsed, err := tm.ParseToken(raw)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed.UserID != 42 || parsed.Role != domain.RoleAgent || parsed.Name != "Ada" {
		t.Errorf("unexpected payload %+v", parsed)
	}
	if parsed.ID == "" || parsed.ID != issued.ID {
		t.Errorf("token id mismatch: %q vs %q", parsed.ID, issued.ID)
	}
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	user := &domain.User{ID: 1, Name: "C", Role: domain.RoleCustomer}
	raw, _, err := NewTokenManager("one", 60).GenerateToken(user)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokenManager("two", 60).ParseToken(raw); err == nil {
		t.Error("expected signature failure")
	}

	tm := NewTokenManager("one", 1)
	raw, _, err = tm.GenerateToken(user)
	if err != nil {
		t.Fatal(err)
	}
	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := tm.ParseToken(raw); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if err := hasher.Compare(hash, "hunter22"); err != nil {
		t.Errorf("expected match: %v", err)
	}
	if err := hasher.Compare(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("expected mismatch, got %v", err)
	}
	if err := hasher.Compare("", "hunter22"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("expected mismatch for missing hash, got %v", err)
	}
}

func TestPasswordPolicy(t *testing.T) {
	if err := CheckPasswordPolicy("12345"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("expected short password rejection, got %v", err)
	}
	if err := CheckPasswordPolicy("123456"); err != nil {
		t.Errorf("six characters should pass: %v", err)
	}
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager, revocationSet, *domain.User, *domain.User) {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	agent := &domain.User{Name: "Agent", Email: "agent@example.com", Role: domain.RoleAgent}
	customer := &domain.User{Name: "Cust", Email: "cust@example.com", Role: domain.RoleCustomer}
	for _, u := range []*domain.User{agent, customer} {
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	tm := NewTokenManager("secret", 60)
	revoked := revocationSet{}
	mw := NewAuthMiddleware(tm, store.Users(), revoked, zap.NewNop())

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
	}})
	app.Get("/staff", mw.Handle, RequireRoles(domain.RoleAgent, domain.RoleAdmin), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Name)
	})
	app.Get("/any", mw.Handle, RequireAnyRole(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tm, revoked, agent, customer
}

func doRequest(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestMiddlewareRoles(t *testing.T) {
	app, tm, _, agent, customer := newTestApp(t)

	agentToken, _, _ := tm.GenerateToken(agent)
	customerToken, _, _ := tm.GenerateToken(customer)

	if code := doRequest(t, app, "/staff", ""); code != http.StatusUnauthorized {
		t.Errorf("no token: got %d", code)
	}
	if code := doRequest(t, app, "/staff", "garbage"); code != http.StatusUnauthorized {
		t.Errorf("bad token: got %d", code)
	}
	if code := doRequest(t, app, "/staff", agentToken); code != http.StatusOK {
		t.Errorf("agent: got %d", code)
	}
	if code := doRequest(t, app, "/staff", customerToken); code != http.StatusForbidden {
		t.Errorf("customer on staff route: got %d", code)
	}
	if code := doRequest(t, app, "/any", customerToken); code != http.StatusNoContent {
		t.Errorf("customer on any route: got %d", code)
	}
}

func TestMiddlewareRejectsRevokedAndDeletedUsers(t *testing.T) {
	app, tm, revoked, agent, customer := newTestApp(t)

	agentToken, issued, _ := tm.GenerateToken(agent)
	revoked[issued.ID] = true
	if code := doRequest(t, app, "/any", agentToken); code != http.StatusUnauthorized {
		t.Errorf("revoked token: got %d", code)
	}

	ghost := &domain.User{ID: customer.ID + 100, Name: "Ghost", Role: domain.RoleCustomer}
	ghostToken, _, _ := tm.GenerateToken(ghost)
	if code := doRequest(t, app, "/any", ghostToken); code != http.StatusUnauthorized {
		t.Errorf("deleted user: got %d", code)
	}
}
