package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	orig := NewLocked("ticket is completed", map[string]any{"ticket_id": 3})
	wrapped := fmt.Errorf("update: %w", orig)

	got := ToDomainError(wrapped)
	if got.Code != "TICKET_LOCKED" || got.HTTPStatus != http.StatusForbidden {
		t.Fatalf("got %+v", got)
	}
}

func TestToDomainErrorNoRows(t *testing.T) {
	got := ToDomainError(pgx.ErrNoRows)
	if got.Code != "NOT_FOUND" || got.HTTPStatus != http.StatusNotFound {
		t.Fatalf("got %+v", got)
	}
}

func TestToDomainErrorFiber(t *testing.T) {
	got := ToDomainError(fiber.NewError(http.StatusMethodNotAllowed, "nope"))
	if got.Code != "METHOD_NOT_ALLOWED" || got.HTTPStatus != http.StatusMethodNotAllowed || got.Message != "nope" {
		t.Fatalf("got %+v", got)
	}
}

func TestToDomainErrorInternal(t *testing.T) {
	cause := errors.New("disk on fire")
	got := ToDomainError(cause)
	if got.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("status = %d", got.HTTPStatus)
	}
	if !errors.Is(got, cause) {
		t.Error("internal error should unwrap to its cause")
	}
	if got.Message != "internal server error" {
		t.Errorf("message leaked cause: %q", got.Message)
	}
}

func TestMapErrorNil(t *testing.T) {
	if MapError(nil) != nil {
		t.Fatal("MapError(nil) should be nil")
	}
}

func TestEnvelopeOmitsEmptyDetails(t *testing.T) {
	env := ToDomainError(NewUnauthorized("missing token")).Envelope()
	body, ok := env["error"].(fiber.Map)
	if !ok {
		t.Fatalf("envelope = %#v", env)
	}
	if body["code"] != CodeUnauthorized || body["message"] != "missing token" {
		t.Errorf("body = %#v", body)
	}
	if _, present := body["details"]; present {
		t.Error("details should be omitted when empty")
	}

	env = ToDomainError(NewNotFound("Ticket", map[string]any{"id": 7})).Envelope()
	if details := env["error"].(fiber.Map)["details"].(map[string]any); details["id"] != 7 {
		t.Errorf("details = %#v", details)
	}
}
