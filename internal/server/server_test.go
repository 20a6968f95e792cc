package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/config"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "adminpass"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{Name: "helpdesk-test", Version: "test", BodyLimitMB: 4},
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            bcrypt.MinCost,
			AdminName:             "Root",
			AdminEmail:            adminEmail,
			AdminPassword:         adminPassword,
		},
		Storage: config.StorageConfig{Dir: t.TempDir(), MaxAttachmentMB: 1},
		AI:      config.AIConfig{SweepSpec: "@every 1m", TimeoutSeconds: 5},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(context.Background(), testConfig(t), zap.NewNop(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s: %v (%s)", req.URL.Path, err, raw)
		}
	}
	return resp, env
}

func formRequest(method, path, token string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(values.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func getRequest(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func multipartRequest(t *testing.T, path, token string, fields map[string]string, fileName, fileBody string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write([]byte(fileBody))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return req
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp, env := do(t, app, formRequest(http.MethodPost, "/api/auth/login", "", url.Values{"email": {email}, "password": {password}}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		Role        string `json:"role"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatal(err)
	}
	return out.AccessToken
}

func registerCustomer(t *testing.T, app *fiber.App, name, email string) string {
	t.Helper()
	resp, _ := do(t, app, formRequest(http.MethodPost, "/api/auth/register/customer", "", url.Values{"name": {name}, "email": {email}, "password": {"secret1"}}))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}
	return login(t, app, email, "secret1")
}

func registerAgent(t *testing.T, app *fiber.App, adminToken, name, email string) string {
	t.Helper()
	resp, _ := do(t, app, formRequest(http.MethodPost, "/api/auth/register/agent", adminToken, url.Values{"name": {name}, "email": {email}, "password": {"secret1"}}))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register agent %s: status %d", email, resp.StatusCode)
	}
	return login(t, app, email, "secret1")
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, srv.App, getRequest("/health/live", ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("live: %d", resp.StatusCode)
	}
	resp, _ = do(t, srv.App, getRequest("/health/ready", ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready without backends: %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}

	resp, env := do(t, srv.App, getRequest("/metrics", ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %d", resp.StatusCode)
	}
	var snap struct {
		Requests map[string]int64 `json:"requests"`
	}
	decodeData(t, env, &snap)
	if snap.Requests["GET /health/live 200"] != 1 {
		t.Errorf("live probe not counted: %v", snap.Requests)
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	srv := newTestServer(t)
	resp, env := do(t, srv.App, getRequest("/api/nope", ""))
	if resp.StatusCode != http.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("got %d %+v", resp.StatusCode, env.Error)
	}
}

func TestAuthFlowAndRoleGuards(t *testing.T) {
	srv := newTestServer(t)
	app := srv.App

	resp, env := do(t, app, formRequest(http.MethodPost, "/api/auth/login", "", url.Values{"email": {adminEmail}, "password": {"wrong"}}))
	if resp.StatusCode != http.StatusUnauthorized || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("bad password: %d %+v", resp.StatusCode, env.Error)
	}

	adminToken := login(t, app, adminEmail, adminPassword)
	customerToken := registerCustomer(t, app, "Casey", "casey@example.com")

	resp, env = do(t, app, getRequest("/api/auth/me", customerToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: %d", resp.StatusCode)
	}
	var me struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	decodeData(t, env, &me)
	if me.Name != "Casey" || me.Role != "customer" {
		t.Errorf("me = %+v", me)
	}

	if resp, _ := do(t, app, getRequest("/api/tickets/all", "")); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous queue: %d", resp.StatusCode)
	}
	if resp, env := do(t, app, getRequest("/api/tickets/all", customerToken)); resp.StatusCode != http.StatusForbidden || env.Error.Code != "FORBIDDEN" {
		t.Errorf("customer queue: %d", resp.StatusCode)
	}
	if resp, _ := do(t, app, formRequest(http.MethodPost, "/api/auth/register/agent", customerToken, url.Values{"name": {"A"}, "email": {"a@example.com"}, "password": {"secret1"}})); resp.StatusCode != http.StatusForbidden {
		t.Errorf("customer creating agent: %d", resp.StatusCode)
	}

	registerAgent(t, app, adminToken, "Avery", "avery@example.com")
	resp, env = do(t, app, getRequest("/api/auth/agents", adminToken))
	var agents []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	decodeData(t, env, &agents)
	if resp.StatusCode != http.StatusOK || len(agents) != 1 {
		t.Fatalf("agents: %d %+v", resp.StatusCode, agents)
	}

	path := "/api/auth/agent/" + itoa(agents[0].ID)
	resp, env = do(t, app, formRequest(http.MethodPut, path, adminToken, url.Values{"name": {"Avery B"}}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update agent: %d %+v", resp.StatusCode, env.Error)
	}
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+adminToken)
	if resp, _ := do(t, app, req); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete agent: %d", resp.StatusCode)
	}
	req = httptest.NewRequest(http.MethodDelete, path, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+adminToken)
	if resp, _ := do(t, app, req); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: %d", resp.StatusCode)
	}

	resp, _ = do(t, app, formRequest(http.MethodPost, "/api/auth/logout", customerToken, nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("logout: %d", resp.StatusCode)
	}
}

func TestTicketLifecycle(t *testing.T) {
	srv := newTestServer(t)
	app := srv.App
	adminToken := login(t, app, adminEmail, adminPassword)
	customerToken := registerCustomer(t, app, "Casey", "casey@example.com")
	otherToken := registerCustomer(t, app, "Olive", "olive@example.com")
	agentToken := registerAgent(t, app, adminToken, "Avery", "avery@example.com")

	resp, env := do(t, app, multipartRequest(t, "/api/tickets/raise", customerToken,
		map[string]string{"subject": "VPN down", "message": "Cannot connect to the VPN"}, "log.txt", "error 809"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("raise: %d %+v", resp.StatusCode, env.Error)
	}
	var ticket struct {
		ID       int64  `json:"id"`
		Status   string `json:"status"`
		FileName string `json:"file_name"`
	}
	decodeData(t, env, &ticket)
	if ticket.Status != "Open" || ticket.FileName != "log.txt" {
		t.Fatalf("raised ticket = %+v", ticket)
	}
	id := itoa(ticket.ID)

	resp, env = do(t, app, multipartRequest(t, "/api/tickets/raise", customerToken, map[string]string{"subject": "x"}, "", ""))
	if resp.StatusCode != http.StatusBadRequest || env.Error.Code != "VALIDATION_FAILED" {
		t.Errorf("missing message: %d", resp.StatusCode)
	}

	if resp, _ := do(t, app, getRequest("/api/tickets/"+id, otherToken)); resp.StatusCode != http.StatusForbidden {
		t.Errorf("other customer read: %d", resp.StatusCode)
	}
	resp, _ = do(t, app, getRequest("/api/tickets/file/"+id, customerToken))
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Header.Get(fiber.HeaderContentDisposition), "log.txt") {
		t.Errorf("attachment: %d %q", resp.StatusCode, resp.Header.Get(fiber.HeaderContentDisposition))
	}

	resp, env = do(t, app, formRequest(http.MethodPost, "/api/tickets/"+id+"/message", agentToken, url.Values{"text": {"Looking into it"}}))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("agent reply: %d %+v", resp.StatusCode, env.Error)
	}
	resp, env = do(t, app, getRequest("/api/tickets/"+id, customerToken))
	var detail struct {
		Ticket struct {
			Status string `json:"status"`
		} `json:"ticket"`
		Messages []struct {
			SenderRole string `json:"sender_role"`
			Text       string `json:"text"`
		} `json:"messages"`
	}
	decodeData(t, env, &detail)
	if detail.Ticket.Status != "In Progress" || len(detail.Messages) != 1 || detail.Messages[0].SenderRole != "agent" {
		t.Fatalf("after reply: %+v", detail)
	}

	resp, env = do(t, app, getRequest("/api/tickets/all?category=All&status=In%20Progress", agentToken))
	var queue []struct{ ID int64 }
	decodeData(t, env, &queue)
	if resp.StatusCode != http.StatusOK || len(queue) != 1 {
		t.Errorf("filtered queue: %d %+v", resp.StatusCode, queue)
	}

	update := url.Values{"category": {"HR"}, "priority": {"High"}, "status": {"Completed"}}
	resp, env = do(t, app, formRequest(http.MethodPut, "/api/tickets/update/"+id, agentToken, update))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = do(t, app, formRequest(http.MethodPost, "/api/tickets/"+id+"/message", customerToken, url.Values{"text": {"thanks"}}))
	if resp.StatusCode != http.StatusForbidden || env.Error.Code != "TICKET_LOCKED" {
		t.Errorf("message on completed: %d %+v", resp.StatusCode, env.Error)
	}
	resp, env = do(t, app, formRequest(http.MethodPut, "/api/tickets/update/"+id, agentToken, update))
	if resp.StatusCode != http.StatusForbidden || env.Error.Code != "TICKET_LOCKED" {
		t.Errorf("update on completed: %d %+v", resp.StatusCode, env.Error)
	}

	resp, env = do(t, app, getRequest("/api/tickets/"+id+"/history", agentToken))
	var history []struct {
		ChangeType string `json:"change_type"`
	}
	decodeData(t, env, &history)
	if resp.StatusCode != http.StatusOK || len(history) < 2 {
		t.Errorf("history: %d %+v", resp.StatusCode, history)
	}
	if resp, _ := do(t, app, getRequest("/api/tickets/"+id+"/history", customerToken)); resp.StatusCode != http.StatusForbidden {
		t.Errorf("customer history: %d", resp.StatusCode)
	}
	if resp, _ := do(t, app, getRequest("/api/tickets/999", agentToken)); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing ticket: %d", resp.StatusCode)
	}
}

func TestWorkersTriageNewTickets(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	token := registerCustomer(t, srv.App, "Casey", "casey@example.com")
	resp, env := do(t, srv.App, multipartRequest(t, "/api/tickets/raise", token,
		map[string]string{"subject": "Payroll", "message": "My salary payslip is missing, this is urgent"}, "", ""))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("raise: %d", resp.StatusCode)
	}
	var created struct{ ID int64 }
	decodeData(t, env, &created)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_, env := do(t, srv.App, getRequest("/api/tickets/"+itoa(created.ID), token))
		var detail struct {
			Ticket struct {
				Triaged  bool   `json:"triaged"`
				Category string `json:"category"`
			} `json:"ticket"`
		}
		decodeData(t, env, &detail)
		if detail.Ticket.Triaged {
			if detail.Ticket.Category != "HR" {
				t.Errorf("category = %q, want HR", detail.Ticket.Category)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("ticket was never triaged")
}

func TestCorpusAdministration(t *testing.T) {
	srv := newTestServer(t)
	app := srv.App
	adminToken := login(t, app, adminEmail, adminPassword)
	customerToken := registerCustomer(t, app, "Casey", "casey@example.com")

	faq := "Q: How do I reset my password?\nA: Use the forgot password link.\n\nQ: Where is the office?\nA: Building 4."
	resp, env := do(t, app, multipartRequest(t, "/api/ai/admin/upload-faq", adminToken, nil, "faq.txt", faq))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload faq: %d %+v", resp.StatusCode, env.Error)
	}
	if resp, _ := do(t, app, multipartRequest(t, "/api/ai/admin/upload-faq", customerToken, nil, "faq.txt", faq)); resp.StatusCode != http.StatusForbidden {
		t.Errorf("customer upload: %d", resp.StatusCode)
	}
	if resp, _ := do(t, app, multipartRequest(t, "/api/ai/admin/upload-knowledge", adminToken, map[string]string{"x": "y"}, "", "")); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("upload without file: %d", resp.StatusCode)
	}
	resp, _ = do(t, app, multipartRequest(t, "/api/ai/admin/upload-knowledge", adminToken, nil, "vpn.md", "To connect to the VPN open the client and sign in with your badge number."))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload kb: %d", resp.StatusCode)
	}

	resp, env = do(t, app, getRequest("/api/ai/files/faq", adminToken))
	var files struct {
		Files []string `json:"files"`
	}
	decodeData(t, env, &files)
	if resp.StatusCode != http.StatusOK || len(files.Files) != 1 || files.Files[0] != "faq.txt" {
		t.Fatalf("files: %d %+v", resp.StatusCode, files)
	}

	_, env = do(t, app, getRequest("/api/ai/faq/all", ""))
	var entries []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	decodeData(t, env, &entries)
	if len(entries) != 2 || entries[0].Answer != "Use the forgot password link." {
		t.Errorf("faqs = %+v", entries)
	}
	_, env = do(t, app, getRequest("/api/ai/faq/search?q=office", ""))
	decodeData(t, env, &entries)
	if len(entries) == 0 || entries[0].Question != "Where is the office?" {
		t.Errorf("search = %+v", entries)
	}

	resp, env = do(t, app, formRequest(http.MethodPost, "/api/ai/ask", "", url.Values{"question": {"How do I connect to the VPN?"}}))
	var answer struct {
		Answer string `json:"answer"`
	}
	decodeData(t, env, &answer)
	if resp.StatusCode != http.StatusOK || !strings.Contains(answer.Answer, "badge") {
		t.Errorf("ask: %d %q", resp.StatusCode, answer.Answer)
	}

	del := func() int {
		req := httptest.NewRequest(http.MethodDelete, "/api/ai/files/faq/faq.txt", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+adminToken)
		resp, _ := do(t, app, req)
		return resp.StatusCode
	}
	if code := del(); code != http.StatusOK {
		t.Fatalf("delete: %d", code)
	}
	if code := del(); code != http.StatusNotFound {
		t.Errorf("repeated delete: %d", code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// liveCall sends a request to a server listening on a real socket, where
// fasthttp recycles request buffers between connections.
func liveCall(t *testing.T, base string, req *http.Request) envelope {
	t.Helper()
	target, err := url.Parse(base + req.URL.RequestURI())
	if err != nil {
		t.Fatal(err)
	}
	req.URL = target
	req.RequestURI = ""
	req.Host = target.Host
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, target.Path, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s: %v", target.Path, err)
	}
	if resp.StatusCode >= 300 {
		t.Fatalf("%s %s: status %d (%+v)", req.Method, target.Path, resp.StatusCode, env.Error)
	}
	return env
}

func TestStoredValuesSurviveLaterRequests(t *testing.T) {
	srv := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.App.Listener(ln) }()
	t.Cleanup(func() { _ = srv.App.Shutdown() })
	base := "http://" + ln.Addr().String()

	liveCall(t, base, formRequest(http.MethodPost, "/api/auth/register/customer", "",
		url.Values{"name": {"Dana Customer"}, "email": {"dana@example.com"}, "password": {"secret1"}}))
	env := liveCall(t, base, formRequest(http.MethodPost, "/api/auth/login", "",
		url.Values{"email": {"dana@example.com"}, "password": {"secret1"}}))
	var session struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, env, &session)
	token := session.AccessToken

	env = liveCall(t, base, multipartRequest(t, "/api/tickets/raise", token,
		map[string]string{"subject": "VPN down", "message": "Cannot connect"}, "", ""))
	var raised struct {
		ID int64 `json:"id"`
	}
	decodeData(t, env, &raised)
	messagePath := "/api/tickets/" + strconv.FormatInt(raised.ID, 10) + "/message"
	liveCall(t, base, formRequest(http.MethodPost, messagePath, token, url.Values{"text": {"Tried rebooting"}}))

	// Unrelated traffic of similar size reuses the same request buffers.
	for i := 0; i < 5; i++ {
		liveCall(t, base, formRequest(http.MethodPost, "/api/auth/login", "",
			url.Values{"email": {"dana@example.com"}, "password": {"secret1"}}))
		liveCall(t, base, formRequest(http.MethodPost, "/api/ai/ask", "",
			url.Values{"question": {strings.Repeat("z", 40)}}))
	}

	var me struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	decodeData(t, liveCall(t, base, getRequest("/api/auth/me", token)), &me)
	if me.Name != "Dana Customer" || me.Email != "dana@example.com" {
		t.Errorf("me = %+v", me)
	}

	var tickets []struct {
		Subject      string `json:"subject"`
		Message      string `json:"message"`
		CustomerName string `json:"customer_name"`
	}
	decodeData(t, liveCall(t, base, getRequest("/api/tickets/my-tickets", token)), &tickets)
	if len(tickets) != 1 {
		t.Fatalf("tickets = %+v", tickets)
	}
	if got := tickets[0]; got.Subject != "VPN down" || got.Message != "Cannot connect" || got.CustomerName != "Dana Customer" {
		t.Errorf("ticket = %+v", got)
	}

	var messages []struct {
		Text       string `json:"text"`
		SenderName string `json:"sender_name"`
	}
	decodeData(t, liveCall(t, base, getRequest("/api/tickets/"+strconv.FormatInt(raised.ID, 10)+"/messages", token)), &messages)
	if len(messages) != 1 || messages[0].Text != "Tried rebooting" || messages[0].SenderName != "Dana Customer" {
		t.Errorf("messages = %+v", messages)
	}
}
