package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-registration-engine/internal/clock"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/handler"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/logging"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/repository"
	"github.com/Shivanand-hulikatti/event-registration-engine/internal/service"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type api struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := repository.NewMemoryStore()
	log := logging.Discard()
	opts := []service.Option{service.WithClock(clock.NewManual(now)), service.WithLogger(log)}

	events := service.NewEventService(store, opts...)
	inventory := service.NewInventory(store, store, opts...)
	ledger := service.NewLedger(store, store, store, inventory, opts...)
	teams := service.NewTeamService(store, store, ledger, opts...)

	return &api{t: t, router: handler.NewRouter(handler.RouterConfig{
		Handler:     handler.New(events, inventory, ledger, teams, log),
		Log:         log,
		CORSOrigins: []string{"https://app.example.org"},
	})}
}

type caller struct {
	id   string
	role string
}

var (
	anonymous = caller{}
	org       = caller{"org-1", "organizer"}
	alice     = caller{"alice", ""}
	bob       = caller{"bob", "participant"}
)

// do sends a request and decodes a JSON response body into out when set.
func (a *api) do(method, path string, as caller, body any, out any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as.id != "" {
		req.Header.Set(handler.HeaderUserID, as.id)
	}
	if as.role != "" {
		req.Header.Set(handler.HeaderUserRole, as.role)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

type apiError struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Kind      string            `json:"kind"`
	Retryable bool              `json:"retryable"`
	Details   map[string]string `json:"details"`
}

func (a *api) expectError(rec *httptest.ResponseRecorder, status int, code string) apiError {
	a.t.Helper()
	var e apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		a.t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	if rec.Code != status || e.Code != code {
		a.t.Fatalf("expected %d %s, got %d %s (%s)", status, code, rec.Code, e.Code, e.Error)
	}
	return e
}

// publishedEvent creates and publishes an event, returning its id.
func (a *api) publishedEvent(body map[string]any) string {
	a.t.Helper()
	base := map[string]any{
		"name":                  "Hack Night",
		"registration_deadline": now.Add(7 * 24 * time.Hour),
		"start_date":            now.Add(10 * 24 * time.Hour),
		"end_date":              now.Add(11 * 24 * time.Hour),
		"registration_limit":    10,
	}
	for k, v := range body {
		base[k] = v
	}
	var ev struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if rec := a.do(http.MethodPost, "/events", org, base, &ev); rec.Code != http.StatusCreated {
		a.t.Fatalf("create event: %d %s", rec.Code, rec.Body.String())
	}
	if ev.Status != "draft" {
		a.t.Fatalf("expected draft, got %s", ev.Status)
	}
	if rec := a.do(http.MethodPost, "/events/"+ev.ID+"/status", org, map[string]string{"status": "published"}, nil); rec.Code != http.StatusOK {
		a.t.Fatalf("publish event: %d %s", rec.Code, rec.Body.String())
	}
	return ev.ID
}

type ticket struct {
	TicketID      string `json:"ticket_id"`
	ParticipantID string `json:"participant_id"`
	PaymentStatus string `json:"payment_status"`
	Amount        int64  `json:"amount"`
	Event         *struct {
		Name string `json:"name"`
	} `json:"event"`
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	var body map[string]string
	rec := a.do(http.MethodGet, "/health", anonymous, nil, &body)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", rec.Code, body)
	}
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	a.expectError(a.do(http.MethodGet, "/nope", anonymous, nil, nil), http.StatusNotFound, "NOT_FOUND")
}

func TestMutationsRequireIdentity(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	a.expectError(a.do(http.MethodPost, "/events", anonymous, map[string]any{"name": "x"}, nil),
		http.StatusUnauthorized, "UNAUTHENTICATED")
	a.expectError(a.do(http.MethodGet, "/tickets/TICKET-X", anonymous, nil, nil),
		http.StatusUnauthorized, "UNAUTHENTICATED")

	a.expectError(a.do(http.MethodPost, "/events", caller{"x", "superuser"}, map[string]any{"name": "x"}, nil),
		http.StatusBadRequest, "INVALID_INPUT")
}

func TestCreateEventValidation(t *testing.T) {
	t.Parallel()
	a := newAPI(t)

	e := a.expectError(a.do(http.MethodPost, "/events", org, map[string]any{"registration_limit": 5}, nil),
		http.StatusBadRequest, "INVALID_INPUT")
	if e.Details["name"] != "required" {
		t.Fatalf("expected name=required detail, got %v", e.Details)
	}

	a.expectError(a.do(http.MethodPost, "/events", org, `{"name":"x","colour":"red"}`, nil),
		http.StatusBadRequest, "INVALID_REQUEST_BODY")

	a.expectError(a.do(http.MethodPost, "/events", bob, map[string]any{
		"name":                  "Hack Night",
		"registration_deadline": now.Add(time.Hour),
		"registration_limit":    5,
	}, nil), http.StatusForbidden, "UNAUTHORIZED")
}

func TestTransitionErrors(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	id := a.publishedEvent(nil)

	e := a.expectError(a.do(http.MethodPost, "/events/"+id+"/status", org, map[string]string{"status": "draft"}, nil),
		http.StatusConflict, "INVALID_TRANSITION")
	if e.Details["from"] != "published" || e.Details["to"] != "draft" {
		t.Fatalf("unexpected details %v", e.Details)
	}
	a.expectError(a.do(http.MethodPost, "/events/"+id+"/status", caller{"org-2", "organizer"}, map[string]string{"status": "ongoing"}, nil),
		http.StatusForbidden, "UNAUTHORIZED")
	a.expectError(a.do(http.MethodGet, "/events/missing", anonymous, nil, nil),
		http.StatusNotFound, "EVENT_NOT_FOUND")
}

func TestRegisterFlow(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	id := a.publishedEvent(map[string]any{"registration_limit": 1, "fee": 250})

	var tk ticket
	rec := a.do(http.MethodPost, "/events/"+id+"/register", alice, nil, &tk)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	if tk.ParticipantID != "alice" || tk.PaymentStatus != "pending" || tk.Amount != 250 || tk.Event == nil {
		t.Fatalf("unexpected ticket %+v", tk)
	}

	a.expectError(a.do(http.MethodPost, "/events/"+id+"/register", bob, nil, nil),
		http.StatusConflict, "CAPACITY_REACHED")

	var got ticket
	if rec := a.do(http.MethodGet, "/tickets/"+tk.TicketID, alice, nil, &got); rec.Code != http.StatusOK || got.TicketID != tk.TicketID {
		t.Fatalf("get ticket: %d %s", rec.Code, rec.Body.String())
	}
	a.expectError(a.do(http.MethodGet, "/tickets/"+tk.TicketID, bob, nil, nil), http.StatusForbidden, "UNAUTHORIZED")

	var regs []ticket
	if rec := a.do(http.MethodGet, "/events/"+id+"/registrations", org, nil, &regs); rec.Code != http.StatusOK || len(regs) != 1 {
		t.Fatalf("list registrations: %d %s", rec.Code, rec.Body.String())
	}

	var ev struct {
		RegistrationCount int   `json:"registration_count"`
		Remaining         *int  `json:"remaining"`
		Revenue           int64 `json:"revenue"`
	}
	a.do(http.MethodGet, "/events/"+id, anonymous, nil, &ev)
	if ev.RegistrationCount != 1 || ev.Remaining == nil || *ev.Remaining != 0 || ev.Revenue != 250 {
		t.Fatalf("unexpected event counters %+v", ev)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	id := a.publishedEvent(nil)

	var tk ticket
	a.do(http.MethodPost, "/events/"+id+"/register", alice, nil, &tk)
	e := a.expectError(a.do(http.MethodPost, "/events/"+id+"/register", alice, nil, nil),
		http.StatusConflict, "ALREADY_REGISTERED")
	if e.Details["ticket_id"] != tk.TicketID {
		t.Fatalf("expected existing ticket id, got %v", e.Details)
	}
}

func TestRegisterPaymentStatusIsSetByOrganizers(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	id := a.publishedEvent(map[string]any{"fee": 5000})

	a.expectError(a.do(http.MethodPost, "/events/"+id+"/register", alice, map[string]string{"payment_status": "paid"}, nil),
		http.StatusForbidden, "UNAUTHORIZED")

	var tk ticket
	if rec := a.do(http.MethodPost, "/events/"+id+"/register", alice, nil, &tk); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	if tk.PaymentStatus != "pending" {
		t.Fatalf("expected pending, got %s", tk.PaymentStatus)
	}

	var comp ticket
	if rec := a.do(http.MethodPost, "/events/"+id+"/register", org, map[string]string{"payment_status": "paid"}, &comp); rec.Code != http.StatusCreated {
		t.Fatalf("organizer register: %d %s", rec.Code, rec.Body.String())
	}
	if comp.PaymentStatus != "paid" || comp.Amount != 5000 {
		t.Fatalf("unexpected organizer ticket %+v", comp)
	}
}

func TestRegisterNormalEventRejectsMerchandiseFields(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	id := a.publishedEvent(nil)

	a.expectError(a.do(http.MethodPost, "/events/"+id+"/register", alice, map[string]any{"quantity": 7}, nil),
		http.StatusBadRequest, "INVALID_INPUT")
	a.expectError(a.do(http.MethodPost, "/events/"+id+"/register", alice,
		map[string]any{"variant": map[string]string{"size": "M", "color": "black"}}, nil),
		http.StatusBadRequest, "INVALID_INPUT")

	if rec := a.do(http.MethodPost, "/events/"+id+"/register", alice, map[string]any{"quantity": 1}, nil); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMerchandiseStockErrors(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	id := a.publishedEvent(map[string]any{
		"type":               "merchandise",
		"registration_limit": 0,
		"purchase_limit":     2,
		"fee":                1500,
		"variants":           []map[string]any{{"size": "M", "color": "black", "stock": 1}},
	})
	black := map[string]string{"size": "M", "color": "black"}

	a.expectError(a.do(http.MethodPost, "/events/"+id+"/register", alice, map[string]any{}, nil),
		http.StatusBadRequest, "VARIANT_REQUIRED")
	a.expectError(a.do(http.MethodPost, "/events/"+id+"/register", alice, map[string]any{"variant": black, "quantity": 3}, nil),
		http.StatusConflict, "PURCHASE_LIMIT_EXCEEDED")

	e := a.expectError(a.do(http.MethodPost, "/events/"+id+"/register", alice, map[string]any{"variant": black, "quantity": 2}, nil),
		http.StatusConflict, "INSUFFICIENT_STOCK")
	if !e.Retryable || e.Details["available"] != "1" {
		t.Fatalf("expected retryable with available=1, got %+v", e)
	}

	if rec := a.do(http.MethodPost, "/events/"+id+"/register", alice, map[string]any{"variant": black}, nil); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	var stock []struct {
		Stock int `json:"stock"`
	}
	if rec := a.do(http.MethodGet, "/events/"+id+"/stock", anonymous, nil, &stock); rec.Code != http.StatusOK || stock[0].Stock != 0 {
		t.Fatalf("stock: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAttendance(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	id := a.publishedEvent(nil)

	var tk ticket
	a.do(http.MethodPost, "/events/"+id+"/register", alice, nil, &tk)

	a.expectError(a.do(http.MethodPost, "/tickets/"+tk.TicketID+"/attendance", alice, nil, nil),
		http.StatusForbidden, "UNAUTHORIZED")

	var rec struct {
		AttendedAt      time.Time `json:"attended_at"`
		AlreadyAttended bool      `json:"already_attended"`
	}
	if r := a.do(http.MethodPost, "/tickets/"+tk.TicketID+"/attendance", org, nil, &rec); r.Code != http.StatusOK {
		t.Fatalf("mark: %d %s", r.Code, r.Body.String())
	}
	if !rec.AttendedAt.Equal(now) || rec.AlreadyAttended {
		t.Fatalf("unexpected attendance %+v", rec)
	}

	e := a.expectError(a.do(http.MethodPost, "/tickets/"+tk.TicketID+"/attendance", org, nil, nil),
		http.StatusConflict, "ALREADY_ATTENDED")
	if e.Details["attendance_time"] != now.Format(time.RFC3339Nano) {
		t.Fatalf("expected original time, got %v", e.Details)
	}

	a.expectError(a.do(http.MethodPost, "/tickets/"+tk.TicketID+"/cancel", alice, nil, nil),
		http.StatusConflict, "ALREADY_ATTENDED")
	var got struct {
		Status string `json:"status"`
	}
	if r := a.do(http.MethodGet, "/tickets/"+tk.TicketID, alice, nil, &got); r.Code != http.StatusOK || got.Status != "completed" {
		t.Fatalf("expected completed ticket: %d %s", r.Code, r.Body.String())
	}
}

func TestCancelTicket(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	id := a.publishedEvent(nil)

	var tk ticket
	a.do(http.MethodPost, "/events/"+id+"/register", alice, nil, &tk)

	var cancelled struct {
		Status string `json:"status"`
	}
	if rec := a.do(http.MethodPost, "/tickets/"+tk.TicketID+"/cancel", alice, nil, &cancelled); rec.Code != http.StatusOK || cancelled.Status != "cancelled" {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	a.expectError(a.do(http.MethodPost, "/tickets/"+tk.TicketID+"/cancel", alice, nil, nil),
		http.StatusConflict, "ALREADY_CANCELLED")
}

func TestTeamFlow(t *testing.T) {
	t.Parallel()
	a := newAPI(t)
	id := a.publishedEvent(nil)

	type team struct {
		ID         string   `json:"id"`
		InviteCode string   `json:"invite_code"`
		Status     string   `json:"status"`
		Tickets    []ticket `json:"tickets"`
		Members    []struct {
			ParticipantID string `json:"participant_id"`
		} `json:"members"`
	}

	a.expectError(a.do(http.MethodPost, "/events/"+id+"/teams", alice, map[string]any{"name": "Pair", "target_size": 9}, nil),
		http.StatusBadRequest, "INVALID_SIZE")

	var created team
	if rec := a.do(http.MethodPost, "/events/"+id+"/teams", alice, map[string]any{"name": "Pair", "target_size": 2}, &created); rec.Code != http.StatusCreated {
		t.Fatalf("create team: %d %s", rec.Code, rec.Body.String())
	}
	if created.Status != "forming" || len(created.Members) != 1 {
		t.Fatalf("unexpected team %+v", created)
	}

	e := a.expectError(a.do(http.MethodPost, "/events/"+id+"/register", alice, nil, nil),
		http.StatusConflict, "ALREADY_IN_TEAM")
	if e.Details["team_id"] != created.ID {
		t.Fatalf("expected team id detail, got %v", e.Details)
	}

	a.expectError(a.do(http.MethodGet, "/events/"+id+"/teams/mine", bob, nil, nil), http.StatusNotFound, "TEAM_NOT_FOUND")
	a.expectError(a.do(http.MethodPost, "/events/"+id+"/teams/join", bob, map[string]string{"invite_code": "not-valid!"}, nil),
		http.StatusBadRequest, "INVALID_INPUT")

	var joined team
	if rec := a.do(http.MethodPost, "/events/"+id+"/teams/join", bob, map[string]string{"invite_code": created.InviteCode}, &joined); rec.Code != http.StatusOK {
		t.Fatalf("join: %d %s", rec.Code, rec.Body.String())
	}
	if joined.Status != "completed" || len(joined.Tickets) != 2 {
		t.Fatalf("expected completed team with 2 tickets, got %+v", joined)
	}

	var mine team
	if rec := a.do(http.MethodGet, "/events/"+id+"/teams/mine", bob, nil, &mine); rec.Code != http.StatusOK || mine.ID != created.ID {
		t.Fatalf("my team: %d %s", rec.Code, rec.Body.String())
	}
	a.expectError(a.do(http.MethodPost, "/events/"+id+"/teams/join", caller{"carol", ""}, map[string]string{"invite_code": created.InviteCode}, nil),
		http.StatusConflict, "TEAM_FULL")
}

func TestCORS(t *testing.T) {
	t.Parallel()
	a := newAPI(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/events", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		a.router.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("https://app.example.org")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.org" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	a.expectError(preflight("https://evil.example.com"), http.StatusForbidden, "UNAUTHORIZED")
}
