package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/authorization"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/config"
	feedbackdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/identity"
	licensedomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/license/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/ratelimit"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/sequence"
	ticketdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/domain"
	userdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/user/domain"
	"go.uber.org/zap"
)

var testIdentities = map[string]identity.Identity{
	"admin-token": {ID: 1, Username: "admin", Name: "Admin", Role: identity.RoleAdmin},
	"staff-token": {ID: 2, Username: "staff", Name: "Staff", Role: identity.RoleStaff,
		Permissions: []string{identity.PermissionTickets}},
	"viewer-token": {ID: 3, Username: "viewer", Name: "Viewer", Role: identity.RoleViewer,
		Permissions: []string{identity.PermissionLicenses, identity.PermissionTickets}},
}

type fakeAuthService struct {
	authdomain.Service
	loginCalls int
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	f.loginCalls++
	if req.Password != "correct horse" {
		return nil, authdomain.ErrInvalidCredentials
	}
	return &authdomain.LoginResult{Token: "admin-token", ExpiresAt: time.Now().Add(time.Hour), User: testIdentities["admin-token"]}, nil
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*identity.Identity, error) {
	id, ok := testIdentities[rawToken]
	if !ok {
		return nil, authdomain.ErrInvalidToken
	}
	return &id, nil
}

type fakeLicenseService struct {
	licensedomain.Service
	created []licensedomain.CreateLicenseRequest
}

func (f *fakeLicenseService) Create(ctx context.Context, req licensedomain.CreateLicenseRequest) (*licensedomain.LicenseResponse, error) {
	if req.Name == "" {
		return nil, licensedomain.ErrInvalidName
	}
	f.created = append(f.created, req)
	return &licensedomain.LicenseResponse{ID: "42", Name: req.Name}, nil
}

func (f *fakeLicenseService) List(ctx context.Context, req licensedomain.ListLicenseRequest) ([]licensedomain.LicenseResponse, error) {
	return []licensedomain.LicenseResponse{}, nil
}

type fakeFeedbackService struct {
	feedbackdomain.Service
	submitted int
}

func (f *fakeFeedbackService) PublicLink(ctx context.Context, code string) (*feedbackdomain.PublicLink, error) {
	return nil, feedbackdomain.ErrNotFound
}

func (f *fakeFeedbackService) Submit(ctx context.Context, code string, req feedbackdomain.SubmitRequest) (*feedbackdomain.ResponseView, error) {
	return nil, feedbackdomain.ErrNotFound
}

type fakeTicketService struct {
	ticketdomain.Service
}

func (f *fakeTicketService) Create(ctx context.Context, req ticketdomain.CreateTicketRequest) (*ticketdomain.TicketResponse, error) {
	return nil, sequence.ErrSequenceConflict
}

type fakeUserService struct {
	userdomain.Service
}

func (f *fakeUserService) Delete(ctx context.Context, id string) error {
	return userdomain.ErrUserInUse
}

type testServer struct {
	engine   *gin.Engine
	auth     *fakeAuthService
	license  *fakeLicenseService
	feedback *fakeFeedbackService
}

func newTestServer(t *testing.T, settings config.Settings) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := authorization.NewMemoryEnforcer()
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	clk := clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	ts := &testServer{
		engine:   engine,
		auth:     &fakeAuthService{},
		license:  &fakeLicenseService{},
		feedback: &fakeFeedbackService{},
	}
	NewServer(ServerParams{
		Gin:         engine,
		Clock:       clk,
		Settings:    config.NewStaticSettings(settings),
		Authsvc:     ts.auth,
		AuthzSvc:    authz,
		LicenseSvc:  ts.license,
		FeedbackSvc: ts.feedback,
		TicketSvc:   &fakeTicketService{},
		UserSvc:     &fakeUserService{},
		Limiter:     ratelimit.NewLimiter(nil, clk, zap.NewNop()),
	})
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Error
}

func TestCreateLicenseReturnsCreated(t *testing.T) {
	ts := newTestServer(t, config.DefaultSettings())

	rec := ts.do(http.MethodPost, "/api/licenses", "admin-token", map[string]any{
		"name":       "Office365",
		"licenseKey": "ABC-123",
		"addons": []map[string]any{
			{"name": "Visio"},
			{"name": "Project"},
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, ts.license.created, 1)
	assert.Equal(t, "Office365", ts.license.created[0].Name)
	assert.Len(t, ts.license.created[0].Addons, 2)
}

func TestValidationErrorShape(t *testing.T) {
	ts := newTestServer(t, config.DefaultSettings())

	rec := ts.do(http.MethodPost, "/api/licenses", "admin-token", map[string]any{"licenseKey": "k"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_name", payload.Errors[0].Code)
	assert.Equal(t, "name", payload.Errors[0].Field)
}

func TestAuthAndRoleGates(t *testing.T) {
	ts := newTestServer(t, config.DefaultSettings())

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"missing token", http.MethodGet, "/api/licenses", "", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/licenses", "nope", http.StatusUnauthorized},
		{"viewer reads licenses", http.MethodGet, "/api/licenses", "viewer-token", http.StatusOK},
		{"viewer cannot delete licenses", http.MethodDelete, "/api/licenses/1", "viewer-token", http.StatusForbidden},
		{"staff without module permission", http.MethodGet, "/api/licenses", "staff-token", http.StatusForbidden},
		{"viewer cannot administer users", http.MethodGet, "/api/users", "viewer-token", http.StatusForbidden},
		{"viewer cannot read audit", http.MethodGet, "/api/audit-logs", "viewer-token", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.do(tc.method, tc.path, tc.token, nil)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestInvalidTokenMessage(t *testing.T) {
	ts := newTestServer(t, config.DefaultSettings())

	rec := ts.do(http.MethodGet, "/api/auth/me", "expired", nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", decodeError(t, rec).Message)
}

func TestMeReturnsIdentity(t *testing.T) {
	ts := newTestServer(t, config.DefaultSettings())

	rec := ts.do(http.MethodGet, "/api/auth/me", "viewer-token", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data identity.Identity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, snowflake.ID(3), out.Data.ID)
	assert.Equal(t, identity.RoleViewer, out.Data.Role)
}

func TestPublicFeedbackUnknownLink(t *testing.T) {
	ts := newTestServer(t, config.DefaultSettings())

	rec := ts.do(http.MethodPost, "/api/public/feedback/missing/responses", "", map[string]any{"rating": 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/public/feedback/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	settings := config.DefaultSettings()
	settings.LoginRateLimit = 2
	ts := newTestServer(t, settings)

	body := map[string]any{"username": "admin", "password": "wrong"}
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/auth/login", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/auth/login", "", body).Code)

	rec := ts.do(http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 2, ts.auth.loginCalls)
}

func TestSequenceConflictIsDistinguished(t *testing.T) {
	ts := newTestServer(t, config.DefaultSettings())

	rec := ts.do(http.MethodPost, "/api/tickets", "viewer-token", map[string]any{"title": "Printer jam"})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "sequence_conflict", decodeError(t, rec).Type)
}

func TestUserInUseIsConflict(t *testing.T) {
	ts := newTestServer(t, config.DefaultSettings())

	rec := ts.do(http.MethodDelete, "/api/users/7", "admin-token", nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Type)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	ts := newTestServer(t, config.DefaultSettings())

	rec := ts.do(http.MethodGet, "/api/nowhere", "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapErrorFallsBackToInternal(t *testing.T) {
	status, payload := mapError(context.DeadlineExceeded)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", payload.Type)

	kind, code := classifyErrorForLog(licensedomain.ErrInvalidSeats)
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "invalid_seats", code)
}
