package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/repo"
	"github.com/dkraev/tg-bot-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

//
// Service stubs. Each method delegates to an optional function field so a
// test overrides exactly the calls it cares about.
//

type stubAuth struct {
	login   func(ctx context.Context, req services.LoginRequest) (*services.TokenPair, error)
	refresh func(ctx context.Context, token string) (*services.TokenPair, error)
	logout  func(ctx context.Context, token string) error
}

func (s *stubAuth) Login(ctx context.Context, req services.LoginRequest) (*services.TokenPair, error) {
	return s.login(ctx, req)
}

func (s *stubAuth) Refresh(ctx context.Context, token string) (*services.TokenPair, error) {
	return s.refresh(ctx, token)
}

func (s *stubAuth) Logout(ctx context.Context, token string) error {
	return s.logout(ctx, token)
}

type stubUsers struct {
	listPage func(ctx context.Context, offset, limit int) (*services.PrincipalPage, error)
	get      func(ctx context.Context, id int64) (*domain.Principal, error)
	block    func(ctx context.Context, id int64, reason string) error
	unblock  func(ctx context.Context, id int64) error
}

func (s *stubUsers) ListPage(ctx context.Context, offset, limit int) (*services.PrincipalPage, error) {
	return s.listPage(ctx, offset, limit)
}

func (s *stubUsers) Get(ctx context.Context, id int64) (*domain.Principal, error) {
	return s.get(ctx, id)
}

func (s *stubUsers) Block(ctx context.Context, id int64, reason string) error {
	return s.block(ctx, id, reason)
}

func (s *stubUsers) Unblock(ctx context.Context, id int64) error {
	return s.unblock(ctx, id)
}

type stubStats struct {
	resolve    func(period string, start, end time.Time) (time.Time, time.Time, error)
	statistics func(ctx context.Context, start, end time.Time) (*services.Statistics, error)
	top        func(ctx context.Context, start, end time.Time, limit int) ([]repo.CommandCount, error)
	activity   func(ctx context.Context, start, end time.Time, granularity string) (*services.ActivityReport, error)
	errs       func(ctx context.Context, start, end time.Time, limit int) (*services.ErrorReport, error)
}

func (s *stubStats) ResolveWindow(period string, start, end time.Time) (time.Time, time.Time, error) {
	if s.resolve != nil {
		return s.resolve(period, start, end)
	}
	return services.NewAnalyticsService(nil, zerolog.Nop()).ResolveWindow(period, start, end)
}

func (s *stubStats) GetStatistics(ctx context.Context, start, end time.Time) (*services.Statistics, error) {
	return s.statistics(ctx, start, end)
}

func (s *stubStats) TopCommands(ctx context.Context, start, end time.Time, limit int) ([]repo.CommandCount, error) {
	return s.top(ctx, start, end, limit)
}

func (s *stubStats) UserActivity(ctx context.Context, start, end time.Time, granularity string) (*services.ActivityReport, error) {
	return s.activity(ctx, start, end, granularity)
}

func (s *stubStats) ErrorStatistics(ctx context.Context, start, end time.Time, limit int) (*services.ErrorReport, error) {
	return s.errs(ctx, start, end, limit)
}

type stubBot struct {
	mode    func(ctx context.Context) (string, error)
	handle  func(ctx context.Context, secret string, body []byte) error
	enable  func(ctx context.Context, baseURL, secret string) (string, error)
	disable func(ctx context.Context) error
}

func (s *stubBot) Mode(ctx context.Context) (string, error) {
	return s.mode(ctx)
}

func (s *stubBot) HandleWebhookUpdate(ctx context.Context, secret string, body []byte) error {
	return s.handle(ctx, secret, body)
}

func (s *stubBot) EnableWebhook(ctx context.Context, baseURL, secret string) (string, error) {
	return s.enable(ctx, baseURL, secret)
}

func (s *stubBot) DisableWebhook(ctx context.Context) error {
	return s.disable(ctx)
}

//
// Router and request helpers
//

// newRouter mounts every handler under the same paths the application uses.
func newRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.POST("/webhook/:secret", h.Webhook)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.RefreshToken)
	r.POST("/auth/logout", h.Logout)
	r.GET("/analytics/statistics", h.Statistics)
	r.GET("/analytics/commands", h.TopCommands)
	r.GET("/analytics/activity", h.Activity)
	r.GET("/analytics/errors", h.Errors)
	r.GET("/users", h.ListUsers)
	r.GET("/users/:id", h.GetUser)
	r.POST("/users/:id/block", h.BlockUser)
	r.DELETE("/users/:id/block", h.UnblockUser)
	r.GET("/bot/status", h.BotStatus)
	r.PUT("/bot/webhook", h.EnableWebhook)
	r.DELETE("/bot/webhook", h.DisableWebhook)
	return r
}

// perform runs one request against the router and returns the recorder.
func perform(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	switch v := payload.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case []byte:
		body = bytes.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeError unmarshals the standard error envelope.
func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v (body %q)", err, w.Body.String())
	}
	return resp
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d; want %d (body %q)", w.Code, want, w.Body.String())
	}
}
