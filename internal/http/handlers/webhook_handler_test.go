package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/dkraev/tg-bot-backend/internal/bot"
)

func TestWebhook_ValidDelivery(t *testing.T) {
	var gotSecret string
	var gotBody []byte
	h := New(nil, nil, nil, &stubBot{
		handle: func(_ context.Context, secret string, body []byte) error {
			gotSecret, gotBody = secret, body
			return nil
		},
	}, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/webhook/s3cr3t", []byte(`{"update_id":1}`))
	expectStatus(t, w, http.StatusOK)
	if gotSecret != "s3cr3t" || string(gotBody) != `{"update_id":1}` {
		t.Fatalf("delivery: secret=%q body=%q", gotSecret, gotBody)
	}
}

func TestWebhook_BadSecret(t *testing.T) {
	h := New(nil, nil, nil, &stubBot{
		handle: func(context.Context, string, []byte) error { return bot.ErrBadSecret },
	}, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/webhook/wrong", []byte(`{"update_id":1}`))
	expectStatus(t, w, http.StatusUnauthorized)
	if resp := decodeError(t, w); resp.Code != ErrCodeUnauthorized {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestWebhook_BadPayload(t *testing.T) {
	h := New(nil, nil, nil, &stubBot{
		handle: func(context.Context, string, []byte) error { return bot.ErrBadPayload },
	}, nil)

	w := perform(t, newRouter(h), http.MethodPost, "/webhook/s3cr3t", []byte("{broken"))
	expectStatus(t, w, http.StatusBadRequest)
	if resp := decodeError(t, w); resp.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", resp.Code)
	}
}
