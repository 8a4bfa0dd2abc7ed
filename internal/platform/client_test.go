package platform

import (
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"explicit 429", &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}, ErrClassRateLimited},
		{"retry-after without code", &tgbotapi.Error{Code: 400, ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 30}}, ErrClassRateLimited},
		{"platform rejection", &tgbotapi.Error{Code: 403, Message: "Forbidden"}, ErrClassPlatform},
		{"wrapped platform rejection", fmt.Errorf("send: %w", &tgbotapi.Error{Code: 400}), ErrClassPlatform},
		{"plain transport error", errors.New("connection refused"), ErrClassNetwork},
	}
	for _, tc := range cases {
		if got := ClassifyError(tc.err); got != tc.want {
			t.Fatalf("%s: class = %v; want %v", tc.name, got, tc.want)
		}
	}
}
