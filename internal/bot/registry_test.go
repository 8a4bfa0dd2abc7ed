package bot

import (
	"context"
	"sort"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dkraev/tg-bot-backend/internal/domain"
)

// stubHandler is the minimal Handler for registry tests.
type stubHandler struct {
	allow bool
	err   error
	calls int
}

func (h *stubHandler) CanExecute(context.Context, *tgbotapi.Update, *domain.Principal) bool {
	return h.allow
}

func (h *stubHandler) Execute(context.Context, *tgbotapi.Update, *domain.Principal) error {
	h.calls++
	return h.err
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	h := &stubHandler{allow: true}
	r.Register("Start", h)

	got, ok := r.Resolve("start")
	if !ok || got != Handler(h) {
		t.Fatalf("lowercase resolve failed")
	}
	if _, ok := r.Resolve("START"); !ok {
		t.Fatalf("uppercase resolve failed")
	}
	if _, ok := r.Resolve("help"); ok {
		t.Fatalf("resolved unregistered command")
	}

	// A second registration under the same keyword replaces the first.
	other := &stubHandler{allow: true}
	r.Register("start", other)
	got, _ = r.Resolve("start")
	if got != Handler(other) {
		t.Fatalf("re-registration did not replace handler")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register("start", &stubHandler{})
	r.Register("Help", &stubHandler{})
	r.Register("stats", &stubHandler{})

	names := r.Names()
	sort.Strings(names)
	want := []string{"help", "start", "stats"}
	if len(names) != len(want) {
		t.Fatalf("names: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names: %v; want %v", names, want)
		}
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		text string
		cmd  string
		args string
		ok   bool
	}{
		{"/start", "start", "", true},
		{"/Start", "start", "", true},
		{"/start arg one", "start", "arg one", true},
		{"/stats@MyTestBot", "stats", "", true},
		{"/stats@MyTestBot 7d", "stats", "7d", true},
		{"  /help  ", "help", "", true},
		{"/help\textra", "help", "extra", true},
		{"hello", "", "", false},
		{"/", "", "", false},
		{"/@bot", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		cmd, args, ok := ParseCommand(tc.text)
		if cmd != tc.cmd || args != tc.args || ok != tc.ok {
			t.Fatalf("ParseCommand(%q) = (%q, %q, %v); want (%q, %q, %v)",
				tc.text, cmd, args, ok, tc.cmd, tc.args, tc.ok)
		}
	}
}
