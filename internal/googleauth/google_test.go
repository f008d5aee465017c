package googleauth

import (
	"context"
	"net/url"
	"strings"
	"testing"
)

func TestAuthURL_CarriesStateAndScopes(t *testing.T) {
	t.Parallel()
	f := New("client-1", "secret", "http://127.0.0.1:8123/callback")
	if !f.Configured() {
		t.Fatalf("flow with client ID must report configured")
	}

	state, err := f.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state == "" {
		t.Fatalf("empty state")
	}

	raw := f.AuthURL(state)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := u.Query()
	if q.Get("state") != state {
		t.Errorf("state not on url: %q", q.Get("state"))
	}
	if q.Get("client_id") != "client-1" {
		t.Errorf("client_id not on url: %q", q.Get("client_id"))
	}
	if !strings.Contains(q.Get("scope"), "openid") {
		t.Errorf("openid scope missing: %q", q.Get("scope"))
	}
}

func TestState_Unique(t *testing.T) {
	t.Parallel()
	f := New("client-1", "", "")
	a, err := f.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	b, err := f.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if a == b {
		t.Fatalf("states must not repeat")
	}
}

func TestExchange_EmptyCode(t *testing.T) {
	t.Parallel()
	f := New("client-1", "", "")
	if _, err := f.Exchange(context.Background(), ""); err == nil {
		t.Fatalf("empty code must fail before any network call")
	}
}
