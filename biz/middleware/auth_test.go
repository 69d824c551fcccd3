package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/survey_vault/pkg/session"
)

func newAuthServer(t *testing.T) (*server.Hertz, string) {
	t.Helper()
	verifier := session.NewVerifier("middleware-secret", "")
	token, err := verifier.Issue("u42", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	h := server.New(server.WithHostPorts("127.0.0.1:0"))
	h.Use(Recovery(), Auth(verifier, "session_token"))
	whoami := func(ctx context.Context, c *app.RequestContext) {
		if sess, ok := session.FromContext(ctx); ok {
			c.String(consts.StatusOK, sess.UserID)
			return
		}
		c.String(consts.StatusOK, "anonymous")
	}
	h.GET("/whoami", whoami)
	h.GET("/private", RequireAuth(), whoami)
	h.GET("/panic", func(ctx context.Context, c *app.RequestContext) { panic("boom") })
	return h, token
}

func TestAuth(t *testing.T) {
	h, token := newAuthServer(t)

	cases := []struct {
		name    string
		headers []ut.Header
		want    string
	}{
		{"none", nil, "anonymous"},
		{"bearer", []ut.Header{{Key: "Authorization", Value: "Bearer " + token}}, "u42"},
		{"lowercase scheme", []ut.Header{{Key: "Authorization", Value: "bearer " + token}}, "u42"},
		{"cookie", []ut.Header{{Key: "Cookie", Value: "session_token=" + token}}, "u42"},
		{"invalid", []ut.Header{{Key: "Authorization", Value: "Bearer not-a-jwt"}}, "anonymous"},
		{"basic", []ut.Header{{Key: "Authorization", Value: "Basic dTpw"}}, "anonymous"},
	}
	for _, tc := range cases {
		resp := ut.PerformRequest(h.Engine, consts.MethodGet, "/whoami", nil, tc.headers...).Result()
		if got := string(resp.Body()); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	h, token := newAuthServer(t)

	resp := ut.PerformRequest(h.Engine, consts.MethodGet, "/private", nil).Result()
	if resp.StatusCode() != consts.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode())
	}

	resp = ut.PerformRequest(h.Engine, consts.MethodGet, "/private", nil,
		ut.Header{Key: "Authorization", Value: "Bearer " + token}).Result()
	if resp.StatusCode() != consts.StatusOK || string(resp.Body()) != "u42" {
		t.Fatalf("expected 200 u42, got %d %q", resp.StatusCode(), resp.Body())
	}
}

func TestRecovery(t *testing.T) {
	h, _ := newAuthServer(t)
	resp := ut.PerformRequest(h.Engine, consts.MethodGet, "/panic", nil).Result()
	if resp.StatusCode() != consts.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode())
	}
}
