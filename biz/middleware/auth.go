package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/survey_vault/pkg/common"
	"github.com/yi-nology/survey_vault/pkg/session"
)

// Auth returns a middleware that verifies the session token, if any, and
// adds the session to the context. The token is read from a bearer
// Authorization header, then from cookieName. This middleware does NOT
// enforce authentication: a missing or invalid token leaves the request
// anonymous.
func Auth(verifier *session.Verifier, cookieName string) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		raw := bearerToken(string(c.GetHeader("Authorization")))
		if raw == "" && cookieName != "" {
			raw = string(c.Cookie(cookieName))
		}
		if raw != "" {
			sess, err := verifier.Verify(raw)
			if err != nil {
				hlog.CtxDebugf(ctx, "ignoring session token: %v", err)
			} else {
				ctx = session.WithSession(ctx, sess)
			}
		}
		c.Next(ctx)
	}
}

// RequireAuth returns a middleware that enforces authentication.
// Requests that Auth left anonymous are rejected with 401.
func RequireAuth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if _, ok := session.FromContext(ctx); !ok {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, common.Fail(consts.StatusUnauthorized, "authentication required", nil))
			return
		}
		c.Next(ctx)
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
