package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/survey_vault/pkg/session"
)

// Logging returns a middleware that logs request and response information.
func Logging() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()

		// Process request
		c.Next(ctx)

		// Calculate latency
		latency := time.Since(start)

		// Get request details
		method := string(c.Request.Method())
		// Only the path is logged: blob URLs carry read tokens in the query.
		path := string(c.Request.URI().Path())
		statusCode := c.Response.StatusCode()
		clientIP := c.ClientIP()

		user := "-"
		if sess, ok := session.FromContext(ctx); ok {
			user = sess.UserID
		}

		// Log the request
		hlog.CtxInfof(ctx, "[%s] %s %s %s %d %v",
			clientIP,
			user,
			method,
			path,
			statusCode,
			latency,
		)
	}
}
