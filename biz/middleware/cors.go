package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yi-nology/survey_vault/pkg/config"
)

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// AllowOrigin is "*" or a comma separated list of origins; a listed origin
// is echoed back so that credentialed requests work.
func CORS(cfg *config.CORSConfig) app.HandlerFunc {
	// Use defaults if config is nil
	allowMethods := "GET,POST,DELETE,OPTIONS"
	allowHeaders := "Authorization,Content-Type"
	allowCredentials := false
	origins := map[string]struct{}{}
	wildcard := true

	if cfg != nil {
		if cfg.AllowOrigin != "" && cfg.AllowOrigin != "*" {
			wildcard = false
			for _, o := range strings.Split(cfg.AllowOrigin, ",") {
				if o = strings.TrimSpace(o); o != "" {
					origins[o] = struct{}{}
				}
			}
		}
		if cfg.AllowMethods != "" {
			allowMethods = cfg.AllowMethods
		}
		if cfg.AllowHeaders != "" {
			allowHeaders = cfg.AllowHeaders
		}
		allowCredentials = cfg.AllowCredentials
	}

	return func(ctx context.Context, c *app.RequestContext) {
		origin := string(c.GetHeader("Origin"))
		switch {
		case wildcard && !allowCredentials:
			c.Response.Header.Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := origins[origin]; ok || wildcard {
				c.Response.Header.Set("Access-Control-Allow-Origin", origin)
				c.Response.Header.Add("Vary", "Origin")
			}
		}
		c.Response.Header.Set("Access-Control-Allow-Methods", allowMethods)
		c.Response.Header.Set("Access-Control-Allow-Headers", allowHeaders)
		c.Response.Header.Set("Access-Control-Expose-Headers", "Content-Disposition")
		if allowCredentials {
			c.Response.Header.Set("Access-Control-Allow-Credentials", "true")
		}

		// Handle preflight requests
		if string(c.Request.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}

		c.Next(ctx)
	}
}
