// Package middleware – response hardening headers.
//
// SecurityHeaders covers the control plane, a JSON API for operator tooling:
// sniffing and framing protections on every response, browser feature
// policies and HSTS by configuration. Paths that carry credentials (the
// webhook route with its embedded secret, the auth endpoints returning token
// pairs) are always marked uncacheable, whatever the options say.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// defaultHSTSMaxAge applies when HSTS is enabled without an explicit lifetime.
const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures the headers emitted by SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS responses only.
	// Requires HTTPS end to end, the proxy hop included.
	EnableHSTS bool
	// HSTSMaxAge is the HSTS lifetime; zero selects defaultHSTSMaxAge.
	HSTSMaxAge time.Duration
	// NoStore marks every response uncacheable, not just credential paths.
	NoStore bool
	// EnablePolicy adds browser feature restrictions. They only bind user
	// agents and are harmless for non-browser clients.
	EnablePolicy bool
}

// SecurityHeaders returns middleware attaching the configured hardening
// headers. When an earlier middleware set X-Request-ID, the header name is
// appended to Access-Control-Expose-Headers so browser clients can read it
// for log correlation.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int(defaultHSTSMaxAge.Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
		}

		if opt.NoStore || credentialPath(c.Request.URL.Path) {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		// HSTS only ever rides an HTTPS response.
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			switch cur := h.Get(hdr); {
			case cur == "":
				h.Set(hdr, "X-Request-ID")
			case !strings.Contains(cur, "X-Request-ID"):
				h.Set(hdr, cur+", X-Request-ID")
			}
		}

		c.Next()
	}
}

// credentialPath reports whether a request path carries or returns
// credentials: the webhook route embeds the shared secret in its path, the
// auth endpoints hand out token pairs.
func credentialPath(p string) bool {
	return strings.HasPrefix(p, "/webhook/") || strings.Contains(p, "/auth/")
}

// isHTTPS reports whether the request arrived over TLS, either directly or
// behind a proxy that set X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
