package http

import (
	"net/http"
	"strings"

	"github.com/harbourlane/foyer/internal/service"
)

// requestMeta extracts the origin address and device descriptor for audit
// records and session rows. Proxy headers win over the socket address; an
// absent value becomes "unknown" rather than an empty column.
func requestMeta(r *http.Request) service.RequestMeta {
	meta := service.RequestMeta{
		IPAddress: "unknown",
		UserAgent: "unknown",
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			meta.IPAddress = first
		}
	} else if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		meta.IPAddress = xri
	}

	if ua := r.Header.Get("User-Agent"); ua != "" {
		meta.UserAgent = ua
	}
	return meta
}
