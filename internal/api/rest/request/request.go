package request

import (
	"net"
	"net/http"
	"strings"

	"github.com/classhub/classhub-server/internal/model"
)

// Meta extracts the client origin fields recorded on audit events.
func Meta(r *http.Request) model.RequestMeta {
	return model.RequestMeta{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// clientIP resolves the originating address, preferring proxy headers over
// the socket peer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
