package middleware

import (
	"net/http"
	"strings"

	"cartsync/pkg/common"

	"github.com/google/uuid"
)

// SessionHeader carries the opaque shopper session ID
const SessionHeader = "X-Session-ID"

// Session reads the shopper session ID from the request, generating one when
// the client has none yet, and echoes it back on the response
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(SessionHeader, id)
		next.ServeHTTP(w, r.WithContext(common.WithSessionID(r.Context(), id)))
	})
}
