package ws

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/nurpe/lensbook/internal/model"
)

const accessTokenCookie = "lb_token"

// TokenParser resolves a bearer credential into a principal.
type TokenParser interface {
	Parse(token string) (model.Principal, error)
}

// Handler upgrades authenticated requests to a push connection bound to one
// user identity for its lifetime. Rejected credentials never reach the
// upgrade, so no event is ever delivered on an unauthenticated socket.
func Handler(hub *Hub, parser TokenParser, log zerolog.Logger) http.Handler {
	wsHandler := func(principal model.Principal) websocket.Handler {
		return func(conn *websocket.Conn) {
			p := newPeer(conn, conn)
			hub.attach(principal.UserID, p)
			defer p.close()
			defer hub.detach(principal.UserID, p)

			// Push-only channel: drain inbound frames until the client
			// goes away so we notice the disconnect.
			buf := make([]byte, 512)
			for {
				if _, err := conn.Read(buf); err != nil {
					if !errors.Is(err, io.EOF) {
						log.Debug().Err(err).Stringer("user_id", principal.UserID).Msg("ws read ended")
					}
					return
				}
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		token := credentialFromRequest(r)
		if token == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		principal, err := parser.Parse(token)
		if err != nil {
			log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws auth rejected")
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		wsHandler(principal).ServeHTTP(w, r)
	})
}

// credentialFromRequest accepts the bearer header, a token query parameter,
// or the access cookie. Browsers cannot set headers on websocket dials, so
// the query and cookie forms exist for them.
func credentialFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(header, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")); token != "" {
			return token
		}
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
