package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vetdesk/appointment-service/internal/appointment"
)

const actorKey contextKey = "actor"

// AuthMiddleware builds the Actor for each request. With a secret configured
// it verifies an HS256 bearer token carrying sub and role claims. With an
// empty secret (dev mode) it trusts X-Actor-ID / X-Actor-Role headers instead.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var actor appointment.Actor

			if secret == "" {
				actor = appointment.Actor{
					ID:   r.Header.Get("X-Actor-ID"),
					Role: appointment.Role(r.Header.Get("X-Actor-Role")),
				}
			} else {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					writeError(w, http.StatusUnauthorized, "missing_authorization_header", "")
					return
				}

				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					writeError(w, http.StatusUnauthorized, "invalid_authorization_header", "")
					return
				}

				token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
					if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, jwt.ErrTokenMalformed
					}
					return []byte(secret), nil
				})
				if err != nil || !token.Valid {
					writeError(w, http.StatusUnauthorized, "invalid_token", "")
					return
				}

				claims, ok := token.Claims.(jwt.MapClaims)
				if !ok {
					writeError(w, http.StatusUnauthorized, "invalid_token_claims", "")
					return
				}

				sub, _ := claims["sub"].(string)
				role, _ := claims["role"].(string)
				if sub == "" || role == "" {
					writeError(w, http.StatusUnauthorized, "invalid_token_payload", "")
					return
				}

				actor = appointment.Actor{ID: sub, Role: appointment.Role(role)}
			}

			if !validRole(actor.Role) || actor.ID == "" {
				writeError(w, http.StatusUnauthorized, "unknown_actor", "actor id and a valid role are required")
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validRole(role appointment.Role) bool {
	switch role {
	case appointment.RoleClient, appointment.RoleStaff, appointment.RoleVeterinarian:
		return true
	}
	return false
}

// GetActor retrieves the authenticated actor from context.
func GetActor(ctx context.Context) (appointment.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(appointment.Actor)
	return actor, ok
}
