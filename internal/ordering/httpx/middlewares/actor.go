package middlewares

import (
	"context"
	"net/http"
)

type contextKey string

const actorKey contextKey = "actor"

// HeaderXActor carries the acting principal. In production it is set by the
// identity-aware proxy in front of this service.
const HeaderXActor = "X-Actor"

// AttachActor resolves the acting principal from the request and stores it
// in the context. There is no ambient "system" default: every mutating call
// below this point receives the actor explicitly, and unauthenticated
// requests are visibly "anonymous" in audit fields.
func AttachActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := r.Header.Get(HeaderXActor)
		if actor == "" {
			actor = "anonymous"
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// ActorFromContext returns the acting principal attached by AttachActor.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey).(string); ok {
		return actor
	}
	return "anonymous"
}
