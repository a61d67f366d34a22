// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/eduanalytics/auditus/internal/audit"
	"github.com/eduanalytics/auditus/internal/logging"
)

type contextKey string

const actorKey contextKey = "actor"

// ContextWithActor returns a context carrying the resolved actor.
func ContextWithActor(ctx context.Context, actor audit.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor resolved for this request, or the
// anonymous actor when resolution never ran.
func ActorFromContext(ctx context.Context) audit.Actor {
	if actor, ok := ctx.Value(actorKey).(audit.Actor); ok {
		return actor
	}
	return audit.AnonymousActor()
}

// Resolver resolves the actor identity for incoming requests.
type Resolver struct {
	jwtManager *JWTManager
}

// NewResolver builds a resolver. A nil manager means none mode: every
// request resolves to the anonymous actor.
func NewResolver(jwtManager *JWTManager) *Resolver {
	return &Resolver{jwtManager: jwtManager}
}

// Middleware attaches the resolved actor to the request context. Requests
// with no token, or with an invalid one, proceed as anonymous; an invalid
// token is logged but never blocks the request.
func (rv *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := rv.Resolve(r)
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// Resolve extracts the actor from the request's bearer token.
func (rv *Resolver) Resolve(r *http.Request) audit.Actor {
	if rv.jwtManager == nil {
		return audit.AnonymousActor()
	}

	token := bearerToken(r)
	if token == "" {
		return audit.AnonymousActor()
	}

	claims, err := rv.jwtManager.ValidateToken(token)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("rejected bearer token, treating request as anonymous")
		return audit.AnonymousActor()
	}
	return audit.Actor{
		UserID:    claims.UserID,
		UserEmail: claims.UserEmail,
		UserRole:  claims.UserRole,
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
