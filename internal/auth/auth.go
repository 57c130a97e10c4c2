// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

// Package auth extracts the caller's identity for per-user data scoping.
//
// Token verification happens at the edge (gateway or identity provider);
// this service only needs the subject claim to partition data. The
// middleware therefore decodes the bearer token without verifying its
// signature and trusts the `sub` claim, falling back to an X-User-Id
// header for service-to-service calls behind the same trust boundary.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDHeader is the identity fallback header for trusted internal callers.
const UserIDHeader = "X-User-Id"

type contextKey struct{}

var userIDKey contextKey

// UserID returns the authenticated user id from the request context.
// The second return is false when the request never passed Middleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID returns a context carrying the given user id. Exposed for
// handler tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Middleware resolves the caller's user id and stores it in the request
// context. Requests with no resolvable identity are rejected with 401.
func Middleware(onUnauthorized func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	if onUnauthorized == nil {
		onUnauthorized = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := identify(r)
			if userID == "" {
				onUnauthorized(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// identify resolves the user id from the bearer token's subject, or the
// identity header when no usable token is present.
func identify(r *http.Request) string {
	if sub := subjectFromBearer(r.Header.Get("Authorization")); sub != "" {
		return sub
	}
	return r.Header.Get(UserIDHeader)
}

// subjectFromBearer decodes the JWT without signature verification and
// returns its subject claim. Returns empty on any shape problem.
func subjectFromBearer(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if raw == "" {
		return ""
	}

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return ""
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
