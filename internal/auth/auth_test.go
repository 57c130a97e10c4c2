// Learntrack - Learning Resource Tracker and Weekly Stats Pipeline
// Copyright 2026 Learntrack Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/learntrack/learntrack

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestMiddleware(t *testing.T) {
	var gotUserID string
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, gotOK = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Middleware(nil)(next)

	run := func(t *testing.T, mutate func(*http.Request)) *httptest.ResponseRecorder {
		t.Helper()
		gotUserID, gotOK = "", false
		req := httptest.NewRequest(http.MethodGet, "/api/v1/resources", nil)
		mutate(req)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("bearer token subject wins", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"sub": "user-123"})
		rec := run(t, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
			r.Header.Set(UserIDHeader, "ignored")
		})
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		if !gotOK || gotUserID != "user-123" {
			t.Errorf("user id = %q (ok=%v), want user-123", gotUserID, gotOK)
		}
	})

	t.Run("header fallback without a token", func(t *testing.T) {
		rec := run(t, func(r *http.Request) {
			r.Header.Set(UserIDHeader, "svc-user")
		})
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		if gotUserID != "svc-user" {
			t.Errorf("user id = %q", gotUserID)
		}
	})

	t.Run("garbage token falls back to header", func(t *testing.T) {
		rec := run(t, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not.a.jwt")
			r.Header.Set(UserIDHeader, "svc-user")
		})
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		if gotUserID != "svc-user" {
			t.Errorf("user id = %q", gotUserID)
		}
	})

	t.Run("token without sub falls back to header", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"aud": "learntrack"})
		rec := run(t, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
			r.Header.Set(UserIDHeader, "svc-user")
		})
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		if gotUserID != "svc-user" {
			t.Errorf("user id = %q", gotUserID)
		}
	})

	t.Run("no identity is rejected", func(t *testing.T) {
		rec := run(t, func(r *http.Request) {})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		if gotOK {
			t.Error("handler ran without identity")
		}
	})

	t.Run("custom rejection handler", func(t *testing.T) {
		called := false
		h := Middleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusForbidden)
		})(next)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if !called || rec.Code != http.StatusForbidden {
			t.Errorf("custom handler not used: called=%v status=%d", called, rec.Code)
		}
	})
}

func TestUserIDContext(t *testing.T) {
	ctx := WithUserID(t.Context(), "u1")
	if id, ok := UserID(ctx); !ok || id != "u1" {
		t.Errorf("UserID = %q, %v", id, ok)
	}
	if _, ok := UserID(t.Context()); ok {
		t.Error("expected no user id in a fresh context")
	}
}
