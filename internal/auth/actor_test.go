// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eduanalytics/auditus/internal/audit"
)

func TestActorFromContext_Fallback(t *testing.T) {
	actor := ActorFromContext(context.Background())
	if actor != audit.AnonymousActor() {
		t.Errorf("expected anonymous fallback, got %+v", actor)
	}
}

func TestResolver_NoneMode(t *testing.T) {
	rv := NewResolver(nil)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer whatever")
	if actor := rv.Resolve(r); actor != audit.AnonymousActor() {
		t.Errorf("none mode must resolve anonymous, got %+v", actor)
	}
}

func TestResolver_ValidToken(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatal(err)
	}
	token, err := m.GenerateToken("alice", "alice@school.edu", "teacher")
	if err != nil {
		t.Fatal(err)
	}
	rv := NewResolver(m)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	actor := rv.Resolve(r)
	want := audit.Actor{UserID: "alice", UserEmail: "alice@school.edu", UserRole: "teacher"}
	if actor != want {
		t.Errorf("actor = %+v, want %+v", actor, want)
	}
}

func TestResolver_InvalidTokenFallsBackToAnonymous(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatal(err)
	}
	rv := NewResolver(m)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"malformed token", "Bearer garbage"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if actor := rv.Resolve(r); actor != audit.AnonymousActor() {
				t.Errorf("expected anonymous, got %+v", actor)
			}
		})
	}
}

func TestResolver_MiddlewareAttachesActor(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatal(err)
	}
	token, err := m.GenerateToken("bob", "bob@school.edu", "admin")
	if err != nil {
		t.Fatal(err)
	}
	rv := NewResolver(m)

	var got audit.Actor
	handler := rv.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if got.UserID != "bob" || got.UserRole != "admin" {
		t.Errorf("unexpected actor: %+v", got)
	}
}
