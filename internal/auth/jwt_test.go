// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

package auth

import (
	"net/http"
	"net/url"
	"testing"
	"time"
)

func TestIssueThenVerify(t *testing.T) {
	v := NewVerifier("a-shared-signing-secret")

	token, err := v.Issue("alice", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	identity := v.Verify(token)
	if !identity.Valid() || identity.Subject != "alice" {
		t.Fatalf("got %+v, want valid identity for alice", identity)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := NewVerifier("a-shared-signing-secret")
	token, err := v.Issue("bob", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if v.Verify(token).Valid() {
		t.Fatal("expected null identity for expired token")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewVerifier("secret-one-is-long-enough")
	verifier := NewVerifier("secret-two-is-long-enough")

	token, err := issuer.Issue("carol", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if verifier.Verify(token).Valid() {
		t.Fatal("expected null identity for wrong-secret verification")
	}
}

func TestVerifyRejectsMalformedAndEmpty(t *testing.T) {
	v := NewVerifier("a-shared-signing-secret")

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if v.Verify(raw).Valid() {
			t.Fatalf("expected null identity for %q", raw)
		}
	}
}

func TestCredentialFromRequestPriorityOrder(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "http://example.test/ingest?token=query-token", nil)
	req.Header.Set("Authorization", "Bearer header-token")

	if got := CredentialFromRequest(req); got != "header-token" {
		t.Fatalf("Bearer header should win, got %q", got)
	}

	req.Header.Set("Authorization", "bare-token-no-prefix")
	if got := CredentialFromRequest(req); got != "bare-token-no-prefix" {
		t.Fatalf("bare header should be used verbatim, got %q", got)
	}

	req.Header.Del("Authorization")
	if got := CredentialFromRequest(req); got != "query-token" {
		t.Fatalf("query parameter should be the fallback, got %q", got)
	}
}

func TestCredentialFromURL(t *testing.T) {
	u, _ := url.Parse("/ws?token=stream-token")
	got := CredentialFromURL(http.Header{}, u.RawQuery)
	if got != "stream-token" {
		t.Fatalf("got %q, want stream-token", got)
	}
}
