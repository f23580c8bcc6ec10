// Pulsewire - Real-Time Event Ingestion and Analytics Fan-Out
// Copyright 2026 BiopticBug
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BiopticBug/pulsewire

// Package auth resolves and verifies the bearer credential carried by both
// transports: a signed envelope with a subject claim and an expiry. A
// credential that is absent, malformed, expired, or signature-invalid never
// surfaces a typed error to callers — it simply yields a null identity,
// which callers gate on.
package auth

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the signed envelope's payload: a subject and the registered
// expiry/issued-at claims.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier issues and validates bearer credentials against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier from the configured JWT signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Issue creates a signed credential for subject, valid for ttl. Used by the
// dev-convenience /token endpoint, treated as an external
// collaborator in production.
func (v *Verifier) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Identity is the resolved subject of a verified credential. A zero value
// (Subject == "") represents the null identity.
type Identity struct {
	Subject string
}

// Valid reports whether this is a non-null identity.
func (i Identity) Valid() bool { return i.Subject != "" }

// Verify parses and validates a raw bearer credential string, returning the
// null Identity for any failure: missing, malformed, expired, wrong
// algorithm, or bad signature.
func (v *Verifier) Verify(raw string) Identity {
	if raw == "" {
		return Identity{}
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return Identity{}
	}
	return Identity{Subject: claims.Subject}
}

// CredentialFromRequest resolves the bearer credential from an HTTP request
// in priority order: Authorization: Bearer <t> header, any
// non-prefixed Authorization header value, then a token query parameter.
func CredentialFromRequest(r *http.Request) string {
	return credentialFrom(r.Header.Get("Authorization"), r.URL.Query())
}

// CredentialFromURL resolves the bearer credential from a streaming
// upgrade's header and URL, for the "?token=<t>" subscribe convenience.
func CredentialFromURL(header http.Header, rawQuery string) string {
	values, _ := url.ParseQuery(rawQuery)
	return credentialFrom(header.Get("Authorization"), values)
}

func credentialFrom(authHeader string, query url.Values) string {
	if authHeader != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(authHeader, prefix) {
			return strings.TrimPrefix(authHeader, prefix)
		}
		return authHeader
	}
	return query.Get("token")
}
