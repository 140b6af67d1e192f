// Copyright (c) 2026 Mirava. All rights reserved.
// Author: an.vubui.dev@gmail.com

// Package sec provides security primitives: the role hierarchy and
// verification of identity-provider tokens.
//
// # Architecture
//
// Mirava does not issue credentials itself. An external identity provider
// authenticates users and hands them an RS256-signed bearer token; this
// package only verifies that signature and extracts the identity tuple.
// The private signing key never exists inside this service.
package sec

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is the verified payload of an identity-provider token.
//
// # Trust Boundary
//
// Everything in this struct is asserted by the identity provider, not by
// Mirava. The stable SubjectID is the only join key into our own records;
// profile fields (email, display name, avatar) are treated as a snapshot
// to sync on login.
type IdentityClaims struct {
	jwt.RegisteredClaims

	// Custom provider claims are abbreviated to keep the token payload small.
	Email       string `json:"eml"`
	DisplayName string `json:"nam"`
	AvatarURL   string `json:"pic"`
}

// SubjectID returns the provider-stable account identifier.
func (c *IdentityClaims) SubjectID() string {
	return c.Subject
}

// IdentityVerifier validates identity-provider tokens using the provider's
// RS256 public key.
type IdentityVerifier struct {
	publicKey *rsa.PublicKey
	issuer    string
}

// NewIdentityVerifier creates a verifier from a PEM-encoded public key file.
//
// # Parameters
//   - publicKeyPath: Filesystem path to the provider's RSA public key.
//   - issuer: Expected 'iss' claim; tokens from any other issuer are rejected.
func NewIdentityVerifier(publicKeyPath, issuer string) (*IdentityVerifier, error) {
	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read identity public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse identity public key: %w", err)
	}

	return &IdentityVerifier{
		publicKey: publicKey,
		issuer:    issuer,
	}, nil
}

// VerifyToken checks the signature, expiry, and issuer of a bearer token.
//
// A token that fails verification for ANY reason is indistinguishable from
// an anonymous request to the rest of the system — there is no partial trust.
func (v *IdentityVerifier) VerifyToken(tokenString string) (*IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return v.publicKey, nil
	}, jwt.WithIssuer(v.issuer))

	if err != nil {
		return nil, fmt.Errorf("sec: invalid identity token: %w", err)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid identity token claims")
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("sec: identity token missing subject")
	}

	return claims, nil
}
