// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package claims reads the user-flow claim from Azure AD B2C ID tokens.
//
// Tokens are parsed without signature verification: they were received from the token endpoint
// over TLS by the identity client, which owns validation.
package claims

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// PolicyClaim carries the user-flow that issued a B2C token.
	PolicyClaim = "tfp"
	// LegacyPolicyClaim is used instead of "tfp" by tenants configured for the older claim.
	LegacyPolicyClaim = "acr"
)

// ErrNoPolicy is returned when a token carries neither PolicyClaim nor LegacyPolicyClaim.
var ErrNoPolicy = errors.New("id token has no policy claim")

// Parse decodes the claims of a compact-serialized JWT.
func Parse(rawIDToken string) (jwt.MapClaims, error) {
	if rawIDToken == "" {
		return nil, errors.New("id token is empty")
	}
	c := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawIDToken, c); err != nil {
		return nil, fmt.Errorf("parsing id token: %w", err)
	}
	return c, nil
}

// Policy returns the user-flow that issued rawIDToken.
func Policy(rawIDToken string) (string, error) {
	c, err := Parse(rawIDToken)
	if err != nil {
		return "", err
	}
	return PolicyFrom(c)
}

// PolicyFrom returns the user-flow named in c.
func PolicyFrom(c jwt.MapClaims) (string, error) {
	for _, name := range []string{PolicyClaim, LegacyPolicyClaim} {
		v, ok := c[name]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("claim %q has type %T, want string", name, v)
		}
		if s != "" {
			return s, nil
		}
	}
	return "", ErrNoPolicy
}

// MatchesPolicy reports whether rawIDToken was issued by policy. Comparison ignores case.
// A token that cannot be parsed or has no policy claim never matches.
func MatchesPolicy(rawIDToken, policy string) bool {
	got, err := Policy(rawIDToken)
	if err != nil {
		return false
	}
	return strings.EqualFold(got, policy)
}
