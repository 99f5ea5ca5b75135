// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

package b2c

import (
	"context"
	"fmt"
	"slices"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

var _ azcore.TokenCredential = (*Credential)(nil)

// Credential lets Azure SDK clients call the web API as the signed-in user.
type Credential struct {
	client *Client
}

// Credential returns an azcore.TokenCredential backed by c.
func (c *Client) Credential() *Credential {
	return &Credential{client: c}
}

// GetToken returns the session access token, acquiring one when the session has none. Only the
// web API scopes are supported; an empty scope list means those scopes.
func (cr *Credential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c := cr.client
	if len(opts.Scopes) > 0 && !sameScopes(opts.Scopes, c.opts.APIScopes) {
		return azcore.AccessToken{}, fmt.Errorf("scopes %v are not the web API scopes %v", opts.Scopes, c.opts.APIScopes)
	}
	token, ok := c.session.Token(c.opts.Now())
	if !ok {
		var err error
		if token, err = c.AcquireToken(ctx); err != nil {
			return azcore.AccessToken{}, err
		}
	}
	return azcore.AccessToken{Token: token, ExpiresOn: c.session.Snapshot().ExpiresOn.UTC()}, nil
}

func sameScopes(a, b []string) bool {
	a, b = slices.Clone(a), slices.Clone(b)
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(slices.Compact(a), slices.Compact(b))
}
