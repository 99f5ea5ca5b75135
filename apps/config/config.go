// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

/*
Package config loads the static configuration of a B2C application: the user-flows (policies)
and their authorities, the redirect URI, the downstream web API and the token cache location.

Configuration files are JSON, or YAML when the file name ends in .yaml or .yml. Both use the
same field names:

	{
	  "clientId": "00000000-0000-0000-0000-000000000000",
	  "policies": {
	    "signUpSignIn": {"name": "B2C_1_susi", "authority": "https://contoso.b2clogin.com/contoso.onmicrosoft.com/B2C_1_susi"},
	    "editProfile": {"name": "B2C_1_edit_profile", "authority": "https://contoso.b2clogin.com/contoso.onmicrosoft.com/B2C_1_edit_profile"},
	    "authorityDomain": "contoso.b2clogin.com"
	  },
	  "redirectUri": "http://localhost:6060",
	  "api": {"endpoint": "https://contoso.azurewebsites.net/hello", "scopes": ["https://contoso.onmicrosoft.com/api/demo.read"]}
	}
*/
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/AzureAD/msal-go-b2c/apps/selector"
	"sigs.k8s.io/yaml"
)

// Policy is a B2C user-flow and the authority that runs it.
type Policy struct {
	Name      selector.PolicyName `json:"name"`
	Authority string              `json:"authority"`
}

// IsZero reports whether the policy is not configured.
func (p Policy) IsZero() bool {
	return p.Name == "" && p.Authority == ""
}

// Policies are the user-flows an application uses. SignUpSignIn is required; it is the flow
// users sign in with and the only one whose tokens identify the current user.
type Policies struct {
	SignUpSignIn  Policy `json:"signUpSignIn"`
	EditProfile   Policy `json:"editProfile,omitempty"`
	ResetPassword Policy `json:"resetPassword,omitempty"`

	// AuthorityDomain is the host every authority must use, e.g. "contoso.b2clogin.com".
	AuthorityDomain string `json:"authorityDomain,omitempty"`
}

// All returns the configured policies, sign-up/sign-in first.
func (p Policies) All() []Policy {
	var out []Policy
	for _, pol := range []Policy{p.SignUpSignIn, p.EditProfile, p.ResetPassword} {
		if !pol.IsZero() {
			out = append(out, pol)
		}
	}
	return out
}

// Names returns the names of the configured policies, sign-up/sign-in first.
func (p Policies) Names() []selector.PolicyName {
	var names []selector.PolicyName
	for _, pol := range p.All() {
		names = append(names, pol.Name)
	}
	return names
}

// API describes the downstream web API the access token is forwarded to.
type API struct {
	Endpoint string   `json:"endpoint"`
	Scopes   []string `json:"scopes"`
}

// Cache locates the persisted MSAL token cache.
type Cache struct {
	Path string `json:"path,omitempty"`
	// Encrypt seals the cache file with a key stored at KeyPath, which is created on first use.
	Encrypt bool   `json:"encrypt,omitempty"`
	KeyPath string `json:"keyPath,omitempty"`
}

// Config is the complete application configuration.
type Config struct {
	ClientID              string            `json:"clientId"`
	Policies              Policies          `json:"policies"`
	RedirectURI           string            `json:"redirectUri"`
	PostLogoutRedirectURI string            `json:"postLogoutRedirectUri,omitempty"`
	Scopes                []string          `json:"scopes,omitempty"`
	API                   API               `json:"api"`
	Cache                 Cache             `json:"cache,omitempty"`
	Selection             selector.Strategy `json:"selection,omitempty"`
}

// LoginScopes are the scopes requested when signing in: Scopes if set, else the API scopes.
func (c Config) LoginScopes() []string {
	if len(c.Scopes) > 0 {
		return c.Scopes
	}
	return c.API.Scopes
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data, isYAML(path))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Parse decodes, defaults and validates configuration data.
func Parse(data []byte, yamlFormat bool) (Config, error) {
	cfg := Config{}
	var err error
	if yamlFormat {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, err
	}
	if err := cfg.setDefaults(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() error {
	if c.Selection == "" {
		c.Selection = selector.StrategyHeuristic
	}
	if c.PostLogoutRedirectURI == "" {
		c.PostLogoutRedirectURI = c.RedirectURI
	}
	if c.Cache.Path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("locating cache directory: %w", err)
		}
		c.Cache.Path = filepath.Join(dir, "msal-go-b2c", "msal_cache.json")
	}
	if c.Cache.Encrypt && c.Cache.KeyPath == "" {
		c.Cache.KeyPath = c.Cache.Path + ".key"
	}
	return nil
}

// Validate checks that the configuration can drive a sign-in.
func (c Config) Validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, errors.New("clientId is required"))
	}
	if c.Policies.SignUpSignIn.Name == "" {
		errs = append(errs, errors.New("policies.signUpSignIn.name is required"))
	}
	for _, p := range c.Policies.All() {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("policy with authority %q has no name", p.Authority))
			continue
		}
		if err := validateAuthority(p.Authority, c.Policies.AuthorityDomain); err != nil {
			errs = append(errs, fmt.Errorf("policy %s: %w", p.Name, err))
		}
	}
	if c.RedirectURI == "" {
		errs = append(errs, errors.New("redirectUri is required"))
	} else if _, err := url.Parse(c.RedirectURI); err != nil {
		errs = append(errs, fmt.Errorf("redirectUri: %w", err))
	}
	if c.API.Endpoint != "" {
		if u, err := url.Parse(c.API.Endpoint); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("api.endpoint %q is not an absolute URL", c.API.Endpoint))
		}
	}
	if !c.Selection.Valid() {
		errs = append(errs, fmt.Errorf("selection %q must be %q or %q", c.Selection, selector.StrategyHeuristic, selector.StrategyTagged))
	}
	return errors.Join(errs...)
}

func validateAuthority(authority, domain string) error {
	u, err := url.Parse(authority)
	if err != nil {
		return fmt.Errorf("authority cannot be URL parsed: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("authority(%s) did not start with https://", u.String())
	}
	if domain != "" && !strings.EqualFold(u.Host, domain) {
		return fmt.Errorf("authority host %q is not the authority domain %q", u.Host, domain)
	}
	return nil
}
