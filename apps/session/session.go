// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package session holds the signed-in user of an application and the access token most
// recently acquired for them. A Session starts when a user signs in and is cleared when they
// sign out.
package session

import (
	"sync"
	"time"
)

// Session is the identity context of the current user. The zero value is a signed-out session.
// Session is safe for concurrent use.
type Session struct {
	mu          sync.RWMutex
	accountID   string
	username    string
	accessToken string
	expiresOn   time.Time
}

// Start makes accountID the current user. Any token held for a different account is dropped.
func (s *Session) Start(accountID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accountID != accountID {
		s.accessToken = ""
		s.expiresOn = time.Time{}
	}
	s.accountID = accountID
	s.username = username
}

// Clear signs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accountID = ""
	s.username = ""
	s.accessToken = ""
	s.expiresOn = time.Time{}
}

// Active reports whether a user is signed in.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountID != ""
}

// AccountID is the home account id of the current user.
func (s *Session) AccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountID
}

// Username is the display name of the current user.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// SetToken stores an access token for the current user.
func (s *Session) SetToken(token string, expiresOn time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = token
	s.expiresOn = expiresOn
}

// Token returns the stored access token if it is still valid at now. A zero expiry never expires.
func (s *Session) Token(now time.Time) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.accessToken == "" {
		return "", false
	}
	if !s.expiresOn.IsZero() && !now.Before(s.expiresOn) {
		return "", false
	}
	return s.accessToken, true
}

// Snapshot is a copy of a Session's state.
type Snapshot struct {
	AccountID string
	Username  string
	HasToken  bool
	ExpiresOn time.Time
}

// Snapshot copies the session state, without the token itself.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		AccountID: s.accountID,
		Username:  s.username,
		HasToken:  s.accessToken != "",
		ExpiresOn: s.expiresOn,
	}
}
