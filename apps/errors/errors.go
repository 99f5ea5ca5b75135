// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package errors classifies failures returned by the identity client.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	msalerrors "github.com/AzureAD/microsoft-authentication-library-for-go/apps/errors"
	"github.com/kylelemons/godebug/pretty"
)

var prettyConf = &pretty.Config{IncludeUnexported: false, SkipZeroFields: true, TrackCycles: true}

var (
	// ErrInteractionRequired means a token can only be obtained through an interactive flow.
	ErrInteractionRequired = errors.New("interaction required")
	// ErrPasswordReset means the user left an interactive flow to reset their password.
	ErrPasswordReset = errors.New("password reset requested")
)

// InteractionRequiredError wraps the failure that made an interactive flow necessary.
// errors.Is(err, ErrInteractionRequired) is true for any InteractionRequiredError.
type InteractionRequiredError struct {
	// Reason is a short description, such as "empty access token".
	Reason string
	Err    error
}

func (e InteractionRequiredError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("interaction required: %s", e.Reason)
	}
	return fmt.Sprintf("interaction required: %s: %s", e.Reason, e.Err)
}

func (e InteractionRequiredError) Unwrap() error {
	return e.Err
}

func (e InteractionRequiredError) Is(target error) bool {
	return target == ErrInteractionRequired
}

// InteractionRequired returns an InteractionRequiredError.
func InteractionRequired(reason string, err error) error {
	return InteractionRequiredError{Reason: reason, Err: err}
}

// IsInteractionRequired reports whether err means the user must sign in interactively.
func IsInteractionRequired(err error) bool {
	return errors.Is(err, ErrInteractionRequired)
}

// StatusCode returns the HTTP status of the response behind err, or 0 if err did not come from
// an HTTP call made by the identity client.
func StatusCode(err error) int {
	var call msalerrors.CallErr
	if errors.As(err, &call) && call.Resp != nil {
		return call.Resp.StatusCode
	}
	var callPtr *msalerrors.CallErr
	if errors.As(err, &callPtr) && callPtr != nil && callPtr.Resp != nil {
		return callPtr.Resp.StatusCode
	}
	return 0
}

// IsClientError reports whether err came from a 4xx response of the token endpoint.
func IsClientError(err error) bool {
	code := StatusCode(err)
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError
}

type verboser interface {
	Verbose() string
}

// Verbose renders err with as much detail as it carries, including the request and
// response of identity client HTTP failures.
func Verbose(err error) string {
	if err == nil {
		return ""
	}
	var v verboser
	if errors.As(err, &v) {
		return v.Verbose()
	}
	var ir InteractionRequiredError
	if errors.As(err, &ir) {
		return fmt.Sprintf("%s\n%s", err, prettyConf.Sprint(ir))
	}
	return err.Error()
}
