// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package api calls the downstream web API protected by Azure AD B2C, presenting the access
// token acquired for the signed-in user.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/google/uuid"
)

const (
	moduleName    = "msal-go-b2c"
	moduleVersion = "v0.1.0"

	requestIDHeader = "x-ms-client-request-id"
)

// Response is the result of a successful call.
type Response struct {
	StatusCode int
	RequestID  string
	Body       []byte
}

// Options configures a Caller.
type Options struct {
	// Transport sends requests. Defaults to azcore's shared HTTP client.
	Transport policy.Transporter
	// Retry configures retries of failed calls. The zero value uses azcore's defaults.
	Retry policy.RetryOptions
	// Timeout bounds a single call, including retries. Zero means no timeout beyond the context.
	Timeout time.Duration
}

// Caller sends authenticated GET requests through an azcore pipeline.
type Caller struct {
	endpoint string
	pl       runtime.Pipeline
	timeout  time.Duration
}

// NewCaller returns a Caller for endpoint.
func NewCaller(endpoint string, opts *Options) (*Caller, error) {
	if endpoint == "" {
		return nil, errors.New("api endpoint is empty")
	}
	if opts == nil {
		opts = &Options{}
	}
	clientOpts := &policy.ClientOptions{
		Transport: opts.Transport,
		Retry:     opts.Retry,
	}
	pl := runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerCall: []policy.Policy{requestIDPolicy{}},
	}, clientOpts)
	return &Caller{endpoint: endpoint, pl: pl, timeout: opts.Timeout}, nil
}

// Endpoint is the URL the Caller sends requests to.
func (c *Caller) Endpoint() string {
	return c.endpoint
}

// Call sends a GET request to the endpoint with accessToken as a bearer token. Any status other
// than 200 is returned as an *azcore.ResponseError.
func (c *Caller) Call(ctx context.Context, accessToken string) (Response, error) {
	if accessToken == "" {
		return Response{}, errors.New("access token is empty")
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := runtime.NewRequest(ctx, http.MethodGet, c.endpoint)
	if err != nil {
		return Response{}, err
	}
	req.Raw().Header.Set("Authorization", "Bearer "+accessToken)
	req.Raw().Header.Set("Accept", "application/json")

	resp, err := c.pl.Do(req)
	if err != nil {
		return Response{}, err
	}
	if !runtime.HasStatusCode(resp, http.StatusOK) {
		return Response{}, runtime.NewResponseError(resp)
	}
	body, err := runtime.Payload(resp)
	if err != nil {
		return Response{}, err
	}
	return Response{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Request.Header.Get(requestIDHeader),
		Body:       body,
	}, nil
}

// requestIDPolicy tags each call with a client request id so it can be correlated with the
// API's logs.
type requestIDPolicy struct{}

func (requestIDPolicy) Do(req *policy.Request) (*http.Response, error) {
	if req.Raw().Header.Get(requestIDHeader) == "" {
		req.Raw().Header.Set(requestIDHeader, uuid.NewString())
	}
	return req.Next()
}
