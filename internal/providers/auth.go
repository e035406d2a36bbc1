package providers

import (
	"context"
	"fmt"
	"net/http"
)

// SimpleAPIKeyAuth places an API key in a request header (OpenAI, Claude)
type SimpleAPIKeyAuth struct {
	apiKey     string
	headerName string // e.g., "Authorization"
	prefix     string // e.g., "Bearer "
}

// NewSimpleAPIKeyAuth creates a new simple API key authenticator.
// An empty prefix means the raw key is sent.
func NewSimpleAPIKeyAuth(apiKey, headerName, prefix string) *SimpleAPIKeyAuth {
	if headerName == "" {
		headerName = "Authorization"
	}

	return &SimpleAPIKeyAuth{
		apiKey:     apiKey,
		headerName: headerName,
		prefix:     prefix,
	}
}

// Authenticate returns an auth context with the API key
func (a *SimpleAPIKeyAuth) Authenticate(ctx context.Context) (AuthContext, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	return &headerAuthContext{
		value:      a.prefix + a.apiKey,
		headerName: a.headerName,
	}, nil
}

type headerAuthContext struct {
	value      string
	headerName string
}

// ApplyToRequest adds the API key to the HTTP request
func (c *headerAuthContext) ApplyToRequest(ctx context.Context, req any) error {
	httpReq, ok := req.(*http.Request)
	if !ok {
		return fmt.Errorf("expected *http.Request, got %T", req)
	}

	httpReq.Header.Set(c.headerName, c.value)
	return nil
}

// QueryKeyAuth places an API key in a URL query parameter (Gemini)
type QueryKeyAuth struct {
	apiKey string
	param  string
}

// NewQueryKeyAuth creates a query-parameter authenticator
func NewQueryKeyAuth(apiKey, param string) *QueryKeyAuth {
	if param == "" {
		param = "key"
	}
	return &QueryKeyAuth{apiKey: apiKey, param: param}
}

// Authenticate returns an auth context with the API key
func (a *QueryKeyAuth) Authenticate(ctx context.Context) (AuthContext, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	return &queryAuthContext{apiKey: a.apiKey, param: a.param}, nil
}

type queryAuthContext struct {
	apiKey string
	param  string
}

func (c *queryAuthContext) ApplyToRequest(ctx context.Context, req any) error {
	httpReq, ok := req.(*http.Request)
	if !ok {
		return fmt.Errorf("expected *http.Request, got %T", req)
	}

	q := httpReq.URL.Query()
	q.Set(c.param, c.apiKey)
	httpReq.URL.RawQuery = q.Encode()
	return nil
}
