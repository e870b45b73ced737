// Package auth checks bearer tokens against the external authorization
// server. The API acts as a resource server: it never issues or stores
// tokens, it only asks the authorization server whether a presented token
// covers the required resource.
package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DeviceScopePrefix is the one low-privilege path prefix: the door-side
// access check needs only a device-level token. Every other path requires
// board-level scope.
const DeviceScopePrefix = "/deur/access/"

// TokenValidator verifies opaque tokens by a remote round trip. Validation
// answers only yes or no: any non-200 status, transport failure, or timeout
// reads as an invalid token, never as a distinguishable error.
type TokenValidator struct {
	authServerURL  string // trailing slash expected
	boardResource  string
	deviceResource string
	httpc          *http.Client
}

type Config struct {
	AuthServerURL  string
	BoardResource  string
	DeviceResource string

	// Timeout bounds the remote check. The caller must never hang on the
	// authorization server; an expired check is an invalid token.
	Timeout time.Duration
}

func NewTokenValidator(cfg Config) *TokenValidator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TokenValidator{
		authServerURL:  cfg.AuthServerURL,
		boardResource:  cfg.BoardResource,
		deviceResource: cfg.DeviceResource,
		httpc:          &http.Client{Timeout: timeout},
	}
}

// Validate reports whether token is valid for the scope requestPath
// requires. Every call is a fresh round trip; nothing is cached.
func (v *TokenValidator) Validate(ctx context.Context, requestPath, token string) bool {
	resource := v.boardResource
	if strings.HasPrefix(requestPath, DeviceScopePrefix) {
		resource = v.deviceResource
	}
	return v.check(ctx, resource, token)
}

func (v *TokenValidator) check(ctx context.Context, resource, token string) bool {
	checkURL := v.authServerURL + resource + "?access_token=" + url.QueryEscape(token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		return false
	}

	resp, err := v.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
