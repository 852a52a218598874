package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the shop auth service. Sibling services use it to
// call the auth endpoints; the integration tests use it too.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}
