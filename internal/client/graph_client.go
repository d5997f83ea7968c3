package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/smithy-go"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
)

const (
	DefaultGraphBaseURL = "https://graph.microsoft.com/v1.0"
	graphScope          = "https://graph.microsoft.com/.default"
)

// GraphClient holds the app-only authenticated HTTP client used against Microsoft Graph.
type GraphClient struct {
	HTTP     *http.Client
	BaseURL  string
	TenantID string
}

type graphOptions struct {
	baseURL  string
	tokenURL string
	hc       *http.Client
}

// GraphOption customises NewGraph.
type GraphOption func(*graphOptions)

// WithBaseURL points the client at another Graph root (national clouds, tests).
func WithBaseURL(baseURL string) GraphOption {
	return func(o *graphOptions) {
		if strings.TrimSpace(baseURL) != "" {
			o.baseURL = baseURL
		}
	}
}

// WithTokenURL overrides the Azure AD token endpoint derived from the tenant.
func WithTokenURL(tokenURL string) GraphOption {
	return func(o *graphOptions) {
		o.tokenURL = tokenURL
	}
}

// WithHTTPClient sets the base HTTP client used for both token and Graph
// requests. Its Transport and Timeout carry over; a nil client is ignored.
func WithHTTPClient(hc *http.Client) GraphOption {
	return func(o *graphOptions) {
		if hc != nil {
			o.hc = hc
		}
	}
}

// NewGraph creates a GraphClient using the OAuth2 client credentials grant.
// No token is requested until the first call.
func NewGraph(ctx context.Context, clientID, clientSecret, tenantID string, opts ...GraphOption) (*GraphClient, error) {
	switch {
	case strings.TrimSpace(clientID) == "":
		return nil, errors.New("graph client: client id is required")
	case strings.TrimSpace(clientSecret) == "":
		return nil, errors.New("graph client: client secret is required")
	case strings.TrimSpace(tenantID) == "":
		return nil, errors.New("graph client: tenant id is required")
	}

	o := graphOptions{
		baseURL:  DefaultGraphBaseURL,
		tokenURL: microsoft.AzureADEndpoint(tenantID).TokenURL,
		hc:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     o.tokenURL,
		Scopes:       []string{graphScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, o.hc)

	return &GraphClient{
		HTTP: &http.Client{
			Transport: &oauth2.Transport{
				Source: cc.TokenSource(tokenCtx),
				Base:   o.hc.Transport,
			},
			Timeout: o.hc.Timeout,
		},
		BaseURL:  strings.TrimRight(o.baseURL, "/"),
		TenantID: tenantID,
	}, nil
}

// graphErrorBody is the error envelope Graph returns on non-2xx responses.
type graphErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DoJSON sends a request to Graph and decodes the JSON response into result.
// path is relative to BaseURL unless it is already absolute (@odata.nextLink).
func (c *GraphClient) DoJSON(ctx context.Context, method, path string, body, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.BaseURL + "/" + strings.TrimLeft(path, "/")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, decodeGraphError(resp))
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// decodeGraphError maps a Graph error response onto a smithy APIError.
func decodeGraphError(resp *http.Response) error {
	apiErr := &smithy.GenericAPIError{
		Code:    fmt.Sprintf("HTTP%d", resp.StatusCode),
		Message: resp.Status,
		Fault:   smithy.FaultUnknown,
	}
	switch {
	case resp.StatusCode >= 500:
		apiErr.Fault = smithy.FaultServer
	case resp.StatusCode >= 400:
		apiErr.Fault = smithy.FaultClient
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb graphErrorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Error.Code != "" {
		apiErr.Code = eb.Error.Code
		apiErr.Message = eb.Error.Message
	} else if len(raw) > 0 {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
