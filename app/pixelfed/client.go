package pixelfed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// Timeout for app registration, token, verification, and revocation calls.
	metadataTimeout = 15 * time.Second
	// Timeout for media upload and status creation calls.
	publishTimeout = 20 * time.Second

	// Response bodies are capped at 1 MiB; none of the endpoints we use
	// legitimately return more.
	maxResponseSize = 1 << 20
)

// Client is a stateless wrapper around the handful of Pixelfed API calls this
// service needs. It never retries; retry policy, if any, belongs to callers.
type Client struct {
	httpClient *http.Client
	// oauthClient backs the x/oauth2 grant calls; same transport as
	// httpClient but with the User-Agent header applied.
	oauthClient *http.Client
	userAgent   string
}

// NewClient creates a new Pixelfed API client
func NewClient(httpClient *http.Client, userAgent string) *Client {
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &Client{
		httpClient: httpClient,
		oauthClient: &http.Client{
			Transport: &userAgentTransport{agent: userAgent, base: base},
			Timeout:   httpClient.Timeout,
		},
		userAgent: userAgent,
	}
}

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(clone)
}

// oauthEndpoint describes a Pixelfed instance's OAuth endpoints. Credentials
// go into the form body; Pixelfed does not accept basic auth on the token
// endpoint.
func oauthEndpoint(host string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   host + "/oauth/authorize",
		TokenURL:  host + "/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// AuthorizeURL builds the authorization page URL a user visits to grant this
// client access to their account.
func AuthorizeURL(host, clientID, redirectURI string) string {
	conf := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      []string{"read", "write"},
		Endpoint:    oauthEndpoint(host),
	}

	return conf.AuthCodeURL("")
}

// RegisterApp registers a new OAuth client with the instance.
func (c *Client) RegisterApp(ctx context.Context, host string, app AppMetadata) (*AppCredentials, error) {
	form := url.Values{
		"client_name":   {app.ClientName},
		"scopes":        {Scopes},
		"redirect_uris": {app.RedirectURIs},
		"website":       {app.Website},
	}

	body, err := c.postForm(ctx, host+"/api/v1/apps", "", form, metadataTimeout)
	if err != nil {
		return nil, err
	}

	var resp appResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse app registration response: %w", err)
	}
	if resp.ClientID == "" || resp.ClientSecret == "" {
		return nil, fmt.Errorf("app registration response missing client credentials")
	}

	return &AppCredentials{
		ClientID:     resp.ClientID,
		ClientSecret: resp.ClientSecret,
		VapidKey:     resp.VapidKey,
	}, nil
}

// AuthorizeCodeGrant exchanges an authorization code for tokens.
func (c *Client) AuthorizeCodeGrant(ctx context.Context, host, clientID, clientSecret, code, redirectURI string) (*Token, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint:     oauthEndpoint(host),
	}

	ctx, cancel := c.grantContext(ctx)
	defer cancel()

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, grantError("authorization code exchange", err)
	}

	return convertToken(tok), nil
}

// RefreshTokenGrant exchanges a refresh token for a new access token.
func (c *Client) RefreshTokenGrant(ctx context.Context, host, clientID, clientSecret, refreshToken string) (*Token, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauthEndpoint(host),
	}

	ctx, cancel := c.grantContext(ctx)
	defer cancel()

	// A token with only the refresh half forces an immediate refresh grant.
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, grantError("token refresh", err)
	}

	return convertToken(tok), nil
}

// ClientCredentialsGrant requests an app-level token with no user context.
func (c *Client) ClientCredentialsGrant(ctx context.Context, host, clientID, clientSecret string) (*Token, error) {
	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     host + "/oauth/token",
		AuthStyle:    oauth2.AuthStyleInParams,
		// One doesn't have to use a real redirect URI for app tokens.
		EndpointParams: url.Values{"redirect_uri": {"urn:ietf:wg:oauth:2.0:oob"}},
	}

	ctx, cancel := c.grantContext(ctx)
	defer cancel()

	tok, err := conf.Token(ctx)
	if err != nil {
		return nil, grantError("app token request", err)
	}

	return convertToken(tok), nil
}

// grantContext bounds a grant call and routes it through the client carrying
// our User-Agent.
func (c *Client) grantContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	return context.WithValue(ctx, oauth2.HTTPClient, c.oauthClient), cancel
}

func convertToken(tok *oauth2.Token) *Token {
	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}
}

// grantError maps x/oauth2 failures onto the client's error taxonomy, the
// same way do does for the raw endpoints.
func grantError(operation string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return fmt.Errorf("%s failed: %w", operation, err)
	}

	status := 0
	if retrieveErr.Response != nil {
		status = retrieveErr.Response.StatusCode
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		slog.Debug("Pixelfed authentication rejected", "operation", operation, "status", status)
		return &AuthError{StatusCode: status}
	}

	if retrieveErr.ErrorCode != "" {
		return &APIError{StatusCode: status, Message: retrieveErr.ErrorCode}
	}

	return fmt.Errorf("%s failed: HTTP error: %d", operation, status)
}

// VerifyCredentials checks a user access token and returns the account it
// belongs to. A 401/403 surfaces as an AuthError.
func (c *Client) VerifyCredentials(ctx context.Context, host, bearerToken string) (*Account, error) {
	body, err := c.get(ctx, host+"/api/v1/accounts/verify_credentials", bearerToken, metadataTimeout)
	if err != nil {
		return nil, err
	}

	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse account response: %w", err)
	}
	if resp.Username == "" {
		return nil, fmt.Errorf("account response missing username")
	}

	return &Account{Username: resp.Username}, nil
}

// VerifyAppCredentials checks an app-level token.
func (c *Client) VerifyAppCredentials(ctx context.Context, host, bearerToken string) (*AppInfo, error) {
	body, err := c.get(ctx, host+"/api/v1/apps/verify_credentials", bearerToken, metadataTimeout)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Name  string `json:"name"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse app verification response: %w", err)
	}
	if resp.Name == "" {
		return nil, fmt.Errorf("app verification response missing name")
	}

	return &AppInfo{Name: resp.Name}, nil
}

// RevokeToken asks the instance to revoke a token.
func (c *Client) RevokeToken(ctx context.Context, host, clientID, clientSecret, token string) error {
	_, err := c.postForm(ctx, host+"/oauth/revoke", "", url.Values{
		"client_id":     {clientID},
		"client_secret": {clientSecret},
		"token":         {token},
	}, metadataTimeout)

	return err
}

// UploadMedia uploads one image and returns its media ID. The alt text, when
// present, is sent as a `description` field ahead of the file part.
func (c *Client) UploadMedia(ctx context.Context, host, bearerToken string, media Media) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if media.AltText != "" {
		if err := writer.WriteField("description", media.AltText); err != nil {
			return "", fmt.Errorf("failed to write description field: %w", err)
		}
	}

	part, err := writer.CreatePart(filePartHeader(media.FileName, media.MimeType))
	if err != nil {
		return "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(media.Data); err != nil {
		return "", fmt.Errorf("failed to write file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	body, err := c.do(ctx, "POST", host+"/api/v1/media", bearerToken,
		writer.FormDataContentType(), buf.Bytes(), publishTimeout)
	if err != nil {
		return "", err
	}

	var resp mediaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse media response: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("media response missing ID")
	}

	return resp.ID, nil
}

// CreateStatus posts a new public status with one attached media ID and
// returns its URL.
func (c *Client) CreateStatus(ctx context.Context, host, bearerToken, text, mediaID string) (*Status, error) {
	form := url.Values{
		"status":     {text},
		"visibility": {"public"},
	}

	// The API rejects bracketed array keys produced by generic form encoding
	// (`media_ids[0]`), so the media ID field is appended as a raw literal.
	encoded := form.Encode() + "&media_ids[]=" + url.QueryEscape(mediaID)

	body, err := c.do(ctx, "POST", host+"/api/v1/statuses", bearerToken,
		"application/x-www-form-urlencoded", []byte(encoded), publishTimeout)
	if err != nil {
		return nil, err
	}

	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	if resp.URL == "" {
		return nil, fmt.Errorf("status response missing URL")
	}

	return &Status{URL: resp.URL}, nil
}

func (c *Client) postForm(ctx context.Context, rawURL, bearerToken string, form url.Values, timeout time.Duration) ([]byte, error) {
	return c.do(ctx, "POST", rawURL, bearerToken,
		"application/x-www-form-urlencoded", []byte(form.Encode()), timeout)
}

func (c *Client) get(ctx context.Context, rawURL, bearerToken string, timeout time.Duration) ([]byte, error) {
	return c.do(ctx, "GET", rawURL, bearerToken, "", nil, timeout)
}

func (c *Client) do(ctx context.Context, method, rawURL, bearerToken, contentType string, body []byte, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(timeoutCtx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		slog.Debug("Pixelfed authentication rejected", "url", rawURL, "status", resp.StatusCode)
		return nil, &AuthError{StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Surface a structured error message when the body carries one.
		var structured struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &structured); err == nil && structured.Error != "" {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: structured.Error}
		}

		slog.Debug("Pixelfed request failed", "url", rawURL, "status", resp.StatusCode, "body", truncateForLog(data))
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return data, nil
}

func filePartHeader(filename, mimeType string) textproto.MIMEHeader {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, strings.ReplaceAll(filename, `"`, `\"`)))
	if mimeType != "" {
		header.Set("Content-Type", mimeType)
	}
	return header
}

func truncateForLog(data []byte) string {
	const max = 512
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
