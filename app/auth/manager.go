package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/pixelpress/pixelpress/app/config"
	"github.com/pixelpress/pixelpress/app/database"
	"github.com/pixelpress/pixelpress/app/pixelfed"
)

const (
	// Tokens are refreshed proactively once their expiry falls within this
	// window.
	refreshWindow = 2 * 24 * time.Hour

	clientName = "Pixel Press"
)

// Manager drives the OAuth lifecycle for one site configuration: client
// registration (with reuse across installs targeting the same host), the
// authorization-code exchange, periodic verification, proactive refresh, and
// revocation. Every operation degrades to "not authorized" instead of failing
// loudly; callers receive a bool and can trust the stored settings afterwards.
type Manager struct {
	client      Client
	settings    database.SettingsRepository
	apps        database.AppRepository
	redirectURI string
	website     string
	now         func() time.Time
}

// NewManager creates a new token lifecycle manager. The redirect URI and
// website are derived from the service's public base URL.
func NewManager(client Client, settings database.SettingsRepository, apps database.AppRepository, baseURL string) *Manager {
	return &Manager{
		client:      client,
		settings:    settings,
		apps:        apps,
		redirectURI: baseURL + "/oauth/callback",
		website:     baseURL,
		now:         time.Now,
	}
}

// AuthorizeURL returns the instance URL a user must visit to grant access, or
// an empty string when no app is registered yet.
func (m *Manager) AuthorizeURL() string {
	settings, err := m.settings.Load()
	if err != nil || settings.Host == "" || settings.ClientID == "" {
		return ""
	}

	return pixelfed.AuthorizeURL(settings.Host, settings.ClientID, m.redirectURI)
}

// EnsureApp makes sure the configuration carries a usable client id/secret
// for its host, reusing a known registration when one still validates and
// registering a fresh app otherwise. Returns true when credentials are in
// place afterwards.
func (m *Manager) EnsureApp(ctx context.Context) bool {
	settings, err := m.settings.Load()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		return false
	}

	if settings.Host == "" {
		return false
	}
	if settings.ClientID != "" && settings.ClientSecret != "" {
		return true
	}

	// Reuse a known registration for this host rather than registering a
	// "new" client each and every time. An old registration is only adopted
	// after its app token checks out; should an app token ever get revoked,
	// we re-register after all.
	apps, err := m.apps.GetAppsByHost(settings.Host)
	if err != nil {
		slog.Error("Failed to look up apps", "host", settings.Host, "error", err)
		return false
	}

	for _, app := range apps {
		if app.ClientID == "" || app.ClientSecret == "" {
			continue
		}

		if m.verifyClientToken(ctx, app) || m.requestClientToken(ctx, app) {
			slog.Debug("Reusing existing app registration", "app_id", app.ID, "host", settings.Host)

			settings.AppID = app.ID
			settings.ClientID = app.ClientID
			settings.ClientSecret = app.ClientSecret

			if err := m.settings.Save(settings); err != nil {
				slog.Error("Failed to save settings", "error", err)
				return false
			}
			return true
		}
	}

	return m.registerApp(ctx, settings)
}

func (m *Manager) registerApp(ctx context.Context, settings *config.Settings) bool {
	slog.Debug("Registering new app", "host", settings.Host)

	metadata := pixelfed.AppMetadata{
		ClientName:   clientName,
		RedirectURIs: m.redirectURI,
		Website:      m.website,
	}

	creds, err := m.client.RegisterApp(ctx, settings.Host, metadata)
	if err != nil {
		slog.Error("App registration failed", "host", settings.Host, "error", err)
		return false
	}

	app := database.App{
		Host:         settings.Host,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		VapidKey:     creds.VapidKey,
		ClientName:   clientName,
		Scopes:       pixelfed.Scopes,
		RedirectURIs: m.redirectURI,
		Website:      m.website,
	}

	appID, err := m.apps.InsertApp(app)
	if err != nil {
		slog.Error("Failed to store app registration", "host", settings.Host, "error", err)
		return false
	}

	settings.AppID = appID
	settings.ClientID = creds.ClientID
	settings.ClientSecret = creds.ClientSecret

	if err := m.settings.Save(settings); err != nil {
		slog.Error("Failed to save settings", "error", err)
		return false
	}

	// Fetch an app token right away, in case another install targets this
	// same instance in the future.
	app.ID = appID
	m.requestClientToken(ctx, app)

	return true
}

func (m *Manager) verifyClientToken(ctx context.Context, app database.App) bool {
	if app.Host == "" || app.ClientToken == "" {
		return false
	}

	if _, err := m.client.VerifyAppCredentials(ctx, app.Host, app.ClientToken); err != nil {
		slog.Debug("App token verification failed", "app_id", app.ID, "host", app.Host, "error", err)
		return false
	}

	return true
}

func (m *Manager) requestClientToken(ctx context.Context, app database.App) bool {
	token, err := m.client.ClientCredentialsGrant(ctx, app.Host, app.ClientID, app.ClientSecret)
	if err != nil {
		slog.Debug("App token request failed", "app_id", app.ID, "host", app.Host, "error", err)
		return false
	}

	if err := m.apps.UpdateClientToken(app.ID, token.AccessToken); err != nil {
		// A lost app token only means the next install re-registers; the
		// registration itself stays valid.
		slog.Warn("Failed to store app token", "app_id", app.ID, "error", err)
	}

	return true
}

// ExchangeCode trades an authorization code for access and refresh tokens,
// then verifies the new token to capture the account's username.
func (m *Manager) ExchangeCode(ctx context.Context, code string) bool {
	settings, err := m.settings.Load()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		return false
	}

	if settings.Host == "" || settings.ClientID == "" || settings.ClientSecret == "" {
		return false
	}

	token, err := m.client.AuthorizeCodeGrant(ctx, settings.Host, settings.ClientID,
		settings.ClientSecret, code, m.redirectURI)
	if err != nil {
		slog.Error("Authorization code exchange failed", "host", settings.Host, "error", err)
		return false
	}

	settings.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		settings.RefreshToken = token.RefreshToken
	}
	if token.ExpiresIn > 0 {
		settings.TokenExpiry = m.now().Unix() + token.ExpiresIn
	}

	if err := m.settings.Save(settings); err != nil {
		slog.Error("Failed to save settings", "error", err)
		return false
	}

	m.VerifyToken(ctx)

	return true
}

// VerifyToken checks the stored access token against the instance. A 401/403
// clears the access token, refresh token, and expiry, demoting the site back
// to awaiting user authorization; the stored username is left untouched. On
// success the username is updated when it changed.
func (m *Manager) VerifyToken(ctx context.Context) bool {
	settings, err := m.settings.Load()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		return false
	}

	if settings.Host == "" || settings.AccessToken == "" {
		return false
	}

	account, err := m.client.VerifyCredentials(ctx, settings.Host, settings.AccessToken)
	if err != nil {
		if pixelfed.IsAuthError(err) {
			slog.Info("Access token invalid, clearing tokens", "host", settings.Host)

			settings.AccessToken = ""
			settings.RefreshToken = ""
			settings.TokenExpiry = 0

			if saveErr := m.settings.Save(settings); saveErr != nil {
				slog.Error("Failed to save settings", "error", saveErr)
			}
		} else {
			slog.Debug("Token verification failed", "host", settings.Host, "error", err)
		}
		return false
	}

	slog.Debug("Access token valid", "host", settings.Host, "username", account.Username)

	if settings.Username != account.Username {
		settings.Username = account.Username
		if err := m.settings.Save(settings); err != nil {
			slog.Error("Failed to save settings", "error", err)
			return false
		}
	}

	return true
}

// RefreshToken exchanges the stored refresh token for a new access token, but
// only when an expiry is known and falls within the refresh window. On a
// 401/403 the token fields are all cleared.
func (m *Manager) RefreshToken(ctx context.Context) bool {
	settings, err := m.settings.Load()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		return false
	}

	if settings.TokenExpiry == 0 {
		return false
	}
	if time.Unix(settings.TokenExpiry, 0).After(m.now().Add(refreshWindow)) {
		// Token doesn't expire until after the refresh window.
		return false
	}
	if settings.Host == "" || settings.RefreshToken == "" {
		return false
	}

	token, err := m.client.RefreshTokenGrant(ctx, settings.Host, settings.ClientID,
		settings.ClientSecret, settings.RefreshToken)
	if err != nil {
		if pixelfed.IsAuthError(err) {
			slog.Info("Refresh token invalid, clearing tokens", "host", settings.Host)

			settings.AccessToken = ""
			settings.RefreshToken = ""
			settings.TokenExpiry = 0

			if saveErr := m.settings.Save(settings); saveErr != nil {
				slog.Error("Failed to save settings", "error", saveErr)
			}
		} else {
			slog.Debug("Token refresh failed", "host", settings.Host, "error", err)
		}
		return false
	}

	settings.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		settings.RefreshToken = token.RefreshToken
	}
	if token.ExpiresIn > 0 {
		settings.TokenExpiry = m.now().Unix() + token.ExpiresIn
	}

	if err := m.settings.Save(settings); err != nil {
		slog.Error("Failed to save settings", "error", err)
		return false
	}

	slog.Debug("Access token refreshed", "host", settings.Host)

	return true
}

// Revoke asks the instance to revoke the current access token and clears the
// local token and username regardless of the remote outcome; local state is
// what the user sees, even when the remote revoke silently fails.
func (m *Manager) Revoke(ctx context.Context) bool {
	settings, err := m.settings.Load()
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		return false
	}

	if settings.Host == "" || settings.AccessToken == "" ||
		settings.ClientID == "" || settings.ClientSecret == "" {
		return false
	}

	revokeErr := m.client.RevokeToken(ctx, settings.Host, settings.ClientID,
		settings.ClientSecret, settings.AccessToken)

	settings.AccessToken = ""
	settings.Username = ""

	if err := m.settings.Save(settings); err != nil {
		slog.Error("Failed to save settings", "error", err)
		return false
	}

	if revokeErr != nil {
		slog.Debug("Remote revoke failed", "host", settings.Host, "error", revokeErr)
		return false
	}

	return true
}
