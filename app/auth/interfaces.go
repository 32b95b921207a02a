package auth

import (
	"context"

	"github.com/pixelpress/pixelpress/app/pixelfed"
)

// Client is the slice of the Pixelfed API the lifecycle manager needs.
type Client interface {
	RegisterApp(ctx context.Context, host string, app pixelfed.AppMetadata) (*pixelfed.AppCredentials, error)
	AuthorizeCodeGrant(ctx context.Context, host, clientID, clientSecret, code, redirectURI string) (*pixelfed.Token, error)
	RefreshTokenGrant(ctx context.Context, host, clientID, clientSecret, refreshToken string) (*pixelfed.Token, error)
	ClientCredentialsGrant(ctx context.Context, host, clientID, clientSecret string) (*pixelfed.Token, error)
	VerifyCredentials(ctx context.Context, host, bearerToken string) (*pixelfed.Account, error)
	VerifyAppCredentials(ctx context.Context, host, bearerToken string) (*pixelfed.AppInfo, error)
	RevokeToken(ctx context.Context, host, clientID, clientSecret, token string) error
}

var _ Client = (*pixelfed.Client)(nil)
