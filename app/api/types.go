package api

import (
	"context"

	"github.com/pixelpress/pixelpress/app/auth"
	"github.com/pixelpress/pixelpress/app/database"
	"github.com/pixelpress/pixelpress/app/syndication"
)

type OrchestratorInterface interface {
	HandleTransition(ctx context.Context, oldStatus, newStatus string, post *database.Post) error
	Unlink(postID int64) error
}

var _ OrchestratorInterface = (*syndication.Orchestrator)(nil)

type AuthManagerInterface interface {
	AuthorizeURL() string
	EnsureApp(ctx context.Context) bool
	ExchangeCode(ctx context.Context, code string) bool
	VerifyToken(ctx context.Context) bool
	RefreshToken(ctx context.Context) bool
	Revoke(ctx context.Context) bool
}

var _ AuthManagerInterface = (*auth.Manager)(nil)

type Handler struct {
	settingsRepo   database.SettingsRepository
	postRepo       database.PostRepository
	attachmentRepo database.AttachmentRepository
	orchestrator   OrchestratorInterface
	authManager    AuthManagerInterface
	postTypes      []string
}
