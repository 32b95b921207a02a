package database

import (
	"github.com/pixelpress/pixelpress/app/config"
)

type SettingsRepository interface {
	Load() (*config.Settings, error)
	Save(settings *config.Settings) error
	Reset() error
}

type AppRepository interface {
	GetAppsByHost(host string) ([]App, error)
	InsertApp(app App) (int64, error)
	UpdateClientToken(appID int64, clientToken string) error
}

type PostRepository interface {
	GetPost(postID int64) (*Post, error)
	UpsertPost(post Post) error
	SetShareEnabled(postID int64, enabled string) error
	SetCustomStatus(postID int64, customStatus string) error

	ClaimSyndication(postID int64) (bool, error)
	ReleaseSyndicationClaim(postID int64) error
	SetSyndicationURL(postID int64, url string) error
	SetSyndicationError(postID int64, kind, message string) error
	Unlink(postID int64) error
}

type AttachmentRepository interface {
	GetAttachment(attachmentID int64) (*Attachment, error)
	GetAttachmentByURL(url string) (*Attachment, error)
	UpsertAttachment(attachment Attachment) error
}
