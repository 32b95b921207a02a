package database

import (
	"time"
)

// Post mirrors the blog-side post record plus the syndication state attached
// to it. ShareEnabled is tri-state: "" (unset), "0" (explicit off), and "1"
// (explicit on).
type Post struct {
	ID              int64
	Type            string
	Status          string
	Password        string
	Title           string
	Content         string
	Excerpt         string
	Permalink       string
	Tags            []string
	FeaturedImageID int64
	PublishedAt     *time.Time

	ShareEnabled         string
	CustomStatus         string
	SyndicationURL       string
	SyndicationError     string
	SyndicationErrorKind string // "upload" or "status"
	SyndicationClaimed   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attachment is a media-library entry the blog has told us about.
type Attachment struct {
	ID        int64
	URL       string
	FilePath  string
	MimeType  string
	AltText   string
	Caption   string
	CreatedAt time.Time
}

// App is a client registration against one Pixelfed host, shared between
// installs targeting the same instance. Uniquely keyed by (host, client_id).
type App struct {
	ID           int64
	Host         string
	ClientID     string
	ClientSecret string
	ClientToken  string
	VapidKey     string
	ClientName   string
	Scopes       string
	RedirectURIs string
	Website      string
	CreatedAt    time.Time
}
