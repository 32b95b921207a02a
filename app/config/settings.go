package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	DefaultStatusTemplate = "%title% %permalink%"

	// Delayed shares are never scheduled further out than this many seconds.
	MaxDelaySharing = 3600
)

// Defaults returns a fresh settings struct with every field at its default.
func Defaults() *Settings {
	return &Settings{
		PostTypes:      []string{"post"},
		StatusTemplate: DefaultStatusTemplate,
	}
}

var crlfRe = regexp.MustCompile(`\r\n?|\n`)

// CleanURL normalizes a user-submitted instance URL down to
// scheme://host[:port]. Path, query, and fragment are dropped; the scheme
// defaults to https. Returns an empty string when no host can be parsed.
func CleanURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return ""
	}

	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	} else if !strings.HasPrefix(raw, "https://") && !strings.HasPrefix(raw, "http://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}

	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "https"
	}

	return scheme + "://" + parsed.Host
}

// ApplySetup validates the "setup" section and returns an updated copy of the
// settings. A host change invalidates everything obtained for the old host:
// tokens, expiry, and the client registration.
func ApplySetup(current *Settings, section SetupSection) (*Settings, error) {
	updated := *current

	host := CleanURL(section.Host)
	if host == "" && strings.TrimSpace(section.Host) != "" {
		return nil, fmt.Errorf("invalid instance URL: %q", section.Host)
	}

	if host == updated.Host {
		return &updated, nil
	}

	// Removing the URL might be done to temporarily disable crossposting, so
	// the client registration is kept around in that case.
	updated.Host = host
	updated.AccessToken = ""
	updated.RefreshToken = ""
	updated.TokenExpiry = 0

	if host != "" {
		updated.ClientID = ""
		updated.ClientSecret = ""
		updated.AppID = 0
	}

	return &updated, nil
}

// ApplyPostTypes validates the "post types" section against the supported set
// and returns an updated copy of the settings.
func ApplyPostTypes(current *Settings, section PostTypesSection, supported []string) (*Settings, error) {
	updated := *current

	valid := make(map[string]bool, len(supported))
	for _, t := range supported {
		if t != "attachment" {
			valid[t] = true
		}
	}

	postTypes := []string{}
	for _, t := range section.PostTypes {
		if !valid[t] {
			return nil, fmt.Errorf("unsupported post type: %q", t)
		}
		postTypes = append(postTypes, t)
	}

	updated.PostTypes = postTypes

	return &updated, nil
}

// ApplyAdvanced validates the "advanced" section and returns an updated copy
// of the settings.
func ApplyAdvanced(current *Settings, section AdvancedSection) (*Settings, error) {
	updated := *current

	if section.DelaySharing < 0 {
		return nil, fmt.Errorf("delay must be non-negative, got %d", section.DelaySharing)
	}

	updated.UseFirstImage = section.UseFirstImage
	updated.OptIn = section.OptIn
	updated.ShareAlways = section.ShareAlways
	updated.DelaySharing = section.DelaySharing
	updated.StatusTemplate = crlfRe.ReplaceAllString(section.StatusTemplate, "\n")
	updated.CustomStatusField = section.CustomStatusField
	updated.DebugLogging = section.DebugLogging

	return &updated, nil
}
