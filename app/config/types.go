package config

// Settings holds the per-site configuration: the target Pixelfed instance, the
// OAuth credentials obtained for it, and the sharing behavior knobs. The whole
// struct is persisted as a single blob and always written back in full.
type Settings struct {
	Host         string `json:"host" yaml:"host"`
	ClientID     string `json:"client_id" yaml:"-"`
	ClientSecret string `json:"client_secret" yaml:"-"`
	AppID        int64  `json:"app_id" yaml:"-"`
	AccessToken  string `json:"access_token" yaml:"-"`
	RefreshToken string `json:"refresh_token" yaml:"-"`
	TokenExpiry  int64  `json:"token_expiry" yaml:"-"` // Unix timestamp, 0 when unknown
	Username     string `json:"username" yaml:"-"`

	PostTypes         []string `json:"post_types" yaml:"post_types"`
	UseFirstImage     bool     `json:"use_first_image" yaml:"use_first_image"`
	OptIn             bool     `json:"optin" yaml:"optin"`
	ShareAlways       bool     `json:"share_always" yaml:"share_always"`
	DelaySharing      int      `json:"delay_sharing" yaml:"delay_sharing"` // seconds
	StatusTemplate    string   `json:"status_template" yaml:"status_template"`
	CustomStatusField bool     `json:"custom_status_field" yaml:"custom_status_field"`
	DebugLogging      bool     `json:"debug_logging" yaml:"debug_logging"`
}

// SetupSection carries the user-editable fields of the "setup" settings tab.
type SetupSection struct {
	Host string `json:"host"`
}

// PostTypesSection carries the user-editable fields of the "post types" tab.
type PostTypesSection struct {
	PostTypes []string `json:"post_types"`
}

// AdvancedSection carries the user-editable fields of the "advanced" tab.
type AdvancedSection struct {
	UseFirstImage     bool   `json:"use_first_image"`
	OptIn             bool   `json:"optin"`
	ShareAlways       bool   `json:"share_always"`
	DelaySharing      int    `json:"delay_sharing"`
	StatusTemplate    string `json:"status_template"`
	CustomStatusField bool   `json:"custom_status_field"`
	DebugLogging      bool   `json:"debug_logging"`
}
