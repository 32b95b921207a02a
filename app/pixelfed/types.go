package pixelfed

// Scopes requested for every client registration and token.
const Scopes = "read write:media write:statuses"

// AppMetadata is what gets sent to /api/v1/apps when registering a client.
type AppMetadata struct {
	ClientName   string
	RedirectURIs string
	Website      string
}

// AppCredentials is a successful registration response.
type AppCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	VapidKey     string `json:"vapid_key"`
}

// AppInfo is the response of /api/v1/apps/verify_credentials.
type AppInfo struct {
	Name string `json:"name"`
}

// Token is a successful /oauth/token response. ExpiresIn is in seconds and
// zero when the instance didn't report an expiry.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Account is the response of /api/v1/accounts/verify_credentials.
type Account struct {
	Username string `json:"username"`
}

// Media describes one image to upload.
type Media struct {
	FileName string
	MimeType string
	Data     []byte
	AltText  string
}

// Status is a successful /api/v1/statuses response.
type Status struct {
	URL string `json:"url"`
}

type appResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	VapidKey     string `json:"vapid_key"`
	Error        string `json:"error"`
}

type accountResponse struct {
	Username string `json:"username"`
	Error    string `json:"error"`
}

type mediaResponse struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type statusResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}
