package pixelfed

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient() *Client {
	return NewClient(&http.Client{}, "Pixel Press/test")
}

func TestClient_RegisterApp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/apps" {
			t.Errorf("Expected /api/v1/apps, got %s", r.URL.Path)
		}
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("Failed to parse form: %v", err)
		}
		if r.PostForm.Get("client_name") != "My App" {
			t.Errorf("Expected client name, got %q", r.PostForm.Get("client_name"))
		}
		if r.PostForm.Get("scopes") != Scopes {
			t.Errorf("Expected scopes %q, got %q", Scopes, r.PostForm.Get("scopes"))
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"client_id":"id-1","client_secret":"secret-1","vapid_key":"vapid-1"}`)
	}))
	defer server.Close()

	client := newTestClient()

	creds, err := client.RegisterApp(context.Background(), server.URL, AppMetadata{
		ClientName:   "My App",
		RedirectURIs: "https://press.example/oauth/callback",
		Website:      "https://press.example",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if creds.ClientID != "id-1" || creds.ClientSecret != "secret-1" || creds.VapidKey != "vapid-1" {
		t.Errorf("Expected credentials parsed, got %+v", creds)
	}
}

func TestClient_RegisterApp_MissingCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"name":"something else"}`)
	}))
	defer server.Close()

	client := newTestClient()

	if _, err := client.RegisterApp(context.Background(), server.URL, AppMetadata{}); err == nil {
		t.Errorf("Expected error for response without credentials")
	}
}

func TestClient_AuthorizeCodeGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/token" {
			t.Errorf("Expected /oauth/token, got %s", r.URL.Path)
		}

		r.ParseForm()
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("Expected authorization_code grant, got %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "the-code" {
			t.Errorf("Expected code passed, got %q", r.PostForm.Get("code"))
		}
		if r.PostForm.Get("client_id") != "id" || r.PostForm.Get("client_secret") != "secret" {
			t.Errorf("Expected client credentials in the form body, got %v", r.PostForm)
		}
		if r.PostForm.Get("redirect_uri") != "https://press.example/oauth/callback" {
			t.Errorf("Expected redirect URI passed, got %q", r.PostForm.Get("redirect_uri"))
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"at","refresh_token":"rt","expires_in":7200}`)
	}))
	defer server.Close()

	client := newTestClient()

	token, err := client.AuthorizeCodeGrant(context.Background(), server.URL,
		"id", "secret", "the-code", "https://press.example/oauth/callback")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if token.AccessToken != "at" || token.RefreshToken != "rt" || token.ExpiresIn != 7200 {
		t.Errorf("Expected token parsed, got %+v", token)
	}
}

func TestClient_RefreshTokenGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("Expected refresh_token grant, got %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("refresh_token") != "rt-old" {
			t.Errorf("Expected refresh token passed, got %q", r.PostForm.Get("refresh_token"))
		}
		if r.PostForm.Get("client_id") != "id" || r.PostForm.Get("client_secret") != "secret" {
			t.Errorf("Expected client credentials in the form body, got %v", r.PostForm)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"at-new","refresh_token":"rt-new","expires_in":3600}`)
	}))
	defer server.Close()

	client := newTestClient()

	token, err := client.RefreshTokenGrant(context.Background(), server.URL, "id", "secret", "rt-old")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if token.AccessToken != "at-new" || token.RefreshToken != "rt-new" || token.ExpiresIn != 3600 {
		t.Errorf("Expected token parsed, got %+v", token)
	}
}

func TestClient_GrantUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"invalid_client"}`)
	}))
	defer server.Close()

	client := newTestClient()

	_, err := client.RefreshTokenGrant(context.Background(), server.URL, "id", "secret", "rt")
	if err == nil {
		t.Fatal("Expected error from rejected grant")
	}
	if !IsAuthError(err) {
		t.Errorf("Expected auth error for 401 grant rejection, got %v", err)
	}
}

func TestClient_GrantAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"invalid_grant","error_description":"Code expired"}`)
	}))
	defer server.Close()

	client := newTestClient()

	_, err := client.AuthorizeCodeGrant(context.Background(), server.URL,
		"id", "secret", "stale-code", "https://press.example/oauth/callback")
	if err == nil {
		t.Fatal("Expected error from rejected exchange")
	}

	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("Expected API error, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "invalid_grant" {
		t.Errorf("Expected structured rejection, got %+v", apiErr)
	}
}

func TestClient_ClientCredentialsGrant_OOBRedirect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("Expected client_credentials grant, got %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("redirect_uri") != "urn:ietf:wg:oauth:2.0:oob" {
			t.Errorf("Expected out-of-band redirect URI, got %q", r.PostForm.Get("redirect_uri"))
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"app-token"}`)
	}))
	defer server.Close()

	client := newTestClient()

	token, err := client.ClientCredentialsGrant(context.Background(), server.URL, "id", "secret")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if token.AccessToken != "app-token" {
		t.Errorf("Expected app token, got %q", token.AccessToken)
	}
}

func TestClient_VerifyCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/verify_credentials" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer the-token" {
			t.Errorf("Expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Pixel Press") {
			t.Errorf("Expected user agent set, got %q", r.Header.Get("User-Agent"))
		}

		io.WriteString(w, `{"username":"alice"}`)
	}))
	defer server.Close()

	client := newTestClient()

	account, err := client.VerifyCredentials(context.Background(), server.URL, "the-token")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if account.Username != "alice" {
		t.Errorf("Expected username parsed, got %q", account.Username)
	}
}

func TestClient_VerifyCredentials_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":"The access token is invalid"}`)
	}))
	defer server.Close()

	client := newTestClient()

	_, err := client.VerifyCredentials(context.Background(), server.URL, "stale")
	if err == nil {
		t.Fatalf("Expected error")
	}

	if !IsAuthError(err) {
		t.Errorf("Expected auth error for 401, got %T: %v", err, err)
	}
}

func TestClient_UploadMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/media" {
			t.Errorf("Expected /api/v1/media, got %s", r.URL.Path)
		}

		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			t.Fatalf("Failed to parse content type: %v", err)
		}

		reader := multipart.NewReader(r.Body, params["boundary"])

		// The description field comes first, ahead of the file part.
		first, err := reader.NextPart()
		if err != nil {
			t.Fatalf("Failed to read first part: %v", err)
		}
		if first.FormName() != "description" {
			t.Errorf("Expected description part first, got %q", first.FormName())
		}
		description, _ := io.ReadAll(first)
		if string(description) != "A photo" {
			t.Errorf("Expected alt text, got %q", description)
		}

		second, err := reader.NextPart()
		if err != nil {
			t.Fatalf("Failed to read second part: %v", err)
		}
		if second.FormName() != "file" {
			t.Errorf("Expected file part, got %q", second.FormName())
		}
		if second.FileName() != "photo.jpg" {
			t.Errorf("Expected filename, got %q", second.FileName())
		}
		if second.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("Expected part content type, got %q", second.Header.Get("Content-Type"))
		}
		data, _ := io.ReadAll(second)
		if string(data) != "jpeg bytes" {
			t.Errorf("Expected file data, got %q", data)
		}

		io.WriteString(w, `{"id":"media-9"}`)
	}))
	defer server.Close()

	client := newTestClient()

	mediaID, err := client.UploadMedia(context.Background(), server.URL, "token", Media{
		FileName: "photo.jpg",
		MimeType: "image/jpeg",
		Data:     []byte("jpeg bytes"),
		AltText:  "A photo",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if mediaID != "media-9" {
		t.Errorf("Expected media ID, got %q", mediaID)
	}
}

func TestClient_UploadMedia_NoAltText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		reader := multipart.NewReader(r.Body, params["boundary"])

		first, err := reader.NextPart()
		if err != nil {
			t.Fatalf("Failed to read first part: %v", err)
		}
		if first.FormName() != "file" {
			t.Errorf("Expected only the file part, got %q", first.FormName())
		}

		io.WriteString(w, `{"id":"media-9"}`)
	}))
	defer server.Close()

	client := newTestClient()

	if _, err := client.UploadMedia(context.Background(), server.URL, "token", Media{
		FileName: "photo.jpg",
		Data:     []byte("x"),
	}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

func TestClient_CreateStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/statuses" {
			t.Errorf("Expected /api/v1/statuses, got %s", r.URL.Path)
		}

		body, _ := io.ReadAll(r.Body)

		// The media ID must be sent as an unindexed array key.
		if !strings.Contains(string(body), "media_ids[]=media-9") {
			t.Errorf("Expected raw media_ids[] key, got %q", body)
		}

		r.Body = io.NopCloser(strings.NewReader(string(body)))
		r.ParseForm()
		if r.PostForm.Get("status") != "Hello https://blog.example/p/1" {
			t.Errorf("Expected status text, got %q", r.PostForm.Get("status"))
		}
		if r.PostForm.Get("visibility") != "public" {
			t.Errorf("Expected public visibility, got %q", r.PostForm.Get("visibility"))
		}

		io.WriteString(w, `{"url":"https://pixelfed.social/p/alice/1"}`)
	}))
	defer server.Close()

	client := newTestClient()

	status, err := client.CreateStatus(context.Background(), server.URL, "token",
		"Hello https://blog.example/p/1", "media-9")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if status.URL != "https://pixelfed.social/p/alice/1" {
		t.Errorf("Expected status URL, got %q", status.URL)
	}
}

func TestClient_CreateStatus_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"error":"Validation failed: too long"}`)
	}))
	defer server.Close()

	client := newTestClient()

	_, err := client.CreateStatus(context.Background(), server.URL, "token", "text", "media-9")
	if err == nil {
		t.Fatalf("Expected error")
	}

	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("Expected API error, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 422 {
		t.Errorf("Expected status 422, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "Validation failed: too long" {
		t.Errorf("Expected message surfaced, got %q", apiErr.Message)
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>Bad Gateway</html>")
	}))
	defer server.Close()

	client := newTestClient()

	_, err := client.VerifyCredentials(context.Background(), server.URL, "token")
	if err == nil {
		t.Fatalf("Expected error")
	}

	if _, ok := AsAPIError(err); ok {
		t.Errorf("Expected generic error for non-JSON body, got API error")
	}
	if IsAuthError(err) {
		t.Errorf("Expected non-auth error for 502")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("Expected status code in error, got %q", err.Error())
	}
}

func TestClient_RevokeToken(t *testing.T) {
	var revoked bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/revoke" {
			t.Errorf("Expected /oauth/revoke, got %s", r.URL.Path)
		}
		r.ParseForm()
		if r.PostForm.Get("token") != "the-token" {
			t.Errorf("Expected token in form, got %q", r.PostForm.Get("token"))
		}
		revoked = true
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	client := newTestClient()

	if err := client.RevokeToken(context.Background(), server.URL, "id", "secret", "the-token"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !revoked {
		t.Errorf("Expected revoke endpoint hit")
	}
}

func TestAuthError_ErrorsAs(t *testing.T) {
	var authErr *AuthError
	err := error(&AuthError{StatusCode: 403})

	if !errors.As(err, &authErr) {
		t.Errorf("Expected errors.As to match AuthError")
	}
}

func TestAuthorizeURL_EncodesRedirectURI(t *testing.T) {
	url := AuthorizeURL("https://pixelfed.social", "id-1", "https://press.example/oauth/callback")

	expected := "https://pixelfed.social/oauth/authorize?client_id=id-1" +
		"&redirect_uri=https%3A%2F%2Fpress.example%2Foauth%2Fcallback" +
		"&response_type=code&scope=read+write"
	if url != expected {
		t.Errorf("Expected %q, got %q", expected, url)
	}
}
