package entity

// ProviderGoogle is the name of the Google OAuth2 provider.
const ProviderGoogle = "google"

// OAuthState is the payload bound to a one-time OAuth state value.
type OAuthState struct {
	Provider    string `json:"provider"`
	RedirectURI string `json:"redirect_uri"`
}

// OAuthUserInfo is the normalized identity returned by a provider.
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
	EmailVerified  bool
}
