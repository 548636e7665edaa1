package auth

import "golang.org/x/oauth2/clientcredentials"

// Conf represents the configuration needed for authentication.
// A static APIKey takes precedence over the client credentials flow.
type Conf struct {
	APIKey       string   `json:"api_key"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURL      string   `json:"auth_url"`
	Scopes       []string `json:"scopes"`
}

// Configured reports whether any credential is present.
func (c Conf) Configured() bool {
	return c.APIKey != "" || (c.ClientID != "" && c.ClientSecret != "" && c.AuthURL != "")
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.AuthURL,
		Scopes:       c.Scopes,
	}
}
