package config

// APIConfig configures the HTTP API serving dispatch logs and driver status.
type APIConfig struct {
	// Addr is the listen address; empty disables the API.
	Addr string `json:"addr"`
	// Enabled turns the API on with the default address when Addr is empty.
	Enabled bool `json:"enabled"`
	// Token, when set, is required as a bearer token on the logs endpoint.
	Token string `json:"token"`
}

// DefaultAPIAddr is used when the API is enabled without an address.
const DefaultAPIAddr = ":8080"

// SetDefaults applies the default address.
func (c *APIConfig) SetDefaults() {
	if c.Enabled && c.Addr == "" {
		c.Addr = DefaultAPIAddr
	}
}
