package chedraui

import "errors"

// ProductionBaseURL is the public Chedraui storefront.
const ProductionBaseURL = "https://www.chedraui.com.mx"

// defaultUserAgent identifies this client to the retailer.
const defaultUserAgent = "cartbridge/1.0 (+https://github.com/cartbridge/backend)"

// Errors for Chedraui configuration
var (
	ErrConfigMissingUsername = errors.New("chedraui: username is required")
	ErrConfigMissingPassword = errors.New("chedraui: password is required")
	ErrConfigMissingStoreID  = errors.New("chedraui: store id is required")
)

// Config holds the settings for one Chedraui session.
type Config struct {
	// BaseURL is the storefront root, overridable for tests and staging.
	BaseURL string
	// StoreID is the WCS store identifier embedded in every resource path.
	StoreID string
	// Username is the shopper's logon id (usually an email address).
	Username string
	// Password is the shopper's logon password.
	Password string
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
	// UserAgent overrides the User-Agent header when non-empty.
	UserAgent string
}

// NewConfig creates a Chedraui configuration with production defaults.
func NewConfig(username, password, storeID string) *Config {
	return &Config{
		BaseURL:        ProductionBaseURL,
		StoreID:        storeID,
		Username:       username,
		Password:       password,
		TimeoutSeconds: 30,
		UserAgent:      defaultUserAgent,
	}
}

// Validate validates the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Username == "" {
		return ErrConfigMissingUsername
	}
	if c.Password == "" {
		return ErrConfigMissingPassword
	}
	if c.StoreID == "" {
		return ErrConfigMissingStoreID
	}
	if c.BaseURL == "" {
		c.BaseURL = ProductionBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return nil
}
