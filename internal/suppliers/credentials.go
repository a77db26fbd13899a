package suppliers

import (
	"fmt"
	"strings"
)

// Supplier type tags. Each tag pairs with exactly one credential shape
// and one adapter; the factory in factory.go owns the mapping.
const (
	TypeGigaB2B     = "gigab2b"
	TypeShopify     = "shopify"
	TypeWooCommerce = "woocommerce"
	TypeCustom      = "custom"
	TypeAmazon      = "amazon"
)

type GigaB2BCredentials struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

type ShopifyCredentials struct {
	StoreDomain string
	AccessToken string
}

type WooCommerceCredentials struct {
	StoreURL       string
	ConsumerKey    string
	ConsumerSecret string
}

type CustomCredentials struct {
	BaseURL   string
	APIKey    string
	AuthToken string
	Headers   map[string]string
	Endpoints map[string]string
}

func ParseGigaB2BCredentials(raw map[string]interface{}) (*GigaB2BCredentials, error) {
	c := &GigaB2BCredentials{
		BaseURL:      strings.TrimRight(stringValue(raw, "base_url"), "/"),
		ClientID:     stringValue(raw, "client_id"),
		ClientSecret: stringValue(raw, "client_secret"),
	}

	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "base_url")
	}
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return c, nil
}

func ParseShopifyCredentials(raw map[string]interface{}) (*ShopifyCredentials, error) {
	c := &ShopifyCredentials{
		StoreDomain: stringValue(raw, "store_domain"),
		AccessToken: stringValue(raw, "access_token"),
	}

	var missing []string
	if c.StoreDomain == "" {
		missing = append(missing, "store_domain")
	}
	if c.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return c, nil
}

func ParseWooCommerceCredentials(raw map[string]interface{}) (*WooCommerceCredentials, error) {
	c := &WooCommerceCredentials{
		StoreURL:       strings.TrimRight(stringValue(raw, "store_url"), "/"),
		ConsumerKey:    stringValue(raw, "consumer_key"),
		ConsumerSecret: stringValue(raw, "consumer_secret"),
	}

	var missing []string
	if c.StoreURL == "" {
		missing = append(missing, "store_url")
	}
	if c.ConsumerKey == "" {
		missing = append(missing, "consumer_key")
	}
	if c.ConsumerSecret == "" {
		missing = append(missing, "consumer_secret")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return c, nil
}

func ParseCustomCredentials(raw map[string]interface{}) (*CustomCredentials, error) {
	c := &CustomCredentials{
		BaseURL:   strings.TrimRight(stringValue(raw, "base_url"), "/"),
		APIKey:    stringValue(raw, "api_key"),
		AuthToken: stringValue(raw, "auth_token"),
		Headers:   stringMapValue(raw, "headers"),
		Endpoints: stringMapValue(raw, "endpoints"),
	}

	if c.BaseURL == "" {
		return nil, fmt.Errorf("%w: base_url", ErrMissingCredentials)
	}
	return c, nil
}

func stringValue(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func stringMapValue(m map[string]interface{}, key string) map[string]string {
	raw, ok := m[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
