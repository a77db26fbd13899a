package suppliers

import (
	"fmt"

	"dropsync/internal/logger"
)

// New maps a supplier type tag to a concrete adapter built from the
// stored credential blob. This mapping is the sole extension point for
// adding a supplier integration. Unknown tags (including types the
// platform stores credentials for without shipping an adapter) fail
// fast.
func New(supplierType string, credentials map[string]interface{}, log *logger.Logger) (Adapter, error) {
	switch supplierType {
	case TypeGigaB2B:
		creds, err := ParseGigaB2BCredentials(credentials)
		if err != nil {
			return nil, err
		}
		return NewGigaB2B(creds, log), nil

	case TypeShopify:
		creds, err := ParseShopifyCredentials(credentials)
		if err != nil {
			return nil, err
		}
		return NewShopify(creds, log), nil

	case TypeWooCommerce:
		creds, err := ParseWooCommerceCredentials(credentials)
		if err != nil {
			return nil, err
		}
		return NewWooCommerce(creds, log), nil

	case TypeCustom:
		creds, err := ParseCustomCredentials(credentials)
		if err != nil {
			return nil, err
		}
		return NewCustomREST(creds, log), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, supplierType)
	}
}
