package catalog

import (
	"github.com/shopspring/decimal"

	"dropsync/internal/models"
)

// wholesaleMarkup is platform policy for the high-volume wholesale
// supplier, not merchant configuration.
var wholesaleMarkup = decimal.RequireFromString("1.6")

// MerchantPrice derives the merchant-facing price from the supplier
// base price. It always computes from the base price, never from a
// previously stored price, so re-running a sync can never compound the
// markup.
func MerchantPrice(supplierType models.SupplierType, basePrice float64) float64 {
	price := decimal.NewFromFloat(basePrice)
	if supplierType == models.SupplierTypeGigaB2B {
		price = price.Mul(wholesaleMarkup)
	}
	out, _ := price.Round(2).Float64()
	return out
}
