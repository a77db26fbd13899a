package catalog

import (
	"fmt"

	"dropsync/internal/suppliers"
)

// ValidateProduct rejects normalized products that cannot become
// catalog rows. Adapters are expected to deliver these invariants;
// this guard turns a misbehaving adapter into counted item errors
// instead of corrupt rows.
func ValidateProduct(p *suppliers.NormalizedProduct) error {
	if p.SupplierProductID == "" {
		return fmt.Errorf("product has no supplier product id")
	}
	if p.Title == "" {
		return fmt.Errorf("product %s has no title", p.SupplierProductID)
	}
	if len(p.Variants) == 0 {
		return fmt.Errorf("product %s has no variants", p.SupplierProductID)
	}
	if p.SupplierPrice < 0 {
		return fmt.Errorf("product %s has a negative price", p.SupplierProductID)
	}
	return nil
}
