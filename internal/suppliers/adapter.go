package suppliers

import "context"

// Adapter is the shared contract every supplier integration implements.
// Implementations are constructed per sync attempt from stored
// credentials and hold no cross-call state beyond cached auth tokens.
//
// Failure semantics: TestConnection never returns an error; it catches
// internally and reports {Success: false, Message}. All other methods
// surface upstream HTTP failures as *APIError. FetchProduct, GetOrder
// and GetTracking translate a not-found condition (404 or a
// supplier-specific "not available" signal) into (nil, nil) rather than
// an error; callers depend on that distinction.
type Adapter interface {
	TestConnection(ctx context.Context) ConnectionTestResult
	FetchProducts(ctx context.Context, page, pageSize int, cursor string) (*ProductPage, error)
	FetchProduct(ctx context.Context, id string) (*NormalizedProduct, error)
	FetchInventory(ctx context.Context, ids []string) ([]NormalizedInventory, error)
	CreateOrder(ctx context.Context, req *OrderCreateRequest) (*OrderCreateResponse, error)
	GetOrder(ctx context.Context, id string) (*NormalizedOrder, error)
	GetTracking(ctx context.Context, orderID string) (*TrackingInfo, error)
}
