package suppliers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dropsync/internal/logger"
)

const (
	shopifyAPIVersion = "2024-01"

	// Quantity assigned to every variant of a product whose inventory
	// is not tracked upstream: untracked means always purchasable, and
	// downstream stock math needs a concrete number, not zero.
	shopifyUntrackedQuantity = 999

	shopifyMaxPageSize = 100
)

// Shopify fetches the store catalog over the GraphQL Admin API with
// first/after cursor pagination, pulling variants and images in the
// same query to avoid per-product round trips.
type Shopify struct {
	storeDomain string
	accessToken string
	httpClient  *http.Client
	logger      *logger.Logger
}

func NewShopify(creds *ShopifyCredentials, log *logger.Logger) *Shopify {
	domain := creds.StoreDomain
	if !strings.Contains(domain, ".") {
		domain += ".myshopify.com"
	}
	return &Shopify{
		storeDomain: domain,
		accessToken: creds.AccessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type shopifyPageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type shopifyImage struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

type shopifyVariant struct {
	ID                string  `json:"id"`
	SKU               string  `json:"sku"`
	Barcode           string  `json:"barcode"`
	Title             string  `json:"title"`
	Price             string  `json:"price"`
	CompareAtPrice    *string `json:"compareAtPrice"`
	InventoryQuantity int     `json:"inventoryQuantity"`
	InventoryItem     struct {
		Tracked  bool `json:"tracked"`
		UnitCost *struct {
			Amount string `json:"amount"`
		} `json:"unitCost"`
	} `json:"inventoryItem"`
}

type shopifyProduct struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	DescriptionHTML string   `json:"descriptionHtml"`
	ProductType     string   `json:"productType"`
	Vendor          string   `json:"vendor"`
	Tags            []string `json:"tags"`
	Images          struct {
		Edges []struct {
			Node shopifyImage `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []struct {
			Node shopifyVariant `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
}

func (a *Shopify) doGraphQL(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", a.storeDomain, shopifyAPIVersion)

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", a.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(raw, &gqlResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		messages := make([]string, 0, len(gqlResp.Errors))
		for _, e := range gqlResp.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("graphql request failed: %s", strings.Join(messages, "; "))
	}

	if out != nil {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func (a *Shopify) TestConnection(ctx context.Context) ConnectionTestResult {
	var data struct {
		Products struct {
			Edges []struct {
				Node struct {
					ID string `json:"id"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := a.doGraphQL(ctx, `query { products(first: 1) { edges { node { id } } } }`, nil, &data); err != nil {
		return ConnectionTestResult{Success: false, Message: err.Error()}
	}

	return ConnectionTestResult{
		Success: true,
		Message: fmt.Sprintf("connected to %s", a.storeDomain),
		Capabilities: &Capabilities{
			ReadProducts:  true,
			ReadInventory: true,
			CreateOrders:  true,
			ReadOrders:    true,
			GetTracking:   true,
		},
	}
}

// FetchProducts pages with first/after cursors. Products whose tracked
// variants sum to zero stock are dropped; products with no tracked
// variant get every quantity forced to the untracked sentinel.
func (a *Shopify) FetchProducts(ctx context.Context, page, pageSize int, cursor string) (*ProductPage, error) {
	first := pageSize
	if first <= 0 || first > shopifyMaxPageSize {
		first = shopifyMaxPageSize
	}

	variables := map[string]interface{}{"first": first}
	if cursor != "" {
		variables["after"] = cursor
	}

	var data struct {
		Products struct {
			PageInfo shopifyPageInfo `json:"pageInfo"`
			Edges    []struct {
				Node shopifyProduct `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	if err := a.doGraphQL(ctx, shopifyProductsQuery, variables, &data); err != nil {
		return nil, err
	}

	items := make([]NormalizedProduct, 0, len(data.Products.Edges))
	for _, edge := range data.Products.Edges {
		if product, ok := normalizeShopifyProduct(edge.Node); ok {
			items = append(items, product)
		}
	}

	return &ProductPage{
		Items:      items,
		Total:      -1,
		Page:       page,
		PageSize:   first,
		HasMore:    data.Products.PageInfo.HasNextPage,
		NextCursor: data.Products.PageInfo.EndCursor,
	}, nil
}

func (a *Shopify) FetchProduct(ctx context.Context, id string) (*NormalizedProduct, error) {
	variables := map[string]interface{}{"id": shopifyProductGID(id)}

	var data struct {
		Product *shopifyProduct `json:"product"`
	}
	if err := a.doGraphQL(ctx, shopifyProductQuery, variables, &data); err != nil {
		return nil, err
	}
	if data.Product == nil {
		return nil, nil
	}

	product, ok := normalizeShopifyProduct(*data.Product)
	if !ok {
		return nil, nil
	}
	return &product, nil
}

func (a *Shopify) FetchInventory(ctx context.Context, ids []string) ([]NormalizedInventory, error) {
	if len(ids) > 0 {
		inventory := make([]NormalizedInventory, 0, len(ids))
		for _, id := range ids {
			product, err := a.FetchProduct(ctx, id)
			if err != nil {
				return nil, err
			}
			if product == nil {
				continue
			}
			inventory = append(inventory, inventoryRows(*product)...)
		}
		return inventory, nil
	}

	var inventory []NormalizedInventory
	cursor := ""
	for page := 1; ; page++ {
		result, err := a.FetchProducts(ctx, page, shopifyMaxPageSize, cursor)
		if err != nil {
			return nil, err
		}
		for _, product := range result.Items {
			inventory = append(inventory, inventoryRows(product)...)
		}
		if !result.HasMore || len(result.Items) == 0 {
			break
		}
		cursor = result.NextCursor
	}
	return inventory, nil
}

func (a *Shopify) CreateOrder(ctx context.Context, req *OrderCreateRequest) (*OrderCreateResponse, error) {
	lineItems := make([]map[string]interface{}, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, map[string]interface{}{
			"variantId": item.VariantID,
			"quantity":  item.Quantity,
		})
	}

	input := map[string]interface{}{
		"lineItems": lineItems,
		"note":      req.Note,
		"shippingAddress": map[string]interface{}{
			"address1": req.ShippingAddress.Line1,
			"address2": req.ShippingAddress.Line2,
			"city":     req.ShippingAddress.City,
			"province": req.ShippingAddress.Province,
			"zip":      req.ShippingAddress.Zip,
			"country":  req.ShippingAddress.Country,
			"phone":    req.ShippingAddress.Phone,
		},
	}

	var data struct {
		DraftOrderCreate struct {
			DraftOrder *struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"draftOrder"`
			UserErrors []struct {
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"draftOrderCreate"`
	}
	if err := a.doGraphQL(ctx, shopifyDraftOrderCreateMutation, map[string]interface{}{"input": input}, &data); err != nil {
		return nil, err
	}
	if len(data.DraftOrderCreate.UserErrors) > 0 {
		messages := make([]string, 0, len(data.DraftOrderCreate.UserErrors))
		for _, e := range data.DraftOrderCreate.UserErrors {
			messages = append(messages, e.Message)
		}
		return nil, fmt.Errorf("order rejected: %s", strings.Join(messages, "; "))
	}
	if data.DraftOrderCreate.DraftOrder == nil {
		return nil, fmt.Errorf("order rejected: empty draft order response")
	}

	return &OrderCreateResponse{
		SupplierOrderID: data.DraftOrderCreate.DraftOrder.ID,
		Status:          OrderStatusPending,
	}, nil
}

func (a *Shopify) GetOrder(ctx context.Context, id string) (*NormalizedOrder, error) {
	variables := map[string]interface{}{"id": shopifyOrderGID(id)}

	var data struct {
		Order *struct {
			ID                       string `json:"id"`
			DisplayFulfillmentStatus string `json:"displayFulfillmentStatus"`
			CreatedAt                string `json:"createdAt"`
			TotalPriceSet            struct {
				ShopMoney struct {
					Amount       string `json:"amount"`
					CurrencyCode string `json:"currencyCode"`
				} `json:"shopMoney"`
			} `json:"totalPriceSet"`
			LineItems struct {
				Edges []struct {
					Node struct {
						SKU                  string `json:"sku"`
						Quantity             int    `json:"quantity"`
						OriginalUnitPriceSet struct {
							ShopMoney struct {
								Amount string `json:"amount"`
							} `json:"shopMoney"`
						} `json:"originalUnitPriceSet"`
						Variant *struct {
							ID string `json:"id"`
						} `json:"variant"`
						Product *struct {
							ID string `json:"id"`
						} `json:"product"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"lineItems"`
		} `json:"order"`
	}
	if err := a.doGraphQL(ctx, shopifyOrderQuery, variables, &data); err != nil {
		return nil, err
	}
	if data.Order == nil {
		return nil, nil
	}

	items := make([]OrderItem, 0, len(data.Order.LineItems.Edges))
	for _, edge := range data.Order.LineItems.Edges {
		item := OrderItem{
			SKU:      edge.Node.SKU,
			Quantity: edge.Node.Quantity,
			Price:    parseMoney(edge.Node.OriginalUnitPriceSet.ShopMoney.Amount),
		}
		if edge.Node.Variant != nil {
			item.VariantID = edge.Node.Variant.ID
		}
		if edge.Node.Product != nil {
			item.SupplierProductID = edge.Node.Product.ID
		}
		items = append(items, item)
	}

	createdAt, _ := time.Parse(time.RFC3339, data.Order.CreatedAt)
	return &NormalizedOrder{
		SupplierOrderID: data.Order.ID,
		Status:          mapShopifyOrderStatus(data.Order.DisplayFulfillmentStatus),
		Items:           items,
		Total:           parseMoney(data.Order.TotalPriceSet.ShopMoney.Amount),
		Currency:        data.Order.TotalPriceSet.ShopMoney.CurrencyCode,
		CreatedAt:       createdAt,
	}, nil
}

func (a *Shopify) GetTracking(ctx context.Context, orderID string) (*TrackingInfo, error) {
	variables := map[string]interface{}{"id": shopifyOrderGID(orderID)}

	var data struct {
		Order *struct {
			Fulfillments []struct {
				Status       string `json:"status"`
				TrackingInfo []struct {
					Company string `json:"company"`
					Number  string `json:"number"`
				} `json:"trackingInfo"`
				Events struct {
					Edges []struct {
						Node struct {
							HappenedAt string `json:"happenedAt"`
							Status     string `json:"status"`
							Message    string `json:"message"`
						} `json:"node"`
					} `json:"edges"`
				} `json:"events"`
			} `json:"fulfillments"`
		} `json:"order"`
	}
	if err := a.doGraphQL(ctx, shopifyTrackingQuery, variables, &data); err != nil {
		return nil, err
	}
	if data.Order == nil || len(data.Order.Fulfillments) == 0 {
		return nil, nil
	}

	fulfillment := data.Order.Fulfillments[0]
	if len(fulfillment.TrackingInfo) == 0 {
		return nil, nil
	}

	events := make([]TrackingEvent, 0, len(fulfillment.Events.Edges))
	for _, edge := range fulfillment.Events.Edges {
		ts, _ := time.Parse(time.RFC3339, edge.Node.HappenedAt)
		description := edge.Node.Message
		if description == "" {
			description = edge.Node.Status
		}
		events = append(events, TrackingEvent{Description: description, Timestamp: ts})
	}

	return &TrackingInfo{
		Carrier:        fulfillment.TrackingInfo[0].Company,
		TrackingNumber: fulfillment.TrackingInfo[0].Number,
		Status:         mapShopifyTrackingStatus(fulfillment.Status),
		Events:         events,
	}, nil
}

// normalizeShopifyProduct applies the inventory-tracking rule: tracked
// stock summing to zero means not purchasable (dropped); an entirely
// untracked product is treated as always available.
func normalizeShopifyProduct(p shopifyProduct) (NormalizedProduct, bool) {
	variants := make([]ProductVariant, 0, len(p.Variants.Edges))
	anyTracked := false
	trackedSum := 0

	for _, edge := range p.Variants.Edges {
		node := edge.Node
		variant := ProductVariant{
			ID:                node.ID,
			SKU:               node.SKU,
			Barcode:           node.Barcode,
			Title:             node.Title,
			Price:             parseMoney(node.Price),
			InventoryQuantity: node.InventoryQuantity,
		}
		if node.CompareAtPrice != nil {
			compareAt := parseMoney(*node.CompareAtPrice)
			variant.CompareAtPrice = &compareAt
		}
		if node.InventoryItem.UnitCost != nil {
			variant.Cost = parseMoney(node.InventoryItem.UnitCost.Amount)
		}
		if node.InventoryItem.Tracked {
			anyTracked = true
			trackedSum += node.InventoryQuantity
		}
		variants = append(variants, variant)
	}

	if len(variants) == 0 {
		return NormalizedProduct{}, false
	}
	if anyTracked && trackedSum == 0 {
		return NormalizedProduct{}, false
	}
	if !anyTracked {
		for i := range variants {
			variants[i].InventoryQuantity = shopifyUntrackedQuantity
		}
	}

	images := make([]ProductImage, 0, len(p.Images.Edges))
	for i, edge := range p.Images.Edges {
		images = append(images, ProductImage{URL: edge.Node.URL, Alt: edge.Node.AltText, Position: i})
	}

	return NormalizedProduct{
		SupplierProductID: p.ID,
		Title:             p.Title,
		Description:       p.DescriptionHTML,
		Category:          p.ProductType,
		Tags:              p.Tags,
		Images:            images,
		Variants:          variants,
		SupplierSKU:       variants[0].SKU,
		SupplierPrice:     variants[0].Price,
	}, true
}

// ShopifyWebhookProduct is the REST payload Shopify pushes on
// products/create and products/update webhooks. The REST shape differs
// from the GraphQL one: money comes as strings, tags as one
// comma-separated string, and tracking as a nullable management field.
type ShopifyWebhookProduct struct {
	ID          int64                   `json:"id"`
	Title       string                  `json:"title"`
	BodyHTML    string                  `json:"body_html"`
	ProductType string                  `json:"product_type"`
	Tags        string                  `json:"tags"`
	Variants    []ShopifyWebhookVariant `json:"variants"`
	Images      []ShopifyWebhookImage   `json:"images"`
}

type ShopifyWebhookVariant struct {
	ID                  int64   `json:"id"`
	Title               string  `json:"title"`
	SKU                 string  `json:"sku"`
	Barcode             string  `json:"barcode"`
	Price               string  `json:"price"`
	CompareAtPrice      *string `json:"compare_at_price"`
	InventoryQuantity   int     `json:"inventory_quantity"`
	InventoryManagement *string `json:"inventory_management"`
}

type ShopifyWebhookImage struct {
	Src      string `json:"src"`
	Alt      string `json:"alt"`
	Position int    `json:"position"`
}

// NormalizeShopifyWebhook applies the same tracking rule as
// FetchProducts to a pushed product, emitting GraphQL-style IDs so the
// row matches what full syncs write. ok is false when the product has
// no variants or its tracked stock sums to zero.
func NormalizeShopifyWebhook(p *ShopifyWebhookProduct) (NormalizedProduct, bool) {
	variants := make([]ProductVariant, 0, len(p.Variants))
	anyTracked := false
	trackedSum := 0

	for _, v := range p.Variants {
		variant := ProductVariant{
			ID:                "gid://shopify/ProductVariant/" + strconv.FormatInt(v.ID, 10),
			SKU:               v.SKU,
			Barcode:           v.Barcode,
			Title:             v.Title,
			Price:             parseMoney(v.Price),
			InventoryQuantity: v.InventoryQuantity,
		}
		if v.CompareAtPrice != nil {
			compareAt := parseMoney(*v.CompareAtPrice)
			variant.CompareAtPrice = &compareAt
		}
		if v.InventoryManagement != nil && *v.InventoryManagement != "" {
			anyTracked = true
			trackedSum += v.InventoryQuantity
		}
		variants = append(variants, variant)
	}

	if len(variants) == 0 {
		return NormalizedProduct{}, false
	}
	if anyTracked && trackedSum == 0 {
		return NormalizedProduct{}, false
	}
	if !anyTracked {
		for i := range variants {
			variants[i].InventoryQuantity = shopifyUntrackedQuantity
		}
	}

	images := make([]ProductImage, 0, len(p.Images))
	for i, img := range p.Images {
		images = append(images, ProductImage{URL: img.Src, Alt: img.Alt, Position: i})
	}

	var tags []string
	if p.Tags != "" {
		for _, tag := range strings.Split(p.Tags, ",") {
			if trimmed := strings.TrimSpace(tag); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}
	}

	return NormalizedProduct{
		SupplierProductID: shopifyProductGID(strconv.FormatInt(p.ID, 10)),
		Title:             p.Title,
		Description:       p.BodyHTML,
		Category:          p.ProductType,
		Tags:              tags,
		Images:            images,
		Variants:          variants,
		SupplierSKU:       variants[0].SKU,
		SupplierPrice:     variants[0].Price,
	}, true
}

func inventoryRows(product NormalizedProduct) []NormalizedInventory {
	rows := make([]NormalizedInventory, 0, len(product.Variants))
	for _, variant := range product.Variants {
		rows = append(rows, NormalizedInventory{
			SupplierProductID: product.SupplierProductID,
			VariantID:         variant.ID,
			SKU:               variant.SKU,
			Quantity:          variant.InventoryQuantity,
			Available:         variant.InventoryQuantity > 0,
		})
	}
	return rows
}

func shopifyProductGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/Product/" + id
}

// ShopifyProductExternalID maps a REST webhook product ID to the
// GraphQL GID full syncs store as the catalog external ID.
func ShopifyProductExternalID(id int64) string {
	return shopifyProductGID(strconv.FormatInt(id, 10))
}

func shopifyOrderGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/Order/" + id
}

func parseMoney(amount string) float64 {
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return 0
	}
	return value
}

func mapShopifyOrderStatus(status string) OrderStatus {
	switch strings.ToUpper(status) {
	case "UNFULFILLED", "SCHEDULED", "ON_HOLD":
		return OrderStatusConfirmed
	case "PARTIALLY_FULFILLED", "IN_PROGRESS":
		return OrderStatusProcessing
	case "FULFILLED":
		return OrderStatusShipped
	default:
		return OrderStatusPending
	}
}

func mapShopifyTrackingStatus(status string) TrackingStatus {
	switch strings.ToUpper(status) {
	case "IN_TRANSIT", "CONFIRMED", "LABEL_PRINTED", "LABEL_PURCHASED":
		return TrackingStatusInTransit
	case "OUT_FOR_DELIVERY", "ATTEMPTED_DELIVERY", "READY_FOR_PICKUP":
		return TrackingStatusOutForDelivery
	case "DELIVERED", "SUCCESS":
		return TrackingStatusDelivered
	case "FAILURE", "CANCELED", "ERROR":
		return TrackingStatusException
	default:
		return TrackingStatusPending
	}
}
