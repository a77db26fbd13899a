package suppliers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dropsync/internal/logger"
)

const wooAPIBase = "/wp-json/wc/v3"

// WooCommerce uses the store REST API with Basic auth over the
// consumer key/secret pair and page-number pagination. Variable
// products need a second call to expand their variations.
type WooCommerce struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	logger         *logger.Logger
}

func NewWooCommerce(creds *WooCommerceCredentials, log *logger.Logger) *WooCommerce {
	return &WooCommerce{
		baseURL:        creds.StoreURL + wooAPIBase,
		consumerKey:    creds.ConsumerKey,
		consumerSecret: creds.ConsumerSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
	}
}

type wooCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type wooImage struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

type wooTag struct {
	Name string `json:"name"`
}

type wooAttribute struct {
	Name   string `json:"name"`
	Option string `json:"option"`
}

type wooProduct struct {
	ID               int           `json:"id"`
	Name             string        `json:"name"`
	SKU              string        `json:"sku"`
	Type             string        `json:"type"`
	Status           string        `json:"status"`
	Description      string        `json:"description"`
	ShortDescription string        `json:"short_description"`
	Price            string        `json:"price"`
	RegularPrice     string        `json:"regular_price"`
	StockQuantity    *int          `json:"stock_quantity"`
	StockStatus      string        `json:"stock_status"`
	Weight           string        `json:"weight"`
	Categories       []wooCategory `json:"categories"`
	Images           []wooImage    `json:"images"`
	Tags             []wooTag      `json:"tags"`
	Variations       []int         `json:"variations"`
}

type wooVariation struct {
	ID            int            `json:"id"`
	SKU           string         `json:"sku"`
	Price         string         `json:"price"`
	RegularPrice  string         `json:"regular_price"`
	StockQuantity *int           `json:"stock_quantity"`
	StockStatus   string         `json:"stock_status"`
	Weight        string         `json:"weight"`
	Attributes    []wooAttribute `json:"attributes"`
}

type wooOrderLineItem struct {
	ProductID   int     `json:"product_id"`
	VariationID int     `json:"variation_id,omitempty"`
	Quantity    int     `json:"quantity"`
	SKU         string  `json:"sku,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

type wooOrder struct {
	ID          int                `json:"id"`
	Status      string             `json:"status"`
	Total       string             `json:"total"`
	Currency    string             `json:"currency"`
	DateCreated string             `json:"date_created_gmt"`
	LineItems   []wooOrderLineItem `json:"line_items"`
}

type wooShipmentTracking struct {
	TrackingProvider string `json:"tracking_provider"`
	TrackingNumber   string `json:"tracking_number"`
	DateShipped      string `json:"date_shipped"`
}

func (a *WooCommerce) doRequest(ctx context.Context, method, path string, query url.Values, payload interface{}) ([]byte, http.Header, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.SetBasicAuth(a.consumerKey, a.consumerSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, resp.Header, nil
}

func (a *WooCommerce) TestConnection(ctx context.Context) ConnectionTestResult {
	query := url.Values{}
	query.Set("page", "1")
	query.Set("per_page", "1")

	_, headers, err := a.doRequest(ctx, http.MethodGet, "/products", query, nil)
	if err != nil {
		return ConnectionTestResult{Success: false, Message: err.Error()}
	}

	message := "connection successful"
	if total := headers.Get("X-WP-Total"); total != "" {
		message = fmt.Sprintf("connected, %s products available", total)
	}

	return ConnectionTestResult{
		Success: true,
		Message: message,
		Capabilities: &Capabilities{
			ReadProducts:  true,
			ReadInventory: true,
			CreateOrders:  true,
			ReadOrders:    true,
			GetTracking:   true,
		},
	}
}

func (a *WooCommerce) FetchProducts(ctx context.Context, page, pageSize int, cursor string) (*ProductPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(pageSize))
	query.Set("status", "publish")

	raw, headers, err := a.doRequest(ctx, http.MethodGet, "/products", query, nil)
	if err != nil {
		return nil, err
	}

	var products []wooProduct
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := make([]NormalizedProduct, 0, len(products))
	for _, p := range products {
		product, err := a.normalizeProduct(ctx, p)
		if err != nil {
			return nil, err
		}
		items = append(items, product)
	}

	total := -1
	if v := headers.Get("X-WP-Total"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			total = parsed
		}
	}
	hasMore := len(products) == pageSize
	if v := headers.Get("X-WP-TotalPages"); v != "" {
		if totalPages, err := strconv.Atoi(v); err == nil {
			hasMore = page < totalPages
		}
	}

	return &ProductPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  hasMore,
	}, nil
}

func (a *WooCommerce) FetchProduct(ctx context.Context, id string) (*NormalizedProduct, error) {
	raw, _, err := a.doRequest(ctx, http.MethodGet, "/products/"+id, nil, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var p wooProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	product, err := a.normalizeProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FetchInventory reports one row per variation for variable products
// and a single row keyed by the product id for simple ones.
func (a *WooCommerce) FetchInventory(ctx context.Context, ids []string) ([]NormalizedInventory, error) {
	var inventory []NormalizedInventory

	appendRows := func(p wooProduct) error {
		productID := strconv.Itoa(p.ID)
		if p.Type == "variable" && len(p.Variations) > 0 {
			variations, err := a.fetchVariations(ctx, p.ID)
			if err != nil {
				return err
			}
			for _, v := range variations {
				inventory = append(inventory, NormalizedInventory{
					SupplierProductID: productID,
					VariantID:         strconv.Itoa(v.ID),
					SKU:               v.SKU,
					Quantity:          intOrZero(v.StockQuantity),
					Available:         v.StockStatus == "instock",
				})
			}
			return nil
		}
		inventory = append(inventory, NormalizedInventory{
			SupplierProductID: productID,
			VariantID:         productID,
			SKU:               p.SKU,
			Quantity:          intOrZero(p.StockQuantity),
			Available:         p.StockStatus == "instock",
		})
		return nil
	}

	if len(ids) > 0 {
		for _, id := range ids {
			raw, _, err := a.doRequest(ctx, http.MethodGet, "/products/"+id, nil, nil)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				return nil, err
			}
			var p wooProduct
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, fmt.Errorf("failed to decode response: %w", err)
			}
			if err := appendRows(p); err != nil {
				return nil, err
			}
		}
		return inventory, nil
	}

	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", "100")
		query.Set("status", "publish")

		raw, _, err := a.doRequest(ctx, http.MethodGet, "/products", query, nil)
		if err != nil {
			return nil, err
		}
		var products []wooProduct
		if err := json.Unmarshal(raw, &products); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		if len(products) == 0 {
			break
		}
		for _, p := range products {
			if err := appendRows(p); err != nil {
				return nil, err
			}
		}
		if len(products) < 100 {
			break
		}
	}
	return inventory, nil
}

func (a *WooCommerce) CreateOrder(ctx context.Context, req *OrderCreateRequest) (*OrderCreateResponse, error) {
	lineItems := make([]wooOrderLineItem, 0, len(req.Items))
	for _, item := range req.Items {
		line := wooOrderLineItem{Quantity: item.Quantity}
		if id, err := strconv.Atoi(item.SupplierProductID); err == nil {
			line.ProductID = id
		}
		if item.VariantID != "" && item.VariantID != item.SupplierProductID {
			if id, err := strconv.Atoi(item.VariantID); err == nil {
				line.VariationID = id
			}
		}
		lineItems = append(lineItems, line)
	}

	payload := map[string]interface{}{
		"status":     "processing",
		"set_paid":   true,
		"line_items": lineItems,
		"shipping": map[string]interface{}{
			"first_name": req.ShippingAddress.Name,
			"address_1":  req.ShippingAddress.Line1,
			"address_2":  req.ShippingAddress.Line2,
			"city":       req.ShippingAddress.City,
			"state":      req.ShippingAddress.Province,
			"postcode":   req.ShippingAddress.Zip,
			"country":    req.ShippingAddress.Country,
		},
		"customer_note": req.Note,
	}

	raw, _, err := a.doRequest(ctx, http.MethodPost, "/orders", nil, payload)
	if err != nil {
		return nil, err
	}

	var order wooOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &OrderCreateResponse{
		SupplierOrderID: strconv.Itoa(order.ID),
		Status:          mapWooOrderStatus(order.Status),
	}, nil
}

func (a *WooCommerce) GetOrder(ctx context.Context, id string) (*NormalizedOrder, error) {
	raw, _, err := a.doRequest(ctx, http.MethodGet, "/orders/"+id, nil, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var order wooOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := make([]OrderItem, 0, len(order.LineItems))
	for _, line := range order.LineItems {
		variantID := strconv.Itoa(line.ProductID)
		if line.VariationID != 0 {
			variantID = strconv.Itoa(line.VariationID)
		}
		items = append(items, OrderItem{
			SupplierProductID: strconv.Itoa(line.ProductID),
			VariantID:         variantID,
			SKU:               line.SKU,
			Quantity:          line.Quantity,
			Price:             line.Price,
		})
	}

	createdAt, _ := time.Parse("2006-01-02T15:04:05", order.DateCreated)
	return &NormalizedOrder{
		SupplierOrderID: strconv.Itoa(order.ID),
		Status:          mapWooOrderStatus(order.Status),
		Items:           items,
		Total:           parseMoney(order.Total),
		Currency:        order.Currency,
		CreatedAt:       createdAt,
	}, nil
}

// GetTracking reads the shipment-trackings sub-resource. Stores without
// the shipment tracking extension answer 404, which is a plain "no
// tracking available".
func (a *WooCommerce) GetTracking(ctx context.Context, orderID string) (*TrackingInfo, error) {
	raw, _, err := a.doRequest(ctx, http.MethodGet, "/orders/"+orderID+"/shipment-trackings", nil, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var trackings []wooShipmentTracking
	if err := json.Unmarshal(raw, &trackings); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(trackings) == 0 {
		return nil, nil
	}

	return &TrackingInfo{
		Carrier:        trackings[0].TrackingProvider,
		TrackingNumber: trackings[0].TrackingNumber,
		Status:         TrackingStatusInTransit,
	}, nil
}

func (a *WooCommerce) fetchVariations(ctx context.Context, productID int) ([]wooVariation, error) {
	query := url.Values{}
	query.Set("per_page", "100")

	raw, _, err := a.doRequest(ctx, http.MethodGet, fmt.Sprintf("/products/%d/variations", productID), query, nil)
	if err != nil {
		return nil, err
	}

	var variations []wooVariation
	if err := json.Unmarshal(raw, &variations); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return variations, nil
}

func (a *WooCommerce) normalizeProduct(ctx context.Context, p wooProduct) (NormalizedProduct, error) {
	productID := strconv.Itoa(p.ID)

	var variants []ProductVariant
	if p.Type == "variable" && len(p.Variations) > 0 {
		variations, err := a.fetchVariations(ctx, p.ID)
		if err != nil {
			return NormalizedProduct{}, err
		}
		variants = make([]ProductVariant, 0, len(variations))
		for _, v := range variations {
			price := parseMoney(v.Price)
			if price == 0 {
				price = parseMoney(v.RegularPrice)
			}
			variant := ProductVariant{
				ID:                strconv.Itoa(v.ID),
				SKU:               v.SKU,
				Title:             variationTitle(p.Name, v.Attributes),
				Price:             price,
				Cost:              price,
				InventoryQuantity: intOrZero(v.StockQuantity),
				Options:           attributeOptions(v.Attributes),
			}
			if w := parseMoney(v.Weight); w > 0 {
				variant.Weight = &w
			}
			variants = append(variants, variant)
		}
	}

	if len(variants) == 0 {
		price := parseMoney(p.Price)
		if price == 0 {
			price = parseMoney(p.RegularPrice)
		}
		variant := ProductVariant{
			ID:                productID,
			SKU:               p.SKU,
			Title:             p.Name,
			Price:             price,
			Cost:              price,
			InventoryQuantity: intOrZero(p.StockQuantity),
		}
		if w := parseMoney(p.Weight); w > 0 {
			variant.Weight = &w
		}
		variants = []ProductVariant{variant}
	}

	images := make([]ProductImage, 0, len(p.Images))
	for i, img := range p.Images {
		images = append(images, ProductImage{URL: img.Src, Alt: img.Alt, Position: i})
	}

	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, t.Name)
	}

	category := ""
	if len(p.Categories) > 0 {
		category = p.Categories[0].Name
	}

	description := p.Description
	if description == "" {
		description = p.ShortDescription
	}

	return NormalizedProduct{
		SupplierProductID: productID,
		Title:             p.Name,
		Description:       description,
		Category:          category,
		Tags:              tags,
		Images:            images,
		Variants:          variants,
		SupplierSKU:       p.SKU,
		SupplierPrice:     variants[0].Price,
	}, nil
}

func variationTitle(productName string, attributes []wooAttribute) string {
	if len(attributes) == 0 {
		return productName
	}
	options := make([]string, 0, len(attributes))
	for _, attr := range attributes {
		options = append(options, attr.Option)
	}
	return productName + " - " + strings.Join(options, " / ")
}

func attributeOptions(attributes []wooAttribute) map[string]string {
	if len(attributes) == 0 {
		return nil
	}
	options := make(map[string]string, len(attributes))
	for _, attr := range attributes {
		options[attr.Name] = attr.Option
	}
	return options
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func mapWooOrderStatus(status string) OrderStatus {
	switch status {
	case "pending":
		return OrderStatusPending
	case "on-hold":
		return OrderStatusConfirmed
	case "processing":
		return OrderStatusProcessing
	case "completed":
		return OrderStatusDelivered
	case "cancelled", "refunded", "failed", "trash":
		return OrderStatusCancelled
	default:
		return OrderStatusPending
	}
}
