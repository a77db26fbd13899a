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
	"time"

	"dropsync/internal/logger"
)

// defaultEndpoints are used for any path the supplier config leaves
// unset. Overrides come from the credentials endpoint map.
var defaultEndpoints = map[string]string{
	"products":  "/products",
	"inventory": "/inventory",
	"orders":    "/orders",
	"tracking":  "/tracking",
}

// CustomREST talks to arbitrary supplier APIs that roughly follow REST
// conventions. Response shapes vary wildly between suppliers, so list
// payloads are probed for common envelope keys before giving up.
type CustomREST struct {
	baseURL    string
	apiKey     string
	authToken  string
	headers    map[string]string
	endpoints  map[string]string
	httpClient *http.Client
	logger     *logger.Logger
}

func NewCustomREST(creds *CustomCredentials, log *logger.Logger) *CustomREST {
	endpoints := make(map[string]string, len(defaultEndpoints))
	for name, path := range defaultEndpoints {
		endpoints[name] = path
	}
	for name, path := range creds.Endpoints {
		if path != "" {
			endpoints[name] = path
		}
	}

	return &CustomREST{
		baseURL:    creds.BaseURL,
		apiKey:     creds.APIKey,
		authToken:  creds.AuthToken,
		headers:    creds.Headers,
		endpoints:  endpoints,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log,
	}
}

func (a *CustomREST) doRequest(ctx context.Context, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}
	if a.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.authToken)
	}
	for name, value := range a.headers {
		req.Header.Set(name, value)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func (a *CustomREST) TestConnection(ctx context.Context) ConnectionTestResult {
	query := url.Values{}
	query.Set("page", "1")
	query.Set("limit", "1")

	if _, err := a.doRequest(ctx, http.MethodGet, a.endpoints["products"], query, nil); err != nil {
		return ConnectionTestResult{Success: false, Message: err.Error()}
	}

	return ConnectionTestResult{
		Success: true,
		Message: "connection successful",
		Capabilities: &Capabilities{
			ReadProducts:  true,
			ReadInventory: a.endpoints["inventory"] != "",
			CreateOrders:  a.endpoints["orders"] != "",
			ReadOrders:    a.endpoints["orders"] != "",
			GetTracking:   a.endpoints["tracking"] != "",
		},
	}
}

func (a *CustomREST) FetchProducts(ctx context.Context, page, pageSize int, cursor string) (*ProductPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(pageSize))

	raw, err := a.doRequest(ctx, http.MethodGet, a.endpoints["products"], query, nil)
	if err != nil {
		return nil, err
	}

	records, err := extractList(raw, "products", "data", "items")
	if err != nil {
		return nil, err
	}

	items := make([]NormalizedProduct, 0, len(records))
	for _, record := range records {
		product, ok := normalizeCustomProduct(record)
		if !ok {
			a.logger.Debug("Skipping record without a usable id or title")
			continue
		}
		items = append(items, product)
	}

	return &ProductPage{
		Items:    items,
		Total:    -1,
		Page:     page,
		PageSize: pageSize,
		HasMore:  len(records) == pageSize,
	}, nil
}

func (a *CustomREST) FetchProduct(ctx context.Context, id string) (*NormalizedProduct, error) {
	raw, err := a.doRequest(ctx, http.MethodGet, a.endpoints["products"]+"/"+id, nil, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	record, err := extractObject(raw, "product", "data")
	if err != nil {
		return nil, err
	}
	product, ok := normalizeCustomProduct(record)
	if !ok {
		return nil, nil
	}
	return &product, nil
}

func (a *CustomREST) FetchInventory(ctx context.Context, ids []string) ([]NormalizedInventory, error) {
	query := url.Values{}
	if len(ids) > 0 {
		query.Set("ids", joinIDs(ids))
	}

	raw, err := a.doRequest(ctx, http.MethodGet, a.endpoints["inventory"], query, nil)
	if err != nil {
		return nil, err
	}

	records, err := extractList(raw, "inventory", "data", "items")
	if err != nil {
		return nil, err
	}

	inventory := make([]NormalizedInventory, 0, len(records))
	for _, record := range records {
		productID := stringField(record, "product_id", "id", "sku")
		if productID == "" {
			continue
		}
		quantity := intField(record, "quantity", "stock", "inventory_quantity")
		available := quantity > 0
		if v, ok := record["available"].(bool); ok {
			available = v
		}
		variantID := stringField(record, "variant_id")
		if variantID == "" {
			variantID = productID
		}
		inventory = append(inventory, NormalizedInventory{
			SupplierProductID: productID,
			VariantID:         variantID,
			SKU:               stringField(record, "sku"),
			Quantity:          quantity,
			Available:         available,
		})
	}
	return inventory, nil
}

func (a *CustomREST) CreateOrder(ctx context.Context, req *OrderCreateRequest) (*OrderCreateResponse, error) {
	items := make([]map[string]interface{}, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, map[string]interface{}{
			"product_id": item.SupplierProductID,
			"variant_id": item.VariantID,
			"sku":        item.SKU,
			"quantity":   item.Quantity,
		})
	}

	payload := map[string]interface{}{
		"external_order_id": req.ExternalOrderID,
		"items":             items,
		"shipping_address": map[string]interface{}{
			"name":     req.ShippingAddress.Name,
			"line1":    req.ShippingAddress.Line1,
			"line2":    req.ShippingAddress.Line2,
			"city":     req.ShippingAddress.City,
			"province": req.ShippingAddress.Province,
			"zip":      req.ShippingAddress.Zip,
			"country":  req.ShippingAddress.Country,
			"phone":    req.ShippingAddress.Phone,
		},
		"note": req.Note,
	}

	raw, err := a.doRequest(ctx, http.MethodPost, a.endpoints["orders"], nil, payload)
	if err != nil {
		return nil, err
	}

	record, err := extractObject(raw, "order", "data")
	if err != nil {
		return nil, err
	}

	orderID := stringField(record, "order_id", "id")
	if orderID == "" {
		return nil, fmt.Errorf("order response missing an order id")
	}
	return &OrderCreateResponse{
		SupplierOrderID: orderID,
		Status:          mapCustomOrderStatus(stringField(record, "status")),
		Message:         stringField(record, "message"),
	}, nil
}

func (a *CustomREST) GetOrder(ctx context.Context, id string) (*NormalizedOrder, error) {
	raw, err := a.doRequest(ctx, http.MethodGet, a.endpoints["orders"]+"/"+id, nil, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	record, err := extractObject(raw, "order", "data")
	if err != nil {
		return nil, err
	}

	orderID := stringField(record, "order_id", "id")
	if orderID == "" {
		return nil, nil
	}

	var items []OrderItem
	if rawItems, ok := record["items"].([]interface{}); ok {
		for _, entry := range rawItems {
			item, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			items = append(items, OrderItem{
				SupplierProductID: stringField(item, "product_id", "id"),
				VariantID:         stringField(item, "variant_id"),
				SKU:               stringField(item, "sku"),
				Quantity:          intField(item, "quantity"),
				Price:             floatField(item, "price", "unit_price"),
			})
		}
	}

	createdAt := time.Time{}
	if v := stringField(record, "created_at"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			createdAt = parsed
		}
	}

	return &NormalizedOrder{
		SupplierOrderID: orderID,
		Status:          mapCustomOrderStatus(stringField(record, "status")),
		Items:           items,
		Total:           floatField(record, "total", "total_price"),
		Currency:        stringField(record, "currency"),
		CreatedAt:       createdAt,
	}, nil
}

func (a *CustomREST) GetTracking(ctx context.Context, orderID string) (*TrackingInfo, error) {
	query := url.Values{}
	query.Set("order_id", orderID)

	raw, err := a.doRequest(ctx, http.MethodGet, a.endpoints["tracking"], query, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	record, err := extractObject(raw, "tracking", "data")
	if err != nil {
		return nil, err
	}

	number := stringField(record, "tracking_number", "number")
	if number == "" {
		return nil, nil
	}

	info := &TrackingInfo{
		Carrier:        stringField(record, "carrier", "tracking_provider"),
		TrackingNumber: number,
		Status:         mapCustomTrackingStatus(stringField(record, "status")),
	}
	if rawEvents, ok := record["events"].([]interface{}); ok {
		for _, entry := range rawEvents {
			event, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			trackingEvent := TrackingEvent{
				Description: stringField(event, "description", "message"),
				Location:    stringField(event, "location"),
			}
			if v := stringField(event, "timestamp", "time"); v != "" {
				if parsed, err := time.Parse(time.RFC3339, v); err == nil {
					trackingEvent.Timestamp = parsed
				}
			}
			info.Events = append(info.Events, trackingEvent)
		}
	}
	return info, nil
}

// extractList accepts either a bare JSON array or an object wrapping
// the array under one of the given keys, tried in order.
func extractList(raw []byte, keys ...string) ([]map[string]interface{}, error) {
	var direct []map[string]interface{}
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	for _, key := range keys {
		inner, ok := envelope[key]
		if !ok {
			continue
		}
		var records []map[string]interface{}
		if err := json.Unmarshal(inner, &records); err == nil {
			return records, nil
		}
	}
	return nil, fmt.Errorf("response contains no recognizable list under %v", keys)
}

// extractObject unwraps single-object envelopes, falling back to the
// top-level object itself.
func extractObject(raw []byte, keys ...string) (map[string]interface{}, error) {
	var envelope map[string]interface{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	for _, key := range keys {
		if inner, ok := envelope[key].(map[string]interface{}); ok {
			return inner, nil
		}
	}
	return envelope, nil
}

func normalizeCustomProduct(record map[string]interface{}) (NormalizedProduct, bool) {
	id := stringField(record, "id", "product_id", "sku")
	title := stringField(record, "title", "name")
	if id == "" || title == "" {
		return NormalizedProduct{}, false
	}

	price := floatField(record, "price", "unit_price", "cost")
	quantity := intField(record, "quantity", "stock", "inventory_quantity")
	sku := stringField(record, "sku")
	if sku == "" {
		sku = id
	}

	var images []ProductImage
	switch v := record["images"].(type) {
	case []interface{}:
		for i, entry := range v {
			switch img := entry.(type) {
			case string:
				images = append(images, ProductImage{URL: img, Position: i})
			case map[string]interface{}:
				if u := stringField(img, "url", "src"); u != "" {
					images = append(images, ProductImage{URL: u, Alt: stringField(img, "alt"), Position: i})
				}
			}
		}
	}
	if len(images) == 0 {
		if u := stringField(record, "image", "image_url"); u != "" {
			images = append(images, ProductImage{URL: u})
		}
	}

	var tags []string
	if rawTags, ok := record["tags"].([]interface{}); ok {
		for _, entry := range rawTags {
			if tag, ok := entry.(string); ok && tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	return NormalizedProduct{
		SupplierProductID: id,
		Title:             title,
		Description:       stringField(record, "description"),
		Category:          stringField(record, "category", "category_name"),
		Tags:              tags,
		Images:            images,
		Variants: []ProductVariant{{
			ID:                id,
			SKU:               sku,
			Title:             title,
			Price:             price,
			Cost:              price,
			InventoryQuantity: quantity,
		}},
		SupplierSKU:   sku,
		SupplierPrice: price,
	}, true
}

// stringField probes the record for the first key holding a non-empty
// string. Numeric ids are stringified since suppliers disagree on
// whether ids are numbers or strings.
func stringField(record map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := record[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func floatField(record map[string]interface{}, keys ...string) float64 {
	for _, key := range keys {
		switch v := record[key].(type) {
		case float64:
			return v
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}

func intField(record map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		switch v := record[key].(type) {
		case float64:
			return int(v)
		case string:
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return 0
}

func joinIDs(ids []string) string {
	joined := ""
	for i, id := range ids {
		if i > 0 {
			joined += ","
		}
		joined += id
	}
	return joined
}

func mapCustomOrderStatus(status string) OrderStatus {
	switch status {
	case "pending", "":
		return OrderStatusPending
	case "confirmed", "accepted":
		return OrderStatusConfirmed
	case "processing", "in_progress":
		return OrderStatusProcessing
	case "shipped", "in_transit":
		return OrderStatusShipped
	case "delivered", "completed":
		return OrderStatusDelivered
	case "cancelled", "canceled", "refunded":
		return OrderStatusCancelled
	default:
		return OrderStatusPending
	}
}

func mapCustomTrackingStatus(status string) TrackingStatus {
	switch status {
	case "delivered":
		return TrackingStatusDelivered
	case "out_for_delivery":
		return TrackingStatusOutForDelivery
	case "exception", "failed":
		return TrackingStatusException
	case "pending", "label_created":
		return TrackingStatusPending
	default:
		return TrackingStatusInTransit
	}
}
