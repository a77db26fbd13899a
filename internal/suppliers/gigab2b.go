package suppliers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"dropsync/internal/logger"
)

const (
	gigaSKUListPath   = "/openapi/v2/product/skus"
	gigaSKUDetailPath = "/openapi/v2/product/detail"
	gigaPricePath     = "/openapi/v2/product/prices"
	gigaOrderPath     = "/openapi/v2/order"
	gigaTrackingPath  = "/openapi/v2/logistics/tracking"

	// Price lookups are batched; the upstream rejects more than 200
	// SKUs per call and throttles calls closer than one second apart.
	gigaPriceBatchSize = 200

	maxResponseBytes = 4 << 20
)

// GigaB2B talks to the wholesale API using its per-request HMAC signing
// scheme. Product discovery is two-phase: SKU pages first, then batched
// price/stock lookups.
type GigaB2B struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *logger.Logger
}

func NewGigaB2B(creds *GigaB2BCredentials, log *logger.Logger) *GigaB2B {
	return &GigaB2B{
		baseURL:      creds.BaseURL,
		clientID:     creds.ClientID,
		clientSecret: creds.ClientSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  log,
	}
}

// sign computes the request signature. The hex digest is base64-encoded
// on top: the upstream validates the double encoding and rejects a raw
// hex or raw base64 signature.
func (a *GigaB2B) sign(endpointPath, timestamp, nonce string) string {
	message := strings.Join([]string{a.clientID, endpointPath, timestamp, nonce}, "&")
	key := strings.Join([]string{a.clientID, a.clientSecret, nonce}, "&")

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	hexDigest := hex.EncodeToString(mac.Sum(nil))

	return base64.StdEncoding.EncodeToString([]byte(hexDigest))
}

const nonceCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

func newNonce() string {
	b := make([]byte, 10)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = nonceCharset[int(b[i])%len(nonceCharset)]
	}
	return string(b)
}

type gigaEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type gigaSKU struct {
	SKU          string   `json:"sku"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	CategoryName string   `json:"categoryName"`
	ImageURLs    []string `json:"imageUrls"`
	WeightKg     *float64 `json:"weightKg"`
}

type gigaSKUPage struct {
	Records   []gigaSKU `json:"records"`
	Page      int       `json:"page"`
	TotalPage int       `json:"totalPage"`
	Total     int       `json:"total"`
}

type gigaPriceRequest struct {
	SKUs []string `json:"skus"`
}

type gigaPriceQuote struct {
	SKU       string  `json:"sku"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Stock     int     `json:"stock"`
	Available bool    `json:"available"`
}

type gigaOrderItem struct {
	SKU      string  `json:"sku"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
}

type gigaAddress struct {
	Name     string `json:"name"`
	Line1    string `json:"addressLine1"`
	Line2    string `json:"addressLine2,omitempty"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zipCode"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
}

type gigaOrderRequest struct {
	ExternalOrderNo string          `json:"externalOrderNo"`
	Items           []gigaOrderItem `json:"items"`
	Address         gigaAddress     `json:"address"`
	Remark          string          `json:"remark,omitempty"`
}

type gigaOrder struct {
	OrderNo    string          `json:"orderNo"`
	Status     string          `json:"status"`
	Items      []gigaOrderItem `json:"items"`
	Total      float64         `json:"totalAmount"`
	Currency   string          `json:"currency"`
	CreateTime string          `json:"createTime"`
}

type gigaTrace struct {
	Context  string `json:"context"`
	Location string `json:"location"`
	Time     string `json:"time"`
}

type gigaTracking struct {
	Carrier    string      `json:"carrier"`
	TrackingNo string      `json:"trackingNo"`
	Status     string      `json:"status"`
	Traces     []gigaTrace `json:"traces"`
}

func (a *GigaB2B) call(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce := newNonce()
	req.Header.Set("client-id", a.clientID)
	req.Header.Set("timestamp", timestamp)
	req.Header.Set("nonce", nonce)
	req.Header.Set("sign", a.sign(path, timestamp, nonce))
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

	var env gigaEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Code != http.StatusOK {
		return &APIError{StatusCode: env.Code, Body: env.Message}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func (a *GigaB2B) TestConnection(ctx context.Context) ConnectionTestResult {
	query := url.Values{}
	query.Set("page", "1")
	query.Set("pageSize", "1")

	var page gigaSKUPage
	if err := a.call(ctx, http.MethodGet, gigaSKUListPath, query, nil, &page); err != nil {
		return ConnectionTestResult{Success: false, Message: err.Error()}
	}

	return ConnectionTestResult{
		Success: true,
		Message: fmt.Sprintf("connected, %d SKUs available", page.Total),
		Capabilities: &Capabilities{
			ReadProducts:  true,
			ReadInventory: true,
			CreateOrders:  true,
			ReadOrders:    true,
			GetTracking:   true,
		},
	}
}

// FetchProducts pages the SKU list, then resolves prices and stock for
// the page in batches. SKUs the upstream marks unavailable are dropped.
func (a *GigaB2B) FetchProducts(ctx context.Context, page, pageSize int, cursor string) (*ProductPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var skuPage gigaSKUPage
	if err := a.call(ctx, http.MethodGet, gigaSKUListPath, query, nil, &skuPage); err != nil {
		return nil, err
	}

	skus := make([]string, 0, len(skuPage.Records))
	for _, rec := range skuPage.Records {
		skus = append(skus, rec.SKU)
	}

	quotes, err := a.fetchQuotes(ctx, skus)
	if err != nil {
		return nil, err
	}

	items := make([]NormalizedProduct, 0, len(skuPage.Records))
	for _, rec := range skuPage.Records {
		quote, ok := quotes[rec.SKU]
		if !ok || !quote.Available {
			continue
		}
		items = append(items, normalizeGigaProduct(rec, quote))
	}

	return &ProductPage{
		Items:    items,
		Total:    skuPage.Total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  page < skuPage.TotalPage,
	}, nil
}

// fetchQuotes resolves price and stock for up to 200 SKUs per call,
// waiting out the one-second upstream rate limit between batches.
func (a *GigaB2B) fetchQuotes(ctx context.Context, skus []string) (map[string]gigaPriceQuote, error) {
	quotes := make(map[string]gigaPriceQuote, len(skus))
	for start := 0; start < len(skus); start += gigaPriceBatchSize {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		end := start + gigaPriceBatchSize
		if end > len(skus) {
			end = len(skus)
		}

		var batch []gigaPriceQuote
		if err := a.call(ctx, http.MethodPost, gigaPricePath, nil, gigaPriceRequest{SKUs: skus[start:end]}, &batch); err != nil {
			return nil, err
		}
		for _, q := range batch {
			quotes[q.SKU] = q
		}
	}
	return quotes, nil
}

func (a *GigaB2B) FetchProduct(ctx context.Context, id string) (*NormalizedProduct, error) {
	query := url.Values{}
	query.Set("sku", id)

	var rec gigaSKU
	if err := a.call(ctx, http.MethodGet, gigaSKUDetailPath, query, nil, &rec); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if rec.SKU == "" {
		return nil, nil
	}

	quotes, err := a.fetchQuotes(ctx, []string{rec.SKU})
	if err != nil {
		return nil, err
	}
	quote := quotes[rec.SKU]

	product := normalizeGigaProduct(rec, quote)
	return &product, nil
}

func (a *GigaB2B) FetchInventory(ctx context.Context, ids []string) ([]NormalizedInventory, error) {
	quotes, err := a.fetchQuotes(ctx, ids)
	if err != nil {
		return nil, err
	}

	inventory := make([]NormalizedInventory, 0, len(ids))
	for _, sku := range ids {
		quote, ok := quotes[sku]
		if !ok {
			continue
		}
		inventory = append(inventory, NormalizedInventory{
			SupplierProductID: sku,
			VariantID:         sku,
			SKU:               sku,
			Quantity:          quote.Stock,
			Available:         quote.Available,
		})
	}
	return inventory, nil
}

func (a *GigaB2B) CreateOrder(ctx context.Context, req *OrderCreateRequest) (*OrderCreateResponse, error) {
	items := make([]gigaOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, gigaOrderItem{SKU: item.SKU, Quantity: item.Quantity})
	}

	payload := gigaOrderRequest{
		ExternalOrderNo: req.ExternalOrderID,
		Items:           items,
		Address: gigaAddress{
			Name:     req.ShippingAddress.Name,
			Line1:    req.ShippingAddress.Line1,
			Line2:    req.ShippingAddress.Line2,
			City:     req.ShippingAddress.City,
			Province: req.ShippingAddress.Province,
			Zip:      req.ShippingAddress.Zip,
			Country:  req.ShippingAddress.Country,
			Phone:    req.ShippingAddress.Phone,
		},
		Remark: req.Note,
	}

	var order gigaOrder
	if err := a.call(ctx, http.MethodPost, gigaOrderPath, nil, payload, &order); err != nil {
		return nil, err
	}

	return &OrderCreateResponse{
		SupplierOrderID: order.OrderNo,
		Status:          mapGigaOrderStatus(order.Status),
	}, nil
}

func (a *GigaB2B) GetOrder(ctx context.Context, id string) (*NormalizedOrder, error) {
	query := url.Values{}
	query.Set("orderNo", id)

	var order gigaOrder
	if err := a.call(ctx, http.MethodGet, gigaOrderPath, query, nil, &order); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if order.OrderNo == "" {
		return nil, nil
	}

	items := make([]OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItem{
			SupplierProductID: item.SKU,
			VariantID:         item.SKU,
			SKU:               item.SKU,
			Quantity:          item.Quantity,
			Price:             item.Price,
		})
	}

	createdAt, _ := time.Parse(time.RFC3339, order.CreateTime)
	return &NormalizedOrder{
		SupplierOrderID: order.OrderNo,
		Status:          mapGigaOrderStatus(order.Status),
		Items:           items,
		Total:           order.Total,
		Currency:        order.Currency,
		CreatedAt:       createdAt,
	}, nil
}

func (a *GigaB2B) GetTracking(ctx context.Context, orderID string) (*TrackingInfo, error) {
	query := url.Values{}
	query.Set("orderNo", orderID)

	var tracking gigaTracking
	if err := a.call(ctx, http.MethodGet, gigaTrackingPath, query, nil, &tracking); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if tracking.TrackingNo == "" {
		return nil, nil
	}

	events := make([]TrackingEvent, 0, len(tracking.Traces))
	for _, trace := range tracking.Traces {
		ts, _ := time.Parse(time.RFC3339, trace.Time)
		events = append(events, TrackingEvent{
			Description: trace.Context,
			Location:    trace.Location,
			Timestamp:   ts,
		})
	}

	return &TrackingInfo{
		Carrier:        tracking.Carrier,
		TrackingNumber: tracking.TrackingNo,
		Status:         mapGigaTrackingStatus(tracking.Status),
		Events:         events,
	}, nil
}

func normalizeGigaProduct(rec gigaSKU, quote gigaPriceQuote) NormalizedProduct {
	images := make([]ProductImage, 0, len(rec.ImageURLs))
	for i, u := range rec.ImageURLs {
		images = append(images, ProductImage{URL: u, Alt: rec.Title, Position: i})
	}

	variant := ProductVariant{
		ID:                rec.SKU,
		SKU:               rec.SKU,
		Title:             rec.Title,
		Price:             quote.Price,
		Cost:              quote.Price,
		InventoryQuantity: quote.Stock,
		Weight:            rec.WeightKg,
	}

	return NormalizedProduct{
		SupplierProductID: rec.SKU,
		Title:             rec.Title,
		Description:       rec.Description,
		Category:          rec.CategoryName,
		Images:            images,
		Variants:          []ProductVariant{variant},
		SupplierSKU:       rec.SKU,
		SupplierPrice:     quote.Price,
	}
}

func mapGigaOrderStatus(status string) OrderStatus {
	switch strings.ToUpper(status) {
	case "CREATED", "PENDING":
		return OrderStatusPending
	case "CONFIRMED", "PAID":
		return OrderStatusConfirmed
	case "PROCESSING", "PICKING":
		return OrderStatusProcessing
	case "SHIPPED", "DISPATCHED":
		return OrderStatusShipped
	case "DELIVERED", "SIGNED":
		return OrderStatusDelivered
	case "CANCELLED", "CLOSED":
		return OrderStatusCancelled
	default:
		return OrderStatusPending
	}
}

func mapGigaTrackingStatus(status string) TrackingStatus {
	switch strings.ToUpper(status) {
	case "IN_TRANSIT", "TRANSPORTING":
		return TrackingStatusInTransit
	case "OUT_FOR_DELIVERY", "DELIVERING":
		return TrackingStatusOutForDelivery
	case "DELIVERED", "SIGNED":
		return TrackingStatusDelivered
	case "EXCEPTION", "RETURNED", "FAILED":
		return TrackingStatusException
	default:
		return TrackingStatusPending
	}
}
