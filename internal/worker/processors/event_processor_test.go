package processors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropsync/internal/config"
	"dropsync/internal/logger"
	"dropsync/internal/notify"
	"dropsync/internal/worker/processors/dispatch"
)

type webhookRecorder struct {
	mu       sync.Mutex
	received []dispatch.Notification
	status   int
}

func (r *webhookRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var n dispatch.Notification
	if err := json.NewDecoder(req.Body).Decode(&n); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	r.mu.Lock()
	r.received = append(r.received, n)
	r.mu.Unlock()

	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func newProcessor(t *testing.T, webhookURL string) *EventProcessor {
	t.Helper()
	cfg := &config.Config{NotifyWebhookURL: webhookURL}
	return NewEventProcessor(cfg, logger.New("error"))
}

func TestProcess_LowStockDispatchesWebhook(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder)
	defer server.Close()

	processor := newProcessor(t, server.URL)
	event := notify.Event{
		Type:      notify.EventLowStock,
		ProductID: "prod-1",
		Data: map[string]interface{}{
			"title":              "Modern L-Shaped Sofa",
			"sku":                "MLS-1",
			"supplier_name":      "Acme Wholesale",
			"inventory_quantity": 3,
			"threshold":          5,
		},
		Timestamp: time.Now().UTC(),
	}

	require.NoError(t, processor.Process(event))

	require.Len(t, recorder.received, 1)
	got := recorder.received[0]
	assert.Equal(t, notify.EventLowStock, got.Type)
	assert.Equal(t, "prod-1", got.ProductID)
	assert.Contains(t, got.Text, "Modern L-Shaped Sofa")
	assert.Contains(t, got.Text, "MLS-1")
	assert.Contains(t, got.Text, "down to 3")
}

func TestProcess_SyncCompletedDispatchesWebhook(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder)
	defer server.Close()

	processor := newProcessor(t, server.URL)
	event := notify.Event{
		Type: notify.EventSyncCompleted,
		Data: map[string]interface{}{
			"suppliers": 2,
			"products":  150,
			"created":   10,
			"updated":   140,
			"failed":    0,
		},
		Timestamp: time.Now().UTC(),
	}

	require.NoError(t, processor.Process(event))

	require.Len(t, recorder.received, 1)
	assert.Contains(t, recorder.received[0].Text, "2 suppliers")
	assert.Contains(t, recorder.received[0].Text, "150 products")
}

func TestProcess_UnknownTypeIgnored(t *testing.T) {
	recorder := &webhookRecorder{}
	server := httptest.NewServer(recorder)
	defer server.Close()

	processor := newProcessor(t, server.URL)
	require.NoError(t, processor.Process(notify.Event{Type: "something.else"}))

	assert.Empty(t, recorder.received)
}

func TestProcess_WebhookFailureSurfaces(t *testing.T) {
	recorder := &webhookRecorder{status: http.StatusInternalServerError}
	server := httptest.NewServer(recorder)
	defer server.Close()

	processor := newProcessor(t, server.URL)
	err := processor.Process(notify.Event{Type: notify.EventLowStock, Data: map[string]interface{}{}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestProcess_NoWebhookConfiguredLogsOnly(t *testing.T) {
	processor := newProcessor(t, "")
	assert.NoError(t, processor.Process(notify.Event{Type: notify.EventLowStock, Data: map[string]interface{}{}}))
}
