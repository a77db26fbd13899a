package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"dropsync/internal/logger"
	"dropsync/internal/syncer"

	"github.com/gin-gonic/gin"
)

type SyncHandler struct {
	orch   *syncer.Orchestrator
	runs   *syncer.GormRunStore
	logger *logger.Logger
}

func NewSyncHandler(orch *syncer.Orchestrator, runs *syncer.GormRunStore, logger *logger.Logger) *SyncHandler {
	return &SyncHandler{
		orch:   orch,
		runs:   runs,
		logger: logger,
	}
}

// Trigger queues a full sync cycle across all active suppliers.
func (h *SyncHandler) Trigger(c *gin.Context) {
	if err := h.orch.TriggerAll(); err != nil {
		if errors.Is(err, syncer.ErrSyncInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "Sync already in progress"})
			return
		}
		h.logger.Error("Failed to trigger sync: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start sync"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Sync started"})
}

// Status reports the live cycle state: running flag, current supplier,
// progress counters and the error list of the most recent cycle.
func (h *SyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.orch.Status()})
}

// Runs lists recent sync history, newest first.
func (h *SyncHandler) Runs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	supplierID := c.Query("supplier_id")

	runs, err := h.runs.ListRuns(c.Request.Context(), supplierID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sync runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": runs})
}
