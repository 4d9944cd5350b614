package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"problems-service/internal/logging"
	"problems-service/internal/models"
	"problems-service/internal/problems"
	"problems-service/internal/service"
	"problems-service/internal/zabbix"
)

// ProblemService is the surface the handlers need; the concrete
// implementation lives in internal/service.
type ProblemService interface {
	ListProblems(ctx context.Context, filter zabbix.ProblemFilter) ([]models.ProblemRecord, error)
	AckTimeline(ctx context.Context, eventID string) ([]problems.AckDisplay, error)
	SubmitUpdate(ctx context.Context, eventID string, intent models.UpdateIntent, actingUser string) (models.UpdateRecord, error)
	ExportCSV(ctx context.Context, filter zabbix.ProblemFilter, withAcknowledges bool) (string, error)
	ListUpdates(ctx context.Context, eventID string, limit, offset int) ([]models.UpdateRecord, int, error)
	Scripts() map[string]string
	RefreshScripts(ctx context.Context) error
	ExecuteScript(ctx context.Context, eventID, name, manualInput string) (string, error)
}

type Handler struct {
	svc    ProblemService
	logger *logging.Logger
}

func NewHandler(svc ProblemService, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func filterFromQuery(c *gin.Context) zabbix.ProblemFilter {
	return zabbix.ProblemFilter{
		Severities: c.QueryArray("severity"),
		Host:       c.Query("host"),
	}
}

func (h *Handler) ListProblems(c *gin.Context) {
	records, err := h.svc.ListProblems(c.Request.Context(), filterFromQuery(c))
	if err != nil {
		h.logger.Errorf("Failed to list problems: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list problems"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"problems": records, "total": len(records)})
}

func (h *Handler) GetAcknowledges(c *gin.Context) {
	eventID := c.Param("eventid")
	timeline, err := h.svc.AckTimeline(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Errorf("Failed to get acknowledges for %s: %v", eventID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to get acknowledge history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"eventid": eventID, "acknowledges": timeline})
}

// UpdateRequest is the submitted update form plus the acting user's
// display name, which the presentation layer supplies.
type UpdateRequest struct {
	models.UpdateIntent
	User string `json:"user" binding:"required"`
}

func (h *Handler) SubmitUpdate(c *gin.Context) {
	eventID := c.Param("eventid")

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid update request for %s: %v", eventID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rec, err := h.svc.SubmitUpdate(c.Request.Context(), eventID, req.UpdateIntent, req.User)
	if err != nil {
		if problems.IsValidationError(err) || errors.Is(err, service.ErrMissingActingUser) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("Update failed for %s: %v", eventID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to update problem"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *Handler) ExportCsv(c *gin.Context) {
	withAcknowledges := c.Query("mode") == "acknowledges"

	blob, err := h.svc.ExportCSV(c.Request.Context(), filterFromQuery(c), withAcknowledges)
	if err != nil {
		if errors.Is(err, problems.ErrNoData) {
			// Not a failure: the caller gets a warning and no file.
			c.JSON(http.StatusOK, gin.H{"warning": "There is no data to export."})
			return
		}
		h.logger.Errorf("Export failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to export problems"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename=`+problems.CsvFilename)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(blob))
}

func (h *Handler) ListUpdates(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	list, total, err := h.svc.ListUpdates(c.Request.Context(), c.Query("eventid"), limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to list updates: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list updates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updates": list, "total": total})
}

func (h *Handler) GetScripts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scripts": h.svc.Scripts()})
}

func (h *Handler) RefreshScripts(c *gin.Context) {
	if err := h.svc.RefreshScripts(c.Request.Context()); err != nil {
		h.logger.Errorf("Failed to refresh scripts: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to refresh scripts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scripts": h.svc.Scripts()})
}

type executeScriptRequest struct {
	ManualInput string `json:"manualinput"`
}

func (h *Handler) ExecuteScript(c *gin.Context) {
	eventID := c.Param("eventid")
	name := c.Param("name")

	var req executeScriptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	value, err := h.svc.ExecuteScript(c.Request.Context(), eventID, name, req.ManualInput)
	if err != nil {
		if errors.Is(err, zabbix.ErrUnknownScript) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("Script %s failed for %s: %v", name, eventID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Script execution failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"value": value})
}
