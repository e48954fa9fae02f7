package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/remediator/internal/model"
	"github.com/kube-rca/remediator/internal/service"
)

// Incident 핸들러 구조체 정의
type IncidentHandler struct {
	incidents *service.IncidentService
	gate      *service.Gate
}

// Incident 핸들러 객체 생성
func NewIncidentHandler(incidents *service.IncidentService, gate *service.Gate) *IncidentHandler {
	return &IncidentHandler{incidents: incidents, gate: gate}
}

// ListIncidents godoc
// @Summary List incidents (newest first)
// @Tags incidents
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {object} model.IncidentListResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /api/v1/incidents [get]
func (h *IncidentHandler) ListIncidents(c *gin.Context) {
	var filter model.IncidentFilter
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Status = status
	}

	list, err := h.incidents.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.IncidentListResponse{Incidents: list})
}

// GetStats godoc
// @Summary Aggregated incident metrics
// @Tags incidents
// @Produce json
// @Success 200 {object} model.IncidentStats
// @Router /api/v1/incidents/stats [get]
func (h *IncidentHandler) GetStats(c *gin.Context) {
	stats, err := h.incidents.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetIncident godoc
// @Summary Get incident detail
// @Tags incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} model.Incident
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/incidents/{id} [get]
func (h *IncidentHandler) GetIncident(c *gin.Context) {
	inc, err := h.incidents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inc)
}

// GetReport godoc
// @Summary Post-incident report for a terminal incident
// @Tags incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Param format query string false "html"
// @Success 200 {object} model.IncidentReport
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.StatusErrorResponse
// @Router /api/v1/incidents/{id}/report [get]
func (h *IncidentHandler) GetReport(c *gin.Context) {
	report, err := h.incidents.Report(c.Request.Context(), c.Param("id"), c.Query("format") == "html")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Approve godoc
// @Summary Approve a pending incident (optional custom command)
// @Tags incidents
// @Accept json
// @Produce json
// @Param id path string true "Incident ID"
// @Param request body model.ApproveIncidentRequest false "Override command"
// @Success 202 {object} model.IncidentDecisionResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.StatusErrorResponse
// @Failure 422 {object} model.ErrorResponse
// @Router /api/v1/incidents/{id}/approve [post]
func (h *IncidentHandler) Approve(c *gin.Context) {
	var req model.ApproveIncidentRequest
	// body는 선택 사항
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	inc, err := h.gate.Decide(c.Request.Context(), c.Param("id"), service.Decision{
		Action:          service.DecisionApprove,
		OverrideCommand: req.CustomCommand,
		Operator:        GetOperator(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, model.IncidentDecisionResponse{
		Status:     inc.Status,
		Message:    "remediation dispatched",
		IncidentID: inc.IncidentID,
	})
}

// Reject godoc
// @Summary Reject a pending incident
// @Tags incidents
// @Produce json
// @Param id path string true "Incident ID"
// @Success 200 {object} model.IncidentDecisionResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.StatusErrorResponse
// @Router /api/v1/incidents/{id}/reject [post]
func (h *IncidentHandler) Reject(c *gin.Context) {
	inc, err := h.gate.Decide(c.Request.Context(), c.Param("id"), service.Decision{
		Action:   service.DecisionReject,
		Operator: GetOperator(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.IncidentDecisionResponse{
		Status:     inc.Status,
		Message:    "remediation rejected",
		IncidentID: inc.IncidentID,
	})
}
