// Alarm 수신 핸들러
//
// 요청 흐름:
//  1. 모니터링 시스템이 POST /api/v1/alarms[/alertmanager|/sns]로 전송
//  2. JSON 페이로드를 구조체로 파싱
//  3. service 레이어(AlarmService)에서 incident 생성 (중복 전달은 기존 incident 반환)

package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/kube-rca/remediator/internal/model"
	"github.com/kube-rca/remediator/internal/service"
)

// Alarm 핸들러 구조체 정의
type AlarmHandler struct {
	alarmService *service.AlarmService
}

// Alarm 핸들러 객체 생성
func NewAlarmHandler(alarmService *service.AlarmService) *AlarmHandler {
	return &AlarmHandler{alarmService: alarmService}
}

// Ingest godoc
// @Summary Ingest a generic alarm event
// @Tags alarms
// @Accept json
// @Produce json
// @Param request body model.AlarmEvent true "Alarm"
// @Success 201 {object} model.AlarmIngestResponse
// @Success 200 {object} model.AlarmIngestResponse "duplicate delivery"
// @Failure 400 {object} model.ErrorResponse
// @Failure 422 {object} model.ErrorResponse
// @Router /api/v1/alarms [post]
func (h *AlarmHandler) Ingest(c *gin.Context) {
	var ev model.AlarmEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		log.Printf("Failed to parse alarm: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	inc, created, err := h.alarmService.Ingest(c.Request.Context(), ev)
	if err != nil {
		writeError(c, err)
		return
	}

	code := http.StatusCreated
	if !created {
		code = http.StatusOK
	}
	c.JSON(code, model.AlarmIngestResponse{
		Status:     "received",
		IncidentID: inc.IncidentID,
		Incident:   inc.Status,
		Duplicate:  !created,
	})
}

// Alertmanager godoc
// @Summary Ingest an Alertmanager webhook
// @Tags alarms
// @Accept json
// @Produce json
// @Success 200 {object} model.AlertWebhookResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /api/v1/alarms/alertmanager [post]
func (h *AlarmHandler) Alertmanager(c *gin.Context) {
	var webhook model.AlertmanagerWebhook
	if err := c.ShouldBindJSON(&webhook); err != nil {
		log.Printf("Failed to parse webhook: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	log.Printf("Received alert webhook: status=%s, alertCount=%d, receiver=%s",
		webhook.Status, len(webhook.Alerts), webhook.Receiver)

	c.JSON(http.StatusOK, h.alarmService.ProcessAlertmanager(c.Request.Context(), webhook))
}

// SNS godoc
// @Summary Ingest a CloudWatch alarm delivered through SNS
// @Tags alarms
// @Accept json
// @Produce json
// @Success 200 {object} model.AlertWebhookResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /api/v1/alarms/sns [post]
func (h *AlarmHandler) SNS(c *gin.Context) {
	var msg model.SNSMessage
	// SNS는 Content-Type을 text/plain으로 보내므로 바인딩 타입을 고정
	if err := c.ShouldBindWith(&msg, binding.JSON); err != nil {
		log.Printf("Failed to parse sns message: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	resp, err := h.alarmService.ProcessSNS(c.Request.Context(), msg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
