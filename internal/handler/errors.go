package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/remediator/internal/model"
	"github.com/kube-rca/remediator/internal/planner"
	"github.com/kube-rca/remediator/internal/service"
	tmpl "github.com/kube-rca/remediator/internal/template"
)

// writeError - service 에러를 HTTP 응답으로 변환
// 상태 충돌(409)은 항상 저장소 기준 현재 status를 함께 반환
func writeError(c *gin.Context, err error) {
	var invalid *service.InvalidTransitionError
	var notReady *tmpl.ReportNotReadyError

	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, model.StatusErrorResponse{Error: err.Error(), Status: invalid.Current})
	case errors.As(err, &notReady):
		c.JSON(http.StatusConflict, model.StatusErrorResponse{Error: err.Error(), Status: notReady.Status})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoCommand), errors.Is(err, planner.ErrUnclassified):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidAlarm), errors.Is(err, service.ErrInvalidSNSMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("Request failed (%s %s): %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
