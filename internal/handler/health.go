package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 헬스체크 엔드포인트
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// 루트 엔드포인트
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "SRE remediation orchestrator is running",
	})
}

// Health - 승인 모드와 realtime 구독자 수를 함께 반환
func Health(gate approvalModer, hub subscriberCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		mode := "auto"
		if gate.ApprovalRequired() {
			mode = "approval"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"mode":        mode,
			"subscribers": hub.Count(),
		})
	}
}

type approvalModer interface {
	ApprovalRequired() bool
}

type subscriberCounter interface {
	Count() int
}
