package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router 구성 요소
type Router struct {
	Alarms         *AlarmHandler
	Incidents      *IncidentHandler
	Realtime       *RealtimeHandler
	Health         gin.HandlerFunc
	RateLimiter    *RateLimiter
	OperatorSecret string
	AllowedOrigins []string
}

// Engine - 전체 라우트 등록
// rate limit은 /api/v1 전체에 적용 (health, metrics 제외)
func (r Router) Engine() *gin.Engine {
	engine := gin.Default()
	engine.Use(CORSMiddleware(r.AllowedOrigins, false))

	engine.GET("/", Root)
	engine.GET("/ping", Ping)
	engine.GET("/health", r.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	if r.RateLimiter != nil {
		api.Use(r.RateLimiter.Middleware())
	}

	alarms := api.Group("/alarms")
	alarms.POST("", r.Alarms.Ingest)
	alarms.POST("/alertmanager", r.Alarms.Alertmanager)
	alarms.POST("/sns", r.Alarms.SNS)

	incidents := api.Group("/incidents")
	incidents.GET("", r.Incidents.ListIncidents)
	incidents.GET("/stats", r.Incidents.GetStats)
	incidents.GET("/:id", r.Incidents.GetIncident)
	incidents.GET("/:id/report", r.Incidents.GetReport)

	decisions := incidents.Group("/:id", OperatorAuth(r.OperatorSecret))
	decisions.POST("/approve", r.Incidents.Approve)
	decisions.POST("/reject", r.Incidents.Reject)

	api.GET("/ws", r.Realtime.Serve)
	return engine
}
