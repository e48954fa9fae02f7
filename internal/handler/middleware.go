package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	ttlcache "github.com/jellydator/ttlcache/v3"
	"github.com/kube-rca/remediator/internal/config"
	"github.com/kube-rca/remediator/internal/observability"
	"golang.org/x/time/rate"
)

const operatorKey = "operator"

// OperatorAuth - 운영자 bearer JWT(HS256) 검증
// 토큰이 없으면 익명으로 통과, 토큰이 있는데 유효하지 않으면 401
// 유효한 토큰의 sub는 timeline의 operator로 기록
func OperatorAuth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || len(key) == 0 {
			c.Next()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Set(operatorKey, claims.Subject)
		c.Next()
	}
}

// GetOperator - OperatorAuth가 기록한 운영자 이름 (없으면 빈 문자열)
func GetOperator(c *gin.Context) string {
	return c.GetString(operatorKey)
}

// RateLimiter - client IP별 token bucket
// 일정 시간 요청이 없는 IP의 limiter는 ttlcache에서 만료
type RateLimiter struct {
	limiters *ttlcache.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	requests := cfg.Requests
	if requests <= 0 {
		requests = 60
	}
	return &RateLimiter{
		limiters: ttlcache.New(ttlcache.WithTTL[string, *rate.Limiter](window * 10)),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
	}
}

// Start - 만료 항목 정리 루프 (Stop까지 block)
func (l *RateLimiter) Start() {
	l.limiters.Start()
}

func (l *RateLimiter) Stop() {
	l.limiters.Stop()
}

func (l *RateLimiter) limiter(ip string) *rate.Limiter {
	if item := l.limiters.Get(ip); item != nil {
		return item.Value()
	}
	item, _ := l.limiters.GetOrSet(ip, rate.NewLimiter(l.limit, l.burst))
	return item.Value()
}

// Middleware - 한도를 넘은 요청은 대기시키지 않고 즉시 429
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.limiter(c.ClientIP()).Allow() {
			observability.RateLimited.Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
				c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
