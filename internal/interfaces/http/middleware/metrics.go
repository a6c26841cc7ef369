// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"playlist-rag-api/pkg/metrics"
)

// EventsPath 导入进度 SSE 推送路由
const EventsPath = "/v1/ingest/events"

// streamRoutes 长连接路由：只计请求数，不计耗时与包体大小
var streamRoutes = map[string]bool{
	EventsPath: true,
}

// Metrics Prometheus 指标采集中间件，按路由模板打标签
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		stream := streamRoutes[route]

		if reqSize := float64(c.Request.ContentLength); reqSize > 0 && !stream {
			metrics.HTTPRequestSize.WithLabelValues(method, route).Observe(reqSize)
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
		if stream {
			return
		}

		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if respSize := float64(c.Writer.Size()); respSize > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, route).Observe(respSize)
		}
	}
}
