package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/scenegraph"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

const serviceName = "scenegraph"

var startedAt = time.Now()

// HealthHandler handles health check requests
type HealthHandler struct {
	scenegraph scenegraph.Scenegraph
}

// NewHealthHandler creates a new health handler. A nil client reports every
// store check as unhealthy.
func NewHealthHandler(sg scenegraph.Scenegraph) *HealthHandler {
	return &HealthHandler{scenegraph: sg}
}

// HealthCheck handles GET /health - basic liveness check
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": now(),
		"version":   Version,
	})
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   serviceName,
		"timestamp": now(),
	})
}

// ReadinessCheck handles GET /ready. The service is ready once the graph
// store answers a ping.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{"store": h.pingCheck(ctx)}
	ready := healthy(checks)

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"service":   serviceName,
		"timestamp": now(),
		"checks":    checks,
	})
}

// DetailedHealthCheck handles GET /health/detailed. Besides the ping it
// reads the whole registry, which exercises the query path and the decoder.
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	start := time.Now()
	checks := gin.H{
		"store":    h.pingCheck(ctx),
		"registry": h.registryCheck(ctx),
		"system":   systemCheck(),
	}

	status, code := "healthy", http.StatusOK
	if !healthy(checks) {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": serviceName,
		"version": Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
			"go_version": GoVersion,
		},
		"timestamp": now(),
		"uptime":    time.Since(startedAt).Round(time.Second).String(),
		"checks":    checks,
		"metrics": gin.H{
			"response_time_ms": time.Since(start).Milliseconds(),
		},
	})
}

func (h *HealthHandler) pingCheck(ctx context.Context) gin.H {
	if h.scenegraph == nil {
		return unhealthy("scenegraph client not initialized")
	}
	start := time.Now()
	err := h.scenegraph.Ping(ctx)
	check := gin.H{"status": "healthy", "duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		check["status"] = "unhealthy"
		check["error"] = err.Error()
	}
	return check
}

func (h *HealthHandler) registryCheck(ctx context.Context) gin.H {
	if h.scenegraph == nil {
		return unhealthy("scenegraph client not initialized")
	}
	start := time.Now()
	entities, excluded, err := h.scenegraph.Entities(ctx)
	check := gin.H{
		"status":      "healthy",
		"class":       h.scenegraph.Schema().Name,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		check["status"] = "unhealthy"
		check["error"] = err.Error()
		return check
	}
	check["entities"] = len(entities)
	if len(excluded) > 0 {
		check["excluded"] = len(excluded)
		check["note"] = "some stored entities could not be decoded"
	}
	return check
}

func unhealthy(reason string) gin.H {
	return gin.H{"status": "unhealthy", "error": reason}
}

func healthy(checks gin.H) bool {
	for _, v := range checks {
		if check, ok := v.(gin.H); ok && check["status"] != "healthy" {
			return false
		}
	}
	return true
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SystemMetrics holds system runtime metrics
type SystemMetrics struct {
	MemoryUsage string `json:"memory_usage"`
	Goroutines  int    `json:"goroutines"`
	GCCycles    uint32 `json:"gc_cycles"`
	HeapObjects uint64 `json:"heap_objects"`
}

func systemCheck() gin.H {
	m := getSystemMetrics()
	return gin.H{
		"status":       "healthy",
		"memory_usage": m.MemoryUsage,
		"goroutines":   m.Goroutines,
		"gc_cycles":    m.GCCycles,
		"heap_objects": m.HeapObjects,
	}
}

// getSystemMetrics collects current system runtime metrics
func getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f MB", float64(m.Alloc)/(1024*1024)),
		Goroutines:  runtime.NumGoroutine(),
		GCCycles:    m.NumGC,
		HeapObjects: m.HeapObjects,
	}
}
