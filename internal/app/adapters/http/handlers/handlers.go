package handlers

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/cpu"

	"streambot/internal/app/adapters/activity"
	"streambot/pkg/logger"
)

const maxActivity = 500

type ActivityLister interface {
	List(limit int) []activity.Entry
}

// Status is the runtime state reported by the health endpoint.
type Status struct {
	Channel    string `json:"channel"`
	Chat       string `json:"chat"`
	StreamLive bool   `json:"stream_live"`
}

type Handlers struct {
	log     logger.Logger
	feed    ActivityLister
	status  func() Status
	started time.Time
}

func New(log logger.Logger, feed ActivityLister, status func() Status) *Handlers {
	return &Handlers{
		log:     log,
		feed:    feed,
		status:  status,
		started: time.Now(),
	}
}

func (h *Handlers) HealthHandler(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	percent, err := cpu.Percent(0, false)
	if err != nil || len(percent) == 0 {
		percent = []float64{0}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"cpu_percent":    percent[0],
		"memory_mb":      m.Sys / 1024 / 1024,
		"goroutines":     runtime.NumGoroutine(),
		"bot":            h.status(),
	})
}

// ActivityHandler lists recent activity, newest first. ?limit= caps the number of entries.
func (h *Handlers) ActivityHandler(c *gin.Context) {
	limit := maxActivity
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxActivity)
	}

	c.JSON(http.StatusOK, gin.H{"entries": h.feed.List(limit)})
}
