package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Mohitkundu360/jp-morgan-dashboard/internal/database"
)

// SystemHandlers serves the system monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	portfolioDB *database.DB
	startTime   time.Time
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger, portfolioDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		portfolioDB: portfolioDB,
		startTime:   time.Now(),
	}
}

type databaseStatus struct {
	Healthy      bool    `json:"healthy"`
	SizeMB       float64 `json:"size_mb"`
	WALSizeMB    float64 `json:"wal_size_mb"`
	PageCount    int64   `json:"page_count"`
	ErrorMessage string  `json:"error,omitempty"`
}

type systemStatus struct {
	Status        string         `json:"status"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	CPUPercent    float64        `json:"cpu_percent"`
	MemoryPercent float64        `json:"memory_percent"`
	Database      databaseStatus `json:"database"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.getSystemStats()

	status := systemStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		CPUPercent:    cpuPct,
		MemoryPercent: memPct,
		Database:      h.getDatabaseStatus(r),
	}
	if !status.Database.Healthy {
		status.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}

func (h *SystemHandlers) getDatabaseStatus(r *http.Request) databaseStatus {
	ds := databaseStatus{Healthy: true}

	if err := h.portfolioDB.HealthCheck(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Database health check failed")
		ds.Healthy = false
		ds.ErrorMessage = err.Error()
		return ds
	}

	stats, err := h.portfolioDB.GetStats()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read database stats")
		return ds
	}

	ds.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
	ds.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
	ds.PageCount = stats.PageCount
	return ds
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sampling interval so the endpoint stays responsive for pollers.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
