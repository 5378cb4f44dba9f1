package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/internal/platform/blob"
)

type healthReport struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Services   []string          `json:"services"`
	Checks     map[string]string `json:"checks"`
	Goroutines int               `json:"goroutines"`
	System     systemStats       `json:"system"`
}

type systemStats struct {
	MemoryUsedPercent float64 `json:"memory_used_percent,omitempty"`
	CPUPercent        float64 `json:"cpu_percent,omitempty"`
	ProcessRSSBytes   uint64  `json:"process_rss_bytes,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := healthReport{
		Status:     "ok",
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Services:   h.app.Services(),
		Checks:     map[string]string{},
		Goroutines: runtime.NumGoroutine(),
		System:     collectSystemStats(ctx),
	}
	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			report.Status = "degraded"
			report.Checks["database"] = err.Error()
		} else {
			report.Checks["database"] = "ok"
		}
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// collectSystemStats samples host and process usage. Failures leave the
// field empty; health must not fail because a probe is unsupported.
func collectSystemStats(ctx context.Context) systemStats {
	var stats systemStats
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemoryUsedPercent = vm.UsedPercent
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfoWithContext(ctx); err == nil {
			stats.ProcessRSSBytes = info.RSS
		}
	}
	return stats
}

func (h *handler) media(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/media/")
	if !blob.ValidKey(key) {
		writeError(w, r, apperrors.NotFound("media", key))
		return
	}
	rc, info, err := h.app.Blobs.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, r, apperrors.NotFound("media", key))
			return
		}
		writeError(w, r, apperrors.Internal("open media", err))
		return
	}
	defer rc.Close()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		h.log.WithContext(r.Context()).WithError(err).Warn("stream media")
	}
}
