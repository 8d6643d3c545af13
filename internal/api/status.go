package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/bowerhall/monumentd/internal/refresh"
)

type HostStatus struct {
	CPUUsage float64 `json:"cpuUsagePercent"`
	MemTotal uint64  `json:"memTotalBytes"`
	MemUsed  uint64  `json:"memUsedBytes"`
	MemUsage float64 `json:"memUsagePercent"`
	DiskPath string  `json:"diskPath"`
	DiskUsed uint64  `json:"diskUsedBytes"`
	DiskFree uint64  `json:"diskFreeBytes"`
}

type StatusResponse struct {
	Ready       bool            `json:"ready"`
	Records     int             `json:"records"`
	Uptime      string          `json:"uptime"`
	Goroutines  int             `json:"goroutines"`
	LastRefresh *refresh.Result `json:"lastRefresh,omitempty"`
	Host        HostStatus      `json:"host"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.refresher.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := StatusResponse{
		Ready:      s.refresher.Ready(),
		Records:    s.catalog.Count(),
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Host:       s.hostStatus(),
	}
	if res, ok := s.refresher.LastResult(); ok {
		status.LastRefresh = &res
	}

	writeJSON(w, http.StatusOK, status)
}

// hostStatus leaves fields zero when gopsutil cannot read them.
func (s *Server) hostStatus() HostStatus {
	host := HostStatus{DiskPath: s.opts.DataDir}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		host.CPUUsage = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		host.MemTotal = vm.Total
		host.MemUsed = vm.Used
		host.MemUsage = vm.UsedPercent
	}
	if du, err := disk.Usage(s.opts.DataDir); err == nil {
		host.DiskUsed = du.Used
		host.DiskFree = du.Free
	}

	return host
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.refresher.TriggerAsync()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
