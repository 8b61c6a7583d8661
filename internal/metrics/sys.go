package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// SysHealth represents real-time system metrics.
type SysHealth struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	AllocMB    uint64            `json:"alloc_mb"`
	SysMB      uint64            `json:"sys_mb"`
	NumGC      uint32            `json:"num_gc"`
	Goroutines int               `json:"goroutines"`
	DiskUsage  map[string]string `json:"disk_usage"`
}

// GetSysHealth collects real-time health data. dataPaths are the database
// file and blob directory whose on-disk size is reported.
func GetSysHealth(started time.Time, dataPaths ...string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage := make(map[string]string, len(dataPaths))
	for _, p := range dataPaths {
		if p == "" {
			continue
		}
		usage[p] = formatBytes(pathSize(p))
	}

	return SysHealth{
		Status:     "ok",
		Uptime:     time.Since(started).Round(time.Second).String(),
		AllocMB:    m.Alloc / 1024 / 1024,
		SysMB:      m.Sys / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		DiskUsage:  usage,
	}
}

// pathSize sums regular files under path; a missing path counts as 0.
func pathSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
