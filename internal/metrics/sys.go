package metrics

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
)

// SysHealth is a point-in-time view of the process and its local data.
type SysHealth struct {
	Backend    string
	AllocMB    uint64
	SysMB      uint64
	NumGC      uint32
	Goroutines int
	DataSize   string
	CacheSize  string
}

// GetSysHealth collects runtime stats and the on-disk size of the database
// and cache directories. Missing paths count as empty.
func GetSysHealth(backend, dataPath, cachePath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SysHealth{
		Backend:    backend,
		AllocMB:    m.Alloc / 1024 / 1024,
		SysMB:      m.Sys / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		DataSize:   humanize.Bytes(dirSize(dataPath)),
		CacheSize:  humanize.Bytes(dirSize(cachePath)),
	}
}

func dirSize(path string) uint64 {
	var size uint64
	if path == "" {
		return 0
	}
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += uint64(info.Size())
		}
		return nil
	})
	return size
}
