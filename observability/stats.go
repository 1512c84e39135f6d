// Package observability exposes a point-in-time view of the server for the
// stats endpoint: live sessions, room sizes, telemetry counters and process usage.
package observability

import (
	"log/slog"
	"os"
	"runtime"
	"socialchat/domain"
	"socialchat/domain/event"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/process"
)

// RoomCounter is satisfied by the room registry.
type RoomCounter interface {
	Count() map[domain.RoomID]int
}

// SessionCounter is satisfied by the WebSocket handler.
type SessionCounter interface {
	Active() int64
}

type ProcessStats struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSSMb      uint64  `json:"rss_mb"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
}

type Stats struct {
	Uptime   string            `json:"uptime"`
	Sessions int64             `json:"sessions"`
	Rooms    map[string]int    `json:"rooms"`
	Counters map[string]uint64 `json:"counters"`
	Process  ProcessStats      `json:"process"`
}

type Collector struct {
	log       *slog.Logger
	rooms     RoomCounter
	sessions  SessionCounter
	counter   *event.Counter
	proc      *process.Process
	startedAt time.Time
}

func NewCollector(log *slog.Logger, rooms RoomCounter, sessions SessionCounter, counter *event.Counter) *Collector {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process stats unavailable", "error", err)
	}
	return &Collector{
		log:       log,
		rooms:     rooms,
		sessions:  sessions,
		counter:   counter,
		proc:      proc,
		startedAt: time.Now(),
	}
}

func (c *Collector) Collect() Stats {
	stats := Stats{
		Uptime:   time.Since(c.startedAt).Truncate(time.Second).String(),
		Rooms:    map[string]int{},
		Counters: map[string]uint64{},
		Process:  c.processStats(),
	}
	if c.sessions != nil {
		stats.Sessions = c.sessions.Active()
	}
	if c.rooms != nil {
		stats.Rooms = lo.MapKeys(c.rooms.Count(), func(_ int, room domain.RoomID) string {
			return strconv.Itoa(int(room))
		})
	}
	if c.counter != nil {
		stats.Counters = lo.MapKeys(c.counter.Snapshot(), func(_ uint64, t event.Type) string {
			return string(t)
		})
	}
	return stats
}

func (c *Collector) processStats() ProcessStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats := ProcessStats{
		Goroutines: runtime.NumGoroutine(),
		AllocMemMb: mem.Alloc / 1024 / 1024,
		NumGC:      mem.NumGC,
	}
	if c.proc == nil {
		return stats
	}
	if info, err := c.proc.MemoryInfo(); err == nil {
		stats.RSSMb = info.RSS / 1024 / 1024
	} else {
		c.log.Debug("Unable to read process memory", "error", err)
	}
	if cpu, err := c.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if threads, err := c.proc.NumThreads(); err == nil {
		stats.Threads = threads
	}
	return stats
}
