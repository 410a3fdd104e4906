package profiler

import (
	"log"
	"runtime"
	"time"
)

// FrameStats describes one rendered frame.
type FrameStats struct {
	// Views is the number of views rendered.
	Views int

	// Items is the number of phase items submitted across all views.
	Items int

	// Duration is the CPU time spent preparing and submitting the frame.
	Duration time.Duration
}

// Report is the summary logged once per interval.
type Report struct {
	FPS          float64
	AvgFrame     time.Duration
	MaxFrame     time.Duration
	Views        int
	Items        int
	HeapMB       float64
	AllocRateMB  float64
	GCCount      uint32
	MaxGCPauseUs uint64
}

// Profiler tracks frame rate, frame cost and memory statistics for performance monitoring.
// Outputs a Report to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	frameTotal     time.Duration
	frameMax       time.Duration
	last           FrameStats
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	// logf prints the report; log.Printf unless replaced in tests.
	logf func(format string, args ...any)
}

// NewProfiler creates a new Profiler reporting once per interval.
//
// Parameters:
//   - interval: time between reports (values <= 0 default to one second)
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		logf:           log.Printf,
	}
}

// Tick records one frame. Once the interval has elapsed it logs a Report and starts a new interval.
//
// Parameters:
//   - stats: the frame that just finished
//
// Returns:
//   - *Report: the report logged this tick, or nil
func (p *Profiler) Tick(stats FrameStats) *Report {
	return p.tick(stats, time.Now())
}

func (p *Profiler) tick(stats FrameStats, now time.Time) *Report {
	p.frameCount++
	p.frameTotal += stats.Duration
	p.frameMax = max(p.frameMax, stats.Duration)
	p.last = stats

	elapsed := now.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return nil
	}

	runtime.ReadMemStats(&p.memStats)
	r := &Report{
		FPS:         float64(p.frameCount) / elapsed.Seconds(),
		AvgFrame:    p.frameTotal / time.Duration(p.frameCount),
		MaxFrame:    p.frameMax,
		Views:       p.last.Views,
		Items:       p.last.Items,
		HeapMB:      float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB: float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:     p.memStats.NumGC,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses.
	start := p.lastGCCount
	if r.GCCount-start > 256 {
		start = r.GCCount - 256
	}
	for i := start; i < r.GCCount; i++ {
		r.MaxGCPauseUs = max(r.MaxGCPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	p.logf("[Profiler] FPS: %.2f | Frame: %s avg, %s max | Views: %d | Items: %d | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (max pause: %d µs)",
		r.FPS, r.AvgFrame, r.MaxFrame, r.Views, r.Items, r.HeapMB, r.AllocRateMB, r.GCCount, r.MaxGCPauseUs)

	p.frameCount = 0
	p.frameTotal = 0
	p.frameMax = 0
	p.lastTime = now
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return r
}
