// Package stats samples process resource usage around a node run.
package stats

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Usage summarizes one node run. CPU and memory figures describe the whole
// engine process, because nodes share it with their siblings.
type Usage struct {
	Started    time.Time     `json:"started"`
	WallTime   time.Duration `json:"wall_time"`
	CPUSeconds float64       `json:"cpu_seconds"`
	PeakRSS    uint64        `json:"peak_rss_bytes"`
}

// Sampler reads usage figures for the current process.
type Sampler struct {
	proc *process.Process
}

// NewSampler returns a sampler for the current process. Sampling degrades to
// wall time only if the process cannot be inspected.
func NewSampler() *Sampler {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return &Sampler{}
	}
	return &Sampler{proc: p}
}

// Measurement holds the starting figures of a run until Stop is called.
type Measurement struct {
	s        *Sampler
	started  time.Time
	cpuStart float64
	rssStart uint64
}

// Start begins a measurement.
func (s *Sampler) Start(ctx context.Context) *Measurement {
	m := &Measurement{s: s, started: time.Now()}
	m.cpuStart = s.cpu(ctx)
	m.rssStart = s.rss(ctx)
	return m
}

// Stop returns the CPU seconds consumed since Start and the larger of the
// two RSS readings.
func (m *Measurement) Stop(ctx context.Context) Usage {
	u := Usage{
		Started:  m.started,
		WallTime: time.Since(m.started),
	}
	if m.s.proc == nil {
		return u
	}
	if cpu := m.s.cpu(ctx) - m.cpuStart; cpu > 0 {
		u.CPUSeconds = cpu
	}
	u.PeakRSS = max(m.rssStart, m.s.rss(ctx))
	return u
}

func (s *Sampler) cpu(ctx context.Context) float64 {
	if s.proc == nil {
		return 0
	}
	times, err := s.proc.TimesWithContext(ctx)
	if err != nil {
		return 0
	}
	return times.User + times.System
}

func (s *Sampler) rss(ctx context.Context) uint64 {
	if s.proc == nil {
		return 0
	}
	mem, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil || mem == nil {
		return 0
	}
	return mem.RSS
}
