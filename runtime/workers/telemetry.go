package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"courier/contract"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker periodically logs process health (CPU, RSS, status) and
// the current connection count. Operational visibility only; nothing in
// the relay path depends on it.
type TelemetryWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, registry contract.IRegistry, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, registry: registry, interval: interval}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	w.log.Info("Starting telemetry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Info("Relay stats",
				"connections", w.registry.Len(),
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"pid_status", status,
			)
		}
	}
}

// selfStats retrieves memory, CPU, and OS status for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
