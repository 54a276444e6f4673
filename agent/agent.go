package agent

import (
	"context"
	"time"

	"github.com/freesoil/sky-monitor-edge/logging"
	"github.com/freesoil/sky-monitor-edge/recording"
	"github.com/freesoil/sky-monitor-edge/storage"
	"github.com/freesoil/sky-monitor-edge/uploading"
)

// Agent is the periodic driver tying the eviction manager and upload pipeline
// together. Everything runs on the goroutine that calls Run; the two
// components share only the upload queue, and only through the reconciliation
// step inside CheckAndManageStorage.
type Agent struct {
	logger   logging.Logger
	evictor  *storage.EvictionManager
	pipeline *uploading.Pipeline
	monitor  recording.Monitor
	cycle    time.Duration
}

// New creates an agent running one driver cycle every cycle duration.
func New(logger logging.Logger, evictor *storage.EvictionManager, pipeline *uploading.Pipeline, monitor recording.Monitor, cycle time.Duration) *Agent {
	if logger == nil {
		logger = logging.NopLogger
	}
	if cycle <= 0 {
		cycle = time.Second
	}
	return &Agent{
		logger:   logger,
		evictor:  evictor,
		pipeline: pipeline,
		monitor:  monitor,
		cycle:    cycle,
	}
}

// Run repopulates the upload queue from storage and then executes driver
// cycles until the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.pipeline.RescanStore(); err != nil {
		a.logger.Error("initial store rescan failed", "error", err)
	}

	ticker := time.NewTicker(a.cycle)
	defer ticker.Stop()

	a.logger.Info("agent started", "cycle", a.cycle)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("agent stopping")
			return ctx.Err()
		case <-ticker.C:
			a.RunCycle()
		}
	}
}

// RunCycle executes one driver cycle: watchdog, pause/resume bookkeeping,
// storage compaction with queue reconciliation, then one queue-processing
// step.
func (a *Agent) RunCycle() {
	a.pipeline.ResetStuckUploadState()

	sched := a.monitor.Schedule()
	if a.pipeline.ShouldPauseUpload(sched.LastCaptureStart, sched.CaptureInterval) {
		a.pipeline.PauseUpload()
	}
	a.pipeline.ForceResumeUploads(sched.LastCaptureStart, sched.CaptureDuration, sched.CaptureInterval)

	a.evictor.CheckAndManageStorage(a.pipeline)

	a.pipeline.ProcessQueue()

	status := a.pipeline.Status()
	if status.QueueLength > 0 || status.Active {
		a.logger.Debug("upload status",
			"queued", status.QueueLength,
			"active", status.Active,
			"paused", status.Paused,
			"current", status.CurrentPath,
			"sent", status.BytesSent,
			"total", status.TotalBytes)
	}
}
