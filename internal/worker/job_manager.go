package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/services"
)

var (
	ErrJobRunning    = errors.New("job is already running")
	ErrJobNotRunning = errors.New("actively running job not found")
	ErrNoInterval    = errors.New("job interval is not configured")
)

type JobManager struct {
	currentJob *Job
	mu         sync.Mutex
	scheduler  services.SchedulerService
	interval   time.Duration
	isFirstRun bool
	wg         *sync.WaitGroup
}

func NewJobManager(scheduler services.SchedulerService, interval time.Duration, wg *sync.WaitGroup) *JobManager {
	return &JobManager{
		scheduler:  scheduler,
		interval:   interval,
		isFirstRun: true,
		wg:         wg,
	}
}

// Starts a new job
func (m *JobManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentJob != nil {
		return ErrJobRunning
	}
	if m.interval <= 0 {
		return ErrNoInterval
	}
	m.wg.Add(1)

	m.currentJob = NewJob(m.interval, m.scheduler, m.isFirstRun)
	m.currentJob.Start(ctx, m.wg)

	m.isFirstRun = false

	return nil
}

// Stops the active job
func (m *JobManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentJob == nil {
		return ErrJobNotRunning
	}

	m.currentJob.Stop()
	m.currentJob = nil
	return nil
}

// Checks if a job is currently running
func (m *JobManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentJob != nil
}
