package worker

import (
	"context"
	"sync"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/services"

	"github.com/sirupsen/logrus"
)

// maxDrainRounds bounds the backlog drain of a first run.
const maxDrainRounds = 20

// Job runs a scheduler pass on every tick. A tick arriving while the
// previous pass is still running is skipped.
type Job struct {
	ticker     *time.Ticker
	quit       chan struct{}
	scheduler  services.SchedulerService
	isRunning  bool
	isFirstRun bool
	mu         sync.Mutex
}

func NewJob(interval time.Duration, scheduler services.SchedulerService, isFirstRun bool) *Job {
	return &Job{
		ticker:     time.NewTicker(interval),
		quit:       make(chan struct{}),
		scheduler:  scheduler,
		isRunning:  false,
		isFirstRun: isFirstRun,
	}
}

func (j *Job) Start(ctx context.Context, wg *sync.WaitGroup) {
	logrus.Info("Due items job started!")
	go func() {
		defer wg.Done()
		defer j.ticker.Stop()

		if j.isFirstRun {
			j.processDue(ctx)
		}

		for {
			select {
			case <-j.ticker.C:
				j.processDue(ctx)
			case <-j.quit:
				logrus.Info("Stopping due items job by toggle")
				return
			case <-ctx.Done():
				logrus.Info("Application shutdown signal received, stopping due items job")
				return
			}
		}
	}()
}

func (j *Job) Stop() {
	close(j.quit)
	logrus.Info("Due items job stopped!")
}

func (j *Job) processDue(ctx context.Context) {
	j.mu.Lock()
	if j.isRunning {
		logrus.Debug("Job is already running, skipping this run")
		j.mu.Unlock()
		return
	}

	j.isRunning = true
	firstRun := j.isFirstRun
	j.isFirstRun = false
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		j.isRunning = false
		j.mu.Unlock()
	}()

	rounds := 1
	if firstRun {
		logrus.Info("This is first run so draining the due items backlog")
		rounds = maxDrainRounds
	}

	for i := 0; i < rounds; i++ {
		res, err := j.scheduler.ProcessDue(ctx)
		if err != nil {
			logrus.WithError(err).Error("Unexpected error while processing due items")
			return
		}
		if res.Dispatched == 0 {
			return
		}
	}
}
