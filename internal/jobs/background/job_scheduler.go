package background

import (
	"context"
	"log"
	"sync"
	"time"

	"chyll/internal/repositories"
	"chyll/internal/services"

	"github.com/go-co-op/gocron/v2"
)

const (
	tokenSweepInterval = 15 * time.Minute
	tokenSweepWindow   = 30 * time.Minute

	staleJobInterval = 10 * time.Minute
	staleJobAgeMins  = 15
)

// JobScheduler runs the periodic maintenance tasks: refreshing Gmail tokens
// before they lapse and closing out email jobs stuck in pending.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	oauthService services.OAuthService
	emailJobRepo repositories.EmailJobRepository
	jobs         map[string]gocron.Job
	mu           sync.RWMutex
}

func NewJobScheduler(oauthService services.OAuthService, emailJobRepo repositories.EmailJobRepository) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		oauthService: oauthService,
		emailJobRepo: emailJobRepo,
		jobs:         make(map[string]gocron.Job),
	}

	js.registerJobs()
	return js
}

func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	tokenJob, err := js.scheduler.NewJob(
		gocron.DurationJob(tokenSweepInterval),
		gocron.NewTask(js.refreshExpiringTokens, context.Background()),
		gocron.WithName("mailbox-token-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create token refresh job: %v", err)
	} else {
		js.jobs["mailbox-token-refresh"] = tokenJob
	}

	reaperJob, err := js.scheduler.NewJob(
		gocron.DurationJob(staleJobInterval),
		gocron.NewTask(js.reapStaleEmailJobs, context.Background()),
		gocron.WithName("stale-email-job-reaper"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create stale job reaper: %v", err)
	} else {
		js.jobs["stale-email-job-reaper"] = reaperJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

func (js *JobScheduler) refreshExpiringTokens(ctx context.Context) error {
	refreshed, err := js.oauthService.RefreshExpiring(ctx, tokenSweepWindow)
	if err != nil {
		log.Printf("Token refresh sweep failed: %v", err)
		return err
	}
	if refreshed > 0 {
		log.Printf("Refreshed %d mailbox tokens", refreshed)
	}
	return nil
}

// reapStaleEmailJobs forces pending email jobs abandoned by a crash into the
// failed state so the ledger always reaches a terminal status.
func (js *JobScheduler) reapStaleEmailJobs(ctx context.Context) error {
	reaped, err := js.emailJobRepo.FailStalePending(ctx, staleJobAgeMins)
	if err != nil {
		log.Printf("Stale email job sweep failed: %v", err)
		return err
	}
	if reaped > 0 {
		log.Printf("Marked %d stale email jobs as failed", reaped)
	}
	return nil
}

// GetJobStatus reports the registered jobs, used by the health surface.
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return map[string]interface{}{
		"total_jobs": len(js.jobs),
		"jobs":       names,
	}
}
