package jobs

import (
	"log"
	"time"

	"github.com/vittam-ai/vittam-backend/internal/storage"
)

// CleanupJob purges abandoned sessions and expired OTP codes on a
// fixed interval. A session counts as abandoned when it never received
// a single message, typically a client that opened a session and left.
type CleanupJob struct {
	store     storage.Store
	interval  time.Duration
	isRunning bool
	stop      chan struct{}
}

// NewCleanupJob creates a new cleanup job scheduler
func NewCleanupJob(store storage.Store, interval time.Duration) *CleanupJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupJob{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the scheduled cleanup loop
func (j *CleanupJob) Start() {
	if j.isRunning {
		log.Println("Cleanup job already running")
		return
	}
	j.isRunning = true
	log.Printf("Starting session cleanup job (every %v)...", j.interval)
	go j.run()
}

// Stop halts the cleanup loop
func (j *CleanupJob) Stop() {
	if !j.isRunning {
		return
	}
	j.isRunning = false
	close(j.stop)
	log.Println("Stopping session cleanup job...")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.runOnce()
		case <-j.stop:
			return
		}
	}
}

func (j *CleanupJob) runOnce() {
	ids, err := j.store.GetOrphanSessionIDs()
	if err != nil {
		log.Printf("[JOB] Cleanup - failed to list orphan sessions: %v", err)
	} else if len(ids) > 0 {
		deleted, err := j.store.DeleteSessions(ids)
		if err != nil {
			log.Printf("[JOB] Cleanup - failed to delete orphan sessions: %v", err)
		} else {
			log.Printf("[JOB] Cleanup - deleted %d orphan session(s)", deleted)
		}
	}

	if err := j.store.DeleteExpiredOTPs(); err != nil {
		log.Printf("[JOB] Cleanup - failed to delete expired OTPs: %v", err)
	}
}
