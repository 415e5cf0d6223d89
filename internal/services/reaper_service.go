package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"
)

// ReaperConfig holds the lease settings for stale claims.
type ReaperConfig struct {
	// ClaimLease is how long a record may sit in processing before it is
	// considered abandoned. Default: 10 minutes.
	ClaimLease time.Duration

	// Interval is how often the reaper sweeps. Default: 1 minute.
	Interval time.Duration
}

// DefaultReaperConfig returns the production lease settings.
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{
		ClaimLease: 10 * time.Minute,
		Interval:   time.Minute,
	}
}

// ReaperService reverts inventory records stuck in processing back to
// ready. A claim that never reached mark-sold (caller crashed between the
// two, or a legacy row from before the lease existed) would otherwise
// strand the credential forever.
type ReaperService struct {
	db     *sql.DB
	config ReaperConfig

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewReaperService(db *sql.DB, config ReaperConfig) *ReaperService {
	if config.ClaimLease == 0 {
		config.ClaimLease = 10 * time.Minute
	}
	if config.Interval == 0 {
		config.Interval = time.Minute
	}
	return &ReaperService{
		db:     db,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (s *ReaperService) Start() {
	s.ticker = time.NewTicker(s.config.Interval)
	log.Printf("[REAPER] Started - interval %v, lease %v", s.config.Interval, s.config.ClaimLease)
	go s.run()
}

func (s *ReaperService) run() {
	for {
		select {
		case <-s.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := s.RunOnce(ctx); err != nil {
				log.Printf("[REAPER] Sweep failed: %v", err)
			}
			cancel()
		case <-s.stopCh:
			log.Printf("[REAPER] Stopped")
			return
		}
	}
}

// RunOnce reverts all expired claims and returns how many were reclaimed.
// Records with no claimed_at (claimed before the lease column existed) are
// reclaimed too.
func (s *ReaperService) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.config.ClaimLease)
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET status = 'ready', claimed_at = NULL, updated_at = now()
		WHERE status = 'processing' AND (claimed_at IS NULL OR claimed_at < $1)`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("reaper sweep failed: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		log.Printf("[REAPER] Reclaimed %d stale claims", n)
	}
	return n, nil
}

// Stop halts the reaper.
func (s *ReaperService) Stop() {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}
