package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// BroadcastWorkerConfig holds timing for the broadcast delivery loop.
type BroadcastWorkerConfig struct {
	// PollInterval is how often the worker looks for a pending broadcast.
	// Default: 30 seconds.
	PollInterval time.Duration

	// MessageDelay is the pause between two deliveries, respecting the
	// messaging platform's rate limits. Default: 50ms.
	MessageDelay time.Duration
}

// DefaultBroadcastWorkerConfig returns the delivery pacing the chat
// platforms tolerate.
func DefaultBroadcastWorkerConfig() BroadcastWorkerConfig {
	return BroadcastWorkerConfig{
		PollInterval: 30 * time.Second,
		MessageDelay: 50 * time.Millisecond,
	}
}

// BroadcastWorker delivers pending broadcasts: a single-pass cooperative
// loop, one message at a time with pacing, progress checkpoints every ten
// sends.
type BroadcastWorker struct {
	broadcasts *BroadcastService
	users      *UserService
	sender     MessageSender
	config     BroadcastWorkerConfig

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewBroadcastWorker(broadcasts *BroadcastService, users *UserService, sender MessageSender, config BroadcastWorkerConfig) *BroadcastWorker {
	if config.PollInterval == 0 {
		config.PollInterval = 30 * time.Second
	}
	if config.MessageDelay == 0 {
		config.MessageDelay = 50 * time.Millisecond
	}
	return &BroadcastWorker{
		broadcasts: broadcasts,
		users:      users,
		sender:     sender,
		config:     config,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the polling loop.
func (w *BroadcastWorker) Start() {
	w.ticker = time.NewTicker(w.config.PollInterval)
	log.Printf("[BROADCAST] Worker started - poll %v, pacing %v",
		w.config.PollInterval, w.config.MessageDelay)
	go w.run()
}

func (w *BroadcastWorker) run() {
	for {
		select {
		case <-w.ticker.C:
			w.RunOnce(context.Background())
		case <-w.stopCh:
			log.Printf("[BROADCAST] Worker stopped")
			return
		}
	}
}

// RunOnce processes at most one pending broadcast to completion.
func (w *BroadcastWorker) RunOnce(ctx context.Context) {
	b, err := w.broadcasts.claimPending(ctx)
	if err != nil {
		log.Printf("[BROADCAST] Claim failed: %v", err)
		return
	}
	if b == nil {
		return
	}

	users, err := w.users.ListUsers(ctx, b.Target)
	if err != nil {
		log.Printf("[BROADCAST] Audience lookup failed for %s: %v", b.ID, err)
		return
	}

	total := len(users)
	log.Printf("[BROADCAST] Delivering %s to %d users (target: %s)", b.ID, total, b.Target)
	if err := w.broadcasts.updateProgress(ctx, b.ID, 0, total); err != nil {
		log.Printf("[BROADCAST] Progress update failed: %v", err)
	}

	sent := 0
	for _, user := range users {
		var err error
		if b.ImageURL != "" {
			err = w.sender.SendPhoto(ctx, user.ID, b.ImageURL, b.Message)
		} else {
			err = w.sender.SendMessage(ctx, user.ID, b.Message)
		}
		if err != nil {
			// Blocked or deleted accounts are expected; skip and move on.
			log.Printf("[BROADCAST] Delivery to %s failed: %v", user.ID, err)
		} else {
			sent++
			if sent%10 == 0 {
				if err := w.broadcasts.updateProgress(ctx, b.ID, sent, total); err != nil {
					log.Printf("[BROADCAST] Progress update failed: %v", err)
				}
			}
		}

		select {
		case <-time.After(w.config.MessageDelay):
		case <-w.stopCh:
			// Leave the broadcast in processing; restart resumes nothing,
			// the admin re-queues if needed.
			return
		}
	}

	if err := w.broadcasts.complete(ctx, b.ID, sent, total); err != nil {
		log.Printf("[BROADCAST] Completion update failed: %v", err)
		return
	}
	log.Printf("[BROADCAST] Completed %s: %d/%d delivered", b.ID, sent, total)
}

// Stop halts the worker.
func (w *BroadcastWorker) Stop() {
	w.stopOnce.Do(func() {
		if w.ticker != nil {
			w.ticker.Stop()
		}
		close(w.stopCh)
	})
}
