package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smartpantry/smartpantry/internal/model"
	"github.com/smartpantry/smartpantry/internal/store"
)

const (
	checkInterval  = 1 * time.Hour
	expiryLeadDays = 3
)

// Scheduler periodically scans the pantry for items about to expire and sends
// a reminder to every registered subscription. Each item is reminded about at
// most once; editing its expiry date re-arms the reminder.
type Scheduler struct {
	mu      sync.RWMutex
	service *Service
	push    *store.PushStore
	pantry  *store.PantryStore
	logger  *slog.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler creates an expiry reminder scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, pantryStore *store.PantryStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service: svc,
		push:    pushStore,
		pantry:  pantryStore,
		logger:  logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	today := time.Now().Format("2006-01-02")
	items, err := s.pantry.ListExpiringWithin(today, expiryLeadDays)
	if err != nil {
		s.logger.Error("list expiring items", "error", err)
		return
	}
	if len(items) == 0 {
		return
	}

	subs, err := s.push.List()
	if err != nil {
		s.logger.Error("list push subscriptions", "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	for _, item := range items {
		payload := Payload{
			Title: "Expiring soon",
			Body:  expiryBody(item, today),
			Tag:   fmt.Sprintf("pantry-expiry-%d", item.ID),
		}
		s.notifyAll(subs, payload)

		if err := s.pantry.MarkExpiryNotified(item.ID); err != nil {
			s.logger.Error("mark expiry notified", "error", err, "item_id", item.ID)
		}
	}
}

func (s *Scheduler) notifyAll(subs []model.PushSubscription, payload Payload) {
	for i := range subs {
		err := s.service.Send(&subs[i], payload)
		if errors.Is(err, ErrExpired) {
			// Browser dropped the subscription; clean up our copy.
			if _, delErr := s.push.Delete(subs[i].ID); delErr != nil {
				s.logger.Error("delete expired subscription", "error", delErr)
			}
			continue
		}
		if err != nil {
			s.logger.Error("send expiry reminder", "error", err)
		}
	}
}

func expiryBody(item model.PantryItem, today string) string {
	if item.ExpiryDate == nil {
		return fmt.Sprintf("%s is expiring soon", item.Name)
	}
	if *item.ExpiryDate == today {
		return fmt.Sprintf("%s expires today", item.Name)
	}
	return fmt.Sprintf("%s expires on %s", item.Name, *item.ExpiryDate)
}
