// Package sweep runs the scheduled cleanup of upload markers that never got
// records: batches that failed validation after marker creation, or crashed
// before their commit.
package sweep

import (
	"context"
	"fmt"
	"log"
	"time"

	"resaleback/internal/service"

	"github.com/robfig/cron/v3"
)

type Sweeper struct {
	svc  *service.Service
	cron *cron.Cron
}

func New(svc *service.Service) *Sweeper {
	return &Sweeper{svc: svc, cron: cron.New()}
}

// Start schedules the daily sweep. Call Stop on shutdown.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("0 4 * * *", s.run); err != nil {
		return fmt.Errorf("schedule orphan upload sweep: %w", err)
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.svc.CleanupOrphanUploads(ctx)
	if err != nil {
		log.Printf("orphan upload sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("orphan upload sweep removed %d markers", removed)
	}
}
