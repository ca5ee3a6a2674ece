package services

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/yeremiapane/restaurant-dashboard/utils"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// SyncScheduler triggers OrderSyncEngine.SyncOrders for every configured
// business on a cron schedule.
type SyncScheduler struct {
	engine     *OrderSyncEngine
	businesses []string
	timeout    time.Duration

	sched  *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSyncScheduler(engine *OrderSyncEngine, businesses []string, spec string, timeout time.Duration) (*SyncScheduler, error) {
	if spec == "" {
		spec = "@every 30s"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &SyncScheduler{
		engine:     engine,
		businesses: append([]string(nil), businesses...),
		timeout:    timeout,
		sched:      cron.New(cron.WithParser(cronParser)),
		ctx:        ctx,
		cancel:     cancel,
	}
	if _, err := s.sched.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *SyncScheduler) tick() {
	for _, b := range s.businesses {
		businessID := b
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
			defer cancel()
			if _, err := s.engine.SyncOrders(ctx, businessID); err != nil {
				utils.ErrorLogger.Errorf("scheduled sync %s: %v", businessID, err)
			}
		}()
	}
}

// RunOnce syncs every business in parallel and returns the first error. One
// failing business does not cancel the others.
func (s *SyncScheduler) RunOnce(ctx context.Context) error {
	var g errgroup.Group
	for _, b := range s.businesses {
		businessID := b
		g.Go(func() error {
			_, err := s.engine.SyncOrders(ctx, businessID)
			return err
		})
	}
	return g.Wait()
}

func (s *SyncScheduler) Start() {
	s.sched.Start()
	utils.InfoLogger.WithField("businesses", len(s.businesses)).Info("order sync scheduler started")
}

// Stop -> hentikan cron, batalkan sync yang berjalan, tunggu selesai
func (s *SyncScheduler) Stop() {
	<-s.sched.Stop().Done()
	s.cancel()
	s.wg.Wait()
}
