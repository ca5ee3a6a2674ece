package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-dashboard/catalog"
	"github.com/yeremiapane/restaurant-dashboard/config"
	"github.com/yeremiapane/restaurant-dashboard/controllers"
	"github.com/yeremiapane/restaurant-dashboard/kds"
	"github.com/yeremiapane/restaurant-dashboard/middlewares"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/remote"
	"github.com/yeremiapane/restaurant-dashboard/router"
	"github.com/yeremiapane/restaurant-dashboard/services"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

// App -> semua komponen dashboard yang hidup selama proses berjalan
type App struct {
	Config config.Config

	Remote      *remote.Client
	Catalog     *catalog.Store
	Orders      *services.OrderStore
	Hub         *kds.Hub
	Log         *services.NotificationLog
	Coordinator *services.MutationCoordinator
	Sync        *services.OrderSyncEngine
	Scheduler   *services.SyncScheduler
	Push        *services.PushListener
	Router      *gin.Engine

	mu   sync.Mutex
	subs []*services.PushSubscription
}

// newApp merakit komponen; dialer nil berarti push channel tidak dipakai.
func newApp(cfg config.Config, db *gorm.DB, dialer kds.Dialer) (*App, error) {
	policy, err := services.ParseStalePolicy(cfg.StalePolicy)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Catalog: catalog.NewStore(),
		Orders:  services.NewOrderStore(),
		Hub:     kds.NewHub(),
		Log:     services.NewNotificationLog(200),
		Remote: remote.NewClient(remote.Config{
			BaseURL:   cfg.RemoteBaseURL,
			Token:     cfg.RemoteToken,
			Timeout:   cfg.RemoteTimeout,
			RateLimit: cfg.RemoteRateLimit,
		}),
	}

	// perubahan store -> broadcast ke dashboard
	a.Catalog.OnChange(a.Hub.BroadcastCatalogChanged)
	a.Orders.OnChange(a.Hub.BroadcastOrdersChanged)

	notifier := services.MultiNotifier{services.LogNotifier{}, services.HubNotifier{Hub: a.Hub}, a.Log}

	var checkpoints services.CheckpointStore = services.NewMemoryCheckpointStore()
	if db != nil {
		checkpoints = services.NewGormCheckpointStore(db)
	}

	a.Coordinator = services.NewMutationCoordinator(a.Catalog, a.Remote, notifier, services.WithStalePolicy(policy))
	a.Sync = services.NewOrderSyncEngine(a.Remote, a.Orders, checkpoints, notifier)
	a.Scheduler, err = services.NewSyncScheduler(a.Sync, cfg.BusinessIDs, cfg.SyncSchedule, cfg.RemoteTimeout)
	if err != nil {
		return nil, fmt.Errorf("sync schedule %q: %w", cfg.SyncSchedule, err)
	}
	if dialer != nil {
		a.Push = services.NewPushListener(dialer, a.Orders).ResyncWith(a.Sync)
	}

	var limiter *middlewares.RateLimiter
	if cfg.APIRateLimit > 0 {
		limiter = middlewares.NewRateLimiter(cfg.APIRateLimit, cfg.APIRateBurst)
	}
	var push *controllers.PushController
	if bus, ok := dialer.(*kds.BusDialer); ok {
		push = controllers.NewPushController(bus)
	}
	a.Router = router.SetupRouter(router.Deps{
		Menus:         controllers.NewMenuController(a.Catalog, a.Coordinator),
		Orders:        controllers.NewOrderController(a.Orders, a.Sync),
		Notifications: controllers.NewNotificationController(a.Log),
		KDS:           controllers.NewKDSController(a.Hub),
		Push:          push,
		CORSOrigins:   cfg.CORSOrigins,
		RateLimiter:   limiter,
	})
	return a, nil
}

// LoadCatalog mengambil tree semua business secara paralel lalu memuatnya sekaligus.
func (a *App) LoadCatalog(ctx context.Context) error {
	results := make([][]models.Menu, len(a.Config.BusinessIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range a.Config.BusinessIDs {
		i, businessID := i, b
		g.Go(func() error {
			menus, err := a.Remote.FetchCatalog(gctx, businessID)
			if err != nil {
				return fmt.Errorf("fetch catalog %s: %w", businessID, err)
			}
			for j := range menus {
				if menus[j].BusinessID == "" {
					menus[j].BusinessID = businessID
				}
			}
			results[i] = menus
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	var all []models.Menu
	for _, menus := range results {
		all = append(all, menus...)
	}
	a.Catalog.Load(all)
	return nil
}

// Start -> initial load, initial sync, scheduler, lalu push subscription per business.
// Push subscription hidup selama ctx.
func (a *App) Start(ctx context.Context) error {
	loadCtx, cancel := context.WithTimeout(ctx, 2*a.Config.RemoteTimeout)
	defer cancel()
	if err := a.LoadCatalog(loadCtx); err != nil {
		return err
	}
	if err := a.Scheduler.RunOnce(loadCtx); err != nil {
		// scheduler akan mencoba lagi di tick berikutnya
		utils.ErrorLogger.Errorf("initial order sync: %v", err)
	}
	a.Scheduler.Start()

	if a.Push == nil {
		return nil
	}
	for _, b := range a.Config.BusinessIDs {
		sub, err := a.Push.Listen(ctx, b)
		if err != nil {
			utils.ErrorLogger.Errorf("push channel %s: %v", b, err)
			continue
		}
		a.mu.Lock()
		a.subs = append(a.subs, sub)
		a.mu.Unlock()
	}
	return nil
}

// Shutdown -> lepas push subscription, hentikan scheduler, rollback mutation yang belum selesai
func (a *App) Shutdown() {
	a.mu.Lock()
	subs := a.subs
	a.subs = nil
	a.mu.Unlock()
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			utils.ErrorLogger.Errorf("close push %s: %v", sub.BusinessID, err)
		}
	}

	done := make(chan struct{})
	go func() {
		a.Scheduler.Stop()
		a.Coordinator.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(a.Config.RemoteTimeout + 5*time.Second):
		utils.ErrorLogger.Error("shutdown timed out waiting for in-flight requests")
	}
}
