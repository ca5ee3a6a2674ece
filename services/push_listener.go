package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-dashboard/kds"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

type statusPayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type paymentPayload struct {
	OrderID           string `json:"order_id"`
	PaymentStatus     string `json:"payment_status"`
	PaymentReceiptURL string `json:"payment_receipt_url"`
}

// PushListener feeds push channel events into the OrderStore.
type PushListener struct {
	dialer kds.Dialer
	orders *OrderStore
	resync func(ctx context.Context, businessID string) (SyncResult, error)
}

func NewPushListener(dialer kds.Dialer, orders *OrderStore) *PushListener {
	return &PushListener{dialer: dialer, orders: orders}
}

// ResyncWith makes every new subscription trigger one pull sync, covering
// the window between the last pull and the subscribe.
func (l *PushListener) ResyncWith(engine *OrderSyncEngine) *PushListener {
	l.resync = engine.SyncOrders
	return l
}

// PushSubscription -> satu subscription aktif untuk satu business
type PushSubscription struct {
	BusinessID string

	ch     kds.Channel
	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()
	once   sync.Once
	err    error
	wg     sync.WaitGroup
}

// Listen subscribes to the three order events of businessID. The
// subscription ends on Close or when ctx ends.
func (l *PushListener) Listen(ctx context.Context, businessID string) (*PushSubscription, error) {
	ch, err := l.dialer.Dial(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("push listen %s: %w", businessID, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &PushSubscription{
		BusinessID: businessID,
		ch:         ch,
		ctx:        subCtx,
		cancel:     cancel,
	}
	sub.unsubs = []func(){
		ch.Subscribe(kds.EventNewOrder, sub.guard(func(data json.RawMessage) {
			l.onNewOrder(businessID, data)
		})),
		ch.Subscribe(kds.EventOrderStatusUpdated, sub.guard(func(data json.RawMessage) {
			l.onStatusUpdated(businessID, data)
		})),
		ch.Subscribe(kds.EventPaymentUpdated, sub.guard(func(data json.RawMessage) {
			l.onPaymentUpdated(businessID, data)
		})),
	}

	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		<-subCtx.Done()
		sub.teardown()
	}()

	if l.resync != nil {
		sub.wg.Add(1)
		go func() {
			defer sub.wg.Done()
			if _, err := l.resync(subCtx, businessID); err != nil {
				utils.ErrorLogger.Errorf("push: resync %s after subscribe: %v", businessID, err)
			}
		}()
	}

	utils.InfoLogger.WithField("business_id", businessID).Info("push channel subscribed")
	return sub, nil
}

// guard -> event yang datang setelah scope berakhir dibuang
func (s *PushSubscription) guard(fn func(json.RawMessage)) func(json.RawMessage) {
	return func(data json.RawMessage) {
		if s.ctx.Err() != nil {
			return
		}
		fn(data)
	}
}

func (s *PushSubscription) teardown() {
	s.once.Do(func() {
		s.cancel()
		for _, unsub := range s.unsubs {
			unsub()
		}
		s.err = s.ch.Close()
		utils.InfoLogger.WithField("business_id", s.BusinessID).Info("push channel released")
	})
}

// Close unsubscribes all event kinds, releases the channel and waits for the
// subscription goroutines.
func (s *PushSubscription) Close() error {
	s.teardown()
	s.wg.Wait()
	return s.err
}

// Done -> ditutup saat subscription berakhir
func (s *PushSubscription) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (l *PushListener) onNewOrder(businessID string, data json.RawMessage) {
	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil || order.ID == "" {
		utils.ErrorLogger.Errorf("push: invalid new_order payload for %s dropped", businessID)
		return
	}
	inserted := l.orders.InsertIfAbsent(businessID, order)
	utils.InfoLogger.WithFields(logrus.Fields{
		"business_id": businessID,
		"order_id":    order.ID,
		"inserted":    inserted,
	}).Debug("push new_order")
}

func (l *PushListener) onStatusUpdated(businessID string, data json.RawMessage) {
	var p statusPayload
	if err := json.Unmarshal(data, &p); err != nil || p.OrderID == "" {
		utils.ErrorLogger.Errorf("push: invalid order_status_updated payload for %s dropped", businessID)
		return
	}
	if !l.orders.PatchStatus(businessID, p.OrderID, p.Status) {
		utils.InfoLogger.WithFields(logrus.Fields{
			"business_id": businessID,
			"order_id":    p.OrderID,
		}).Debug("push status for unknown order dropped")
	}
}

func (l *PushListener) onPaymentUpdated(businessID string, data json.RawMessage) {
	var p paymentPayload
	if err := json.Unmarshal(data, &p); err != nil || p.OrderID == "" {
		utils.ErrorLogger.Errorf("push: invalid payment_updated payload for %s dropped", businessID)
		return
	}
	if !l.orders.PatchPayment(businessID, p.OrderID, p.PaymentStatus, p.PaymentReceiptURL) {
		utils.InfoLogger.WithFields(logrus.Fields{
			"business_id": businessID,
			"order_id":    p.OrderID,
		}).Debug("push payment for unknown order dropped")
	}
}
