package services

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

type orderList struct {
	orders   []models.Order
	index    map[string]int
	revision uint64
}

// orderChange computes the next version of one order. ok=false means the
// change does not apply (e.g. patch for an unknown order).
type orderChange struct {
	id    string
	apply func(current models.Order, exists bool) (next models.Order, ok bool)
}

// OrderStore holds the order list of every business. Pull sync, push events
// and controllers all write through merge.
type OrderStore struct {
	mu    sync.RWMutex
	lists map[string]*orderList

	hookMu   sync.RWMutex
	onChange func(businessID string, revision uint64)
}

func NewOrderStore() *OrderStore {
	return &OrderStore{lists: make(map[string]*orderList)}
}

// OnChange -> dipanggil di luar lock setiap kali list sebuah business berubah
func (s *OrderStore) OnChange(fn func(businessID string, revision uint64)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onChange = fn
}

// merge applies every change against the id index under one lock and
// reports how many orders actually changed. The revision moves at most once
// per call.
func (s *OrderStore) merge(businessID string, changes []orderChange) int {
	s.mu.Lock()
	list := s.lists[businessID]
	if list == nil {
		list = &orderList{index: make(map[string]int)}
		s.lists[businessID] = list
	}

	changed := 0
	for _, ch := range changes {
		if ch.id == "" {
			continue
		}
		pos, exists := list.index[ch.id]
		var current models.Order
		if exists {
			current = list.orders[pos]
		}
		next, ok := ch.apply(current.Clone(), exists)
		if !ok {
			continue
		}
		next.ID = ch.id
		if next.BusinessID == "" {
			next.BusinessID = businessID
		}
		if exists {
			if reflect.DeepEqual(current, next) {
				continue
			}
			list.orders[pos] = next
		} else {
			list.index[ch.id] = len(list.orders)
			list.orders = append(list.orders, next)
		}
		changed++
	}
	if changed > 0 {
		list.revision++
	}
	revision := list.revision
	s.mu.Unlock()

	if changed > 0 {
		utils.InfoLogger.WithFields(logrus.Fields{
			"business_id": businessID,
			"changed":     changed,
			"revision":    revision,
		}).Debug("orders merged")
		s.hookMu.RLock()
		fn := s.onChange
		s.hookMu.RUnlock()
		if fn != nil {
			fn(businessID, revision)
		}
	}
	return changed
}

// Upsert overwrites or inserts every order by id.
func (s *OrderStore) Upsert(businessID string, orders []models.Order) int {
	changes := make([]orderChange, 0, len(orders))
	for _, o := range orders {
		incoming := o.Clone()
		changes = append(changes, orderChange{
			id: incoming.ID,
			apply: func(models.Order, bool) (models.Order, bool) {
				return incoming, true
			},
		})
	}
	return s.merge(businessID, changes)
}

// InsertIfAbsent -> order baru dari push; duplikat diabaikan
func (s *OrderStore) InsertIfAbsent(businessID string, order models.Order) bool {
	incoming := order.Clone()
	return s.merge(businessID, []orderChange{{
		id: incoming.ID,
		apply: func(_ models.Order, exists bool) (models.Order, bool) {
			return incoming, !exists
		},
	}}) > 0
}

// PatchStatus overwrites the status of a known order. It reports whether the
// order exists; unknown ids are dropped.
func (s *OrderStore) PatchStatus(businessID, orderID, status string) bool {
	found := false
	s.merge(businessID, []orderChange{{
		id: orderID,
		apply: func(cur models.Order, exists bool) (models.Order, bool) {
			found = exists
			cur.Status = status
			return cur, exists
		},
	}})
	return found
}

// PatchPayment -> sama dengan PatchStatus untuk payment_status + receipt url
func (s *OrderStore) PatchPayment(businessID, orderID, paymentStatus, receiptURL string) bool {
	found := false
	s.merge(businessID, []orderChange{{
		id: orderID,
		apply: func(cur models.Order, exists bool) (models.Order, bool) {
			found = exists
			cur.PaymentStatus = paymentStatus
			cur.PaymentReceiptURL = receiptURL
			return cur, exists
		},
	}})
	return found
}

// Orders -> salinan list order sebuah business
func (s *OrderStore) Orders(businessID string) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.lists[businessID]
	if list == nil {
		return []models.Order{}
	}
	out := make([]models.Order, len(list.orders))
	for i, o := range list.orders {
		out[i] = o.Clone()
	}
	return out
}

func (s *OrderStore) Order(businessID, orderID string) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.lists[businessID]
	if list == nil {
		return models.Order{}, false
	}
	pos, ok := list.index[orderID]
	if !ok {
		return models.Order{}, false
	}
	return list.orders[pos].Clone(), true
}

func (s *OrderStore) Revision(businessID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if list := s.lists[businessID]; list != nil {
		return list.revision
	}
	return 0
}
