package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-dashboard/catalog"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/remote"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

var (
	ErrPendingParent     = errors.New("parent is still being created, retry after it is saved")
	ErrEmptyPatch        = errors.New("patch has no updatable fields")
	ErrCoordinatorClosed = errors.New("mutation coordinator closed")
	ErrInvalidServerID   = errors.New("remote service returned no canonical id")
	ErrPendingChildren   = errors.New("node has children still being created, retry after they are saved")
)

// CatalogRemote -> operasi CRUD catalog di Remote Service
type CatalogRemote interface {
	Create(ctx context.Context, level catalog.Level, parentID string, payload interface{}) (models.Patch, error)
	Update(ctx context.Context, level catalog.Level, id string, patch models.Patch) (models.Patch, error)
	Delete(ctx context.Context, level catalog.Level, id string) error
}

// StalePolicy decides what happens to a response or an undo for the fields
// written again locally after the mutation's own apply.
type StalePolicy int

const (
	// StalePolicyDiscard skips the stale fields; the newer write wins.
	StalePolicyDiscard StalePolicy = iota
	// StalePolicyApply applies responses in completion order.
	StalePolicyApply
)

func ParseStalePolicy(s string) (StalePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "discard":
		return StalePolicyDiscard, nil
	case "apply":
		return StalePolicyApply, nil
	}
	return StalePolicyDiscard, fmt.Errorf("unknown stale policy %q", s)
}

func (p StalePolicy) String() string {
	if p == StalePolicyApply {
		return "apply"
	}
	return "discard"
}

// MutationCoordinator applies catalog writes to the store immediately and
// confirms or rolls them back once the Remote Service answers.
type MutationCoordinator struct {
	store    *catalog.Store
	remote   CatalogRemote
	notifier Notifier
	policy   StalePolicy

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	root   *MutationScope
}

type CoordinatorOption func(*MutationCoordinator)

func WithStalePolicy(p StalePolicy) CoordinatorOption {
	return func(c *MutationCoordinator) { c.policy = p }
}

func NewMutationCoordinator(store *catalog.Store, r CatalogRemote, notifier Notifier, opts ...CoordinatorOption) *MutationCoordinator {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	c := &MutationCoordinator{
		store:    store,
		remote:   r,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(c)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.root = &MutationScope{c: c, ctx: ctx, cancel: cancel}
	return c
}

// MutationScope -> sekumpulan mutation yang request remote-nya dibatalkan
// bersamaan saat scope ditutup
type MutationScope struct {
	c      *MutationCoordinator
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
	stop   func() bool
}

// Scope derives a view whose in-flight requests are cancelled when ctx ends,
// the scope is closed or the coordinator is closed.
func (c *MutationCoordinator) Scope(ctx context.Context) *MutationScope {
	sctx, cancel := context.WithCancel(ctx)
	s := &MutationScope{c: c, ctx: sctx, cancel: cancel}
	s.stop = context.AfterFunc(c.root.ctx, cancel)
	return s
}

func (c *MutationCoordinator) Create(parentPath catalog.Path, entity interface{}) (*Mutation, error) {
	return c.root.Create(parentPath, entity)
}

func (c *MutationCoordinator) Update(path catalog.Path, patch models.Patch) (*Mutation, error) {
	return c.root.Update(path, patch)
}

func (c *MutationCoordinator) Delete(path catalog.Path) (*Mutation, error) {
	return c.root.Delete(path)
}

// Close cancels every in-flight request and waits until each mutation has
// settled. Nothing touches the store after Close returns.
func (c *MutationCoordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.root.closed = true
	c.mu.Unlock()

	c.root.cancel()
	c.wg.Wait()
}

// Close cancels the scope's in-flight requests and waits for them to settle.
func (s *MutationScope) Close() {
	s.c.mu.Lock()
	s.closed = true
	s.c.mu.Unlock()

	s.cancel()
	if s.stop != nil {
		s.stop()
	}
	s.wg.Wait()
}

// begin reserves a slot for one mutation; false when the scope is closed.
func (s *MutationScope) begin() bool {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.closed || s.closed || s.ctx.Err() != nil {
		return false
	}
	s.c.wg.Add(1)
	s.wg.Add(1)
	return true
}

func (s *MutationScope) end() {
	s.wg.Done()
	s.c.wg.Done()
}

func (s *MutationScope) run(m *Mutation, fn func(ctx context.Context)) {
	go func() {
		defer s.end()
		m.setPending()
		fn(s.ctx)
	}()
}

func (s *MutationScope) refuse(businessID, action string, level catalog.Level, err error) error {
	s.c.notifier.Notify(newNotification(models.NotificationError, businessID,
		fmt.Sprintf("Failed to %s %s", action, levelLabel(level)), err.Error()))
	return err
}

func (c *MutationCoordinator) businessOf(path catalog.Path, entity interface{}) string {
	if len(path) > 0 {
		b, _ := c.store.BusinessID(path[0])
		return b
	}
	switch v := entity.(type) {
	case models.Menu:
		return v.BusinessID
	case *models.Menu:
		if v != nil {
			return v.BusinessID
		}
	}
	return ""
}

// Create inserts entity under parentPath with a fresh temp id, then asks the
// Remote Service for the canonical record. The id the caller supplied is
// ignored.
func (s *MutationScope) Create(parentPath catalog.Path, entity interface{}) (*Mutation, error) {
	c := s.c
	level := catalog.Level(len(parentPath))
	businessID := c.businessOf(parentPath, entity)
	if !level.Valid() {
		return nil, fmt.Errorf("%w: parent path %q", catalog.ErrLevelMismatch, parentPath.String())
	}
	if parentPath.HasTempID() {
		return nil, s.refuse(businessID, "create", level, ErrPendingParent)
	}
	remoteParent := parentPath.Last()
	if level == catalog.LevelMenu {
		remoteParent = businessID
		if remoteParent == "" {
			return nil, errors.New("menu needs a business_id")
		}
	}

	tempID := utils.NewTempID()
	local, err := catalog.WithID(level, entity, tempID)
	if err != nil {
		return nil, err
	}
	payload, _ := catalog.WithID(level, entity, "")

	if !s.begin() {
		return nil, ErrCoordinatorClosed
	}
	stamp, _, err := c.store.Insert(parentPath, local)
	if err != nil {
		s.end()
		return nil, err
	}
	m := newMutation(MutationCreate, level, businessID, parentPath.Child(tempID))
	m.since = stamp

	s.run(m, func(ctx context.Context) {
		rec, err := c.remote.Create(ctx, level, remoteParent, payload)
		realID := ""
		if err == nil {
			realID = canonicalID(rec["id"])
			if realID == "" {
				err = ErrInvalidServerID
			}
		}
		if err != nil {
			c.store.Delete(m.Path())
			c.fail(m, "create", err)
			return
		}

		if err := c.store.ReplaceID(level, parentPath, tempID, realID); err != nil {
			// node sementara sudah hilang (parent/node dihapus saat request berjalan)
			utils.InfoLogger.WithFields(logrus.Fields{
				"level":   level.String(),
				"temp_id": tempID,
				"real_id": realID,
			}).Info("created node gone before reconciliation: " + err.Error())
			m.setPath(parentPath.Child(realID))
			m.settle(StateDiscarded, nil)
			return
		}
		m.setPath(parentPath.Child(realID))
		state := c.applyCanonical(m, rec)
		c.succeed(m, "created", state)
	})
	return m, nil
}

// Update applies patch locally, keeping the previous values of exactly the
// touched fields for undo.
func (s *MutationScope) Update(path catalog.Path, patch models.Patch) (*Mutation, error) {
	c := s.c
	level := path.Level()
	businessID := c.businessOf(path, nil)
	if !level.Valid() {
		return nil, fmt.Errorf("%w: path %q", catalog.ErrLevelMismatch, path.String())
	}
	if path.HasTempID() {
		return nil, s.refuse(businessID, "update", level, ErrPendingParent)
	}
	clean := patch.Without(catalog.ProtectedKeys(level)...)
	if len(clean) == 0 {
		return nil, ErrEmptyPatch
	}

	if !s.begin() {
		return nil, ErrCoordinatorClosed
	}
	prev, ok := c.store.Capture(path, clean.Keys())
	if !ok {
		s.end()
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, path.String())
	}
	stamp, found, err := c.store.Apply(path, clean)
	if err != nil || !found {
		s.end()
		if err == nil {
			err = fmt.Errorf("%w: %s", catalog.ErrNotFound, path.String())
		}
		return nil, err
	}
	m := newMutation(MutationUpdate, level, businessID, path)
	m.since = stamp

	s.run(m, func(ctx context.Context) {
		rec, err := c.remote.Update(ctx, level, path.Last(), clean)
		if err != nil {
			// field yang sudah ditulis ulang setelah apply ini tidak di-undo
			newer := c.newer(m, prev.Keys())
			if len(newer) == len(prev) {
				c.notifier.Notify(newNotification(models.NotificationError, businessID,
					fmt.Sprintf("Failed to update %s", levelLabel(level)), remote.ErrorMessage(err)))
				m.settle(StateDiscarded, err)
				return
			}
			if _, uerr := c.store.Update(path, prev.Without(newer...)); uerr != nil {
				utils.ErrorLogger.Errorf("undo update %s: %v", path.String(), uerr)
			}
			c.fail(m, "update", err)
			return
		}
		state := c.applyCanonical(m, rec)
		c.succeed(m, "updated", state)
	})
	return m, nil
}

// Delete removes the node locally after taking a deep snapshot for restore.
func (s *MutationScope) Delete(path catalog.Path) (*Mutation, error) {
	c := s.c
	level := path.Level()
	businessID := c.businessOf(path, nil)
	if !level.Valid() {
		return nil, fmt.Errorf("%w: path %q", catalog.ErrLevelMismatch, path.String())
	}
	if path.HasTempID() {
		return nil, s.refuse(businessID, "delete", level, ErrPendingParent)
	}
	if c.store.HasTempDescendant(path) {
		return nil, s.refuse(businessID, "delete", level, ErrPendingChildren)
	}

	if !s.begin() {
		return nil, ErrCoordinatorClosed
	}
	snap, ok := c.store.Snapshot(path)
	if !ok || !c.store.Delete(path) {
		s.end()
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, path.String())
	}
	m := newMutation(MutationDelete, level, businessID, path)

	s.run(m, func(ctx context.Context) {
		if err := c.remote.Delete(ctx, level, path.Last()); err != nil {
			if rerr := c.store.Restore(snap); rerr != nil {
				utils.ErrorLogger.Errorf("restore %s: %v", path.String(), rerr)
			}
			c.fail(m, "delete", err)
			return
		}
		c.succeed(m, "deleted", StateReconciled)
	})
	return m, nil
}

// newer -> keys yang ditulis lagi secara lokal setelah apply mutation ini
func (c *MutationCoordinator) newer(m *Mutation, keys []string) []string {
	if c.policy == StalePolicyApply {
		return nil
	}
	out, _ := c.store.WrittenSince(m.Path(), m.localStamp(), keys)
	return out
}

// applyCanonical writes the server record minus the fields a newer local
// write owns. Discarded only when every field was newer.
func (c *MutationCoordinator) applyCanonical(m *Mutation, rec models.Patch) MutationState {
	rec = rec.Without(catalog.ProtectedKeys(m.Level)...)
	if len(rec) == 0 {
		return StateReconciled
	}
	newer := c.newer(m, rec.Keys())
	if len(newer) > 0 {
		utils.InfoLogger.WithFields(logrus.Fields{
			"path":    m.Path().String(),
			"kind":    string(m.Kind),
			"skipped": newer,
		}).Debug("stale fields discarded, newer local write exists")
	}
	if len(newer) == len(rec) {
		return StateDiscarded
	}
	if _, err := c.store.Update(m.Path(), rec.Without(newer...)); err != nil {
		utils.ErrorLogger.Errorf("apply canonical record %s: %v", m.Path().String(), err)
	}
	return StateReconciled
}

func (c *MutationCoordinator) succeed(m *Mutation, verb string, state MutationState) {
	c.notifier.Notify(newNotification(models.NotificationSuccess, m.BusinessID,
		levelTitle(m.Level)+" "+verb,
		fmt.Sprintf("%s %s %s", levelLabel(m.Level), m.NodeID(), verb)))
	m.settle(state, nil)
}

func (c *MutationCoordinator) fail(m *Mutation, action string, err error) {
	utils.ErrorLogger.WithFields(logrus.Fields{
		"path": m.Path().String(),
		"kind": string(m.Kind),
	}).Warnf("mutation rolled back: %v", err)
	c.notifier.Notify(newNotification(models.NotificationError, m.BusinessID,
		fmt.Sprintf("Failed to %s %s", action, levelLabel(m.Level)),
		remote.ErrorMessage(err)))
	m.settle(StateRolledBack, err)
}

// levelLabel -> "option group", dipakai di teks notifikasi
func levelLabel(l catalog.Level) string {
	return strings.ReplaceAll(l.String(), "_", " ")
}

func levelTitle(l catalog.Level) string {
	label := levelLabel(l)
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// canonicalID -> id dari record server; id kosong atau berformat temp tidak sah
func canonicalID(v interface{}) string {
	var id string
	switch t := v.(type) {
	case string:
		id = t
	case json.Number:
		id = t.String()
	case float64:
		id = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		id = strconv.Itoa(t)
	case int64:
		id = strconv.FormatInt(t, 10)
	}
	if id == "" || utils.IsTempID(id) {
		return ""
	}
	return id
}
