package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

var (
	ErrParentNotFound = errors.New("catalog: parent not found")
	ErrNotFound       = errors.New("catalog: node not found")
	ErrLevelMismatch  = errors.New("catalog: entity does not match path level")
	ErrEmptyID        = errors.New("catalog: entity id is empty")
)

type handle uint64

// rootHandle is the implicit parent of every menu.
const rootHandle handle = 0

type slot struct {
	level    Level
	id       string
	parent   handle
	entity   interface{} // *models.Menu, *models.Section, ... ; child collection always nil
	children []handle
	version  uint64

	// born dan stamps memakai jam store (clock): stamp penulisan terakhir per field
	born   uint64
	stamps map[string]uint64
}

type childKey struct {
	parent handle
	id     string
}

// Store holds the catalog tree as an arena of slots plus a per-level
// (parent, id) index. Every exported method runs under the store mutex, so
// each operation is observed either entirely or not at all.
type Store struct {
	mu    sync.RWMutex
	next  handle
	clock uint64
	slots map[handle]*slot
	index [levelCount]map[childKey]handle

	hookMu   sync.RWMutex
	onChange func()
}

func NewStore() *Store {
	s := &Store{}
	s.resetLocked()
	return s
}

// OnChange -> dipanggil (di luar lock) setiap kali isi tree berubah
func (s *Store) OnChange(fn func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.onChange = fn
}

func (s *Store) changed() {
	s.hookMu.RLock()
	fn := s.onChange
	s.hookMu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (s *Store) resetLocked() {
	s.next = rootHandle + 1
	s.slots = map[handle]*slot{rootHandle: {level: -1}}
	for i := range s.index {
		s.index[i] = make(map[childKey]handle)
	}
}

// Load replaces the whole tree, used on initial load. Duplicate ids under the
// same parent keep the first occurrence.
func (s *Store) Load(menus []models.Menu) {
	s.mu.Lock()
	s.resetLocked()
	for i := range menus {
		s.insertTreeLocked(rootHandle, LevelMenu, &menus[i], -1)
	}
	count := len(s.slots[rootHandle].children)
	s.mu.Unlock()

	utils.InfoLogger.WithField("menus", count).Info("catalog loaded")
	s.changed()
}

// Add inserts entity as a child of parentPath. It is idempotent: when the
// parent already has a child with the same id nothing changes and false is
// returned. The stored node always starts with an empty child collection.
func (s *Store) Add(parentPath Path, entity interface{}) (bool, error) {
	_, added, err := s.Insert(parentPath, entity)
	return added, err
}

// Insert is Add that also returns the store clock stamp of the insert, the
// baseline for WrittenSince.
func (s *Store) Insert(parentPath Path, entity interface{}) (uint64, bool, error) {
	level := Level(len(parentPath))
	if !level.Valid() {
		return 0, false, fmt.Errorf("%w: parent path %q", ErrLevelMismatch, parentPath.String())
	}
	id, ent, err := detach(level, entity)
	if err != nil {
		return 0, false, err
	}

	s.mu.Lock()
	ph, ok := s.resolveLocked(parentPath)
	if !ok {
		s.mu.Unlock()
		return 0, false, fmt.Errorf("%w: %s", ErrParentNotFound, parentPath.String())
	}
	if _, exists := s.index[level][childKey{ph, id}]; exists {
		s.mu.Unlock()
		return 0, false, nil
	}
	h := s.insertLocked(ph, level, id, ent, -1)
	stamp := s.slots[h].born
	s.mu.Unlock()

	s.changed()
	return stamp, true, nil
}

func (s *Store) AddMenu(menu models.Menu) (bool, error) {
	return s.Add(Path{}, menu)
}

func (s *Store) AddSection(menuID string, section models.Section) (bool, error) {
	return s.Add(Path{menuID}, section)
}

func (s *Store) AddProduct(menuID, sectionID string, product models.Product) (bool, error) {
	return s.Add(Path{menuID, sectionID}, product)
}

func (s *Store) AddOptionGroup(menuID, sectionID, productID string, group models.OptionGroup) (bool, error) {
	return s.Add(Path{menuID, sectionID, productID}, group)
}

func (s *Store) AddOption(menuID, sectionID, productID, groupID string, option models.Option) (bool, error) {
	return s.Add(Path{menuID, sectionID, productID, groupID}, option)
}

// Update shallow-merges patch into the node at path. A missing node is ignored
// and reported as false; id, parent-reference and child keys are never applied.
func (s *Store) Update(path Path, patch models.Patch) (bool, error) {
	_, found, err := s.Apply(path, patch)
	return found, err
}

// Apply is Update that also returns the clock stamp recorded on every
// written field.
func (s *Store) Apply(path Path, patch models.Patch) (uint64, bool, error) {
	s.mu.Lock()
	h, ok := s.resolveLocked(path)
	if !ok {
		s.mu.Unlock()
		utils.InfoLogger.WithFields(logrus.Fields{
			"path":  path.String(),
			"patch": patch.Keys(),
		}).Debug("catalog update ignored, node not found")
		return 0, false, nil
	}
	sl := s.slots[h]
	next, err := applyPatch(sl.level, sl.entity, patch)
	if err != nil {
		s.mu.Unlock()
		return 0, false, err
	}
	sl.entity = next
	sl.version++
	s.clock++
	if sl.stamps == nil {
		sl.stamps = make(map[string]uint64, len(patch))
	}
	for _, k := range patch.Without(protectedKeys[sl.level]...).Keys() {
		sl.stamps[k] = s.clock
	}
	stamp := s.clock
	s.mu.Unlock()

	s.changed()
	return stamp, true, nil
}

// WrittenSince returns the keys of the node written after the clock stamp
// since. A node inserted after since counts as rewritten on every key.
func (s *Store) WrittenSince(path Path, since uint64, keys []string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.resolveLocked(path)
	if !ok {
		return nil, false
	}
	sl := s.slots[h]
	var out []string
	for _, k := range keys {
		if sl.born > since || sl.stamps[k] > since {
			out = append(out, k)
		}
	}
	return out, true
}

// HasTempDescendant -> true kalau subtree di bawah path masih memuat node dengan id sementara
func (s *Store) HasTempDescendant(path Path) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.resolveLocked(path)
	if !ok {
		return false
	}
	return s.tempBelowLocked(h)
}

func (s *Store) tempBelowLocked(h handle) bool {
	for _, c := range s.slots[h].children {
		if utils.IsTempID(s.slots[c].id) || s.tempBelowLocked(c) {
			return true
		}
	}
	return false
}

// Delete removes the node and its whole subtree.
func (s *Store) Delete(path Path) bool {
	s.mu.Lock()
	h, ok := s.resolveLocked(path)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.removeLocked(h)
	s.mu.Unlock()

	s.changed()
	return true
}

// ReplaceID rewrites the id of the child tempID under parentPath to realID.
// Descendants keep their ids. When the parent already holds a child with
// realID the temp node is dropped instead, so ids stay unique per parent.
func (s *Store) ReplaceID(level Level, parentPath Path, tempID, realID string) error {
	if !level.Valid() || len(parentPath) != int(level) {
		return fmt.Errorf("%w: %s under %q", ErrLevelMismatch, level, parentPath.String())
	}
	if realID == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	ph, ok := s.resolveLocked(parentPath)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrParentNotFound, parentPath.String())
	}
	h, ok := s.index[level][childKey{ph, tempID}]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s %s", ErrNotFound, level, tempID)
	}
	if tempID == realID {
		s.mu.Unlock()
		return nil
	}
	if _, exists := s.index[level][childKey{ph, realID}]; exists {
		s.removeLocked(h)
		s.mu.Unlock()
		utils.InfoLogger.WithFields(logrus.Fields{
			"level":   level.String(),
			"temp_id": tempID,
			"real_id": realID,
		}).Info("catalog: canonical node already present, temp node dropped")
		s.changed()
		return nil
	}
	sl := s.slots[h]
	delete(s.index[level], childKey{ph, tempID})
	sl.id = realID
	setEntityID(sl.entity, realID)
	s.index[level][childKey{ph, realID}] = h
	s.mu.Unlock()

	s.changed()
	return nil
}

// Version returns the node's write counter; it grows on every Update.
func (s *Store) Version(path Path) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.resolveLocked(path)
	if !ok {
		return 0, false
	}
	return s.slots[h].version, true
}

// Capture returns the current values of keys on the node at path, deep-copied.
// Keys the entity does not have are left out.
func (s *Store) Capture(path Path, keys []string) (models.Patch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.resolveLocked(path)
	if !ok {
		return nil, false
	}
	p, err := capture(s.slots[h].entity, keys)
	if err != nil {
		utils.ErrorLogger.Errorf("catalog: capture %s: %v", path.String(), err)
		return nil, false
	}
	return p, true
}

// Has -> true kalau node ada
func (s *Store) Has(path Path) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.resolveLocked(path)
	return ok
}

func (s *Store) resolveLocked(path Path) (handle, bool) {
	if len(path) > levelCount {
		return 0, false
	}
	h := rootHandle
	for i, id := range path {
		next, ok := s.index[i][childKey{h, id}]
		if !ok {
			return 0, false
		}
		h = next
	}
	return h, true
}

// insertLocked adds a single node; pos < 0 appends, otherwise pos is clamped
// to the parent's child count.
func (s *Store) insertLocked(parent handle, level Level, id string, ent interface{}, pos int) handle {
	h := s.next
	s.next++
	s.clock++
	p := s.slots[parent]
	setParentRef(ent, p.id)
	s.slots[h] = &slot{
		level:   level,
		id:      id,
		parent:  parent,
		entity:  ent,
		version: 1,
		born:    s.clock,
	}
	s.index[level][childKey{parent, id}] = h

	if pos < 0 || pos >= len(p.children) {
		p.children = append(p.children, h)
	} else {
		p.children = append(p.children, 0)
		copy(p.children[pos+1:], p.children[pos:])
		p.children[pos] = h
	}
	return h
}

// insertTreeLocked inserts a typed subtree (node plus nested children).
func (s *Store) insertTreeLocked(parent handle, level Level, entity interface{}, pos int) {
	id, ent, err := detach(level, entity)
	if err != nil {
		utils.ErrorLogger.Errorf("catalog: skip %s: %v", level, err)
		return
	}
	if _, exists := s.index[level][childKey{parent, id}]; exists {
		utils.ErrorLogger.Errorf("catalog: duplicate %s id %s skipped", level, id)
		return
	}
	h := s.insertLocked(parent, level, id, ent, pos)

	switch v := entity.(type) {
	case *models.Menu:
		for i := range v.Sections {
			s.insertTreeLocked(h, LevelSection, &v.Sections[i], -1)
		}
	case *models.Section:
		for i := range v.Products {
			s.insertTreeLocked(h, LevelProduct, &v.Products[i], -1)
		}
	case *models.Product:
		for i := range v.OptionGroups {
			s.insertTreeLocked(h, LevelOptionGroup, &v.OptionGroups[i], -1)
		}
	case *models.OptionGroup:
		for i := range v.Options {
			s.insertTreeLocked(h, LevelOption, &v.Options[i], -1)
		}
	}
}

func (s *Store) removeLocked(h handle) {
	sl := s.slots[h]
	p := s.slots[sl.parent]
	for i, c := range p.children {
		if c == h {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	s.freeLocked(h)
}

func (s *Store) freeLocked(h handle) {
	sl := s.slots[h]
	for _, c := range sl.children {
		s.freeLocked(c)
	}
	delete(s.index[sl.level], childKey{sl.parent, sl.id})
	delete(s.slots, h)
}
