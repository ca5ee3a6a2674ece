package catalog

import (
	"fmt"

	"github.com/yeremiapane/restaurant-dashboard/models"
)

// Snapshot is a deep copy of a subtree plus where it sat in its parent.
type Snapshot struct {
	ParentPath Path
	Position   int
	Level      Level
	Node       interface{} // models.Menu, models.Section, ... with children

	// write history per node, key = path relatif terhadap node snapshot
	meta map[string]nodeMeta
}

type nodeMeta struct {
	version uint64
	born    uint64
	stamps  map[string]uint64
}

// ID of the captured node.
func (sn Snapshot) ID() string {
	switch v := sn.Node.(type) {
	case models.Menu:
		return v.ID
	case models.Section:
		return v.ID
	case models.Product:
		return v.ID
	case models.OptionGroup:
		return v.ID
	case models.Option:
		return v.ID
	}
	return ""
}

// Path of the captured node.
func (sn Snapshot) Path() Path {
	return sn.ParentPath.Child(sn.ID())
}

func (s *Store) Snapshot(path Path) (Snapshot, bool) {
	if len(path) == 0 {
		return Snapshot{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.resolveLocked(path)
	if !ok {
		return Snapshot{}, false
	}
	sl := s.slots[h]
	pos := 0
	for i, c := range s.slots[sl.parent].children {
		if c == h {
			pos = i
			break
		}
	}
	meta := make(map[string]nodeMeta)
	s.collectMetaLocked(h, Path{}, meta)
	return Snapshot{
		ParentPath: path.Parent().Clone(),
		Position:   pos,
		Level:      sl.level,
		Node:       deref(s.buildLocked(h)),
		meta:       meta,
	}, true
}

func (s *Store) collectMetaLocked(h handle, rel Path, out map[string]nodeMeta) {
	sl := s.slots[h]
	stamps := make(map[string]uint64, len(sl.stamps))
	for k, v := range sl.stamps {
		stamps[k] = v
	}
	out[rel.String()] = nodeMeta{version: sl.version, born: sl.born, stamps: stamps}
	for _, c := range sl.children {
		s.collectMetaLocked(c, rel.Child(s.slots[c].id), out)
	}
}

// restoreMetaLocked -> node hasil restore membawa lagi version dan stamp lamanya
func (s *Store) restoreMetaLocked(h handle, rel Path, meta map[string]nodeMeta) {
	sl := s.slots[h]
	if m, ok := meta[rel.String()]; ok {
		sl.version = m.version
		sl.born = m.born
		sl.stamps = make(map[string]uint64, len(m.stamps))
		for k, v := range m.stamps {
			sl.stamps[k] = v
		}
	}
	for _, c := range sl.children {
		s.restoreMetaLocked(c, rel.Child(s.slots[c].id), meta)
	}
}

// Restore re-inserts a snapshot at its recorded position (clamped to the
// current sibling count). Restoring a node whose id is already present under
// the parent is a no-op.
func (s *Store) Restore(sn Snapshot) error {
	if !sn.Level.Valid() || len(sn.ParentPath) != int(sn.Level) {
		return fmt.Errorf("%w: snapshot %s under %q", ErrLevelMismatch, sn.Level, sn.ParentPath.String())
	}
	node := pointerOf(sn.Node)
	if node == nil || entityLevel(node) != sn.Level {
		return fmt.Errorf("%w: snapshot node %T", ErrLevelMismatch, sn.Node)
	}

	s.mu.Lock()
	ph, ok := s.resolveLocked(sn.ParentPath)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrParentNotFound, sn.ParentPath.String())
	}
	if _, exists := s.index[sn.Level][childKey{ph, entityID(node)}]; exists {
		s.mu.Unlock()
		return nil
	}
	s.insertTreeLocked(ph, sn.Level, node, sn.Position)
	if h, ok := s.index[sn.Level][childKey{ph, entityID(node)}]; ok && sn.meta != nil {
		s.restoreMetaLocked(h, Path{}, sn.meta)
	}
	s.mu.Unlock()

	s.changed()
	return nil
}
