package catalog

import "github.com/yeremiapane/restaurant-dashboard/models"

// Menus returns a deep copy of the whole tree in insertion order.
func (s *Store) Menus() []models.Menu {
	s.mu.RLock()
	defer s.mu.RUnlock()
	root := s.slots[rootHandle]
	out := make([]models.Menu, 0, len(root.children))
	for _, h := range root.children {
		out = append(out, *s.buildLocked(h).(*models.Menu))
	}
	return out
}

// BusinessID -> business pemilik menu
func (s *Store) BusinessID(menuID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.index[LevelMenu][childKey{rootHandle, menuID}]
	if !ok {
		return "", false
	}
	return s.slots[h].entity.(*models.Menu).BusinessID, true
}

func (s *Store) Menu(id string) (models.Menu, bool) {
	n, ok := s.Node(Path{id})
	if !ok {
		return models.Menu{}, false
	}
	return n.(models.Menu), true
}

func (s *Store) Section(path Path) (models.Section, bool) {
	if path.Level() != LevelSection {
		return models.Section{}, false
	}
	n, ok := s.Node(path)
	if !ok {
		return models.Section{}, false
	}
	return n.(models.Section), true
}

func (s *Store) Product(path Path) (models.Product, bool) {
	if path.Level() != LevelProduct {
		return models.Product{}, false
	}
	n, ok := s.Node(path)
	if !ok {
		return models.Product{}, false
	}
	return n.(models.Product), true
}

func (s *Store) OptionGroup(path Path) (models.OptionGroup, bool) {
	if path.Level() != LevelOptionGroup {
		return models.OptionGroup{}, false
	}
	n, ok := s.Node(path)
	if !ok {
		return models.OptionGroup{}, false
	}
	return n.(models.OptionGroup), true
}

func (s *Store) Option(path Path) (models.Option, bool) {
	if path.Level() != LevelOption {
		return models.Option{}, false
	}
	n, ok := s.Node(path)
	if !ok {
		return models.Option{}, false
	}
	return n.(models.Option), true
}

// Node returns a deep copy of the node at path as a value (models.Menu,
// models.Section, ...) including all of its descendants.
func (s *Store) Node(path Path) (interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.resolveLocked(path)
	if !ok {
		return nil, false
	}
	return deref(s.buildLocked(h)), true
}

// buildLocked materialises the subtree under h as nested model values.
// Parent references come from the actual parent slot.
func (s *Store) buildLocked(h handle) interface{} {
	sl := s.slots[h]
	ent := cloneEntity(sl.entity)
	setParentRef(ent, s.slots[sl.parent].id)

	switch v := ent.(type) {
	case *models.Menu:
		v.Sections = make([]models.Section, 0, len(sl.children))
		for _, c := range sl.children {
			v.Sections = append(v.Sections, *s.buildLocked(c).(*models.Section))
		}
	case *models.Section:
		v.Products = make([]models.Product, 0, len(sl.children))
		for _, c := range sl.children {
			v.Products = append(v.Products, *s.buildLocked(c).(*models.Product))
		}
	case *models.Product:
		v.OptionGroups = make([]models.OptionGroup, 0, len(sl.children))
		for _, c := range sl.children {
			v.OptionGroups = append(v.OptionGroups, *s.buildLocked(c).(*models.OptionGroup))
		}
	case *models.OptionGroup:
		v.Options = make([]models.Option, 0, len(sl.children))
		for _, c := range sl.children {
			v.Options = append(v.Options, *s.buildLocked(c).(*models.Option))
		}
	}
	return ent
}

func deref(ent interface{}) interface{} {
	switch v := ent.(type) {
	case *models.Menu:
		return *v
	case *models.Section:
		return *v
	case *models.Product:
		return *v
	case *models.OptionGroup:
		return *v
	case *models.Option:
		return *v
	}
	return nil
}
