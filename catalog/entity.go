package catalog

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/yeremiapane/restaurant-dashboard/models"
)

// Key yang tidak boleh diubah lewat patch: id, referensi parent, dan koleksi child.
var protectedKeys = [levelCount][]string{
	{"id", "business_id", "sections"},
	{"id", "menu_id", "products"},
	{"id", "section_id", "option_groups"},
	{"id", "product_id", "options"},
	{"id", "group_id"},
}

// ProtectedKeys returns the patch keys Update always ignores at the given level.
func ProtectedKeys(level Level) []string {
	if !level.Valid() {
		return nil
	}
	out := make([]string, len(protectedKeys[level]))
	copy(out, protectedKeys[level])
	return out
}

// pointerOf -> entity (value atau pointer non-nil) sebagai pointer; nil kalau bukan entity catalog
func pointerOf(entity interface{}) interface{} {
	switch v := entity.(type) {
	case models.Menu:
		return &v
	case *models.Menu:
		if v != nil {
			return v
		}
	case models.Section:
		return &v
	case *models.Section:
		if v != nil {
			return v
		}
	case models.Product:
		return &v
	case *models.Product:
		if v != nil {
			return v
		}
	case models.OptionGroup:
		return &v
	case *models.OptionGroup:
		if v != nil {
			return v
		}
	case models.Option:
		return &v
	case *models.Option:
		if v != nil {
			return v
		}
	}
	return nil
}

// detach normalises a caller-supplied entity (value or pointer) into a private
// pointer copy with an empty child collection.
func detach(level Level, entity interface{}) (string, interface{}, error) {
	ent := pointerOf(entity)
	if ent == nil || entityLevel(ent) != level {
		return "", nil, fmt.Errorf("%w: %T at %s", ErrLevelMismatch, entity, level)
	}
	ent = cloneEntity(ent)
	id := entityID(ent)
	if id == "" {
		return "", nil, ErrEmptyID
	}
	return id, ent, nil
}

// WithID returns a copy of entity (as a value, children dropped) carrying id.
func WithID(level Level, entity interface{}, id string) (interface{}, error) {
	ent := pointerOf(entity)
	if ent == nil || entityLevel(ent) != level {
		return nil, fmt.Errorf("%w: %T at %s", ErrLevelMismatch, entity, level)
	}
	ent = cloneEntity(ent)
	setEntityID(ent, id)
	return deref(ent), nil
}

func entityLevel(ent interface{}) Level {
	switch ent.(type) {
	case *models.Menu:
		return LevelMenu
	case *models.Section:
		return LevelSection
	case *models.Product:
		return LevelProduct
	case *models.OptionGroup:
		return LevelOptionGroup
	case *models.Option:
		return LevelOption
	}
	return -1
}

// cloneEntity -> salinan pointer baru, koleksi child selalu nil
func cloneEntity(ent interface{}) interface{} {
	switch v := ent.(type) {
	case *models.Menu:
		c := *v
		c.Sections = nil
		return &c
	case *models.Section:
		c := *v
		c.Products = nil
		c.ImageURLs = cloneStrings(v.ImageURLs)
		return &c
	case *models.Product:
		c := *v
		c.OptionGroups = nil
		return &c
	case *models.OptionGroup:
		c := *v
		c.Options = nil
		return &c
	case *models.Option:
		c := *v
		return &c
	}
	return nil
}

func entityID(ent interface{}) string {
	switch v := ent.(type) {
	case *models.Menu:
		return v.ID
	case *models.Section:
		return v.ID
	case *models.Product:
		return v.ID
	case *models.OptionGroup:
		return v.ID
	case *models.Option:
		return v.ID
	}
	return ""
}

func setEntityID(ent interface{}, id string) {
	switch v := ent.(type) {
	case *models.Menu:
		v.ID = id
	case *models.Section:
		v.ID = id
	case *models.Product:
		v.ID = id
	case *models.OptionGroup:
		v.ID = id
	case *models.Option:
		v.ID = id
	}
}

// setParentRef keeps the stored parent-reference field in line with the actual parent.
func setParentRef(ent interface{}, parentID string) {
	switch v := ent.(type) {
	case *models.Section:
		v.MenuID = parentID
	case *models.Product:
		v.SectionID = parentID
	case *models.OptionGroup:
		v.ProductID = parentID
	case *models.Option:
		v.GroupID = parentID
	}
}

// applyPatch decodes the patch into a copy of ent and returns the copy, so a
// failed decode never leaves a half-applied node behind.
func applyPatch(level Level, ent interface{}, patch models.Patch) (interface{}, error) {
	clean := patch.Without(protectedKeys[level]...)
	target := cloneEntity(ent)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     target,
		ZeroFields: true,
		TagName:    "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(map[string]interface{}(clean)); err != nil {
		return nil, fmt.Errorf("catalog: apply patch to %s: %w", level, err)
	}
	return target, nil
}

// capture -> nilai field saat ini untuk key yang diminta (previous-values patch)
func capture(ent interface{}, keys []string) (models.Patch, error) {
	current := map[string]interface{}{}
	if err := mapstructure.Decode(ent, &current); err != nil {
		return nil, err
	}
	out := make(models.Patch, len(keys))
	for _, k := range keys {
		if v, ok := current[k]; ok {
			out[k] = copyValue(v)
		}
	}
	return out, nil
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []string:
		return cloneStrings(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		copy(out, t)
		return out
	}
	return v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
