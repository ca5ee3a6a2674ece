package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/restaurant-dashboard/utils"
)

// Level -> kedalaman node di catalog tree
type Level int

const (
	LevelMenu Level = iota
	LevelSection
	LevelProduct
	LevelOptionGroup
	LevelOption
)

const levelCount = 5

var collectionNames = [levelCount]string{"menus", "sections", "products", "option-groups", "options"}

var levelNames = [levelCount]string{"menu", "section", "product", "option_group", "option"}

func (l Level) Valid() bool {
	return l >= LevelMenu && l <= LevelOption
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Collection -> nama koleksi di URL (menus, sections, ...)
func (l Level) Collection() string {
	if !l.Valid() {
		return ""
	}
	return collectionNames[l]
}

// Path is the id chain from a menu down to a node: [menuID, sectionID, productID, ...].
// A node path of length n addresses a node at Level(n-1); the same path used as a
// parent path addresses that node's child collection at Level(n).
type Path []string

// Level of the node addressed by p.
func (p Path) Level() Level {
	return Level(len(p) - 1)
}

func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Child -> path baru untuk child dengan id tertentu, tanpa berbagi backing array
func (p Path) Child(id string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = id
	return out
}

func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// HasTempID -> true kalau salah satu segmen masih id sementara
func (p Path) HasTempID() bool {
	for _, id := range p {
		if utils.IsTempID(id) {
			return true
		}
	}
	return false
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

var ErrInvalidPath = errors.New("catalog: invalid resource path")

// ParseResourcePath parses "menus/m1/sections/s1" into Path{"m1", "s1"}.
// Collections must appear in tree order.
func ParseResourcePath(raw string) (Path, error) {
	segs := splitSegments(raw)
	if len(segs) == 0 || len(segs)%2 != 0 || len(segs)/2 > levelCount {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}
	path := make(Path, 0, len(segs)/2)
	for i := 0; i < len(segs); i += 2 {
		if segs[i] != collectionNames[i/2] || segs[i+1] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, raw)
		}
		path = append(path, segs[i+1])
	}
	return path, nil
}

// ParseCollectionPath parses "menus/m1/sections" into the parent path
// Path{"m1"} and the collection level LevelSection.
func ParseCollectionPath(raw string) (Path, Level, error) {
	segs := splitSegments(raw)
	if len(segs) == 0 || len(segs)%2 != 1 || len(segs)/2 >= levelCount {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}
	level := Level(len(segs) / 2)
	if segs[len(segs)-1] != level.Collection() {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}
	parent := Path{}
	if len(segs) > 1 {
		p, err := ParseResourcePath(strings.Join(segs[:len(segs)-1], "/"))
		if err != nil {
			return nil, 0, err
		}
		parent = p
	}
	return parent, level, nil
}

func splitSegments(raw string) []string {
	raw = strings.Trim(raw, "/")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "/")
}
