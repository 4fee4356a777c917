// Package categorytree provides pure transformations over the storefront's
// 3-level category hierarchy (main → sub → base). The catalog service fetches
// the nested tree from the database; the functions here reshape that snapshot
// for selector widgets without mutating or owning it.
package categorytree

import "strings"

// MaxDepth is the deepest level the hierarchy supports. Level 1 is a main
// category, level 2 a sub category and level 3 a base (leaf) category.
const MaxDepth = 3

// Category is one node of the hierarchy. Children are populated only when the
// node was fetched as part of a tree; they are a read-model convenience, not
// an ownership relation.
type Category struct {
	ID       int64      `json:"id"`
	NameEn   string     `json:"name_en"`
	NameUr   string     `json:"name_ur"`
	NameAr   string     `json:"name_ar"`
	Slug     string     `json:"slug"`
	Level    int        `json:"level"`
	ParentID *int64     `json:"parent_id,omitempty"`
	Children []Category `json:"children,omitempty"`
}

// Name returns the display name for the given language code, falling back to
// English for unknown codes.
func (c Category) Name(lang string) string {
	switch lang {
	case "ur":
		if c.NameUr != "" {
			return c.NameUr
		}
	case "ar":
		if c.NameAr != "" {
			return c.NameAr
		}
	}
	return c.NameEn
}

// FlatCategory is one row of a flattened tree: the category plus a display
// name indented by its depth, ready for a dropdown.
type FlatCategory struct {
	Category
	DisplayName string `json:"display_name"`
}

// Flatten walks the tree depth-first and returns an ordered list where each
// entry's display name is prefixed with indentUnit repeated (level-1) times.
// Descent stops at maxLevel: nodes deeper than that are an ignorable data
// anomaly, not an error. A maxLevel <= 0 means MaxDepth; an empty indentUnit
// defaults to two spaces. Display names are English; use FlattenForLang for
// other languages.
func Flatten(tree []Category, maxLevel int, indentUnit string) []FlatCategory {
	return FlattenForLang(tree, maxLevel, indentUnit, "en")
}

// FlattenForLang is Flatten with display names resolved for the given
// language code, falling back to English.
func FlattenForLang(tree []Category, maxLevel int, indentUnit, lang string) []FlatCategory {
	if maxLevel <= 0 || maxLevel > MaxDepth {
		maxLevel = MaxDepth
	}
	if indentUnit == "" {
		indentUnit = "  "
	}
	var out []FlatCategory
	var walk func(nodes []Category)
	walk = func(nodes []Category) {
		for _, n := range nodes {
			if n.Level < 1 || n.Level > maxLevel {
				continue
			}
			indent := strings.Repeat(indentUnit, n.Level-1)
			flat := n
			flat.Children = nil
			out = append(out, FlatCategory{Category: flat, DisplayName: indent + n.Name(lang)})
			if n.Level < maxLevel {
				walk(n.Children)
			}
		}
	}
	walk(tree)
	return out
}

// FindBySlug searches the tree depth-first, parent before child, and returns
// the first category whose slug matches, including its children as present in
// the source tree. Returns nil when no node matches. Duplicate slugs are a
// data-quality concern; the first match in traversal order wins.
func FindBySlug(tree []Category, slug string) *Category {
	for i := range tree {
		if tree[i].Slug == slug {
			c := tree[i]
			return &c
		}
		if found := FindBySlug(tree[i].Children, slug); found != nil {
			return found
		}
	}
	return nil
}

// FilterByParent returns the entries of a flattened list whose parent matches
// parentID and whose level matches the expected child level. Used to populate
// cascading selects: picking a main category filters the sub categories, and
// picking a sub category filters the base categories.
func FilterByParent(flat []FlatCategory, parentID int64, level int) []FlatCategory {
	var out []FlatCategory
	for _, f := range flat {
		if f.Level == level && f.ParentID != nil && *f.ParentID == parentID {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks the structural invariants of a fetched tree: root nodes are
// level 1, every child sits exactly one level below its parent, nothing is
// deeper than MaxDepth and level-3 nodes have no children. Returns the first
// violation found.
func Validate(tree []Category) error {
	return validateLevel(tree, 1)
}

func validateLevel(nodes []Category, level int) error {
	for _, n := range nodes {
		if n.Level != level {
			return &InvalidTreeError{CategoryID: n.ID, Reason: "level mismatch"}
		}
		if len(n.Children) > 0 {
			if level >= MaxDepth {
				return &InvalidTreeError{CategoryID: n.ID, Reason: "children below max depth"}
			}
			for _, ch := range n.Children {
				if ch.ParentID == nil || *ch.ParentID != n.ID {
					return &InvalidTreeError{CategoryID: ch.ID, Reason: "parent reference mismatch"}
				}
			}
			if err := validateLevel(n.Children, level+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// InvalidTreeError reports a structural violation in a category tree.
type InvalidTreeError struct {
	CategoryID int64
	Reason     string
}

func (e *InvalidTreeError) Error() string {
	return "invalid category tree: " + e.Reason
}
