package markup

// Attr is one attribute; order is preserved from the source.
type Attr struct {
	Name  string
	Value string
}

// Element is a node of a composition document.
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []*Element
	Text     string
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// ID returns the id attribute, or "" when absent.
func (e *Element) ID() string {
	return e.AttrOr("id", "")
}

// SetAttr sets or appends an attribute.
func (e *Element) SetAttr(name, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes an attribute and reports whether it existed.
func (e *Element) RemoveAttr(name string) bool {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs = append(e.Attrs[:i], e.Attrs[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of e.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := &Element{
		Tag:   e.Tag,
		Text:  e.Text,
		Attrs: append([]Attr(nil), e.Attrs...),
	}
	if len(e.Children) > 0 {
		c.Children = make([]*Element, len(e.Children))
		for i, child := range e.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Walk visits e and its descendants depth-first in document order.
// Returning false from fn skips the node's children.
func (e *Element) Walk(fn func(el, parent *Element) bool) {
	var visit func(el, parent *Element)
	visit = func(el, parent *Element) {
		if !fn(el, parent) {
			return
		}
		for _, c := range el.Children {
			visit(c, el)
		}
	}
	visit(e, nil)
}

// Index maps element ids to nodes and nodes to their parents.
type Index struct {
	byID   map[string]*Element
	parent map[*Element]*Element
	dups   []string
}

// BuildIndex indexes every element of root carrying an id. Duplicate ids are
// recorded (first occurrence wins) and reported by Duplicates.
func BuildIndex(root *Element) *Index {
	idx := &Index{
		byID:   make(map[string]*Element),
		parent: make(map[*Element]*Element),
	}
	root.Walk(func(el, parent *Element) bool {
		if parent != nil {
			idx.parent[el] = parent
		}
		if id := el.ID(); id != "" {
			if _, seen := idx.byID[id]; seen {
				idx.dups = append(idx.dups, id)
			} else {
				idx.byID[id] = el
			}
		}
		return true
	})
	return idx
}

// Lookup returns the element with the given id.
func (idx *Index) Lookup(id string) (*Element, bool) {
	el, ok := idx.byID[id]
	return el, ok
}

// Parent returns the parent of el, or nil for the root.
func (idx *Index) Parent(el *Element) *Element {
	return idx.parent[el]
}

// Duplicates returns ids that appear more than once, in document order.
func (idx *Index) Duplicates() []string {
	return idx.dups
}

// Ancestors returns el's ancestors from its parent up to the root.
func (idx *Index) Ancestors(el *Element) []*Element {
	var out []*Element
	for p := idx.parent[el]; p != nil; p = idx.parent[p] {
		out = append(out, p)
	}
	return out
}
