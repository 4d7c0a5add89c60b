package markup

import (
	"fmt"
	"slices"
)

// Op names a structural patch operation.
type Op string

const (
	OpAppend    Op = "append"
	OpRemove    Op = "remove"
	OpSetAttr   Op = "set-attr"
	OpClearAttr Op = "clear-attr"
	OpSetText   Op = "set-text"
	OpReplace   Op = "replace"
	OpSeal      Op = "seal"
)

// Patch is one edit addressed to an element by id. For append, Target is the
// parent. Node may be supplied directly; otherwise Markup is parsed.
type Patch struct {
	Op     Op       `yaml:"op" json:"op"`
	Target string   `yaml:"target" json:"target"`
	Index  *int     `yaml:"index,omitempty" json:"index,omitempty"`
	Name   string   `yaml:"name,omitempty" json:"name,omitempty"`
	Value  string   `yaml:"value,omitempty" json:"value,omitempty"`
	Markup string   `yaml:"node,omitempty" json:"node,omitempty"`
	Node   *Element `yaml:"-" json:"-"`
}

// patchState is the working copy a batch is applied to.
type patchState struct {
	root    *Element
	idx     *Index
	sealed  map[string]bool
	enforce bool
}

func (s *patchState) apply(i int, p Patch) error {
	fail := func(code PatchErrorCode, format string, args ...any) error {
		return &PatchError{Code: code, Index: i, Op: p.Op, Target: p.Target, Message: fmt.Sprintf(format, args...)}
	}

	target, ok := s.idx.Lookup(p.Target)
	if !ok {
		return fail(ErrCodeMissingTarget, "no element with id %q", p.Target)
	}
	if s.enforce && p.Op != OpSeal && s.underSealedScene(target) {
		return fail(ErrCodeSealed, "element is inside a sealed scene")
	}

	switch p.Op {
	case OpAppend:
		node, err := p.node()
		if err != nil {
			return fail(ErrCodeInvalidNode, "%v", err)
		}
		if dup := s.collidingID(node); dup != "" {
			return fail(ErrCodeDuplicateID, "id %q already exists", dup)
		}
		at := len(target.Children)
		if p.Index != nil {
			at = *p.Index
			if at < 0 || at > len(target.Children) {
				return fail(ErrCodeInvalidTarget, "index %d out of range [0,%d]", at, len(target.Children))
			}
		}
		target.Children = slices.Insert(target.Children, at, node)
		s.reindex()

	case OpRemove:
		parent := s.idx.Parent(target)
		if parent == nil {
			return fail(ErrCodeInvalidTarget, "cannot remove the root element")
		}
		parent.Children = slices.DeleteFunc(parent.Children, func(c *Element) bool { return c == target })
		s.reindex()

	case OpSetAttr:
		if p.Name == "" {
			return fail(ErrCodeInvalidTarget, "set-attr requires a name")
		}
		if p.Name == "id" && p.Value != p.Target {
			if _, taken := s.idx.Lookup(p.Value); taken {
				return fail(ErrCodeDuplicateID, "id %q already exists", p.Value)
			}
		}
		target.SetAttr(p.Name, p.Value)
		if p.Name == "id" {
			s.reindex()
		}

	case OpClearAttr:
		if p.Name == "" {
			return fail(ErrCodeInvalidTarget, "clear-attr requires a name")
		}
		target.RemoveAttr(p.Name)
		if p.Name == "id" {
			s.reindex()
		}

	case OpSetText:
		target.Text = p.Value

	case OpReplace:
		node, err := p.node()
		if err != nil {
			return fail(ErrCodeInvalidNode, "%v", err)
		}
		if dup := s.collidingIDExcept(node, target); dup != "" {
			return fail(ErrCodeDuplicateID, "id %q already exists", dup)
		}
		parent := s.idx.Parent(target)
		if parent == nil {
			s.root = node
		} else {
			i := slices.Index(parent.Children, target)
			parent.Children[i] = node
		}
		s.reindex()

	case OpSeal:
		if target.Tag != "scene" {
			return fail(ErrCodeInvalidTarget, "only scenes can be sealed, got <%s>", target.Tag)
		}
		s.sealed[p.Target] = true

	default:
		return fail(ErrCodeUnknownOp, "unknown op %q", p.Op)
	}
	return nil
}

func (s *patchState) reindex() {
	s.idx = BuildIndex(s.root)
}

func (s *patchState) underSealedScene(el *Element) bool {
	for _, e := range append([]*Element{el}, s.idx.Ancestors(el)...) {
		if e.Tag == "scene" && s.sealed[e.ID()] {
			return true
		}
	}
	return false
}

func (s *patchState) collidingID(node *Element) string {
	return s.collidingIDExcept(node, nil)
}

// collidingIDExcept returns the first id in node that is already used in the
// document outside the subtree rooted at skip.
func (s *patchState) collidingIDExcept(node, skip *Element) string {
	owned := map[*Element]bool{}
	if skip != nil {
		skip.Walk(func(el, _ *Element) bool {
			owned[el] = true
			return true
		})
	}
	var dup string
	node.Walk(func(el, _ *Element) bool {
		if dup != "" {
			return false
		}
		id := el.ID()
		if id == "" {
			return true
		}
		if existing, ok := s.idx.Lookup(id); ok && !owned[existing] {
			dup = id
		}
		return true
	})
	return dup
}

func (p Patch) node() (*Element, error) {
	if p.Node != nil {
		return p.Node.Clone(), nil
	}
	if p.Markup == "" {
		return nil, fmt.Errorf("%s requires a node", p.Op)
	}
	return ParseString(p.Markup)
}
