package markup

import (
	"maps"
	"slices"
	"sync"
)

// Change describes one committed patch batch.
type Change struct {
	Patches []Patch
}

// Document is a live composition tree that accepts patch batches.
//
// Each batch applies to a copy of the tree; the copy replaces the live tree
// only when every patch in the batch succeeds. Root returns the current tree,
// which callers must not modify.
type Document struct {
	mu        sync.Mutex
	root      *Element
	idx       *Index
	sealed    map[string]bool
	enforce   bool
	observers []observer
	nextObs   int
}

// observer is a registered change callback, kept in registration order.
type observer struct {
	id int
	fn func(Change)
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithSealing sets whether sealed scenes reject patches. Default true.
func WithSealing(enforce bool) DocumentOption {
	return func(d *Document) { d.enforce = enforce }
}

// NewDocument wraps a copy of root.
func NewDocument(root *Element, opts ...DocumentOption) *Document {
	d := &Document{
		root:      root.Clone(),
		sealed:    make(map[string]bool),
		enforce:   true,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.idx = BuildIndex(d.root)
	return d
}

// Root returns the current tree.
func (d *Document) Root() *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

// Lookup returns the element with the given id in the current tree.
func (d *Document) Lookup(id string) (*Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idx.Lookup(id)
}

// Sealed reports whether the scene with the given id is sealed.
func (d *Document) Sealed(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sealed[id]
}

// Apply applies a batch of patches atomically. On failure the returned error
// is a *PatchError and the document is unchanged. Observers are notified
// after a successful commit, outside the document lock.
func (d *Document) Apply(batch ...Patch) error {
	if len(batch) == 0 {
		return nil
	}

	d.mu.Lock()
	work := d.root.Clone()
	state := &patchState{
		root:    work,
		idx:     BuildIndex(work),
		sealed:  maps.Clone(d.sealed),
		enforce: d.enforce,
	}
	for i, p := range batch {
		if err := state.apply(i, p); err != nil {
			d.mu.Unlock()
			return err
		}
	}
	d.root = state.root
	d.idx = state.idx
	d.sealed = state.sealed
	observers := slices.Clone(d.observers)
	d.mu.Unlock()

	change := Change{Patches: batch}
	for _, o := range observers {
		o.fn(change)
	}
	return nil
}

// Observe registers fn to be called after every committed batch and returns
// a function that unregisters it. Observers run in registration order.
func (d *Document) Observe(fn func(Change)) (cancel func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextObs
	d.nextObs++
	d.observers = append(d.observers, observer{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.observers = slices.DeleteFunc(d.observers, func(o observer) bool { return o.id == id })
	}
}

// Serialize renders the current tree.
func (d *Document) Serialize() (string, error) {
	return Serialize(d.Root())
}
