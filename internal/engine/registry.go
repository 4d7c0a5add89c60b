package engine

// Registry owns the timelines of every synchronization group in a process.
//
// The first timeline created becomes the default, used by players that do
// not name a group. Timelines live as long as the registry; detaching the
// last subscriber never removes one.
//
// Thread-safety: Registry is NOT safe for concurrent use. Like Timeline it
// is confined to the driver goroutine.
type Registry struct {
	timelines map[string]*Timeline
	order     []string
	def       *Timeline
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{timelines: make(map[string]*Timeline)}
}

// Timeline returns the timeline for group, creating it with opts on first
// reference. opts are ignored for an existing group.
func (r *Registry) Timeline(group string, opts TimelineOptions) *Timeline {
	if tl, ok := r.timelines[group]; ok {
		return tl
	}
	tl := newTimeline(group, opts)
	r.timelines[group] = tl
	r.order = append(r.order, group)
	if r.def == nil {
		r.def = tl
	}
	return tl
}

// Lookup returns the timeline for group without creating one. The empty
// group names the default timeline.
func (r *Registry) Lookup(group string) (*Timeline, bool) {
	if group == "" {
		return r.def, r.def != nil
	}
	tl, ok := r.timelines[group]
	return tl, ok
}

// Default returns the first timeline created, or nil.
func (r *Registry) Default() *Timeline { return r.def }

// Attach subscribes sub to the group's timeline.
// Returns an UNKNOWN_GROUP RuntimeError when the group has no timeline.
func (r *Registry) Attach(group string, sub Subscriber) (*Subscription, error) {
	tl, ok := r.Lookup(group)
	if !ok {
		return nil, NewUnknownGroupError(group)
	}
	return tl.attach(sub), nil
}

// Detach unsubscribes s. The timeline keeps running for its other
// subscribers. Returns false if s was already detached.
func (r *Registry) Detach(s *Subscription) bool {
	if s == nil || s.timeline == nil {
		return false
	}
	return s.timeline.detach(s)
}

// Groups returns group keys in creation order.
func (r *Registry) Groups() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Each calls fn for every timeline in creation order.
func (r *Registry) Each(fn func(*Timeline)) {
	for _, g := range r.order {
		fn(r.timelines[g])
	}
}
