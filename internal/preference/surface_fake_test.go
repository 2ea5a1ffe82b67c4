package preference

import (
	"slices"
	"sync"
)

type fakeNode struct {
	mu      sync.Mutex
	classes []string
	vis     Visibility
	sets    int
}

func (n *fakeNode) HasClass(class string) bool { return slices.Contains(n.classes, class) }

func (n *fakeNode) SetVisibility(v Visibility) {
	n.mu.Lock()
	n.vis = v
	n.sets++
	n.mu.Unlock()
}

func (n *fakeNode) visibility() Visibility {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vis
}

func (n *fakeNode) touched() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sets
}

// fakeSurface is a flat tree; observable controls whether it implements Observable.
type fakeSurface struct {
	mu    sync.Mutex
	nodes []*fakeNode
	attrs map[string]string
}

func newFakeSurface(classes ...string) *fakeSurface {
	s := &fakeSurface{attrs: map[string]string{}}
	for _, c := range classes {
		s.nodes = append(s.nodes, &fakeNode{classes: []string{c}})
	}
	return s
}

func (s *fakeSurface) Nodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n
	}
	return out
}

func (s *fakeSurface) SetAttribute(name, value string) {
	s.mu.Lock()
	s.attrs[name] = value
	s.mu.Unlock()
}

func (s *fakeSurface) attr(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs[name]
}

// insert adds a node in the given visibility without notifying anyone.
func (s *fakeSurface) insert(class string, v Visibility) *fakeNode {
	n := &fakeNode{classes: []string{class}, vis: v}
	s.mu.Lock()
	s.nodes = append(s.nodes, n)
	s.mu.Unlock()
	return n
}

func (s *fakeSurface) byTag(tag string) []*fakeNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeNode
	for _, n := range s.nodes {
		if n.HasClass(tag) {
			out = append(out, n)
		}
	}
	return out
}

type observableSurface struct {
	*fakeSurface

	obsMu     sync.Mutex
	observers map[int]func()
	next      int
}

func newObservableSurface(classes ...string) *observableSurface {
	return &observableSurface{fakeSurface: newFakeSurface(classes...), observers: map[int]func(){}}
}

func (s *observableSurface) Observe(fn func()) func() {
	s.obsMu.Lock()
	id := s.next
	s.next++
	s.observers[id] = fn
	s.obsMu.Unlock()
	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *observableSurface) insertAndNotify(class string, v Visibility) *fakeNode {
	n := s.insert(class, v)
	s.obsMu.Lock()
	fns := make([]func(), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return n
}

func (s *observableSurface) observerCount() int {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	return len(s.observers)
}
