package secmem

// Guard pairs a handle with its disposer under single ownership. The zero
// Guard is empty and disposes nothing.
type Guard[T any] struct {
	handle  T
	dispose func(T)
	held    bool
}

// NewGuard takes ownership of handle, to be released via dispose.
func NewGuard[T any](handle T, dispose func(T)) Guard[T] {
	return Guard[T]{handle: handle, dispose: dispose, held: true}
}

// Get returns the guarded handle. The guard retains ownership.
func (g *Guard[T]) Get() T { return g.handle }

// Held reports whether the guard currently owns a handle.
func (g *Guard[T]) Held() bool { return g.held }

// Release returns the handle and abandons ownership without disposing.
func (g *Guard[T]) Release() T {
	h := g.handle
	g.held = false
	var zero T
	g.handle = zero
	return h
}

// Reset disposes the current handle, if held, and takes ownership of a new
// one.
func (g *Guard[T]) Reset(handle T) {
	g.Close()
	g.handle = handle
	g.held = true
}

// Close disposes the handle if still held. Safe to call twice.
func (g *Guard[T]) Close() {
	if !g.held {
		return
	}
	if g.dispose != nil {
		g.dispose(g.handle)
	}
	g.held = false
	var zero T
	g.handle = zero
}
