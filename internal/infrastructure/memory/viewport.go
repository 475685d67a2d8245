package memory

import "sync"

// Viewport is an in-memory ViewportObserver. Hosts embed a real renderer's
// pan/zoom state here; the demo server and tests drive it directly.
type Viewport struct {
	mu        sync.RWMutex
	zoom      float64
	listeners []func(float64)
}

// NewViewport creates a viewport at the given initial zoom.
func NewViewport(zoom float64) *Viewport {
	return &Viewport{zoom: zoom}
}

// Zoom returns the current zoom value.
func (v *Viewport) Zoom() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom
}

// OnZoomChanged registers a change listener.
func (v *Viewport) OnZoomChanged(fn func(zoom float64)) {
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

// SetZoom updates the zoom and notifies listeners.
func (v *Viewport) SetZoom(zoom float64) {
	v.mu.Lock()
	v.zoom = zoom
	listeners := make([]func(float64), len(v.listeners))
	copy(listeners, v.listeners)
	v.mu.Unlock()

	for _, fn := range listeners {
		fn(zoom)
	}
}
