// Package route names the navigation targets the components can request.
package route

import "sync"

// Navigation targets
const (
	Login   = "/login"
	Parties = "/parties"
)

// Navigator receives navigation events emitted by the session and the forms.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to the Navigator interface
type NavigatorFunc func(path string)

// Navigate calls f(path)
func (f NavigatorFunc) Navigate(path string) { f(path) }

// Discard is a Navigator that ignores every event
var Discard Navigator = NavigatorFunc(func(string) {})

// Recorder is a Navigator that remembers every path it was sent to.
type Recorder struct {
	mu    sync.Mutex
	paths []string
}

// Navigate records path
func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Paths returns a copy of the recorded paths in order
func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Last returns the most recent path, or "" if none
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.paths) == 0 {
		return ""
	}
	return r.paths[len(r.paths)-1]
}
