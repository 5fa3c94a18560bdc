// Package querystate holds the search text carried by the page address in
// the "q" query parameter.
package querystate

import (
	"net/url"
	"sync"
)

// Param is the query parameter that carries the search text.
const Param = "q"

// State owns the current page address and the history entries pushed while
// rewriting it. Writes never navigate; they only replace the held URL and
// record the new address.
type State struct {
	mu      sync.RWMutex
	current url.URL
	history []string
}

// New seeds the state from u. A nil u means "/".
func New(u *url.URL) *State {
	s := &State{}
	if u == nil {
		s.current = url.URL{Path: "/"}
	} else {
		s.current = *u
	}
	return s
}

// Parse is New for a raw address such as "/?q=AI".
func Parse(raw string) (*State, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return New(u), nil
}

// Get returns the raw value of q and whether it is set.
func (s *State) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := s.current.Query()
	if !values.Has(Param) {
		return "", false
	}
	return values.Get(Param), true
}

// Set rewrites the address to carry q=value, keeping other parameters.
func (s *State) Set(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.current.Query()
	values.Set(Param, value)
	s.current.RawQuery = values.Encode()
	s.push()
}

// Clear removes q from the address, keeping other parameters.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := s.current.Query()
	values.Del(Param)
	s.current.RawQuery = values.Encode()
	s.push()
}

// URL returns a copy of the current address.
func (s *State) URL() *url.URL {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u := s.current
	return &u
}

// String returns the current address in request-URI form.
func (s *State) String() string {
	return s.URL().RequestURI()
}

// History returns the addresses pushed by Set and Clear, oldest first.
func (s *State) History() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// push must be called with mu held.
func (s *State) push() {
	s.history = append(s.history, s.current.RequestURI())
}
