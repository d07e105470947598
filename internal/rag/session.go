package rag

import (
	"regexp"
	"strings"
	"sync"
)

var (
	linkReference = regexp.MustCompile(`(?i)\b(?:this|that) link\b`)
	roadReference = regexp.MustCompile(`(?i)\b(?:this|that) road\b`)
)

// SessionState is the small amount of memory a chat session keeps between
// turns: the link and road the user is working with.
type SessionState struct {
	mu   sync.RWMutex
	link string
	road string
}

// SessionSnapshot is a copy of SessionState.
type SessionSnapshot struct {
	Link string `json:"current_link,omitempty"`
	Road string `json:"current_road,omitempty"`
}

func (s *SessionState) SetLink(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link = strings.TrimSpace(id)
}

func (s *SessionState) SetRoad(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.road = strings.TrimSpace(name)
}

// Clear forgets the link and road.
func (s *SessionState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link, s.road = "", ""
}

func (s *SessionState) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionSnapshot{Link: s.link, Road: s.road}
}

// Resolve substitutes "this link"/"that link" and "this road"/"that road"
// with the current values. References with no value set are left alone.
func (s *SessionState) Resolve(question string) string {
	snap := s.Snapshot()
	if snap.Link != "" {
		question = linkReference.ReplaceAllLiteralString(question, snap.Link)
	}
	if snap.Road != "" {
		question = roadReference.ReplaceAllLiteralString(question, snap.Road)
	}
	return question
}
