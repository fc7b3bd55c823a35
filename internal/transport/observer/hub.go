package observer

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"voxelforge.ai/internal/protocol"
)

// Hub fans machine updates out to observer sessions. Publish is called from
// the world loop and never blocks: a session whose queue is full misses the
// update.
type Hub struct {
	log *log.Logger

	mu       sync.RWMutex
	sessions map[string]*session

	dropped atomic.Uint64
}

type session struct {
	id  string
	out chan []byte

	mu       sync.RWMutex
	machines map[string]bool
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hub{log: logger, sessions: map[string]*session{}}
}

func (h *Hub) Publish(msg protocol.MachineUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.sessions) == 0 {
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		h.log.Printf("observer: marshal update: %v", err)
		return
	}
	for _, s := range h.sessions {
		if !s.wants(msg.Machine) {
			continue
		}
		select {
		case s.out <- b:
		default:
			h.dropped.Add(1)
		}
	}
}

// Sessions is the number of attached observers.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Dropped counts updates skipped because a session queue was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

func (h *Hub) add(s *session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	h.mu.Unlock()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

func (s *session) setFilter(machines []string) {
	var m map[string]bool
	if len(machines) > 0 {
		m = make(map[string]bool, len(machines))
		for _, t := range machines {
			m[t] = true
		}
	}
	s.mu.Lock()
	s.machines = m
	s.mu.Unlock()
}

func (s *session) wants(machine string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.machines == nil || s.machines[machine]
}
