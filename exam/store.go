package exam

import (
	"sync"
	"time"

	"github.com/provafacil/ProvaFacilApi/utils"
)

// Store keeps active sessions in memory. A single ticker drives every timed
// session's countdown and a reaper drops finished or abandoned sessions.
type Store struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

// idleTimeout drops sessions nobody has touched; finished sessions linger a
// short while so the client can fetch the final view.
const (
	idleTimeout     = 6 * time.Hour
	finishedLinger  = 30 * time.Minute
	reapInterval    = 10 * time.Minute
)

func NewStore() *Store {
	store := &Store{
		sessions: make(map[string]*Session),
	}

	go store.runTicker()
	go store.reapStaleSessions()

	return store
}

func (st *Store) Put(session *Session) {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	st.sessions[session.ID] = session
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mutex.RLock()
	defer st.mutex.RUnlock()
	session, exists := st.sessions[id]
	return session, exists
}

func (st *Store) Delete(id string) {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	delete(st.sessions, id)
}

func (st *Store) runTicker() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		st.mutex.RLock()
		sessions := make([]*Session, 0, len(st.sessions))
		for _, s := range st.sessions {
			sessions = append(sessions, s)
		}
		st.mutex.RUnlock()

		for _, s := range sessions {
			s.tick()
		}
	}
}

func (st *Store) reapStaleSessions() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		st.mutex.Lock()
		reaped := 0
		for id, s := range st.sessions {
			s.mu.Lock()
			stale := now.Sub(s.lastTouched) > idleTimeout ||
				(s.status == StatusFinished && now.Sub(s.finishedAt) > finishedLinger)
			s.mu.Unlock()

			if stale {
				delete(st.sessions, id)
				reaped++
			}
		}
		if reaped > 0 {
			utils.LogExam("Reaped %d stale exam sessions", reaped)
		}
		st.mutex.Unlock()
	}
}
