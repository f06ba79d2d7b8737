package predict

import (
	"sync"
	"time"
)

// Registry hands out one Workflow per client surface so that each surface has at
// most one active prediction. Surfaces left alone for longer than the session
// TTL are forgotten unless a request is still running.
type Registry struct {
	mu        sync.Mutex
	svc       Service
	cfg       Config
	workflows map[string]*entry
}

type entry struct {
	wf       *Workflow
	lastUsed time.Time
}

func NewRegistry(svc Service, cfg Config) *Registry {
	def := DefaultConfig()
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = def.SessionTTL
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Registry{svc: svc, cfg: cfg, workflows: make(map[string]*entry)}
}

// Get returns the workflow for surface, creating it on first use.
func (r *Registry) Get(surface string) *Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Now()
	r.evictLocked(now)
	e, ok := r.workflows[surface]
	if !ok {
		e = &entry{wf: NewWorkflow(r.svc, r.cfg)}
		r.workflows[surface] = e
	}
	e.lastUsed = now
	return e.wf
}

// Lookup returns the workflow for surface without creating one.
func (r *Registry) Lookup(surface string) (*Workflow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Now()
	r.evictLocked(now)
	e, ok := r.workflows[surface]
	if !ok {
		return nil, false
	}
	e.lastUsed = now
	return e.wf, true
}

// Release resets and forgets the workflow for surface.
func (r *Registry) Release(surface string) {
	r.mu.Lock()
	e, ok := r.workflows[surface]
	delete(r.workflows, surface)
	r.mu.Unlock()
	if ok {
		e.wf.Reset()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workflows)
}

// evictLocked drops surfaces idle for longer than the TTL. A workflow with a
// request in flight is kept until it settles.
func (r *Registry) evictLocked(now time.Time) {
	for surface, e := range r.workflows {
		if now.Sub(e.lastUsed) < r.cfg.SessionTTL {
			continue
		}
		if e.wf.Snapshot().State == StateRequesting {
			continue
		}
		delete(r.workflows, surface)
	}
}
