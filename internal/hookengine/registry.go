package hookengine

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// eventHooks holds the two parallel ordered sequences — script hooks then
// callback hooks — registered for one event kind.
type eventHooks struct {
	scripts   []ScriptHook
	callbacks []CallbackHook
}

// Counts is a diagnostic snapshot of how many hooks are registered.
type Counts struct {
	Script   int
	Callback int
	Total    int
}

// Registry is the thread-safe store of script and callback hooks, keyed by
// event kind, mirroring the teacher's internal/hooks.Registry shape
// (mutex-guarded maps, uuid IDs, defensive-copy reads) generalized from a
// single handler slice to the spec's parallel script/callback lists.
type Registry struct {
	mu      sync.RWMutex
	hooks   map[EventKind]*eventHooks
	matcher *Matcher
	logger  *slog.Logger
}

// NewRegistry builds an empty registry using matcher for pattern matching.
func NewRegistry(matcher *Matcher, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if matcher == nil {
		matcher = NewMatcher()
	}
	return &Registry{
		hooks:   make(map[EventKind]*eventHooks),
		matcher: matcher,
		logger:  logger.With("component", "hookengine.registry"),
	}
}

func (r *Registry) bucket(event EventKind) *eventHooks {
	b, ok := r.hooks[event]
	if !ok {
		b = &eventHooks{}
		r.hooks[event] = b
	}
	return b
}

// RegisterScript appends a script hook to event's list.
func (r *Registry) RegisterScript(event EventKind, hook ScriptHook) error {
	if !event.IsValid() {
		return &BadRegistration{Reason: "invalid event kind " + string(event)}
	}
	if err := hook.validate(); err != nil {
		return &BadRegistration{Reason: err.Error()}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bucket(event).scripts = append(r.bucket(event).scripts, hook)
	return nil
}

// RegisterCallback appends a callback hook to event's list. If hook.ID is
// empty, one is generated: function values are not comparable in Go, so
// unregistration is keyed by this opaque ID rather than reference equality.
func (r *Registry) RegisterCallback(event EventKind, hook CallbackHook) (string, error) {
	if !event.IsValid() {
		return "", &BadRegistration{Reason: "invalid event kind " + string(event)}
	}
	if err := hook.validate(); err != nil {
		return "", &BadRegistration{Reason: err.Error()}
	}
	if hook.ID == "" {
		hook.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bucket(event).callbacks = append(r.bucket(event).callbacks, hook)
	return hook.ID, nil
}

// RemoveScript removes the first script hook equal to hook from event's
// list, reporting whether one was found.
func (r *Registry) RemoveScript(event EventKind, hook ScriptHook) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.hooks[event]
	if !ok {
		return false
	}
	for i, h := range b.scripts {
		if h == hook {
			b.scripts = append(b.scripts[:i], b.scripts[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveCallback removes the callback hook with the given ID from event's
// list, reporting whether one was found.
func (r *Registry) RemoveCallback(event EventKind, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.hooks[event]
	if !ok {
		return false
	}
	for i, h := range b.callbacks {
		if h.ID == id {
			b.callbacks = append(b.callbacks[:i], b.callbacks[i+1:]...)
			return true
		}
	}
	return false
}

// Match returns the matching script hooks followed by the matching callback
// hooks for event and toolName, preserving per-event insertion order.
func (r *Registry) Match(event EventKind, toolName string) ([]ScriptHook, []CallbackHook) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.hooks[event]
	if !ok {
		return nil, nil
	}

	var scripts []ScriptHook
	for _, h := range b.scripts {
		if r.matcher.Matches(h.Matcher, toolName) {
			scripts = append(scripts, h)
		}
	}
	var callbacks []CallbackHook
	for _, h := range b.callbacks {
		if r.matcher.Matches(h.Matcher, toolName) {
			callbacks = append(callbacks, h)
		}
	}
	return scripts, callbacks
}

// List returns a defensive-copy snapshot of the hooks registered for event,
// or for every event when event is empty.
func (r *Registry) List(event EventKind) map[EventKind]eventHooks {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[EventKind]eventHooks)
	if event != "" {
		if b, ok := r.hooks[event]; ok {
			out[event] = copyBucket(b)
		}
		return out
	}
	for k, b := range r.hooks {
		out[k] = copyBucket(b)
	}
	return out
}

func copyBucket(b *eventHooks) eventHooks {
	scripts := make([]ScriptHook, len(b.scripts))
	copy(scripts, b.scripts)
	callbacks := make([]CallbackHook, len(b.callbacks))
	copy(callbacks, b.callbacks)
	return eventHooks{scripts: scripts, callbacks: callbacks}
}

// Clear empties the hooks registered for event, or every event kind when
// event is empty.
func (r *Registry) Clear(event EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event != "" {
		delete(r.hooks, event)
		return
	}
	r.hooks = make(map[EventKind]*eventHooks)
}

// ClearScripts drops only the script hooks for every event kind, preserving
// callback hooks — used by configuration reloads, since callback hooks are
// programmatic rather than configured.
func (r *Registry) ClearScripts() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.hooks {
		b.scripts = nil
	}
}

// Counts reports {script, callback, total} for event, or summed across all
// event kinds when event is empty.
func (r *Registry) Counts(event EventKind) Counts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var c Counts
	if event != "" {
		if b, ok := r.hooks[event]; ok {
			c.Script = len(b.scripts)
			c.Callback = len(b.callbacks)
		}
		c.Total = c.Script + c.Callback
		return c
	}
	for _, b := range r.hooks {
		c.Script += len(b.scripts)
		c.Callback += len(b.callbacks)
	}
	c.Total = c.Script + c.Callback
	return c
}
