package hub

import (
	"slices"
	"sync"
)

// Observers is an ordered set of change callbacks keyed by the caller.
// Registering an existing key or removing a missing one does nothing.
type Observers struct {
	mu        sync.Mutex
	keys      []string
	callbacks map[string]func()
}

func (o *Observers) Register(key string, fn func()) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.callbacks == nil {
		o.callbacks = make(map[string]func())
	}
	if _, ok := o.callbacks[key]; ok {
		return
	}
	o.keys = append(o.keys, key)
	o.callbacks[key] = fn
}

func (o *Observers) Remove(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.callbacks[key]; !ok {
		return
	}
	delete(o.callbacks, key)
	if i := slices.Index(o.keys, key); i >= 0 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
}

func (o *Observers) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.keys)
}

// Publish calls every callback registered at the time of the call, once each,
// in registration order. Callbacks run without the registry lock held so they
// may register or remove observers.
func (o *Observers) Publish() {
	o.mu.Lock()
	snapshot := make([]func(), 0, len(o.keys))
	for _, k := range o.keys {
		snapshot = append(snapshot, o.callbacks[k])
	}
	o.mu.Unlock()

	for _, fn := range snapshot {
		fn()
	}
}
