package oplog

import (
	"fmt"
	"sync"
)

// Operation describes a business operation whose invocations are logged.
type Operation struct {
	// Name is recorded as the operate name, e.g. "delete-file".
	Name string
	// Description is a human readable summary of the operation.
	Description string
	// Disabled skips logging for this operation only.
	Disabled bool
}

// Registry holds operations registered at startup so call sites can refer to
// them by name.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

func NewRegistry(ops ...Operation) *Registry {
	r := &Registry{ops: make(map[string]Operation, len(ops))}
	for _, op := range ops {
		_ = r.Register(op)
	}
	return r
}

// Register adds op. Names must be unique and non-empty.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("oplog: operation name required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.ops[op.Name]; dup {
		return fmt.Errorf("oplog: operation %q already registered", op.Name)
	}
	r.ops[op.Name] = op
	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Operation, bool) {
	if r == nil {
		return Operation{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}
