package execution

// Option customises a process at creation time.
type Option func(p *Process)

// WithPriority sets the process priority; the empty value keeps normal.
func WithPriority(priority Priority) Option {
	return func(p *Process) {
		if priority != "" {
			p.Priority = priority
		}
	}
}

// WithParent links the process to the process that spawned it.
func WithParent(parentID string) Option {
	return func(p *Process) {
		p.ParentID = parentID
	}
}

// WithData sets the opaque payload. The map is copied.
func WithData(data map[string]interface{}) Option {
	return func(p *Process) {
		if data != nil {
			p.Data = cloneMap(data)
		}
	}
}

// WithLimits sets local and remote resource limits.
func WithLimits(local, remote *Resources) Option {
	return func(p *Process) {
		if local != nil {
			limit := *local
			p.LocalLimit = &limit
		}
		if remote != nil {
			limit := *remote
			p.RemoteLimit = &limit
		}
	}
}

// WithReserved sets the amounts reserved on the gateway (local) and on the
// target (remote); nil leaves a side unreserved.
func WithReserved(local, remote *Resources) Option {
	return func(p *Process) {
		if local != nil {
			p.LocalReserved = *local
		}
		if remote != nil {
			p.RemoteReserved = *remote
		}
	}
}
