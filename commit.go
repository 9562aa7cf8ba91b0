package store

import "sync/atomic"

// commitScope is the process-wide "committing" token. Any write to the state
// tree is sanctioned only while the flag is raised; the strict-mode watcher
// treats a state change observed with the flag down as a programming error.
//
// The flag is a reentrant toggle, not a lock: Run restores the previous value
// instead of clearing it, so nested scopes (a commit inside state grafting,
// state replacement inside a hot reset) unwind correctly. Mutual exclusion
// between concurrent writers is the store's job, not this type's.
type commitScope struct {
	committing atomic.Bool
}

// Run executes fn as a sanctioned write section.
func (c *commitScope) Run(fn func()) {
	prev := c.committing.Swap(true)
	defer c.committing.Store(prev)
	fn()
}

// Active reports whether a sanctioned write section is currently open.
func (c *commitScope) Active() bool {
	return c.committing.Load()
}
