package store

import (
	"errors"
	"fmt"
)

var (
	// ErrPathNotFound indicates a module path with a missing segment.
	ErrPathNotFound = errors.New("module path not found")
	// ErrUnknownModuleKey indicates a hot update that introduces a module key
	// absent from the current tree.
	ErrUnknownModuleKey = errors.New("hot update introduces unknown module key")
)

// assert panics with a library-prefixed message when the condition is false.
// It backs the dev-mode configuration checks; malformed declarations abort
// store construction instead of failing later at dispatch time.
func assert(cond bool, format string, args ...any) {
	if !cond {
		panic("[store] " + fmt.Sprintf(format, args...))
	}
}
