// Package isolation implements the isolation manager component (C3):
// it hands each analysis request a scratch artifact directory and a
// unique identifier, and guarantees teardown even on panic, per
// spec.md §4.3. Grounded on the teacher's RuntimeRegistry/ToolCompiler
// temp-dir lifecycle: MkdirTemp plus a deferred RemoveAll, mirrored
// here in a mutex-protected registry keyed by a uuid identifier rather
// than a compiled tool name.
package isolation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"symbolicd/internal/logging"
)

var log = logging.Get(logging.CategoryIsolation)

// Unit is one isolated analysis request's scratch resources: an
// identifier correlating it through logs, and a private directory the
// caller may write validator/engine scratch artifacts into.
type Unit struct {
	ID      string
	Dir     string
	Source  string
	created bool
}

type registry struct {
	mu    sync.RWMutex
	units map[string]*Unit
}

var global = &registry{units: make(map[string]*Unit)}

// Acquire creates a new isolation Unit for source and returns it along
// with a release closure the caller must defer immediately: Acquire(ctx, src)
// returning (unit, release, err) is meant to be used as
//
//	unit, release, err := isolation.Acquire(ctx, source)
//	if err != nil { return err }
//	defer release()
//
// so that teardown happens exactly once regardless of how the caller's
// function returns, including via panic recovery upstream.
func Acquire(ctx context.Context, source string) (*Unit, func(), error) {
	select {
	case <-ctx.Done():
		return nil, func() {}, ctx.Err()
	default:
	}

	id := "mcp_temp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	dir, err := os.MkdirTemp("", "mcp_temp_*")
	if err != nil {
		return nil, func() {}, fmt.Errorf("isolation: create scratch dir: %w", err)
	}

	unit := &Unit{ID: id, Dir: dir, Source: source, created: true}

	global.mu.Lock()
	global.units[id] = unit
	global.mu.Unlock()

	log.Debug("acquired unit %s at %s", id, dir)

	release := func() {
		releaseUnit(unit)
	}
	return unit, release, nil
}

func releaseUnit(unit *Unit) {
	global.mu.Lock()
	delete(global.units, unit.ID)
	global.mu.Unlock()

	if unit.created {
		if err := os.RemoveAll(unit.Dir); err != nil {
			log.Warn("cleanup failed for unit %s: %v", unit.ID, err)
		}
	}
	log.Debug("released unit %s", unit.ID)
}

// Lookup returns the live unit for id, if any. Used by operations that
// need to re-associate an async message with its originating request.
func Lookup(id string) (*Unit, bool) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	u, ok := global.units[id]
	return u, ok
}

// Count reports how many units are currently live; exposed for the
// health/capabilities endpoint and for tests asserting no leaks.
func Count() int {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return len(global.units)
}

// Sweep force-releases every live unit. Called from the process
// shutdown path as a backstop against a caller that failed to defer
// its release closure (e.g. a killed goroutine) — it should normally
// find nothing to do.
func Sweep() {
	global.mu.Lock()
	leftover := make([]*Unit, 0, len(global.units))
	for _, u := range global.units {
		leftover = append(leftover, u)
	}
	global.mu.Unlock()

	for _, u := range leftover {
		log.Warn("sweeping orphaned unit %s", u.ID)
		releaseUnit(u)
	}
}
