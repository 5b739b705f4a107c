package helpers

// Random synchronisation util stash

import (
	"github.com/temoto/alive/v2"
)

// AliveSub stops leaf when root stops. Blocks until either is stopped.
func AliveSub(root, leaf *alive.Alive) {
	select {
	case <-root.StopChan():
		leaf.Stop()
	case <-leaf.StopChan():
	}
}

// GoAlive runs f as task of a. Returns false if a is already stopping.
func GoAlive(a *alive.Alive, f func()) bool {
	if !a.Add(1) {
		return false
	}
	go func() {
		defer a.Done()
		f()
	}()
	return true
}
