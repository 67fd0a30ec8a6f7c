// Package register collects setup callbacks contributed by package init
// functions, keyed by an arbitrary comparable key.
package register

import "sync"

type funcRegister struct {
	handlers map[any][]any
	locker   sync.RWMutex
}

var fr = &funcRegister{
	handlers: make(map[any][]any),
}

type Handler[T any] func(T)

func RegisterFunc[T any](key any, handler Handler[T]) {
	fr.locker.Lock()
	fr.handlers[key] = append(fr.handlers[key], handler)
	fr.locker.Unlock()
}

// ResolveFuncHandlers returns the handlers of key in registration order.
// Handlers registered for another T under the same key are skipped.
func ResolveFuncHandlers[T any](key any) []Handler[T] {
	fr.locker.RLock()
	defer fr.locker.RUnlock()

	result := make([]Handler[T], 0, len(fr.handlers[key]))
	for _, v := range fr.handlers[key] {
		if h, ok := v.(Handler[T]); ok {
			result = append(result, h)
		}
	}
	return result
}

// Apply runs every handler of key against target.
func Apply[T any](key any, target T) {
	for _, h := range ResolveFuncHandlers[T](key) {
		h(target)
	}
}
