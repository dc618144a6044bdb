package middlewares

import (
	"github.com/julienschmidt/httprouter"
)

type Wrapper interface {
	Wrap(nextHandler httprouter.Handle) httprouter.Handle
}

// Chain applies wrappers so that the first one is outermost.
func Chain(handle httprouter.Handle, wrappers ...Wrapper) httprouter.Handle {
	for i := len(wrappers) - 1; i >= 0; i-- {
		handle = wrappers[i].Wrap(handle)
	}
	return handle
}
