package embeddb

import (
	"context"

	"github.com/giantswarm/embeddb/internal/core"
)

// Compile-time interface satisfaction check.
var _ Controller = (*controllerWrapper)(nil)

// controllerWrapper wraps core.Controller to implement the Controller
// interface.
//
// The core.Controller is stored as a named (unexported) field rather than
// embedded so callers cannot reach internal methods through type assertions.
type controllerWrapper struct {
	ctl *core.Controller
}

func (w *controllerWrapper) Start(ctx context.Context) (bool, error) {
	return w.ctl.Start(ctx)
}

func (w *controllerWrapper) StartWith(ctx context.Context, srv Server) (bool, error) {
	return w.ctl.StartWith(ctx, srv)
}

func (w *controllerWrapper) Stop() bool {
	return w.ctl.Stop()
}

func (w *controllerWrapper) StopWith(srv Server) bool {
	return w.ctl.StopWith(srv)
}

func (w *controllerWrapper) State() State {
	return w.ctl.State()
}

func (w *controllerWrapper) Port() int {
	return w.ctl.Port()
}

//nolint:ireturn // Server is an interface by design.
func (w *controllerWrapper) Server() Server {
	return w.ctl.Server()
}

func (w *controllerWrapper) Results() []Result {
	return w.ctl.Results()
}

// NewController returns a Controller configured by opts. It performs no I/O;
// call Start to launch the server.
//
// Panics if any option receives an invalid value. See individual With*
// functions for constraints.
//
//nolint:ireturn // Returns Controller interface by design for testability (mockable).
func NewController(opts ...Option) Controller {
	cfg := defaultControllerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &controllerWrapper{ctl: core.NewController(cfg.toCoreConfig())}
}
