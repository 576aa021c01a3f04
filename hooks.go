package embeddb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/giantswarm/embeddb/internal/core"
)

// Init parameter keys read by OnInit.
const (
	// ParamPort overrides the port. An unparsable value is logged and the
	// default port is kept.
	ParamPort = "embeddb-port"

	// ParamAllowPortFailover enables the failover port when it equals
	// "true", case-insensitively.
	ParamAllowPortFailover = "embeddb-allow-port-failover"

	// ParamDatabases is a comma-separated list of name@scriptPath pairs.
	// Malformed pairs are logged and skipped.
	ParamDatabases = "embeddb-databases"
)

// Handle is returned by OnInit for a started controller and must be passed
// to OnShutdown.
type Handle struct {
	ctl Controller
}

// Controller returns the controller behind h.
//
//nolint:ireturn // Controller is an interface by design.
func (h *Handle) Controller() Controller {
	return h.ctl
}

// ParamOptions converts init parameters into options. Invalid values are
// logged with their code and skipped.
func ParamOptions(params map[string]string) []Option {
	log := core.Logger()
	var opts []Option

	if v := strings.TrimSpace(params[ParamPort]); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			err = fmt.Errorf("parse %s %q: %w", ParamPort, v, ErrInvalidPort)
			log.Error("invalid port parameter, keeping default",
				"code", core.FailureCode(err), "error", err)
		} else {
			opts = append(opts, WithPort(port))
		}
	}

	if strings.EqualFold(strings.TrimSpace(params[ParamAllowPortFailover]), "true") {
		opts = append(opts, WithAllowPortFailover(true))
	}

	if v := params[ParamDatabases]; v != "" {
		reg, errs := core.ParseRegistry(v)
		for _, err := range errs {
			log.Error("skipping database entry",
				"code", core.FailureCode(err), "error", err)
		}
		if reg.Len() > 0 {
			opts = append(opts, WithDatabases(reg.Entries()...))
		}
	}

	return opts
}

// OnInit creates a controller from params and opts and starts it. opts are
// applied after the parameters and take precedence.
//
// It returns a Handle only if the server is running. Failures are logged by
// the controller; a nil Handle means no server was left behind.
func OnInit(ctx context.Context, params map[string]string, opts ...Option) *Handle {
	all := append(ParamOptions(params), opts...)
	ctl := NewController(all...)

	running, err := ctl.Start(ctx)
	if err != nil {
		return nil
	}
	if !running {
		core.Logger().Warn("server reported not running after start", "port", ctl.Port())
		ctl.Stop()
		return nil
	}
	return &Handle{ctl: ctl}
}

// OnShutdown stops the controller behind h. A nil h is a no-op.
func OnShutdown(h *Handle) {
	if h == nil || h.ctl == nil {
		return
	}
	h.ctl.Stop()
}
