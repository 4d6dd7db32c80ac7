package source

import (
	"context"

	"meshviz/internal/simlog"
)

// EmitFunc receives validated steps in log order.
type EmitFunc func(simlog.Step) error

type Adapter interface {
	Configure(any) error
	Run(context.Context, EmitFunc) error
	Close() error
}
