// Package file reads a simulation log written as one JSON array of steps.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"

	"meshviz/internal/simlog"
	"meshviz/source"
)

type Config struct {
	Path string
}

type driver struct {
	cfg Config
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("file-source: expected Config, got %T", raw)
	}
	if c.Path == "" {
		return errors.New("file-source: path is required")
	}
	d.cfg = c
	return nil
}

// Run streams the log; a missing file surfaces simlog.ErrInputNotFound.
func (d *driver) Run(ctx context.Context, emit source.EmitFunc) error {
	f, err := simlog.Open(d.cfg.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := simlog.NewDecoder(f)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := emit(s); err != nil {
			return err
		}
	}
}

func (d *driver) Close() error { return nil }

func init() {
	source.Register("file", func() source.Adapter { return &driver{} })
}
