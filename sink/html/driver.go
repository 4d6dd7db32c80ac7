// Package html writes a standalone map page with the animation embedded.
package html

import (
	"errors"
	"fmt"
	"io"

	"meshviz/internal/render"
	"meshviz/internal/transform"
	"meshviz/sink"
)

type Config struct {
	Path   string
	Render render.Config
}

type driver struct {
	cfg      Config
	features []transform.Feature
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("html-sink: expected Config, got %T", raw)
	}
	if c.Path == "" {
		return errors.New("html-sink: path is required")
	}
	if err := c.Render.Validate(); err != nil {
		return fmt.Errorf("html-sink: %w", err)
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(f transform.Feature) error {
	d.features = append(d.features, f)
	return nil
}

func (d *driver) Flush() error {
	body, err := transform.MarshalCollection(d.features)
	if err != nil {
		return err
	}
	return sink.WriteFileAtomic(d.cfg.Path, func(w io.Writer) error {
		return render.WritePage(w, d.cfg.Render, body)
	})
}

func (d *driver) Close() error {
	d.features = nil
	return nil
}

func init() {
	sink.Register("html", func() sink.Adapter { return &driver{} })
}
