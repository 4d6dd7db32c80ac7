// Package geojson writes the animation as a single FeatureCollection file.
package geojson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"meshviz/internal/transform"
	"meshviz/sink"
)

type Config struct {
	Path   string `yaml:"path"`
	Indent bool   `yaml:"indent"`
}

type driver struct {
	cfg      Config
	features []transform.Feature
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("geojson-sink: expected Config, got %T", raw)
	}
	if c.Path == "" {
		return errors.New("geojson-sink: path is required")
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
	if d.cfg.Indent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err != nil {
			return err
		}
		body = buf.Bytes()
	}
	return sink.WriteFileAtomic(d.cfg.Path, func(w io.Writer) error {
		_, err := w.Write(body)
		return err
	})
}

func (d *driver) Close() error {
	d.features = nil
	return nil
}

func init() {
	sink.Register("geojson", func() sink.Adapter { return &driver{} })
}
