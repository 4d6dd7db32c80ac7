package sink

import (
	"fmt"
	"sort"

	"meshviz/internal/transform"
)

// Adapter is the common behaviour every sink exposes. Features arrive in
// output order; nothing is written until Flush, so a failed run leaves no
// artifact behind.
type Adapter interface {
	Configure(any) error          // driver-specific YAML ⇒ struct
	Push(transform.Feature) error // buffer or forward one feature
	Flush() error                 // write the finished artifact
	Close() error                 // idempotent, releases resources only
}

// ReportAware is *optional*; sinks that print the run summary implement it.
// The runner calls it once, after the last Push and before Flush.
type ReportAware interface {
	Report(transform.Report)
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q (have %v)", name, Names())
}

func Names() []string {
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
