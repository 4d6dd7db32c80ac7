// Package render holds the presentation settings of the animated timeline
// map and writes the standalone HTML page that plays a feature collection.
// Nothing here changes the feature data itself.
package render

import (
	"fmt"
	"strings"
	"time"
)

// Timeline drives playback. Period is the time between two frames.
type Timeline struct {
	Period       time.Duration `koanf:"period"`
	AutoPlay     bool          `koanf:"auto_play"`
	Loop         bool          `koanf:"loop"`
	MaxSpeed     float64       `koanf:"max_speed"`
	DateFormat   string        `koanf:"date_format"`
	DragUpdates  bool          `koanf:"drag_updates"`
	AddLastPoint bool          `koanf:"add_last_point"`
	LoopButton   bool          `koanf:"loop_button"`
}

type Map struct {
	CenterLat float64 `koanf:"center_lat"`
	CenterLon float64 `koanf:"center_lon"`
	Zoom      int     `koanf:"zoom"`
	Tiles     string  `koanf:"tiles"`
}

type Config struct {
	Title    string   `koanf:"title"`
	Timeline Timeline `koanf:"timeline"`
	Map      Map      `koanf:"map"`
}

// Defaults is one frame per minute of synthesized time, looping, over Nice.
func Defaults() Config {
	return Config{
		Title: "Mesh network replay",
		Timeline: Timeline{
			Period:       time.Minute,
			AutoPlay:     true,
			Loop:         true,
			MaxSpeed:     1,
			DateFormat:   "HH:mm",
			DragUpdates:  true,
			AddLastPoint: true,
			LoopButton:   true,
		},
		Map: Map{
			CenterLat: 43.71,
			CenterLon: 7.26,
			Zoom:      14,
			Tiles:     "cartodbdark_matter",
		},
	}
}

func (c Config) Validate() error {
	if c.Timeline.Period <= 0 {
		return fmt.Errorf("render: timeline period must be positive, got %s", c.Timeline.Period)
	}
	if c.Timeline.MaxSpeed <= 0 {
		return fmt.Errorf("render: max_speed must be positive, got %v", c.Timeline.MaxSpeed)
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 22 {
		return fmt.Errorf("render: zoom %d out of range", c.Map.Zoom)
	}
	if _, ok := tileSets[strings.ToLower(c.Map.Tiles)]; !ok && !strings.Contains(c.Map.Tiles, "{z}") {
		return fmt.Errorf("render: unknown tiles %q", c.Map.Tiles)
	}
	return nil
}

// ISODuration formats d as an ISO-8601 duration such as PT1M or PT1H30M.
func ISODuration(d time.Duration) string {
	if d <= 0 {
		return "PT0S"
	}
	var b strings.Builder
	b.WriteString("PT")
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	if h > 0 {
		fmt.Fprintf(&b, "%dH", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	if d > 0 {
		secs := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", d.Seconds()), "0"), ".")
		b.WriteString(secs + "S")
	}
	return b.String()
}
