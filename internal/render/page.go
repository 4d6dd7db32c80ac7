package render

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
)

//go:embed page.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

type tileSet struct {
	URL         string
	Attribution string
}

var tileSets = map[string]tileSet{
	"cartodbdark_matter": {
		URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
		Attribution: "&copy; OpenStreetMap contributors &copy; CARTO",
	},
	"cartodbpositron": {
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: "&copy; OpenStreetMap contributors &copy; CARTO",
	},
	"openstreetmap": {
		URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "&copy; OpenStreetMap contributors",
	},
}

type playerOptions struct {
	Period       string  `json:"period"`
	AutoPlay     bool    `json:"autoPlay"`
	Loop         bool    `json:"loop"`
	MaxSpeed     float64 `json:"maxSpeed"`
	DateFormat   string  `json:"dateFormat"`
	DragUpdates  bool    `json:"timeSliderDragUpdate"`
	AddLastPoint bool    `json:"addlastPoint"`
	LoopButton   bool    `json:"loopButton"`
}

type pageData struct {
	Title       string
	CenterLat   float64
	CenterLon   float64
	Zoom        int
	TileURL     string
	Attribution string
	Options     template.JS
	Collection  template.JS
}

// WritePage renders a standalone map page embedding collection, which must be
// an encoded GeoJSON FeatureCollection.
func WritePage(w io.Writer, cfg Config, collection []byte) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !json.Valid(collection) {
		return fmt.Errorf("render: collection is not valid JSON")
	}
	opts, err := json.Marshal(playerOptions{
		Period:       ISODuration(cfg.Timeline.Period),
		AutoPlay:     cfg.Timeline.AutoPlay,
		Loop:         cfg.Timeline.Loop,
		MaxSpeed:     cfg.Timeline.MaxSpeed,
		DateFormat:   cfg.Timeline.DateFormat,
		DragUpdates:  cfg.Timeline.DragUpdates,
		AddLastPoint: cfg.Timeline.AddLastPoint,
		LoopButton:   cfg.Timeline.LoopButton,
	})
	if err != nil {
		return err
	}

	tiles, ok := tileSets[strings.ToLower(cfg.Map.Tiles)]
	if !ok {
		tiles = tileSet{URL: cfg.Map.Tiles}
	}
	return pageTemplate.Execute(w, pageData{
		Title:       cfg.Title,
		CenterLat:   cfg.Map.CenterLat,
		CenterLon:   cfg.Map.CenterLon,
		Zoom:        cfg.Map.Zoom,
		TileURL:     tiles.URL,
		Attribution: tiles.Attribution,
		Options:     template.JS(opts),
		Collection:  template.JS(collection),
	})
}
