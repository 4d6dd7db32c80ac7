// Package simlog holds the simulation log model: one Step per simulated time
// unit, carrying node snapshots, delivered packet routes and narrative events.
package simlog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type NodeType string

const (
	Smartphone  NodeType = "Smartphone"
	BaseStation NodeType = "BaseStation"
)

func (t NodeType) Valid() bool {
	return t == Smartphone || t == BaseStation
}

// ID identifies a node or a packet. The simulator writes node ids as JSON
// numbers and packet ids as strings; both decode into the same textual form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("id is null")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or a number")
	}
	*id = ID(n.String())
	return nil
}

type Node struct {
	ID      ID       `json:"id"`
	Type    NodeType `json:"node_type"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Active  bool     `json:"is_active"`
	Battery float64  `json:"battery"`
}

// Packet is a delivered route; Path lists node ids hop by hop.
type Packet struct {
	ID   ID   `json:"id"`
	Path []ID `json:"path"`
}

// EventTag names a narrative occurrence. Tags outside the known set are kept
// as-is so newer simulators can add events without breaking older readers.
type EventTag string

const (
	DisasterStart EventTag = "DISASTER_START"
	OraclePayout  EventTag = "ORACLE_PAYOUT"
)

type Step struct {
	Index   int        `json:"step"`
	Nodes   []Node     `json:"nodes"`
	Packets []Packet   `json:"packets,omitempty"`
	Events  []EventTag `json:"events,omitempty"`
}

// Validate checks a step built outside the decoder. record is the position
// of the step in its log and is only used for error context.
func (s Step) Validate(record int) error {
	if s.Index < 0 {
		return &MalformedInputError{Record: record, Step: s.Index, Field: "step", Reason: "negative step index"}
	}
	if s.Nodes == nil {
		return &MalformedInputError{Record: record, Step: s.Index, Field: "nodes", Reason: "missing required field"}
	}
	for _, n := range s.Nodes {
		if n.ID == "" {
			return &MalformedInputError{Record: record, Step: s.Index, Entity: "node", Field: "id", Reason: "empty node id"}
		}
		if !n.Type.Valid() {
			return &MalformedInputError{Record: record, Step: s.Index, Entity: "node " + string(n.ID), Field: "node_type",
				Reason: fmt.Sprintf("unknown node type %q", n.Type)}
		}
	}
	for _, p := range s.Packets {
		if p.ID == "" {
			return &MalformedInputError{Record: record, Step: s.Index, Entity: "packet", Field: "id", Reason: "empty packet id"}
		}
	}
	return nil
}
