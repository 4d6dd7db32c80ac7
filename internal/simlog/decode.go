package simlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Wire shapes: pointer fields tell "absent" apart from zero values so a
// missing required field fails instead of decoding to 0/false.
type stepShape struct {
	Step    *json.Number       `json:"step"`
	Nodes   *[]json.RawMessage `json:"nodes"`
	Packets []json.RawMessage  `json:"packets"`
	Events  []json.RawMessage  `json:"events"`
}

type nodeShape struct {
	ID      *ID       `json:"id"`
	Type    *NodeType `json:"node_type"`
	Lat     *float64  `json:"lat"`
	Lon     *float64  `json:"lon"`
	Active  *bool     `json:"is_active"`
	Battery *float64  `json:"battery"`
}

type packetShape struct {
	ID   *ID   `json:"id"`
	Path *[]ID `json:"path"`
}

// Open opens a log file, mapping a missing file to ErrInputNotFound.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, err
	}
	return f, nil
}

// LoadFile reads and validates a whole log file.
func LoadFile(path string) ([]Step, error) {
	f, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a JSON array of steps and stops at the first invalid record.
func Decode(r io.Reader) ([]Step, error) {
	d := NewDecoder(r)
	var steps []Step
	for {
		s, err := d.Next()
		if errors.Is(err, io.EOF) {
			return steps, nil
		}
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
}

// Decoder streams steps out of a top-level JSON array.
type Decoder struct {
	dec     *json.Decoder
	record  int
	prev    int
	started bool
	done    bool
}

func NewDecoder(r io.Reader) *Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Decoder{dec: dec, prev: -1}
}

// Next returns the next validated step, or io.EOF after the closing bracket.
func (d *Decoder) Next() (Step, error) {
	if d.done {
		return Step{}, io.EOF
	}
	if !d.started {
		tok, err := d.dec.Token()
		if err != nil {
			return Step{}, &MalformedInputError{Record: -1, Step: -1, Reason: "log is not valid JSON", Err: err}
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			return Step{}, &MalformedInputError{Record: -1, Step: -1, Reason: "log must be a JSON array of steps"}
		}
		d.started = true
	}
	if !d.dec.More() {
		if _, err := d.dec.Token(); err != nil {
			return Step{}, &MalformedInputError{Record: d.record, Step: -1, Reason: "unterminated step array", Err: err}
		}
		d.done = true
		return Step{}, io.EOF
	}

	var raw json.RawMessage
	if err := d.dec.Decode(&raw); err != nil {
		return Step{}, &MalformedInputError{Record: d.record, Step: -1, Reason: "invalid JSON", Err: err}
	}
	s, err := DecodeStep(raw, d.record)
	if err != nil {
		return Step{}, err
	}
	if s.Index < d.prev {
		return Step{}, &MalformedInputError{Record: d.record, Step: s.Index, Field: "step",
			Reason: fmt.Sprintf("step index goes backwards (previous %d)", d.prev)}
	}
	d.prev = s.Index
	d.record++
	return s, nil
}

// DecodeStep validates one step record. record is its position in the log.
func DecodeStep(raw []byte, record int) (Step, error) {
	var shape stepShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return Step{}, &MalformedInputError{Record: record, Step: -1, Field: fieldOf(err), Reason: "step is not a JSON object of the expected shape", Err: err}
	}
	if shape.Step == nil {
		return Step{}, &MalformedInputError{Record: record, Step: -1, Field: "step", Reason: "missing required field"}
	}
	idx, err := shape.Step.Int64()
	if err != nil || idx < 0 {
		return Step{}, &MalformedInputError{Record: record, Step: -1, Field: "step",
			Reason: fmt.Sprintf("step must be a non-negative integer, got %s", shape.Step.String())}
	}
	s := Step{Index: int(idx)}
	if shape.Nodes == nil {
		return Step{}, &MalformedInputError{Record: record, Step: s.Index, Field: "nodes", Reason: "missing required field"}
	}

	s.Nodes = make([]Node, 0, len(*shape.Nodes))
	for i, rawNode := range *shape.Nodes {
		n, err := decodeNode(rawNode)
		if err != nil {
			err.Record, err.Step = record, s.Index
			if err.Entity == "" {
				err.Entity = fmt.Sprintf("node #%d", i)
			}
			return Step{}, err
		}
		s.Nodes = append(s.Nodes, n)
	}

	for i, rawPacket := range shape.Packets {
		p, err := decodePacket(rawPacket)
		if err != nil {
			err.Record, err.Step = record, s.Index
			if err.Entity == "" {
				err.Entity = fmt.Sprintf("packet #%d", i)
			}
			return Step{}, err
		}
		s.Packets = append(s.Packets, p)
	}

	for i, rawEvent := range shape.Events {
		var tag string
		if err := json.Unmarshal(rawEvent, &tag); err != nil {
			return Step{}, &MalformedInputError{Record: record, Step: s.Index, Entity: fmt.Sprintf("event #%d", i),
				Reason: "event tag must be a string", Err: err}
		}
		s.Events = append(s.Events, EventTag(tag))
	}
	return s, nil
}

func decodeNode(raw json.RawMessage) (Node, *MalformedInputError) {
	var shape nodeShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return Node{}, &MalformedInputError{Field: fieldOf(err), Reason: "invalid node", Err: err}
	}
	if shape.ID == nil {
		return Node{}, &MalformedInputError{Field: "id", Reason: "missing required field"}
	}
	entity := "node " + string(*shape.ID)
	switch {
	case shape.Type == nil:
		return Node{}, &MalformedInputError{Entity: entity, Field: "node_type", Reason: "missing required field"}
	case !shape.Type.Valid():
		return Node{}, &MalformedInputError{Entity: entity, Field: "node_type", Reason: fmt.Sprintf("unknown node type %q", *shape.Type)}
	case shape.Lat == nil:
		return Node{}, &MalformedInputError{Entity: entity, Field: "lat", Reason: "missing required field"}
	case shape.Lon == nil:
		return Node{}, &MalformedInputError{Entity: entity, Field: "lon", Reason: "missing required field"}
	case shape.Active == nil:
		return Node{}, &MalformedInputError{Entity: entity, Field: "is_active", Reason: "missing required field"}
	case shape.Battery == nil:
		return Node{}, &MalformedInputError{Entity: entity, Field: "battery", Reason: "missing required field"}
	}
	return Node{
		ID:      *shape.ID,
		Type:    *shape.Type,
		Lat:     *shape.Lat,
		Lon:     *shape.Lon,
		Active:  *shape.Active,
		Battery: *shape.Battery,
	}, nil
}

func decodePacket(raw json.RawMessage) (Packet, *MalformedInputError) {
	var shape packetShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return Packet{}, &MalformedInputError{Field: fieldOf(err), Reason: "invalid packet", Err: err}
	}
	if shape.ID == nil {
		return Packet{}, &MalformedInputError{Field: "id", Reason: "missing required field"}
	}
	if shape.Path == nil {
		return Packet{}, &MalformedInputError{Entity: "packet " + string(*shape.ID), Field: "path", Reason: "missing required field"}
	}
	return Packet{ID: *shape.ID, Path: *shape.Path}, nil
}

func fieldOf(err error) string {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return te.Field
	}
	return ""
}
