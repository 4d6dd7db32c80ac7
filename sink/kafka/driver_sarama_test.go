package kafka

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"meshviz/internal/transform"
)

func feature(step int) transform.Feature {
	return transform.Feature{
		Kind:   transform.Point,
		Coords: []transform.Position{transform.LonLat(43.7, 7.26)},
		Step:   step,
		Time:   transform.StepTime(step),
		Class:  "normal_phone",
		Popup:  fmt.Sprintf("Node %d", step),
	}
}

func TestKafkaSink_SendsOnFlushOnly(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	p := mocks.NewSyncProducer(t, cfg)
	for range 2 {
		p.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var m map[string]any
			if err := json.Unmarshal(val, &m); err != nil {
				return err
			}
			if m["type"] != "Feature" {
				return fmt.Errorf("not a feature: %s", val)
			}
			return nil
		})
	}

	d := &driver{cfg: Config{Topic: "frames"}, p: p}
	for i := range 2 {
		if err := d.Push(feature(i)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if len(d.pending) != 2 {
		t.Fatalf("want 2 buffered messages, got %d", len(d.pending))
	}
	if got, _ := d.pending[1].Key.Encode(); string(got) != "2026-01-21T10:01:00" {
		t.Fatalf("key = %s", got)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKafkaSink_FlushError(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	p := mocks.NewSyncProducer(t, cfg)
	p.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	d := &driver{cfg: Config{Topic: "frames"}, p: p}
	_ = d.Push(feature(0))
	if err := d.Flush(); err == nil {
		t.Fatal("expected error")
	}
	_ = d.Close()
}

func TestKafkaSink_ConfigureValidates(t *testing.T) {
	d := &driver{}
	if err := d.Configure(Config{Topic: "x"}); err == nil {
		t.Fatal("expected error without brokers")
	}
	if err := d.Configure("nope"); err == nil {
		t.Fatal("expected type error")
	}
}
