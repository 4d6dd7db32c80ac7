// Package kafka reads a simulation log from one Kafka partition. Each message
// value is a single step record; the log spans the oldest offset up to the end
// offset observed when the run starts.
package kafka

import (
	"context"
	"fmt"
	"time"

	"meshviz/internal/logging"
	"meshviz/internal/simlog"
	"meshviz/source"

	"github.com/IBM/sarama"
)

// offsetReader is the slice of sarama.Client the driver needs.
type offsetReader interface {
	GetOffset(topic string, partitionID int32, time int64) (int64, error)
}

type SaramaDriver struct {
	cfg      Config
	cl       sarama.Client
	offsets  offsetReader
	consumer sarama.Consumer
}

func (d *SaramaDriver) Configure(raw any) error {
	config, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("kafka-source: expected Config, got %T", raw)
	}
	d.cfg = config

	ver, err := sarama.ParseKafkaVersion(config.Version)
	if err != nil {
		return err
	}
	sc := sarama.NewConfig()
	sc.Version = ver
	sc.ClientID = config.ClientID
	sc.Consumer.Return.Errors = true
	if config.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if config.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = config.SASLUser, config.SASLPass
	}

	if d.cl, err = sarama.NewClient(config.Brokers, sc); err != nil {
		return err
	}
	d.offsets = d.cl
	d.consumer, err = sarama.NewConsumerFromClient(d.cl)
	return err
}

// Run emits every record in [oldest, end) and returns; records produced after
// the run started are not part of this log.
func (d *SaramaDriver) Run(ctx context.Context, emit source.EmitFunc) error {
	topic, part := d.cfg.Topic, d.cfg.Partition

	oldest, err := d.offsets.GetOffset(topic, part, sarama.OffsetOldest)
	if err != nil {
		return fmt.Errorf("kafka-source: oldest offset of %s/%d: %w", topic, part, err)
	}
	end, err := d.offsets.GetOffset(topic, part, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("kafka-source: end offset of %s/%d: %w", topic, part, err)
	}
	if end <= oldest {
		logging.L().Warn("kafka-source: partition is empty", "topic", topic, "partition", part)
		return nil
	}

	pc, err := d.consumer.ConsumePartition(topic, part, oldest)
	if err != nil {
		return err
	}
	defer pc.Close()

	idle := d.cfg.IdleWait
	if idle <= 0 {
		idle = 10 * time.Second
	}
	timer := time.NewTimer(idle)
	defer timer.Stop()

	want := end - oldest
	logging.L().Info("kafka-source: reading log", "topic", topic, "partition", part, "from", oldest, "records", want)

	errs := pc.Errors()
	prev := -1
	for record := 0; int64(record) < want; {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			return fmt.Errorf("kafka-source: no record %d/%d from %s/%d within %s", record, want, topic, part, idle)

		case cerr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return fmt.Errorf("kafka-source: %w", cerr)

		case msg, ok := <-pc.Messages():
			if !ok {
				return fmt.Errorf("kafka-source: partition consumer closed after %d/%d records", record, want)
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(idle)

			step, err := simlog.DecodeStep(msg.Value, record)
			if err != nil {
				return err
			}
			if step.Index < prev {
				return &simlog.MalformedInputError{
					Record: record, Step: step.Index, Field: "step",
					Reason: fmt.Sprintf("step index goes backwards (previous %d)", prev),
				}
			}
			prev = step.Index
			if err := emit(step); err != nil {
				return err
			}
			record++
		}
	}
	return nil
}

func (d *SaramaDriver) Close() error {
	if d.consumer != nil {
		_ = d.consumer.Close()
	}
	if d.cl != nil {
		_ = d.cl.Close()
	}
	return nil
}

func init() {
	source.Register("kafka", func() source.Adapter { return &SaramaDriver{} })
}
