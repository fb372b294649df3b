// Package simulator publishes synthetic diagnostic readings to the
// ingest queue, load-testing the ingest path and keeping demo
// installations lively.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"procodus.dev/device-monitor/internal/ingest"
	"procodus.dev/device-monitor/pkg/generator"
	"procodus.dev/device-monitor/pkg/mq"
)

var errNoDevices = errors.New("worker needs at least one device")

// Worker generates readings for a set of devices and publishes them
// through one MQ client. Each device keeps its own load generator so
// its curve is continuous across ticks.
type Worker struct {
	mqClient   mq.ClientInterface
	generators []*generator.LoadGenerator
}

// NewWorker creates a worker publishing readings for deviceIDs.
func NewWorker(mqClient mq.ClientInterface, deviceIDs []uint) (*Worker, error) {
	if len(deviceIDs) == 0 {
		return nil, errNoDevices
	}

	generators := make([]*generator.LoadGenerator, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		generators = append(generators, generator.NewLoadGenerator(id))
	}

	return &Worker{
		mqClient:   mqClient,
		generators: generators,
	}, nil
}

// PublishReading generates a reading for one random device and pushes
// it onto the queue.
func (w *Worker) PublishReading(ctx context.Context, t time.Time) error {
	gen := w.generators[rand.Intn(len(w.generators))] // #nosec G404 - weak random is acceptable for simulation

	sample := gen.Generate(t)
	reading := ingest.Reading{
		Timestamp:   sample.Timestamp,
		DeviceID:    gen.DeviceID(),
		CPUUsage:    sample.CPUUsage,
		MemoryUsage: sample.MemoryUsage,
	}

	message, err := json.Marshal(reading)
	if err != nil {
		return err
	}

	return w.mqClient.Push(ctx, message)
}
