// Package drivers builds the configured telemetry sources.
package drivers

import (
	"log/slog"

	"simtelemetry/pkg/config"
	"simtelemetry/pkg/drivers/livetiming"
	"simtelemetry/pkg/drivers/mock"
	"simtelemetry/pkg/drivers/shm"
	"simtelemetry/pkg/source"

	"github.com/pkg/errors"
)

// Build returns one driver per entry, keeping the configured priority order.
func Build(cfgs []config.DriverConfig, logger *slog.Logger) ([]source.Driver, error) {
	out := make([]source.Driver, 0, len(cfgs))
	for _, c := range cfgs {
		d, err := build(c, logger)
		if err != nil {
			return nil, errors.Wrapf(err, "driver %s", c.Name)
		}
		out = append(out, d)
	}
	return out, nil
}

func build(c config.DriverConfig, logger *slog.Logger) (source.Driver, error) {
	switch c.Kind {
	case config.KindSharedMemory:
		return shm.New(shm.Options{
			Name:     c.Name,
			Producer: c.ProducerID(),
			Path:     c.Path,
			Logger:   logger,
		}), nil
	case config.KindLiveTiming:
		return livetiming.New(livetiming.Options{
			Name:           c.Name,
			Producer:       c.ProducerID(),
			URL:            c.URL,
			DialTimeout:    c.DialTimeout,
			MessageTimeout: c.MessageTimeout,
			Logger:         logger,
		})
	case config.KindMock:
		return mock.New(mock.Options{
			Name:     c.Name,
			Producer: c.ProducerID(),
			Schedule: mock.Schedule{Up: c.UpFor, Down: c.DownFor},
			Cars:     c.Cars,
			LapTime:  c.LapTime,
			Logger:   logger,
		}), nil
	}
	return nil, errors.Errorf("unknown driver kind %q", c.Kind)
}
