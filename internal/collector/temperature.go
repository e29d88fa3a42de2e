// Temperature collector: gathers thermal sensor readings.
// Uses gopsutil host sensors; GPU temperatures come from the GPU collector.
package collector

import (
	"context"
	"sort"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/harvester/internal/models"
)

// minValidTemp is the minimum temperature (°C) considered valid.
const minValidTemp = 0.0

// maxValidTemp is the maximum temperature (°C) considered valid.
// Readings above this are likely sensor errors.
const maxValidTemp = 150.0

type sensorsFunc func(ctx context.Context) ([]host.TemperatureStat, error)

// TemperatureCollector collects every valid sensor reading.
type TemperatureCollector struct {
	sensors sensorsFunc
	logger  *zap.Logger
}

// NewTemperatureCollector creates a new temperature collector.
// The logger parameter is used for debug logging. Pass nil for no logging.
func NewTemperatureCollector(logger *zap.Logger) *TemperatureCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemperatureCollector{
		sensors: host.SensorsTemperaturesWithContext,
		logger:  logger,
	}
}

// Name returns the collector identifier.
func (c *TemperatureCollector) Name() string { return "temperature" }

// Collect returns valid readings sorted by sensor name. gopsutil may return
// partial results together with an error; the partial results are kept.
func (c *TemperatureCollector) Collect(ctx context.Context) (interface{}, error) {
	temps, err := c.sensors(ctx)
	if err != nil {
		c.logger.Debug("Temperature sensors partially available", zap.Error(err))
		if len(temps) == 0 {
			return nil, err
		}
	}

	readings := make([]models.TempReading, 0, len(temps))
	for _, t := range temps {
		if !isValidTemperature(t.Temperature) {
			continue
		}
		readings = append(readings, models.TempReading{Sensor: t.SensorKey, Celsius: t.Temperature})
	}
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Sensor < readings[j].Sensor
	})
	return readings, nil
}

// IsAvailable returns true; always registered; returns no readings if sensors are unavailable.
func (c *TemperatureCollector) IsAvailable() bool { return true }

// isValidTemperature returns true if the temperature is within a plausible range.
func isValidTemperature(temp float64) bool {
	return temp > minValidTemp && temp <= maxValidTemp
}
