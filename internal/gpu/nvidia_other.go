//go:build !linux

package gpu

import (
	"context"

	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
	"github.com/Guliveer/vitalis/harvester/internal/models"
)

// NVIDIA is unavailable on this platform.
type NVIDIA struct{}

// Open always fails with ErrUnavailable.
func Open(*zap.Logger) (*NVIDIA, error) {
	return nil, ErrUnavailable
}

func (n *NVIDIA) Devices(context.Context) ([]models.GPUInfo, error) { return nil, ErrUnavailable }

func (n *NVIDIA) ProcessUsage(context.Context) map[int32]harvest.GPUUsage { return nil }

func (n *NVIDIA) Close() error { return nil }
