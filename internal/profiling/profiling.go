// Package profiling switches pprof output on from configuration.
package profiling

import (
	"fmt"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/Faultbox/scenebatch/internal/config"
	"github.com/Faultbox/scenebatch/internal/logger"
)

// Stopper ends a profiling session.
type Stopper interface {
	Stop()
}

type nopStopper struct{}

func (nopStopper) Stop() {}

// Start begins profiling as configured. The returned Stopper is never nil when err is nil.
func Start(cfg config.ProfileConfig) (Stopper, error) {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case config.ProfileOff:
		return nopStopper{}, nil
	case config.ProfileCPU:
		mode = profile.CPUProfile
	case config.ProfileMem:
		mode = profile.MemProfileAllocs
	default:
		return nil, fmt.Errorf("unknown profile mode %q", cfg.Mode)
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	logger.Info("profiling enabled", zap.String("mode", cfg.Mode), zap.String("dir", dir))
	return profile.Start(mode, profile.ProfilePath(dir), profile.NoShutdownHook, profile.Quiet), nil
}
