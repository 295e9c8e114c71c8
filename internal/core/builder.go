package core

import (
	"io"
	"os"

	"peerkeep/config"
	"peerkeep/util"
)

// Build constructs the appropriate Mode from the given configuration.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	stack, err := buildStack(cfg, logger)
	if err != nil {
		return nil, err
	}

	switch {
	case cfg.Resolve:
		return &ResolveMode{Stack: stack}, nil
	case cfg.Once:
		return &OnceMode{Stack: stack}, nil
	default:
		return &RunMode{
			Stack:       stack,
			Listen:      cfg.Listen,
			MetricsAddr: cfg.MetricsAddr,
			GracePeriod: config.DefaultGracePeriod,
		}, nil
	}
}

// stdout returns w, or os.Stdout when w is nil.
func stdout(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stdout
}
