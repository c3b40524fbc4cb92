package compact

import (
	"fmt"
	"log/slog"

	"github.com/kestrelodds/arbiter/internal/pkg/interfaces"
	"github.com/kestrelodds/arbiter/internal/pkg/providers"
)

func init() {
	providers.Register("compact", func(cfg any) (interfaces.Adapter, error) {
		c, ok := cfg.(Config)
		if !ok {
			return nil, fmt.Errorf("compact: unexpected config type %T", cfg)
		}
		return New(c, slog.Default()), nil
	})
}
