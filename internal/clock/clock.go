package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time.Now so expiry sweeps and queue ordering can be
// tested against a controlled clock.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return NewSystemClock() }),
)
