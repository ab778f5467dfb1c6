// Package progress derives the cooking stage shown to a customer from the time
// elapsed since preparation started. It is display only and never changes an
// order.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/franciscosanchezn/pizzeria/internal/models"
)

// DefaultMessages are shown for stages 0..8, the last one meaning ready
var DefaultMessages = []string{
	"Order received by the kitchen",
	"Kneading the dough",
	"Spreading the sauce",
	"Adding the toppings",
	"Into the oven",
	"Baking",
	"Almost there",
	"Slicing and boxing",
	"Your order is ready!",
}

// Config controls the derivation and its polling loop
type Config struct {
	// Stages is N: the stage reached after N full minutes, and the ready stage
	Stages int
	// Interval between re-evaluations while a view is watching
	Interval time.Duration
	// Messages has one entry per stage 0..N
	Messages []string
}

// DefaultConfig is eight one-minute stages polled every second
func DefaultConfig() Config {
	return Config{
		Stages:   8,
		Interval: time.Second,
		Messages: DefaultMessages,
	}
}

// ForStages builds a config with n stages, spreading DefaultMessages over
// them. The last message always announces the order as ready.
func ForStages(n int, interval time.Duration) Config {
	if n < 1 {
		return Config{Stages: n, Interval: interval}
	}
	last := len(DefaultMessages) - 1
	messages := make([]string, n+1)
	for i := 0; i < n; i++ {
		messages[i] = DefaultMessages[i*last/n]
	}
	messages[n] = DefaultMessages[last]
	return Config{Stages: n, Interval: interval, Messages: messages}
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	if c.Stages < 1 {
		return fmt.Errorf("progress: stages must be positive, got %d", c.Stages)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("progress: interval must be positive, got %s", c.Interval)
	}
	if len(c.Messages) != c.Stages+1 {
		return fmt.Errorf("progress: need %d messages for %d stages, got %d", c.Stages+1, c.Stages, len(c.Messages))
	}
	return nil
}

// Stage returns floor(minutes since start) clamped to [0, N], or N when
// readyOverride is set.
func (c Config) Stage(start time.Time, readyOverride bool, now time.Time) int {
	if readyOverride {
		return c.Stages
	}
	elapsed := int(now.Sub(start) / time.Minute)
	if elapsed < 0 {
		return 0
	}
	if elapsed > c.Stages {
		return c.Stages
	}
	return elapsed
}

// Message returns the display text for a stage
func (c Config) Message(stage int) string {
	if len(c.Messages) == 0 {
		return ""
	}
	if stage < 0 {
		stage = 0
	}
	if stage >= len(c.Messages) {
		stage = len(c.Messages) - 1
	}
	return c.Messages[stage]
}

// Snapshot is the derived display state at one instant
type Snapshot struct {
	Started bool
	Stage   int
	Stages  int
	Ready   bool
	Message string
}

// readyOverride reports statuses that force the last stage regardless of the timer
func readyOverride(status models.OrderStatus) bool {
	switch status {
	case models.StatusReady, models.StatusDelivered, models.StatusCompleted:
		return true
	}
	return false
}

// ForOrder derives the snapshot for an order. An order that never reached
// preparing stays at stage 0 unless its status already says ready.
func (c Config) ForOrder(order models.Order, now time.Time) Snapshot {
	override := readyOverride(order.Status)
	start, started := order.PreparingStartedAt()
	stage := 0
	if started || override {
		stage = c.Stage(start, override, now)
	}
	return Snapshot{
		Started: started,
		Stage:   stage,
		Stages:  c.Stages,
		Ready:   override,
		Message: c.Message(stage),
	}
}

// Source returns the current order for a watcher; ok is false when the order
// is no longer available
type Source func() (order models.Order, ok bool)

// Watch re-derives the snapshot every Interval and hands it to emit, starting
// immediately. It returns when ctx is cancelled or the source reports the
// order gone; cancel ctx when the view is torn down.
func (c Config) Watch(ctx context.Context, now func() time.Time, source Source, emit func(Snapshot)) error {
	if err := c.Validate(); err != nil {
		return err
	}
	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		order, ok := source()
		if !ok {
			return nil
		}
		emit(c.ForOrder(order, now()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
