package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/scholar-matcher/internal/store"
)

// ActiveStepName is the name of the step that drops closed offers.
const ActiveStepName = "active"

type activeFilter struct {
	disabled bool
	reason   string
}

// NewActive creates a filter that removes offers not accepting applications.
func NewActive() Filter {
	return &activeFilter{}
}

func (f *activeFilter) Name() string { return ActiveStepName }

func (f *activeFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *activeFilter) IsEnabled() bool { return !f.disabled }

func (f *activeFilter) Validate(*Config) error { return nil }

func (f *activeFilter) Apply(_ context.Context, deps Deps, o *store.Offers) (*store.Offers, Step, error) {
	initial := o.Len()
	excluded := o.ExcludeInactive()
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding inactive scholarships",
			zap.Strings("excluded_offers", excluded),
			zap.Int("offers_left", o.Len()),
		)
	}

	return o, Step{Initial: initial, Dropped: len(excluded), Left: o.Len()}, nil
}

func (f *activeFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
