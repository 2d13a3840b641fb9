package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/scholar-matcher/internal/store"
)

type organizationsFilter struct {
	disabled      bool
	reason        string
	organizations []string
}

// NewOrganizations creates a filter that removes offers from organizations configured in the config.
func NewOrganizations() Filter {
	return &organizationsFilter{}
}

func (f *organizationsFilter) Name() string { return "organizations" }

func (f *organizationsFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *organizationsFilter) IsEnabled() bool { return !f.disabled }

func (f *organizationsFilter) Validate(cfg *Config) error {
	f.organizations = nil
	if cfg == nil {
		return nil
	}
	for _, org := range cfg.ExcludeOrganizations {
		if org = strings.TrimSpace(org); org != "" {
			f.organizations = append(f.organizations, org)
		}
	}
	return nil
}

func (f *organizationsFilter) Apply(_ context.Context, deps Deps, o *store.Offers) (*store.Offers, Step, error) {
	initial := o.Len()
	if len(f.organizations) == 0 {
		return o, Step{Initial: initial, Dropped: 0, Left: o.Len()}, nil
	}

	excluded := o.Exclude(store.OfferOrganizationField, f.organizations)
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding scholarships by organizations",
			zap.Strings("excluded_organizations", f.organizations),
			zap.Strings("excluded_offers", excluded),
			zap.Int("offers_left", o.Len()),
		)
	}

	return o, Step{Initial: initial, Dropped: len(excluded), Left: o.Len()}, nil
}

func (f *organizationsFilter) Status() Status {
	details := map[string]string{}
	if len(f.organizations) > 0 {
		details["organizations"] = strings.Join(f.organizations, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
