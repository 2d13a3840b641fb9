package matching

import (
	"cmp"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the number of recommendations returned when Options.Limit
// is not positive.
const DefaultLimit = 20

// Options tunes the aggregator. The zero value evaluates sequentially and
// returns DefaultLimit recommendations.
type Options struct {
	Limit int
	// Workers bounds concurrent per-offer evaluation. Values below 2 run
	// sequentially. Output does not depend on it.
	Workers int
}

func (o Options) limit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

// RankedOffer is an offer annotated with the eligibility reasons computed for
// it. Reasons is empty for eligible offers.
type RankedOffer struct {
	Offer   Offer    `json:"offer"`
	Reasons []string `json:"reasons"`
}

// EligibilityReport partitions a catalog by eligibility. Both buckets keep
// catalog order.
type EligibilityReport struct {
	Eligible      []RankedOffer `json:"eligible"`
	Ineligible    []RankedOffer `json:"ineligible"`
	Total         int           `json:"total"`
	EligibleCount int           `json:"eligibleCount"`
}

// EligibilityStats summarizes an EligibilityReport.
type EligibilityStats struct {
	Total         int `json:"totalScholarships"`
	EligibleCount int `json:"eligibleCount"`
	Percentage    int `json:"eligibilityPercentage"`
}

// Recommend scores every offer, drops zero scores, orders by score
// descending and truncates to the limit. Equal scores keep catalog order.
func Recommend(p *Profile, offers []*Offer, now time.Time, opts Options) ([]Recommendation, error) {
	if err := validateCatalog(p, offers); err != nil {
		return nil, err
	}

	scored := make([]Recommendation, len(offers))
	forEachOffer(offers, opts.Workers, func(i int, o *Offer) {
		scored[i] = score(p, o, now)
	})

	out := make([]Recommendation, 0, len(scored))
	for _, rec := range scored {
		if rec.Score > 0 {
			out = append(out, rec)
		}
	}

	slices.SortStableFunc(out, func(a, b Recommendation) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if limit := opts.limit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CheckEligibility evaluates the whole catalog without sorting or truncation.
func CheckEligibility(p *Profile, offers []*Offer, opts Options) (EligibilityReport, error) {
	if err := validateCatalog(p, offers); err != nil {
		return EligibilityReport{}, err
	}

	verdicts := make([]Verdict, len(offers))
	forEachOffer(offers, opts.Workers, func(i int, o *Offer) {
		verdicts[i] = evaluate(p, o)
	})

	report := EligibilityReport{
		Eligible:   make([]RankedOffer, 0),
		Ineligible: make([]RankedOffer, 0),
		Total:      len(offers),
	}
	for i, verdict := range verdicts {
		ranked := RankedOffer{Offer: *offers[i], Reasons: verdict.Reasons}
		if verdict.Eligible {
			report.Eligible = append(report.Eligible, ranked)
			continue
		}
		report.Ineligible = append(report.Ineligible, ranked)
	}
	report.EligibleCount = len(report.Eligible)

	return report, nil
}

// Stats returns the eligible share of the report rounded to a whole percent.
// An empty catalog yields zero.
func Stats(report EligibilityReport) EligibilityStats {
	stats := EligibilityStats{Total: report.Total, EligibleCount: report.EligibleCount}
	if report.Total > 0 {
		stats.Percentage = int(math.Round(float64(report.EligibleCount) / float64(report.Total) * 100))
	}
	return stats
}

// forEachOffer calls fn for every offer. Each call writes only its own index,
// so no synchronization beyond the final Wait is needed.
func forEachOffer(offers []*Offer, workers int, fn func(i int, o *Offer)) {
	if workers < 2 || len(offers) < 2 {
		for i, o := range offers {
			fn(i, o)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, o := range offers {
		g.Go(func() error {
			fn(i, o)
			return nil
		})
	}
	_ = g.Wait()
}
