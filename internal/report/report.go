package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/spigell/scholar-matcher/internal/filtering"
	"github.com/spigell/scholar-matcher/internal/matching"
	"github.com/spigell/scholar-matcher/internal/store"
)

var (
	title   = color.New(color.FgYellow)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

// Recommendations renders ranked offers, best first.
func Recommendations(w io.Writer, recs []matching.Recommendation, now time.Time) {
	title.Fprintf(w, "\nTop %d Scholarships\n", len(recs))
	table := newTable(w, "Rank", "ID", "Title", "Organization", "Amount", "Deadline", "Score", "Why")

	for i, rec := range recs {
		table.Append([]string{
			strconv.Itoa(i + 1),
			rec.Offer.ID,
			rec.Offer.Title,
			rec.Offer.Organization,
			amount(rec.Offer),
			deadline(rec.Offer, now),
			strconv.Itoa(rec.Score),
			strings.Join(rec.Reasons, "; "),
		})
	}

	table.Render()
}

// Eligibility renders eligible offers first, then the ineligible ones with every failed requirement.
func Eligibility(w io.Writer, report matching.EligibilityReport) {
	title.Fprintf(w, "\nEligibility (%d of %d)\n", report.EligibleCount, report.Total)
	table := newTable(w, "ID", "Title", "Organization", "Status", "Reasons")

	for _, ranked := range report.Eligible {
		table.Append([]string{ranked.Offer.ID, ranked.Offer.Title, ranked.Offer.Organization, success.Sprint("eligible"), ""})
	}
	for _, ranked := range report.Ineligible {
		table.Append([]string{
			ranked.Offer.ID,
			ranked.Offer.Title,
			ranked.Offer.Organization,
			failure.Sprint("not eligible"),
			strings.Join(ranked.Reasons, "; "),
		})
	}

	table.Render()
}

// Stats prints the eligibility summary line.
func Stats(w io.Writer, stats matching.EligibilityStats) {
	title.Fprintln(w, "\nEligibility Statistics")
	table := newTable(w, "Total", "Eligible", "Percentage")
	table.Append([]string{
		strconv.Itoa(stats.Total),
		strconv.Itoa(stats.EligibleCount),
		strconv.Itoa(stats.Percentage) + "%",
	})
	table.Render()
}

// Filters renders the status of the catalog preparation steps.
func Filters(w io.Writer, statuses []filtering.Status) {
	table := newTable(w, "Step", "Enabled", "Reason", "Details")
	for _, status := range statuses {
		details := make([]string, 0, len(status.Details))
		for key, value := range status.Details {
			details = append(details, key+"="+value)
		}
		slices.Sort(details)
		table.Append([]string{status.Name, strconv.FormatBool(status.Enabled), status.Reason, strings.Join(details, ", ")})
	}
	table.Render()
}

// ByOrganization writes the organization report as indented JSON.
func ByOrganization(w io.Writer, offers *store.Offers) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(offers.ReportByOrganization())
}

func amount(o matching.Offer) string {
	if o.Amount <= 0 {
		return "-"
	}
	return strings.TrimSpace(strconv.FormatFloat(o.Amount, 'f', -1, 64) + " " + o.Currency)
}

func deadline(o matching.Offer, now time.Time) string {
	if o.Deadline.IsZero() {
		return "-"
	}
	days := matching.DaysUntil(o.Deadline, now)
	if days <= 0 {
		return fmt.Sprintf("%s (closed)", o.Deadline.Format(time.DateOnly))
	}
	return fmt.Sprintf("%s (%dd)", o.Deadline.Format(time.DateOnly), days)
}
