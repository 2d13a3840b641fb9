package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/scholar-matcher/internal/matching"
	"github.com/spigell/scholar-matcher/internal/report"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank scholarships by relevance for the student",
	Run: func(cmd *cobra.Command, _ []string) {
		s := newSession(cmd)
		defer s.close()

		if err := recommend(s, cmd.OutOrStdout(), outputFormat(cmd)); err != nil {
			s.logger.Fatal("recommending scholarships", zap.Error(err))
		}
	},
}

var eligibilityCmd = &cobra.Command{
	Use:   "eligibility",
	Short: "Show which scholarships the student is eligible for and why not for the rest",
	Run: func(cmd *cobra.Command, _ []string) {
		s := newSession(cmd)
		defer s.close()

		if err := eligibility(s, cmd.OutOrStdout(), outputFormat(cmd)); err != nil {
			s.logger.Fatal("checking eligibility", zap.Error(err))
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count the scholarships the student is eligible for",
	Run: func(cmd *cobra.Command, _ []string) {
		s := newSession(cmd)
		defer s.close()

		if err := stats(s, cmd.OutOrStdout(), outputFormat(cmd)); err != nil {
			s.logger.Fatal("computing eligibility statistics", zap.Error(err))
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{recommendCmd, eligibilityCmd, statsCmd} {
		c.Flags().StringP("output", "o", outputTable, "output format: table or json")
		rootCmd.AddCommand(c)
	}
}

func outputFormat(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("output")
	if err != nil || format == "" {
		return outputTable
	}
	return format
}

func recommend(s *session, w io.Writer, format string) error {
	profile, offers, err := s.load()
	if err != nil {
		return err
	}

	recs, err := matching.Recommend(profile, offers.Slice(), s.now, s.options())
	if err != nil {
		return err
	}

	s.logger.Info("recommendations ready", zap.Int("count", len(recs)), zap.Int("candidates", offers.Len()))

	return render(w, format, recs, func() { report.Recommendations(w, recs, s.now) })
}

func eligibility(s *session, w io.Writer, format string) error {
	profile, offers, err := s.load()
	if err != nil {
		return err
	}

	rep, err := matching.CheckEligibility(profile, offers.Slice(), s.options())
	if err != nil {
		return err
	}

	return render(w, format, rep, func() { report.Eligibility(w, rep) })
}

func stats(s *session, w io.Writer, format string) error {
	profile, offers, err := s.load()
	if err != nil {
		return err
	}

	rep, err := matching.CheckEligibility(profile, offers.Slice(), s.options())
	if err != nil {
		return err
	}
	summary := matching.Stats(rep)

	return render(w, format, summary, func() { report.Stats(w, summary) })
}

func render(w io.Writer, format string, v any, table func()) error {
	switch format {
	case outputTable:
		table()
		return nil
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
