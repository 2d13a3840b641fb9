package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/scholar-matcher/internal/ai"
	"github.com/spigell/scholar-matcher/internal/filtering"
	"github.com/spigell/scholar-matcher/internal/matching"
	"github.com/spigell/scholar-matcher/internal/report"
	"github.com/spigell/scholar-matcher/internal/store"
)

const (
	PromptRecommendations     = "Show recommendations"
	PromptEligibility         = "Show eligibility"
	PromptStats               = "Show statistics"
	PromptReportByOrgs        = "Report by organizations"
	PromptOffersToFile        = "Dump scholarships to file"
	PromptAppendToExcludeFile = "Append recommended scholarships to exclude file"
	PromptAskAdvisor          = "Ask the advisor"
	PromptFilterStatus        = "Show filter status"
	PromptExit                = "Exit"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scholar-matcher interactively",
	Run: func(cmd *cobra.Command, _ []string) {
		s := newSession(cmd)
		defer s.close()

		run(s, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// interactive holds the state of one run loop.
type interactive struct {
	s       *session
	w       io.Writer
	profile *matching.Profile
	offers  *store.Offers
	advisor ai.Advisor
	history []ai.Turn
}

// run is the main interactive command for the cli.
func run(s *session, w io.Writer) {
	profile, offers, err := s.load()
	if err != nil {
		s.logger.Fatal("loading profile and catalog", zap.Error(err))
	}

	if offers.Len() == 0 {
		s.logger.Info("exiting", zap.String("reason", "no scholarships left after filters"))
		return
	}

	state := &interactive{s: s, w: w, profile: profile, offers: offers}

	if s.config.AI.Enabled {
		state.advisor, err = s.advisor()
		if err != nil {
			s.logger.Warn("skipping the advisor", zap.Error(err))
		}
	}

	prompt := promptui.Select{
		Label: "What next?",
		Items: state.actions(),
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			s.logger.Fatal("exiting", zap.Error(err))
		}

		s.logger.Info("current list of scholarships", zap.Int("count", state.offers.Len()))

		if err := state.handleAction(action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			s.logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func (st *interactive) actions() []string {
	items := []string{PromptRecommendations, PromptEligibility, PromptStats, PromptReportByOrgs, PromptOffersToFile}
	if st.s.config.Filters.ExcludeFile != "" {
		items = append(items, PromptAppendToExcludeFile)
	}
	if st.advisor != nil {
		items = append(items, PromptAskAdvisor)
	}
	return append(items, PromptFilterStatus, PromptExit)
}

func (st *interactive) handleAction(action string) error {
	switch action {
	case PromptRecommendations:
		recs, err := st.recommend()
		if err != nil {
			return err
		}
		report.Recommendations(st.w, recs, st.s.now)
		return nil
	case PromptEligibility:
		rep, err := matching.CheckEligibility(st.profile, st.offers.Slice(), st.s.options())
		if err != nil {
			return err
		}
		report.Eligibility(st.w, rep)
		return nil
	case PromptStats:
		rep, err := matching.CheckEligibility(st.profile, st.offers.Slice(), st.s.options())
		if err != nil {
			return err
		}
		report.Stats(st.w, matching.Stats(rep))
		return nil
	case PromptReportByOrgs:
		return report.ByOrganization(st.w, st.offers)
	case PromptOffersToFile:
		filename, err := store.DumpToTmpFile("scholarships-*.json", st.offers.Items)
		if err != nil {
			return fmt.Errorf("dump scholarships to file: %w", err)
		}
		st.s.logger.Info("dumping scholarships to file", zap.String("filename", filename))
		return nil
	case PromptAppendToExcludeFile:
		return st.appendToExcludeFile()
	case PromptAskAdvisor:
		return st.askAdvisor()
	case PromptFilterStatus:
		report.Filters(st.w, filtering.Describe(st.s.steps))
		return nil
	case PromptExit:
		st.s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (st *interactive) recommend() ([]matching.Recommendation, error) {
	return matching.Recommend(st.profile, st.offers.Slice(), st.s.now, st.s.options())
}

// appendToExcludeFile records the current recommendations as dismissed and
// drops them from the catalog for the rest of the session.
func (st *interactive) appendToExcludeFile() error {
	excludeFile := st.s.config.Filters.ExcludeFile

	recs, err := st.recommend()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		st.s.logger.Info("nothing to exclude", zap.String("reason", "no recommendations"))
		return nil
	}

	recommended := &store.Offers{}
	for _, rec := range recs {
		if offer := st.offers.FindByID(rec.Offer.ID); offer != nil {
			recommended.Items = append(recommended.Items, offer)
		}
	}

	excluded, err := store.GetExcludedOffersFromFile(excludeFile)
	if err != nil {
		return err
	}

	excluded.Append(recommended.ToExcluded(time.Now()))

	if err = excluded.ToFile(excludeFile); err != nil {
		return err
	}

	st.s.logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("count", recommended.Len()))

	st.offers.Exclude(store.OfferIDField, excluded.IDs())
	return nil
}

func (st *interactive) askAdvisor() error {
	input := promptui.Prompt{
		Label: "Your question",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("question must not be empty")
			}
			return nil
		},
	}

	message, err := input.Run()
	if err != nil {
		return err
	}

	recs, err := st.recommend()
	if err != nil {
		return err
	}

	answer, err := st.advisor.Ask(st.s.ctx, ai.Question{
		Profile:         st.profile,
		Recommendations: recs,
		History:         st.history,
		Message:         message,
	})
	if err != nil {
		// a failed question should not end the session
		st.s.logger.Error("asking the advisor", zap.Error(err))
		return nil
	}

	printAnswer(st.w, answer)

	st.history = append(st.history,
		ai.Turn{Role: ai.RoleStudent, Text: message},
		ai.Turn{Role: ai.RoleAdvisor, Text: answer.Reply},
	)

	st.s.logger.Debug("advisor answered", zap.Int("history_turns", len(st.history)))
	return nil
}
