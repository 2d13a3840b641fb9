package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/scholar-matcher/internal/ai"
	"github.com/spigell/scholar-matcher/internal/matching"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the scholarship advisor a question about the recommendations",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := newSession(cmd)
		defer s.close()

		historyFile, _ := cmd.Flags().GetString("history")

		if err := ask(s, cmd.OutOrStdout(), strings.Join(args, " "), historyFile); err != nil {
			s.logger.Fatal("asking the advisor", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().String("history", "", "json file with the conversation so far; the new exchange is appended to it")
}

func ask(s *session, w io.Writer, message, historyFile string) error {
	advisor, err := s.advisor()
	if err != nil {
		return err
	}
	return askWith(s, advisor, w, message, historyFile)
}

func askWith(s *session, advisor ai.Advisor, w io.Writer, message, historyFile string) error {
	profile, offers, err := s.load()
	if err != nil {
		return err
	}

	recs, err := matching.Recommend(profile, offers.Slice(), s.now, s.options())
	if err != nil {
		return err
	}

	history, err := loadHistory(historyFile)
	if err != nil {
		return err
	}

	answer, err := advisor.Ask(s.ctx, ai.Question{
		Profile:         profile,
		Recommendations: recs,
		History:         history,
		Message:         message,
	})
	if err != nil {
		return err
	}

	printAnswer(w, answer)

	if historyFile == "" {
		return nil
	}

	history = append(history,
		ai.Turn{Role: ai.RoleStudent, Text: message},
		ai.Turn{Role: ai.RoleAdvisor, Text: answer.Reply},
	)
	return saveHistory(historyFile, history)
}

func printAnswer(w io.Writer, answer *ai.Answer) {
	fmt.Fprintln(w, answer.Reply)

	if len(answer.Highlights) > 0 {
		color.New(color.FgYellow).Fprintln(w, "\nHighlights:")
		for _, h := range answer.Highlights {
			fmt.Fprintf(w, "  - %s\n", h)
		}
	}

	if len(answer.Suggestions) > 0 {
		color.New(color.FgCyan).Fprintln(w, "\nYou could also ask:")
		for _, q := range answer.Suggestions {
			fmt.Fprintf(w, "  - %s\n", q)
		}
	}
}

// loadHistory reads conversation turns. A missing or empty file means no history.
func loadHistory(path string) ([]ai.Turn, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var turns []ai.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("decoding history %s: %w", path, err)
	}
	return turns, nil
}

func saveHistory(path string, turns []ai.Turn) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
