package ai

import (
	"context"
	"strings"

	"github.com/spigell/scholar-matcher/internal/matching"
)

// MaxHistoryTurns is how many of the latest conversation turns are sent along with a question.
const MaxHistoryTurns = 10

const (
	RoleStudent = "student"
	RoleAdvisor = "advisor"
)

// Turn is one message of an advisor conversation.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Question is a student message together with the matching context the advisor may use.
type Question struct {
	Profile         *matching.Profile
	Recommendations []matching.Recommendation
	History         []Turn
	Message         string
}

// Answer is the advisor reply.
type Answer struct {
	Reply       string
	Highlights  []string
	Suggestions []string
	Raw         string
}

type Advisor interface {
	Ask(ctx context.Context, q Question) (*Answer, error)
}

// RecentTurns returns at most n of the latest turns, dropping blank ones.
func RecentTurns(history []Turn, n int) []Turn {
	kept := make([]Turn, 0, len(history))
	for _, turn := range history {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		kept = append(kept, turn)
	}
	if n >= 0 && len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return kept
}

// FollowUpSuggestions proposes up to three next questions for the student.
func FollowUpSuggestions(message, reply string) []string {
	message = strings.ToLower(message)
	reply = strings.ToLower(reply)

	if strings.Contains(message, "scholarship") || strings.Contains(reply, "scholarship") {
		return []string{"What documents do I need?", "When is the deadline?", "Am I eligible?"}
	}
	return []string{"Tell me about popular scholarships", "How do I improve my chances?", "What if I need financial help?"}
}
