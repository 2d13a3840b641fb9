package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/scholar-matcher/internal/ai"
	"github.com/spigell/scholar-matcher/internal/logger"
	"github.com/spigell/scholar-matcher/internal/utils"
)

type contentGenerator interface {
	Converse(ctx context.Context, system string, history []ai.Turn, message string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength      = 200
	defaultTopOffers         = 5
	defaultTone              = "Friendly"
	defaultLanguage          = "same as the student's message"
	maxUserInstructionRunes  = 500
	userInstructionsFallback = "  - none"
)

// PromptOverrides are student supplied adjustments to the advisor prompt.
type PromptOverrides struct {
	Tone             string
	Language         string
	UserInstructions string
}

// Advisor answers student questions with Gemini, grounded on the matcher output.
type Advisor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	topOffers int
	overrides PromptOverrides
}

var _ ai.Advisor = (*Advisor)(nil)

func NewAdvisor(generator contentGenerator, log *zap.Logger, maxLogLength, topOffers int) *Advisor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if topOffers <= 0 {
		topOffers = defaultTopOffers
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Advisor{
		generator: generator,
		logger:    logger.WithCommonFields(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
		topOffers: topOffers,
	}
}

func (a *Advisor) SetPromptOverrides(overrides PromptOverrides) {
	a.overrides = overrides
}

func (a *Advisor) Ask(ctx context.Context, q ai.Question) (*ai.Answer, error) {
	message := strings.TrimSpace(q.Message)
	if message == "" {
		return nil, errors.New("question must not be empty")
	}

	system, err := a.buildPrompt(q)
	if err != nil {
		return nil, err
	}
	history := ai.RecentTurns(q.History, ai.MaxHistoryTurns)

	profileID := ""
	if q.Profile != nil {
		profileID = q.Profile.ID
	}
	log := logger.WithFields(a.logger, logger.MatchFields(profileID, "")...)

	log.Debug("gemini advisor request",
		zap.Int("prompt_length", utf8.RuneCountInString(system)),
		zap.Int("history_turns", len(history)),
		zap.String("question_preview", utils.TruncateForLog(message, a.maxLogLen)),
	)

	raw, err := a.generator.Converse(ctx, system, history, message)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini advisor response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	answer, err := parseAnswer(raw)
	if err != nil {
		return nil, err
	}
	answer.Suggestions = ai.FollowUpSuggestions(message, answer.Reply)
	return answer, nil
}

func (a *Advisor) buildPrompt(q ai.Question) (string, error) {
	profileJSON := "not provided"
	if q.Profile != nil {
		data, err := json.MarshalIndent(q.Profile, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal profile payload: %w", err)
		}
		profileJSON = string(data)
	}

	recs := q.Recommendations
	if len(recs) > a.topOffers {
		recs = recs[:a.topOffers]
	}
	payload := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		entry := map[string]any{
			"id":           rec.Offer.ID,
			"title":        rec.Offer.Title,
			"organization": rec.Offer.Organization,
			"amount":       rec.Offer.Amount,
			"currency":     rec.Offer.Currency,
			"score":        rec.Score,
			"reasons":      rec.Reasons,
		}
		if !rec.Offer.Deadline.IsZero() {
			entry["deadline"] = rec.Offer.Deadline.Format(time.DateOnly)
		}
		payload = append(payload, entry)
	}
	recsJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal recommendations payload: %w", err)
	}

	tone := sanitizeSingleLine(a.overrides.Tone)
	if tone == "" {
		tone = defaultTone
	}
	language := sanitizeSingleLine(a.overrides.Language)
	if language == "" {
		language = defaultLanguage
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Profile:\n{{PROFILE_JSON}}\n\nScholarships:\n{{RECOMMENDATIONS_JSON}}\n\nJSON Response:"
	}

	replacer := strings.NewReplacer(
		"{{TONE}}", tone,
		"{{LANGUAGE}}", language,
		"{{USER_INSTRUCTIONS}}", sanitizeInstructions(a.overrides.UserInstructions),
		"{{PROFILE_JSON}}", profileJSON,
		"{{RECOMMENDATIONS_JSON}}", string(recsJSON),
	)
	return replacer.Replace(template), nil
}

// sanitizeSingleLine collapses whitespace and defuses section markers.
func sanitizeSingleLine(s string) string {
	s = strings.NewReplacer("[", "(", "]", ")").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// sanitizeInstructions renders free-form student instructions as a bullet list capped at maxUserInstructionRunes.
func sanitizeInstructions(s string) string {
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > maxUserInstructionRunes {
		s = string(runes[:maxUserInstructionRunes])
	}

	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if line = sanitizeSingleLine(line); line != "" {
			lines = append(lines, "  - "+line)
		}
	}
	if len(lines) == 0 {
		return userInstructionsFallback
	}
	return strings.Join(lines, "\n")
}

// parseAnswer reads the JSON reply. A model that ignores the schema still
// yields its text as the reply.
func parseAnswer(raw string) (*ai.Answer, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, errors.New("gemini returned an empty answer")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err == nil {
		if reply := coerceString(data["reply"]); reply != "" {
			return &ai.Answer{
				Reply:      reply,
				Highlights: coerceStrings(data["highlights"]),
				Raw:        raw,
			}, nil
		}
	}

	return &ai.Answer{Reply: strings.TrimSpace(raw), Raw: raw}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func coerceStrings(v any) []string {
	var items []any
	switch val := v.(type) {
	case []any:
		items = val
	case string:
		items = []any{val}
	default:
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
