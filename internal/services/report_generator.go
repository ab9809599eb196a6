package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/burnoutcheck/backend/internal/assessment"
	"github.com/burnoutcheck/backend/internal/config"
	"github.com/burnoutcheck/backend/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ReportInput is everything the generator learns about a user.
type ReportInput struct {
	FullName string
	Score    int
	Level    string
	Answers  models.AnswerLabels
}

// TextGenerator produces the report text for one user.
type TextGenerator interface {
	Generate(ctx context.Context, in ReportInput) (string, error)
}

// ReportSections are the headings every report must carry.
var ReportSections = []string{
	"Introduction",
	"Understanding Your Burnout Level",
	"Key Burnout Drivers",
	"Your Recovery Focus",
	"14-Day Recovery Action Plan",
	"Work-Life Boundary Recommendations",
	"Sustainable Habits",
	"Closing Message",
}

const (
	minReportLength   = 500
	minReportSections = 6
)

// ValidateReportContent accepts a report of at least 500 characters (runes) that
// names at least six of the eight sections, ignoring case.
func ValidateReportContent(content string) bool {
	if utf8.RuneCountInString(content) < minReportLength {
		return false
	}
	lower := strings.ToLower(content)
	found := 0
	for _, section := range ReportSections {
		if strings.Contains(lower, strings.ToLower(section)) {
			found++
		}
	}
	return found >= minReportSections
}

const systemPrompt = "You are an expert workplace wellness coach specializing in burnout recovery."

var reportPrompt = template.Must(template.New("prompt").Parse(`You are a professional workplace wellness coach specializing in burnout recovery for working professionals. Generate a comprehensive, personalized burnout recovery report based on the user's assessment.

USER DETAILS:
- Name: {{.Name}}
- Burnout Score: {{.Score}}/100
- Burnout Level: {{.Level}}

ASSESSMENT ANSWERS:
{{range .Answers}}{{.Number}}. {{.Question}}: {{.Answer}}
{{end}}
TONE & STYLE:
- Professional, warm, and supportive
- Use their first name naturally throughout
- Be specific to their answers (not generic)
- Actionable and practical
- Avoid medical terminology or clinical diagnoses
- No fear-based language

MANDATORY STRUCTURE - Generate exactly these 8 sections:

---

# Your Personalized Burnout Recovery Report

## 1. Introduction
Address {{.Name}} by first name. Acknowledge them taking this step. Briefly mention their burnout score and level. Set a supportive, non-judgmental tone. (2-3 paragraphs)

## 2. Understanding Your Burnout Level
Explain what {{.Level}} burnout means. Put their score ({{.Score}}/100) in context. Describe typical signs at this stage. Normalize their experience. (3-4 paragraphs)

## 3. Key Burnout Drivers
Based on their specific answers, identify 3-5 main factors causing their burnout. Use bullet points. Reference their actual responses. Be specific, not generic. (Introduction + 3-5 detailed bullets)

## 4. Your Recovery Focus
Define their primary recovery goal based on burnout level. Set realistic expectations. Outline key mindset shifts needed. (2-3 paragraphs)

## 5. 14-Day Recovery Action Plan
Provide a detailed two-week plan:
- Week 1: Focus and specific daily actions (3-5 steps)
- Week 2: Building momentum and specific actions (3-5 steps)
Tailor actions to their burnout level. Make steps small and achievable. (Substantial section with clear weekly breakdown)

## 6. Work-Life Boundary Recommendations
Provide 5-7 specific boundary strategies:
- Digital boundaries (email, notifications)
- Time boundaries (work hours, disconnection)
- Mental boundaries (rumination, work thoughts)
- Physical boundaries (workspace)
- Communication boundaries (saying no)
Tailor to their specific challenges. Use bullet format with explanations.

## 7. Sustainable Habits to Prevent Relapse
Recommend 5-7 ongoing practices:
- Daily micro-habits
- Weekly check-ins
- Monthly reviews
- Warning signs to watch
- Support systems
Make practical for busy professionals. Bullet format with explanations.

## 8. Closing Message
Encouragement and validation. Remind them recovery is achievable. Emphasize their progress in taking this step. End with hope and empowerment. (2 paragraphs)

---

FORMATTING:
- Use markdown with ## headings for sections
- Bold key phrases for emphasis
- Bullet points for lists
- Short paragraphs (3-5 sentences)
- White space for readability

LENGTH: 1500-2500 words total

Generate the complete report now, making it feel uniquely written for this individual based on their specific answers.`))

type promptAnswer struct {
	Number   int
	Question string
	Answer   string
}

// BuildReportPrompt renders the generation prompt for in. Only the first
// name is sent.
func BuildReportPrompt(in ReportInput) (string, error) {
	answers := make([]promptAnswer, 0, len(assessment.Questions))
	for i, q := range assessment.Questions {
		a, ok := in.Answers[i+1]
		if !ok {
			a = "Not answered"
		}
		answers = append(answers, promptAnswer{Number: i + 1, Question: q, Answer: a})
	}

	var buf bytes.Buffer
	err := reportPrompt.Execute(&buf, map[string]interface{}{
		"Name":    models.FirstName(in.FullName),
		"Score":   in.Score,
		"Level":   in.Level,
		"Answers": answers,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// OpenAIGenerator asks an OpenAI-compatible chat completion API for the report.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey, model, baseURL string, opts ...option.RequestOption) *OpenAIGenerator {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAIGenerator{client: openai.NewClient(reqOpts...), model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, in ReportInput) (string, error) {
	prompt, err := BuildReportPrompt(in)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(3000),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// TemplateGenerator writes a fixed report from the assessment alone. It
// needs no network and is meant for development and tests.
type TemplateGenerator struct{}

func (TemplateGenerator) Generate(_ context.Context, in ReportInput) (string, error) {
	name := models.FirstName(in.FullName)
	var b strings.Builder
	fmt.Fprintf(&b, "# Your Personalized Burnout Recovery Report\n\n")
	fmt.Fprintf(&b, "## 1. Introduction\n%s, thank you for taking the time to look at how work is affecting you. Your burnout score is %d/100, which places you in the %s range.\n\n", name, in.Score, in.Level)
	fmt.Fprintf(&b, "## 2. Understanding Your Burnout Level\nA %s level is a signal, not a verdict. Many professionals move through this stage and recover with small, consistent changes.\n\n", in.Level)
	fmt.Fprintf(&b, "## 3. Key Burnout Drivers\n")
	for i, q := range assessment.Questions {
		if a, ok := in.Answers[i+1]; ok {
			fmt.Fprintf(&b, "- %s: %s\n", q, a)
		}
	}
	fmt.Fprintf(&b, "\n## 4. Your Recovery Focus\nFocus on restoring energy before adding new goals.\n\n")
	fmt.Fprintf(&b, "## 5. 14-Day Recovery Action Plan\n- Week 1: protect one hour each evening without work messages.\n- Week 2: schedule two short breaks every workday and keep them.\n\n")
	fmt.Fprintf(&b, "## 6. Work-Life Boundary Recommendations\n- Turn off notifications after work hours.\n- Keep a clear end-of-day ritual.\n\n")
	fmt.Fprintf(&b, "## 7. Sustainable Habits to Prevent Relapse\n- A weekly check-in on energy and workload.\n- Notice early warning signs and act on them.\n\n")
	fmt.Fprintf(&b, "## 8. Closing Message\nRecovery is achievable, %s. Taking this assessment was the first step.\n", name)
	return b.String(), nil
}

// NewTextGenerator picks the generator named by REPORT_GENERATOR.
func NewTextGenerator(cfg *config.Config) (TextGenerator, error) {
	switch cfg.ReportGenerator {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the openai report generator")
		}
		return NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case "template":
		return TemplateGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown report generator %q", cfg.ReportGenerator)
	}
}
