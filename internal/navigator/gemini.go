package navigator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Driver is the narrow browser surface the Gemini navigator acts through.
// It is deliberately smaller than the crawler's own page capability; the
// model only ever gets a handful of verbs.
type Driver interface {
	Goto(url string) error
	BodyText() (string, error)
	Click(selector string) error
	Type(selector, text string) error
	Press(key string) error
}

const geminiModel = "gemini-1.5-flash"

// maxObservation bounds how much page text is sent per step.
const maxObservation = 4000

// Gemini runs a bounded observe-act loop: each step it shows the model the
// page's visible text and asks for exactly one action from a small grammar,
// until the model declares a terminal outcome or the step budget runs out.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	driver Driver
	logger *slog.Logger
}

func NewGemini(ctx context.Context, apiKey string, driver Driver, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{
		client: client,
		model:  client.GenerativeModel(geminiModel),
		driver: driver,
		logger: logger.With("component", "navigator"),
	}, nil
}

func (g *Gemini) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func (g *Gemini) Available() bool { return g != nil && g.client != nil }

func (g *Gemini) Attempt(ctx context.Context, task Task) (Outcome, error) {
	maxSteps := task.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10
	}

	var lastActionResult string
	for step := 0; step < maxSteps; step++ {
		observation, err := g.driver.BodyText()
		if err != nil {
			observation = fmt.Sprintf("(页面文本不可读: %v)", err)
		}
		if runes := []rune(observation); len(runes) > maxObservation {
			observation = string(runes[:maxObservation])
		}

		reply, err := g.generate(ctx, task.Text, observation, lastActionResult, step, maxSteps)
		if err != nil {
			return Outcome{}, fmt.Errorf("generate step %d: %w", step, err)
		}

		action, arg, rest := parseAction(reply)
		g.logger.Debug("navigator step", "step", step, "action", action, "arg", arg)

		switch action {
		case "DONE":
			return ParseOutcome(arg), nil
		case "NAVIGATE":
			lastActionResult = actionResult(g.driver.Goto(arg))
		case "CLICK":
			lastActionResult = actionResult(g.driver.Click(arg))
		case "TYPE":
			lastActionResult = actionResult(g.driver.Type(arg, rest))
		case "PRESS":
			lastActionResult = actionResult(g.driver.Press(arg))
		default:
			lastActionResult = fmt.Sprintf("无法理解的动作: %q", action)
		}
	}

	return Outcome{Kind: OutcomeFailed, Detail: "step budget exhausted"}, nil
}

func (g *Gemini) generate(ctx context.Context, taskText, observation, lastResult string, step, maxSteps int) (string, error) {
	prompt := fmt.Sprintf(`%s

你通过浏览器执行上述任务。当前是第 %d/%d 步。

【当前页面可见文本】
%s

【上一步执行结果】
%s

【回复格式，只回复一行】
NAVIGATE: <url>
CLICK: <css选择器>
TYPE: <css选择器> | <文本>
PRESS: <按键名>
DONE: SUCCESS: <说明> / DONE: FAILED: <原因> / DONE: CAPTCHA`,
		taskText, step+1, maxSteps, observation, lastResult)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("model returned no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// parseAction splits the first non-empty reply line into verb, first
// argument, and the remainder after a "|" separator (TYPE only).
func parseAction(reply string) (action, arg, rest string) {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		verb, remainder, found := strings.Cut(line, ":")
		if !found {
			return strings.ToUpper(line), "", ""
		}
		action = strings.ToUpper(strings.TrimSpace(verb))
		remainder = strings.TrimSpace(remainder)
		if action == "TYPE" {
			if sel, text, ok := strings.Cut(remainder, "|"); ok {
				return action, strings.TrimSpace(sel), strings.TrimSpace(text)
			}
		}
		return action, remainder, ""
	}
	return "", "", ""
}

func actionResult(err error) string {
	if err != nil {
		return fmt.Sprintf("失败: %v", err)
	}
	return "成功"
}
