package nlp

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowpilot-ai/copilot/internal/copilot/action"
)

// keywordProvider is the deterministic fallback interpreter.  It never
// errors, so a fallback chain ending in it always produces a reply.  Rules
// are an explicit ordered list so tests can enumerate each one and the
// default.
type keywordProvider struct{}

// NewKeyword returns the keyword-matching interpreter.
func NewKeyword() Provider {
	return keywordProvider{}
}

// keywordRule maps trigger keywords to a canned reply and optional action.
// The first rule with any keyword contained in the lowercased message wins.
type keywordRule struct {
	keywords []string
	reply    string
	action   *action.Action
}

var keywordRules = []keywordRule{
	{
		keywords: []string{"hello", "hi", "hey", "help"},
		reply: "Hey! I'm your FlowPilot copilot. I can:\n\n" +
			"- Create workflows from a plain-English description\n" +
			"- Run, clone, publish or delete your workflows\n" +
			"- Analyze your results and generate insights\n" +
			"- Summarize runs and check the AI engine status\n\n" +
			"What would you like to do?",
	},
	{
		keywords: []string{"insight", "analyze", "analyse", "trends", "findings"},
		reply:    "Let me analyze your recent results...",
		action:   &action.Action{Type: action.TypeGenerateInsights},
	},
	{
		keywords: []string{"ai status", "ai engine", "connected"},
		reply:    "Checking the AI engine...",
		action:   &action.Action{Type: action.TypeCheckAIStatus},
	},
	{
		keywords: []string{"list", "show my workflows", "my workflows", "overview"},
		reply:    "Here are your workflows:",
		action:   &action.Action{Type: action.TypeListWorkflows},
	},
	{
		keywords: []string{"create", "new workflow", "build", "make a workflow"},
		reply:    "Let's build it together!",
		action:   &action.Action{Type: action.TypeCreateWorkflow},
	},
	{
		keywords: []string{"schedule", "cron", "timer"},
		reply: "You can schedule workflows with cron expressions:\n\n" +
			"- **Every morning at 9 AM**: `0 9 * * *`\n" +
			"- **Every Monday**: `0 9 * * 1`\n" +
			"- **Every hour**: `0 * * * *`\n\n" +
			"Say \"create a workflow\" and pick the scheduled trigger, and I'll set it up.",
	},
	{
		keywords: []string{"fail", "error", "broken", "debug"},
		reply: "For failed steps, the usual fixes are:\n\n" +
			"1. **ElementNotFound** — the page structure changed; update the selector.\n" +
			"2. **Timeout** — add a `wait` step before the failing action.\n" +
			"3. **AccessDenied** — login cookies may have expired; add an auth step.\n\n" +
			"Ask me to summarize a run if you want the details of what happened.",
	},
}

// Interpret matches the message against the rule table.  The final fallback
// lists the copilot's capabilities; this provider never returns an error.
func (keywordProvider) Interpret(_ context.Context, req Request) (*Result, error) {
	msg := strings.ToLower(req.Message)

	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				result := &Result{Reply: rule.reply}
				if rule.action != nil {
					// Copy so callers can never mutate the table.
					a := *rule.action
					result.Action = &a
				}
				return result, nil
			}
		}
	}

	reply := "I can help with your FlowPilot workflows! Try asking me to:\n\n" +
		"- \"Create a workflow\"\n" +
		"- \"Show my workflows\"\n" +
		"- \"Generate insights\"\n" +
		"- \"Summarize my last run\""
	if len(req.KnownWorkflows) > 0 {
		reply = fmt.Sprintf("You have **%d** workflow%s. ", len(req.KnownWorkflows), pluralSuffix(len(req.KnownWorkflows))) + reply
	}
	return &Result{Reply: reply}, nil
}

func pluralSuffix(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
