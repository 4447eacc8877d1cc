package dispatch

import (
	"fmt"
	"strings"

	"github.com/flowpilot-ai/copilot/internal/copilot/flowpilot"
)

// severityMarker maps an insight severity to its transcript marker.
// Unrecognised severities render as info.
func severityMarker(severity string) string {
	switch severity {
	case "critical":
		return "🔴"
	case "warning":
		return "⚠️"
	case "success":
		return "✅"
	}
	return "ℹ️"
}

// formatInsights renders an insights report as a bulleted list with a
// trailing summary line.
func formatInsights(report *flowpilot.InsightsReport) string {
	if len(report.Insights) == 0 {
		if report.Summary != "" {
			return report.Summary
		}
		return "No significant patterns in your recent results yet. Run a few workflows and ask again!"
	}

	var sb strings.Builder
	sb.WriteString("Here's what I found:\n\n")
	for _, insight := range report.Insights {
		sb.WriteString(fmt.Sprintf("%s **%s** — %s\n",
			severityMarker(insight.Severity), insight.Title, insight.Description))
	}
	if report.Summary != "" {
		sb.WriteString("\n")
		sb.WriteString(report.Summary)
	}
	return sb.String()
}

// formatAIStatus renders the AI engine status report.
func formatAIStatus(status *flowpilot.AIStatus) string {
	connected := "🔴 Disconnected"
	if status.Connected {
		connected = "🟢 Connected"
		if status.Throttled {
			connected = "🟡 Connected (rate-limited)"
		}
	}

	var sb strings.Builder
	sb.WriteString("**AI Engine Status**\n\n")
	sb.WriteString(fmt.Sprintf("• Status: %s\n", connected))
	if status.TextModel != "" {
		sb.WriteString(fmt.Sprintf("• Model: `%s`\n", status.TextModel))
	}
	if status.Region != "" {
		sb.WriteString(fmt.Sprintf("• Region: %s\n", status.Region))
	}
	if status.Message != "" {
		sb.WriteString(fmt.Sprintf("• %s\n", status.Message))
	}
	return sb.String()
}

// formatWorkflowList renders the user's workflows with status and run info.
func formatWorkflowList(workflows []flowpilot.Workflow) string {
	if len(workflows) == 0 {
		return "You don't have any workflows yet. Say \"create a workflow\" and I'll walk you through it!"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You have **%d** workflow%s:\n\n", len(workflows), plural(len(workflows))))
	for _, wf := range workflows {
		line := fmt.Sprintf("• **%s** (%s", wf.Name, wf.Status)
		if wf.RunCount > 0 {
			line += fmt.Sprintf(", %d run%s", wf.RunCount, plural(wf.RunCount))
		}
		if wf.LastRun != nil {
			line += fmt.Sprintf(", last run %s", wf.LastRun.Status)
		}
		line += ")"
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatCreated renders the wizard's success message.
func formatCreated(wf *flowpilot.Workflow, stepCount int) string {
	msg := fmt.Sprintf("🎉 **%s** is ready with %d step%s planned.", wf.Name, stepCount, plural(stepCount))
	if wf.TriggerType == "scheduled" && wf.ScheduleCron != "" {
		msg += fmt.Sprintf(" It will run on schedule `%s`.", wf.ScheduleCron)
	}
	return msg
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
