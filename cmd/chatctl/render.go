package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/storehouse-ng/storefront-chat/internal/chat"
	"github.com/storehouse-ng/storefront-chat/internal/convstate"
	"github.com/storehouse-ng/storefront-chat/internal/guard"
	"github.com/storehouse-ng/storefront-chat/internal/models"
)

func renderVerdict(v guard.Verdict) string {
	switch {
	case v.IsSpam():
		return color.RedString("✗ spam") + " (" + string(v.SpamReason) + ")"
	case v.IsOffTopic():
		return color.YellowString("! off-topic") + " (" + string(v.Category) + ")"
	default:
		return color.GreenString("✓ clean")
	}
}

func renderResult(r chat.Result) string {
	var sb strings.Builder

	status := color.GreenString("answered")
	switch {
	case r.StoreNotFound:
		status = color.RedString("store not found")
	case r.Blocked:
		status = color.RedString("blocked")
	case r.ValidationWarning != "":
		status = color.YellowString("replaced")
	case r.Reason != "":
		status = color.YellowString(r.Reason)
	}

	fmt.Fprintf(&sb, "%s %s\n", status, color.HiBlackString("session "+r.SessionID))
	sb.WriteString(strings.Repeat("─", 60) + "\n")
	sb.WriteString(r.Response + "\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n")

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%s %s\n", color.CyanString(fmt.Sprintf("%-12s", name)), value)
		}
	}
	field("source", r.Source)
	if r.Source != "" {
		field("confidence", fmt.Sprintf("%.2f", r.Confidence))
	}
	field("language", r.Language)
	field("reason", r.Reason)
	field("category", r.OffTopicCategory)
	field("warning", r.ValidationWarning)
	if r.WaitSeconds > 0 {
		field("wait", fmt.Sprintf("%ds", r.WaitSeconds))
	}
	return sb.String()
}

func renderState(s convstate.State) string {
	var sb strings.Builder

	blocked := color.GreenString("active")
	if s.IsBlocked {
		blocked = color.RedString("blocked since " + s.BlockedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&sb, "%s %s\n", color.CyanString("Session "+s.SessionID), blocked)
	fmt.Fprintf(&sb, "  messages:  %d (last %s)\n", s.MessageCount, formatTime(s.LastMessageTime))
	fmt.Fprintf(&sb, "  off-topic: %d (warnings %d)\n", s.OffTopicCount, s.WarningCount)
	fmt.Fprintf(&sb, "  created:   %s\n", formatTime(s.CreatedAt))
	return sb.String()
}

func renderEvents(events []models.ChatEvent) string {
	if len(events) == 0 {
		return "No events found"
	}

	var sb strings.Builder
	sb.WriteString(color.CyanString("Recent chat events\n"))
	sb.WriteString(strings.Repeat("─", 60) + "\n")
	for _, e := range events {
		outcome := string(e.Outcome)
		switch e.Outcome {
		case models.OutcomeAnswered:
			outcome = color.GreenString(outcome)
		case models.OutcomeBlocked, models.OutcomeRateLimited, models.OutcomeStoreNotFound:
			outcome = color.RedString(outcome)
		default:
			outcome = color.YellowString(outcome)
		}

		detail := e.Source
		if e.Reason != "" {
			detail += " " + e.Reason
		}
		if e.ValidationWarning != "" {
			detail += " [" + e.ValidationWarning + "]"
		}
		fmt.Fprintf(&sb, "%s %-12s %-14s %s %s\n",
			color.HiBlackString(e.CreatedAt.Local().Format("01-02 15:04:05")),
			e.StoreSlug, outcome, strings.TrimSpace(detail),
			color.HiBlackString(fmt.Sprintf("(%dms)", e.LatencyMs)))
	}
	return sb.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
