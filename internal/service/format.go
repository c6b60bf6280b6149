package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Gopher0727/FeedbackBot/internal/model"
)

// notifyPreviewRunes bounds the message text included in admin notices.
const notifyPreviewRunes = 500

var categoryLabels = map[model.Category]string{
	model.CategoryGeneral:    "💬 General",
	model.CategoryBug:        "🐞 Bug",
	model.CategorySuggestion: "💡 Suggestion",
	model.CategoryQuestion:   "❓ Question",
	model.CategoryProblem:    "⚠️ Problem",
	model.CategoryThanks:     "🙏 Thanks",
}

var priorityLabels = map[model.Priority]string{
	model.PriorityCritical: "🔴 critical",
	model.PriorityHigh:     "🟠 high",
	model.PriorityMedium:   "🟡 medium",
	model.PriorityLow:      "🟢 low",
}

func categoryLabel(c model.Category) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// truncateRunes cuts s to at most n runes, marking the cut with "...".
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func senderLabel(p Profile) string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		name = "User"
	}
	if p.Username != "" {
		name += " (@" + strings.TrimPrefix(p.Username, "@") + ")"
	}
	return name
}

func formatAdminNotice(msg *model.Message, sender Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📨 New message #%d\n", msg.ID)
	fmt.Fprintf(&b, "📁 Category: %s\n", categoryLabel(msg.Category))
	if msg.IsAnonymous {
		b.WriteString("👤 From: anonymous\n")
	} else {
		fmt.Fprintf(&b, "👤 From: %s\n", senderLabel(sender))
		fmt.Fprintf(&b, "🆔 ID: %d\n", sender.Identity)
	}
	fmt.Fprintf(&b, "🕒 Time: %s\n\n", msg.CreatedAt.UTC().Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "💬 Message:\n%s\n\n", truncateRunes(msg.Text, notifyPreviewRunes))
	fmt.Fprintf(&b, "📎 Reply with: /reply %d <text>", msg.ID)
	return b.String()
}

func formatReplyNotice(messageID uint, text string) string {
	return fmt.Sprintf("📬 Reply to your message #%d\n\n%s\n\n💬 To answer, just send a new message.", messageID, text)
}

func formatDeadline(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return t.UTC().Format("02.01.2006 15:04")
}

func formatTaskAssigned(task *model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📌 *New task #%d*\n\n*%s*\n", task.ID, task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "%s\n", task.Description)
	}
	fmt.Fprintf(&b, "\nPriority: %s\nDeadline: %s", priorityLabels[task.Priority], formatDeadline(task.Deadline))
	return b.String()
}

func formatOverdue(task *model.Task) string {
	return fmt.Sprintf("🚨 *TASK OVERDUE!*\n\n*%s*\nID: #%d\nDeadline: %s\n\nPlease update the status.",
		task.Title, task.ID, formatDeadline(task.Deadline))
}

func formatDigest(tasks []*model.Task) string {
	var b strings.Builder
	b.WriteString("📋 *Tasks due today:*\n\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "• %s (ID: %d)\n", t.Title, t.ID)
	}
	return b.String()
}

func formatQuote(q *model.Quote) string {
	if q.Author == "" {
		return fmt.Sprintf("💭 %s", q.Text)
	}
	return fmt.Sprintf("💭 %s\n\n— %s", q.Text, q.Author)
}
