package notify

import (
	"fmt"
	"strings"

	"finledger/internal/core"
)

// Message is a rendered notification ready for a mail-like transport.
type Message struct {
	To      string
	Subject string
	Body    string
}

const signature = "Regards,\nPersonal Finance Ledger"

// Render builds the message for n addressed to recipient.
func Render(n core.Notification, recipient core.User) Message {
	name := recipient.FullName
	if name == "" {
		name = recipient.Username
	}

	var subject string
	lines := []string{fmt.Sprintf("Hello %s,", name), ""}

	switch n.Kind {
	case core.KindGoalCompleted:
		subject = "Financial goal completed"
		lines = append(lines,
			"Congratulations! You reached your financial goal:",
			"",
			"Goal: "+n.GoalName,
			"Amount: "+n.TargetAmount.Display(),
		)
		if n.CompletedAt != nil {
			lines = append(lines, "Completed on: "+n.CompletedAt.Format("2006-01-02"))
		}
		lines = append(lines, "", "Keep going and reach your next goal!")
	case core.KindGoalOverdue:
		subject = "Financial goal overdue"
		lines = append(lines,
			"Your financial goal is past its deadline:",
			"",
			"Goal: "+n.GoalName,
			"Target amount: "+n.TargetAmount.Display(),
			"Current amount: "+n.CurrentAmount.Display(),
			"Deadline: "+n.TargetDate.Format("2006-01-02"),
			"",
			"Review the goal and keep working towards it.",
		)
	case core.KindGoalProgress:
		subject = fmt.Sprintf("Goal progress: %d%%", n.Milestone)
		lines = append(lines,
			"You are making good progress on your goal:",
			"",
			"Goal: "+n.GoalName,
			fmt.Sprintf("Progress: %d%%", n.Milestone),
			"Current amount: "+n.CurrentAmount.Display(),
			"Target amount: "+n.TargetAmount.Display(),
			"Remaining: "+n.TargetAmount.Sub(n.CurrentAmount).Display(),
			"",
			"Keep it up!",
		)
	case core.KindBudgetExceeded:
		subject = "Budget exceeded: " + n.GoalName
		lines = append(lines,
			"You went over one of your spending limits:",
			"",
			"Budget: "+n.GoalName,
			"Limit: "+n.TargetAmount.Display(),
			"Spent: "+n.CurrentAmount.Display(),
			"Over by: "+n.CurrentAmount.Sub(n.TargetAmount).Display(),
			"",
			"Review your spending to stay on track.",
		)
	default:
		subject = "Goal update: " + n.GoalName
		lines = append(lines, "Goal: "+n.GoalName)
	}

	lines = append(lines, "", signature)
	return Message{To: recipient.Email, Subject: subject, Body: strings.Join(lines, "\n")}
}
