package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mmdesignweb/crm-notifier/internal/expiration"
	"github.com/mmdesignweb/crm-notifier/internal/notification"
	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	headStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
)

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderSummary formats a run summary for the terminal.
func renderSummary(s *expiration.RunSummary) string {
	var b strings.Builder

	title := "Expiration check"
	if s.DryRun {
		title += " (dry run, nothing sent)"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	if s.Found == 0 {
		b.WriteString(dimStyle.Render("No expiring services found") + "\n")
		return b.String()
	}

	sentLabel := "sent"
	if s.DryRun {
		sentLabel = "would send"
	}
	fmt.Fprintf(&b, "  found    %d\n", s.Found)
	fmt.Fprintf(&b, "  %-8s %s\n", sentLabel, okStyle.Render(strconv.Itoa(s.Sent)))
	fmt.Fprintf(&b, "  skipped  %s\n", warnStyle.Render(strconv.Itoa(s.Skipped)))
	fmt.Fprintf(&b, "  failed   %s\n", errStyle.Render(strconv.Itoa(s.Failed)))

	counts := s.SkipCounts()
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(&b, "    %s: %d\n", r, counts[expiration.SkipReason(r)])
	}

	for _, e := range s.Errors {
		fmt.Fprintf(&b, "  %s %s: %s\n", errStyle.Render("error"), e.ServiceID, e.Error)
	}
	return b.String()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headStyle
			}
			return cellStyle
		})
}

// renderUpcoming formats upcoming renewals as a table.
func renderUpcoming(candidates []storage.Candidate) string {
	if len(candidates) == 0 {
		return dimStyle.Render("No upcoming renewals") + "\n"
	}
	t := newTable("RENEWAL", "SERVICE", "CLIENT", "EMAIL")
	for _, c := range candidates {
		client, email := "-", "-"
		if c.Client != nil {
			client = c.Client.Name
			if strings.TrimSpace(client) == "" {
				client = notification.DefaultClientName
			}
			if c.Client.Email != "" {
				email = c.Client.Email
			}
		}
		t.Row(
			notification.FormatReminderDate(c.Service.RenewalDate),
			notification.ServiceDisplayName(c.Service.Description, c.Service.Type),
			client,
			email,
		)
	}
	return t.String() + "\n"
}

// renderLog formats notification log entries as a table.
func renderLog(entries []storage.NotificationLogEntry) string {
	if len(entries) == 0 {
		return dimStyle.Render("No notifications logged yet") + "\n"
	}
	t := newTable("WHEN (UTC)", "SERVICE", "RECIPIENT", "STATUS", "ERROR")
	for _, e := range entries {
		status := string(e.Status)
		if e.Status == storage.NotificationStatusSent {
			status = okStyle.Render(status)
		} else {
			status = errStyle.Render(status)
		}
		t.Row(
			e.CreatedAt.UTC().Format("2006-01-02 15:04"),
			e.ServiceID,
			e.Recipient,
			status,
			e.ErrorMsg,
		)
	}
	return t.String() + "\n"
}
