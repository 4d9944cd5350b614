package problems

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"problems-service/internal/models"
)

// ErrNoData signals an export over an empty record set. The caller surfaces
// a warning and produces no file; it is not a failure.
var ErrNoData = errors.New("no problems to export")

// CsvFilename is the download name offered to the browser.
const CsvFilename = "problems.csv"

// csvTimeLayout matches the panel's en-US numeric timestamp rendering.
const csvTimeLayout = "1/2/2006, 15:04"

// severityLabels maps severities 0-5 to their fixed display names. The
// set and order are part of the export contract.
var severityLabels = [...]string{
	"Not classified",
	"Information",
	"Warning",
	"Average",
	"High",
	"Disaster",
}

var csvHeader = []string{
	"Severity",
	"Time",
	"Recovery time",
	"Status",
	"Host",
	"Problem",
	"Duration",
	"Ack",
	"Actions",
	"Tags",
}

// Exporter serializes problem records into the panel's CSV dialect.
type Exporter struct {
	location *time.Location
}

// NewExporter builds an exporter rendering timestamps in loc, or UTC when nil.
func NewExporter(loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{location: loc}
}

// Export renders a header row plus one row per record. withAcknowledges
// appends the acknowledge-detail column of the alternate export mode.
// An empty input returns ErrNoData and no blob.
func (e *Exporter) Export(records []models.ProblemRecord, withAcknowledges bool) (string, error) {
	if len(records) == 0 {
		return "", ErrNoData
	}

	header := csvHeader
	if withAcknowledges {
		header = append(append([]string{}, csvHeader...), "Acknowledges")
	}

	rows := make([]string, 0, len(records)+1)
	rows = append(rows, strings.Join(header, ","))

	for _, rec := range records {
		status := "PROBLEM"
		if rec.Resolved() {
			status = "RESOLVED"
		}

		ack := "No"
		if rec.Acknowledged == "1" {
			ack = "Yes"
		}

		recovery := ""
		if rec.RecoveryEventID != "" {
			recovery = e.formatTimestamp(rec.RecoveryTimestamp)
		}

		values := []string{
			SeverityLabel(rec.Severity),
			e.formatTimestamp(rec.Timestamp),
			recovery,
			status,
			rec.Host,
			rec.Name,
			rec.Duration,
			ack,
			actionsSummary(rec.Acknowledges),
			formatTags(rec.Tags),
		}
		if withAcknowledges {
			values = append(values, formatAcknowledges(rec.Acknowledges))
		}

		escaped := make([]string, len(values))
		for i, value := range values {
			escaped[i] = escapeField(value)
		}
		rows = append(rows, strings.Join(escaped, ","))
	}

	return strings.Join(rows, "\n"), nil
}

// SeverityLabel maps a string-typed severity to its display name, falling
// back to "Unknown (<n>)" outside the 0-5 range.
func SeverityLabel(raw string) string {
	n, err := strconv.Atoi(raw)
	if err == nil && n >= 0 && n < len(severityLabels) {
		return severityLabels[n]
	}
	return fmt.Sprintf("Unknown (%s)", raw)
}

func (e *Exporter) formatTimestamp(epoch int64) string {
	if epoch == 0 {
		return ""
	}
	return time.Unix(epoch, 0).In(e.location).Format(csvTimeLayout)
}

// actionsSummary composes "Messages (n), Actions (m)", dropping the
// Messages clause when no entry carries a non-blank message.
func actionsSummary(acks []models.AcknowledgeEntry) string {
	if len(acks) == 0 {
		return ""
	}

	messages := 0
	for _, ack := range acks {
		if strings.TrimSpace(ack.Message) != "" {
			messages++
		}
	}

	summary := ""
	if messages > 0 {
		summary = fmt.Sprintf("Messages (%d), ", messages)
	}
	summary += fmt.Sprintf("Actions (%d)", len(acks))
	return strings.TrimSuffix(summary, ", ")
}

func formatTags(tags []models.Tag) string {
	if len(tags) == 0 {
		return ""
	}
	pairs := make([]string, len(tags))
	for i, tag := range tags {
		pairs[i] = tag.Tag + ": " + tag.Value
	}
	return strings.Join(pairs, ", ")
}

// formatAcknowledges joins acknowledge entries as "user (id): message",
// falling back through name+surname, bare user id, then "Unknown User".
func formatAcknowledges(acks []models.AcknowledgeEntry) string {
	if len(acks) == 0 {
		return ""
	}

	parts := make([]string, len(acks))
	for i, ack := range acks {
		who := strings.TrimSpace(ack.Name + " " + ack.Surname)
		switch {
		case who != "" && ack.UserID != "":
			who = fmt.Sprintf("%s (%s)", who, ack.UserID)
		case who == "" && ack.UserID != "":
			who = ack.UserID
		case who == "":
			who = "Unknown User"
		}
		parts[i] = who + ": " + ack.Message
	}
	return strings.Join(parts, " | ")
}

// escapeField doubles embedded quotes, then wraps the field in quotes when
// it contains a comma. Nothing more: this is the panel's minimal dialect.
func escapeField(value string) string {
	escaped := strings.ReplaceAll(value, `"`, `""`)
	if strings.Contains(escaped, ",") {
		return `"` + escaped + `"`
	}
	return escaped
}
