package models

import (
	"fmt"
	"strings"
)

// Canonical lead status tokens. The pipeline labels are French because the
// product surface is French; tokens are stored verbatim in the status column.
const (
	StatusToContact   = "à contacter"
	StatusEmailSent   = "email envoyé"
	StatusReplied     = "répondu"
	StatusFollowUp    = "à relancer"
	StatusCallPlanned = "appel prévu"
	StatusMeeting     = "RDV"
	StatusArchived    = "archived"
)

// LeadStatuses is the closed set of valid status tokens, in pipeline order.
var LeadStatuses = []string{
	StatusToContact,
	StatusEmailSent,
	StatusReplied,
	StatusFollowUp,
	StatusCallPlanned,
	StatusMeeting,
	StatusArchived,
}

// statusColors maps each canonical token to its presentation color.
var statusColors = map[string]string{
	StatusToContact:   "gray",
	StatusEmailSent:   "blue",
	StatusReplied:     "green",
	StatusFollowUp:    "orange",
	StatusCallPlanned: "purple",
	StatusMeeting:     "teal",
	StatusArchived:    "slate",
}

// NormalizeLeadStatus resolves a candidate string to a canonical status
// token. Matching is case-insensitive; a candidate that merely contains a
// canonical token (e.g. "RDV manqué") also resolves, to the token it
// contains. No transition ordering is enforced: any valid status may be set
// from any other. Returns the canonical token, or an error listing the valid
// set when nothing matches.
func NormalizeLeadStatus(candidate string) (string, error) {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return "", fmt.Errorf("status is required, valid statuses: %s", strings.Join(LeadStatuses, ", "))
	}

	lower := strings.ToLower(trimmed)
	for _, status := range LeadStatuses {
		if lower == strings.ToLower(status) {
			return status, nil
		}
	}
	for _, status := range LeadStatuses {
		if strings.Contains(lower, strings.ToLower(status)) {
			return status, nil
		}
	}

	return "", fmt.Errorf("invalid status %q, valid statuses: %s", candidate, strings.Join(LeadStatuses, ", "))
}

// LeadStatusColor returns the presentation color for a canonical token.
func LeadStatusColor(status string) string {
	if color, ok := statusColors[status]; ok {
		return color
	}
	return "gray"
}

// IsValidLeadStatus reports whether the candidate resolves to a canonical token.
func IsValidLeadStatus(candidate string) bool {
	_, err := NormalizeLeadStatus(candidate)
	return err == nil
}
