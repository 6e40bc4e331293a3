package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLeadStatusCanonical(t *testing.T) {
	for _, status := range LeadStatuses {
		got, err := NormalizeLeadStatus(status)
		assert.NoError(t, err)
		assert.Equal(t, status, got)
	}
}

func TestNormalizeLeadStatusCaseInsensitive(t *testing.T) {
	got, err := NormalizeLeadStatus("Appel Prévu")
	assert.NoError(t, err)
	assert.Equal(t, StatusCallPlanned, got)

	got, err = NormalizeLeadStatus("ARCHIVED")
	assert.NoError(t, err)
	assert.Equal(t, StatusArchived, got)
}

func TestNormalizeLeadStatusTrimsWhitespace(t *testing.T) {
	got, err := NormalizeLeadStatus("  répondu  ")
	assert.NoError(t, err)
	assert.Equal(t, StatusReplied, got)
}

func TestNormalizeLeadStatusContainment(t *testing.T) {
	// A variant that embeds a canonical token resolves to that token.
	got, err := NormalizeLeadStatus("RDV manqué")
	assert.NoError(t, err)
	assert.Equal(t, StatusMeeting, got)

	got, err = NormalizeLeadStatus("relance: à relancer demain")
	assert.NoError(t, err)
	assert.Equal(t, StatusFollowUp, got)
}

func TestNormalizeLeadStatusRejectsUnknown(t *testing.T) {
	_, err := NormalizeLeadStatus("closed_won")
	assert.Error(t, err)
	// The rejection names every valid status so callers can self-correct.
	for _, status := range LeadStatuses {
		assert.Contains(t, err.Error(), status)
	}
}

func TestNormalizeLeadStatusRejectsEmpty(t *testing.T) {
	_, err := NormalizeLeadStatus("")
	assert.Error(t, err)
	_, err = NormalizeLeadStatus("   ")
	assert.Error(t, err)
}

func TestLeadStatusColor(t *testing.T) {
	assert.Equal(t, "teal", LeadStatusColor(StatusMeeting))
	assert.Equal(t, "gray", LeadStatusColor("unknown"))
}

func TestIsValidLeadStatus(t *testing.T) {
	assert.True(t, IsValidLeadStatus("email envoyé"))
	assert.False(t, IsValidLeadStatus("won"))
}
