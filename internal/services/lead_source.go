package services

import (
	"context"
	"fmt"
	"math/rand"

	"chyll/internal/integrations/enrichapi"
	"chyll/internal/models"
)

// LeadSource produces candidate leads for a free-text prospecting query.
type LeadSource interface {
	FindLeads(ctx context.Context, query string, count int) ([]*models.Lead, error)
}

var demoFirstNames = []string{
	"Camille", "Jules", "Manon", "Théo", "Léa", "Hugo", "Chloé", "Lucas",
	"Emma", "Nathan", "Inès", "Louis", "Jade", "Gabriel", "Zoé",
}

var demoLastNames = []string{
	"Martin", "Bernard", "Dubois", "Moreau", "Laurent", "Simon", "Michel",
	"Lefebvre", "Leroy", "Roux", "Fournier", "Girard", "Bonnet", "Dupont",
}

var demoCompanies = []string{
	"Alan", "Qonto", "Doctolib", "Swile", "PayFit", "Spendesk", "Pennylane",
	"Mirakl", "Contentsquare", "Back Market", "Ledger", "Aircall",
}

var demoTitles = []string{
	"Head of Sales", "CEO", "VP Marketing", "Growth Manager", "CTO",
	"Account Executive", "Head of Partnerships",
}

// demoLeadSource fabricates plausible prospects without calling any external
// API. Names can repeat across calls; the CRM dedupes by id, not by name.
type demoLeadSource struct{}

func NewDemoLeadSource() LeadSource {
	return &demoLeadSource{}
}

func (d *demoLeadSource) FindLeads(_ context.Context, _ string, count int) ([]*models.Lead, error) {
	leads := make([]*models.Lead, 0, count)
	for i := 0; i < count; i++ {
		first := demoFirstNames[rand.Intn(len(demoFirstNames))]
		last := demoLastNames[rand.Intn(len(demoLastNames))]
		fullName := first + " " + last
		company := demoCompanies[rand.Intn(len(demoCompanies))]
		title := demoTitles[rand.Intn(len(demoTitles))]
		source := models.LeadSourceDemo

		leads = append(leads, &models.Lead{
			FullName: &fullName,
			Company:  &company,
			JobTitle: &title,
			Status:   models.StatusToContact,
			Source:   &source,
		})
	}
	return leads, nil
}

// enrichLeadSource backs the assistant with a real people-search provider.
type enrichLeadSource struct {
	client *enrichapi.Client
}

func NewEnrichLeadSource(client *enrichapi.Client) LeadSource {
	return &enrichLeadSource{client: client}
}

func (e *enrichLeadSource) FindLeads(ctx context.Context, query string, count int) ([]*models.Lead, error) {
	people, err := e.client.SearchPeople(ctx, query, count)
	if err != nil {
		return nil, fmt.Errorf("people search failed: %w", err)
	}

	leads := make([]*models.Lead, 0, len(people))
	for _, p := range people {
		source := models.LeadSourceSearch
		lead := &models.Lead{
			Status: models.StatusToContact,
			Source: &source,
		}
		if p.FullName != "" {
			name := p.FullName
			lead.FullName = &name
		}
		if p.JobTitle != "" {
			title := p.JobTitle
			lead.JobTitle = &title
		}
		if p.Company != "" {
			company := p.Company
			lead.Company = &company
		}
		if p.Location != "" {
			location := p.Location
			lead.Location = &location
		}
		if p.Email != "" {
			email := p.Email
			lead.Email = &email
		}
		if p.Phone != "" {
			phone := p.Phone
			lead.Phone = &phone
		}
		if p.LinkedinURL != "" {
			url := p.LinkedinURL
			lead.LinkedinURL = &url
		}
		enrichment := models.JSONB{}
		if len(p.Skills) > 0 {
			enrichment["skills"] = p.Skills
		}
		if len(p.Experience) > 0 {
			enrichment["experience"] = p.Experience
		}
		if len(p.Education) > 0 {
			enrichment["education"] = p.Education
		}
		for k, v := range p.Extra {
			enrichment[k] = v
		}
		if len(enrichment) > 0 {
			lead.Enrichment = enrichment
		}
		leads = append(leads, lead)
	}
	return leads, nil
}
