package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chyll/internal/caching"
	"chyll/internal/common"
	"chyll/internal/events"
	"chyll/internal/models"
	"chyll/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type LeadService interface {
	Create(ctx context.Context, clientID uuid.UUID, lead *models.Lead) error
	GetByID(ctx context.Context, clientID, id uuid.UUID) (*models.Lead, error)
	List(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.Lead, error)
	Search(ctx context.Context, clientID uuid.UUID, filter *models.LeadSearchFilter) ([]*models.Lead, error)
	UpdateStatus(ctx context.Context, clientID, id uuid.UUID, candidate string) (*models.Lead, error)
	UpdateSalesData(ctx context.Context, clientID, id uuid.UUID, data *models.LeadSalesData) error
	BulkUpsert(ctx context.Context, clientID uuid.UUID, leads []*models.Lead) (int, error)
}

type leadService struct {
	leadRepo     repositories.LeadRepository
	cacheService caching.CacheService
	publisher    events.Publisher
}

func NewLeadService(leadRepo repositories.LeadRepository, cacheService caching.CacheService, publisher events.Publisher) LeadService {
	return &leadService{
		leadRepo:     leadRepo,
		cacheService: cacheService,
		publisher:    publisher,
	}
}

func (s *leadService) Create(ctx context.Context, clientID uuid.UUID, lead *models.Lead) error {
	if common.SafeString(lead.FullName) == "" && common.SafeString(lead.Email) == "" {
		return common.NewValidationError("full_name", "a lead needs at least a name or an email")
	}
	if lead.CloseProbability != nil {
		if err := common.ValidateProbability(*lead.CloseProbability, "close_probability"); err != nil {
			return common.NewValidationError("close_probability", err.Error())
		}
	}

	if lead.Status == "" {
		lead.Status = models.StatusToContact
	} else {
		status, err := models.NormalizeLeadStatus(lead.Status)
		if err != nil {
			return common.NewValidationError("status", err.Error())
		}
		lead.Status = status
	}

	if lead.Source == nil {
		source := models.LeadSourceManual
		lead.Source = &source
	}

	lead.ClientID = clientID
	lead.ID = uuid.New()
	if err := s.leadRepo.Create(ctx, lead); err != nil {
		return err
	}

	s.publisher.LeadChanged(ctx, clientID, lead.ID, events.ActionInsert)
	return nil
}

func (s *leadService) GetByID(ctx context.Context, clientID, id uuid.UUID) (*models.Lead, error) {
	if cached, err := s.cacheService.GetLead(ctx, clientID, id); cached != nil {
		return cached, nil
	} else if err != nil {
		// Cache errors shouldn't fail the read
		fmt.Printf("Cache error for lead %s: %v\n", id.String(), err)
	}

	lead, err := s.leadRepo.GetByID(ctx, clientID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("lead")
		}
		return nil, err
	}

	if cacheErr := s.cacheService.SetLead(ctx, clientID, lead, 15*time.Minute); cacheErr != nil {
		fmt.Printf("Failed to cache lead %s: %v\n", id.String(), cacheErr)
	}

	return lead, nil
}

func (s *leadService) List(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*models.Lead, error) {
	return s.leadRepo.List(ctx, clientID, limit, offset)
}

func (s *leadService) Search(ctx context.Context, clientID uuid.UUID, filter *models.LeadSearchFilter) ([]*models.Lead, error) {
	filter.Query = common.SanitizeSearchQuery(filter.Query)
	if filter.Status != nil {
		status, err := models.NormalizeLeadStatus(*filter.Status)
		if err != nil {
			return nil, common.NewValidationError("status", err.Error())
		}
		filter.Status = &status
	}
	return s.leadRepo.Search(ctx, clientID, filter)
}

// UpdateStatus validates the candidate against the canonical set, then checks
// ownership before any write. The status machine imposes no ordering: any
// valid status can be set from any other.
func (s *leadService) UpdateStatus(ctx context.Context, clientID, id uuid.UUID, candidate string) (*models.Lead, error) {
	status, err := models.NormalizeLeadStatus(candidate)
	if err != nil {
		return nil, common.NewValidationError("status", err.Error())
	}

	lead, err := s.leadRepo.GetByID(ctx, clientID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("lead")
		}
		return nil, err
	}

	if err := s.leadRepo.UpdateStatus(ctx, clientID, id, status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewNotFoundError("lead")
		}
		return nil, err
	}
	lead.Status = status

	if cacheErr := s.cacheService.DeleteLead(ctx, clientID, id); cacheErr != nil {
		fmt.Printf("Failed to invalidate cache for lead %s: %v\n", id.String(), cacheErr)
	}
	s.publisher.LeadChanged(ctx, clientID, id, events.ActionUpdate)

	return lead, nil
}

func (s *leadService) UpdateSalesData(ctx context.Context, clientID, id uuid.UUID, data *models.LeadSalesData) error {
	if data.CloseProbability != nil {
		if err := common.ValidateProbability(*data.CloseProbability, "close_probability"); err != nil {
			return common.NewValidationError("close_probability", err.Error())
		}
	}

	if err := s.leadRepo.UpdateSalesData(ctx, clientID, id, data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NewNotFoundError("lead")
		}
		return err
	}

	if cacheErr := s.cacheService.DeleteLead(ctx, clientID, id); cacheErr != nil {
		fmt.Printf("Failed to invalidate cache for lead %s: %v\n", id.String(), cacheErr)
	}
	s.publisher.LeadChanged(ctx, clientID, id, events.ActionUpdate)

	return nil
}

// BulkUpsert writes a batch keyed by id, last write wins, and publishes one
// change event per affected row so feed subscribers see each row separately.
func (s *leadService) BulkUpsert(ctx context.Context, clientID uuid.UUID, leads []*models.Lead) (int, error) {
	written := 0
	for _, lead := range leads {
		if lead.ID == uuid.Nil {
			lead.ID = uuid.New()
		}
		lead.ClientID = clientID

		if lead.Status == "" {
			lead.Status = models.StatusToContact
		} else {
			status, err := models.NormalizeLeadStatus(lead.Status)
			if err != nil {
				return written, common.NewValidationError("status", err.Error())
			}
			lead.Status = status
		}

		if err := s.leadRepo.Upsert(ctx, lead); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return written, common.NewNotFoundError("lead")
			}
			return written, err
		}
		written++

		if cacheErr := s.cacheService.DeleteLead(ctx, clientID, lead.ID); cacheErr != nil {
			fmt.Printf("Failed to invalidate cache for lead %s: %v\n", lead.ID.String(), cacheErr)
		}
		s.publisher.LeadChanged(ctx, clientID, lead.ID, events.ActionInsert)
	}
	return written, nil
}
