package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"chyll/internal/common"
	"chyll/internal/models"
	"chyll/internal/repositories"

	"github.com/google/uuid"
)

const (
	exportBucket    = "chyll-exports"
	exportPageSize  = 500
	exportURLExpiry = time.Hour
)

type ExportService interface {
	ExportLeadsCSV(ctx context.Context, clientID uuid.UUID) (string, error)
}

type exportService struct {
	leadRepo repositories.LeadRepository
	storage  StorageService
}

func NewExportService(leadRepo repositories.LeadRepository, storage StorageService) ExportService {
	return &exportService{
		leadRepo: leadRepo,
		storage:  storage,
	}
}

// ExportLeadsCSV snapshots the client's full pipeline into a CSV object and
// returns a presigned download link valid for one hour.
func (s *exportService) ExportLeadsCSV(ctx context.Context, clientID uuid.UUID) (string, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"id", "full_name", "job_title", "company", "location", "email", "phone", "linkedin_url", "status", "pipeline_stage", "mrr", "arr", "close_probability", "source", "created_at"}
	if err := writer.Write(header); err != nil {
		return "", err
	}

	exported := 0
	for offset := 0; ; offset += exportPageSize {
		leads, err := s.leadRepo.List(ctx, clientID, exportPageSize, offset)
		if err != nil {
			return "", err
		}
		for _, lead := range leads {
			if err := writer.Write(leadCSVRow(lead)); err != nil {
				return "", err
			}
			exported++
		}
		if len(leads) < exportPageSize {
			break
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	if exported == 0 {
		return "", common.NewNotFoundError("leads to export")
	}

	if err := s.storage.EnsureBucketExists(ctx, exportBucket); err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("leads/%s/%s.csv", clientID.String(), time.Now().UTC().Format("20060102-150405"))
	if err := s.storage.UploadObject(ctx, exportBucket, objectName, "text/csv", bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return "", err
	}

	return s.storage.GetPresignedURL(ctx, exportBucket, objectName, exportURLExpiry)
}

func leadCSVRow(lead *models.Lead) []string {
	return []string{
		lead.ID.String(),
		common.SafeString(lead.FullName),
		common.SafeString(lead.JobTitle),
		common.SafeString(lead.Company),
		common.SafeString(lead.Location),
		common.SafeString(lead.Email),
		common.SafeString(lead.Phone),
		common.SafeString(lead.LinkedinURL),
		lead.Status,
		common.SafeString(lead.PipelineStage),
		floatCSV(lead.MRR),
		floatCSV(lead.ARR),
		floatCSV(lead.CloseProbability),
		common.SafeString(lead.Source),
		lead.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func floatCSV(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g", *v)
}
