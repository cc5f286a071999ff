package mcu

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medicheck/mcu/internal/platform/report"
)

type Service struct {
	records Repository
	batches BatchRepository
	history HistoryRepository
	gen     *report.Generator
	log     zerolog.Logger

	// Pacing is the delay between items during batch export. Zero disables
	// pacing.
	Pacing time.Duration
}

func NewService(records Repository, batches BatchRepository, history HistoryRepository, gen *report.Generator, log zerolog.Logger) *Service {
	return &Service{records: records, batches: batches, history: history, gen: gen, log: log}
}

// -- Records --

func (s *Service) CreateRecord(ctx context.Context, r *Record) error {
	if r.NamaKaryawan == "" {
		return fmt.Errorf("nama_karyawan is required")
	}
	return s.records.Create(ctx, r)
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) ListRecords(ctx context.Context, f ListFilter, limit, offset int) ([]*Record, int, error) {
	return s.records.List(ctx, f, limit, offset)
}

func (s *Service) UpdateRecord(ctx context.Context, r *Record) error {
	if r.NamaKaryawan == "" {
		return fmt.Errorf("nama_karyawan is required")
	}
	return s.records.Update(ctx, r)
}

func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	return s.records.Delete(ctx, id)
}

// -- Workbook import --

// ImportWorkbook parses an uploaded xlsx workbook and stores its rows as
// records under a new upload batch. Rows without an employee name are
// skipped. A record insert failure marks the batch failed and aborts the
// import; rows inserted before the failure stay attributed to the failed
// batch so they can be inspected or purged.
func (s *Service) ImportWorkbook(ctx context.Context, filename, uploadedBy string, r io.Reader) (*UploadBatch, *ParseResult, error) {
	res, err := ParseWorkbook(r)
	if err != nil {
		return nil, nil, err
	}

	batch := &UploadBatch{
		Filename:   filename,
		TotalRows:  res.TotalRows,
		UploadedBy: uploadedBy,
		Status:     BatchProcessing,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, nil, fmt.Errorf("create batch: %w", err)
	}

	for i := range res.Records {
		rec := &res.Records[i]
		rec.BatchID = &batch.ID
		if err := s.records.Create(ctx, rec); err != nil {
			if serr := s.batches.SetStatus(ctx, batch.ID, BatchFailed); serr != nil {
				s.log.Warn().Err(serr).Str("batch_id", batch.ID.String()).Msg("mark batch failed")
			}
			return batch, res, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := s.batches.SetStatus(ctx, batch.ID, BatchCompleted); err != nil {
		s.log.Warn().Err(err).Str("batch_id", batch.ID.String()).Msg("mark batch completed")
	}
	batch.Status = BatchCompleted
	return batch, res, nil
}

func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (*UploadBatch, error) {
	return s.batches.GetByID(ctx, id)
}

func (s *Service) ListBatches(ctx context.Context, limit, offset int) ([]*UploadBatch, int, error) {
	return s.batches.List(ctx, limit, offset)
}

// DeleteBatch removes a batch and every record imported under it.
func (s *Service) DeleteBatch(ctx context.Context, id uuid.UUID) (int, error) {
	if _, err := s.batches.GetByID(ctx, id); err != nil {
		return 0, err
	}
	removed, err := s.records.DeleteByBatch(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete batch records: %w", err)
	}
	if err := s.batches.Delete(ctx, id); err != nil {
		return removed, err
	}
	return removed, nil
}

// -- Report generation --

// RenderedReport is one generated PDF ready for delivery.
type RenderedReport struct {
	RecordID uuid.UUID
	FileName string
	Content  []byte
	Status   report.Fitness
}

// GenerateReport renders the PDF for one record and records it in the
// report history. A history write failure is logged, not returned: the
// rendered report has already been produced and must still reach the caller.
func (s *Service) GenerateReport(ctx context.Context, id uuid.UUID, generatedBy string) (*RenderedReport, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rendered, err := s.render(rec)
	if err != nil {
		return nil, err
	}
	s.logHistory(ctx, rec, rendered.FileName, generatedBy)
	return rendered, nil
}

func (s *Service) render(rec *Record) (*RenderedReport, error) {
	doc, err := s.gen.Render(rec.ReportData())
	if err != nil {
		return nil, err
	}
	content, err := doc.Bytes()
	if err != nil {
		return nil, err
	}
	return &RenderedReport{
		RecordID: rec.ID,
		FileName: report.FileName(rec.NPK, rec.NamaKaryawan),
		Content:  content,
		Status:   doc.Status,
	}, nil
}

func (s *Service) logHistory(ctx context.Context, rec *Record, fileName, generatedBy string) {
	h := &ReportHistory{
		RecordID:     rec.ID,
		NamaKaryawan: rec.NamaKaryawan,
		NPK:          rec.NPK,
		FileName:     fileName,
		GeneratedBy:  generatedBy,
	}
	if err := s.history.Create(ctx, h); err != nil {
		s.log.Warn().Err(err).Str("record_id", rec.ID.String()).Msg("save report history")
	}
}

func (s *Service) ListHistory(ctx context.Context, limit, offset int) ([]*ReportHistory, int, error) {
	return s.history.List(ctx, limit, offset)
}

func (s *Service) DeleteHistory(ctx context.Context, id uuid.UUID) error {
	return s.history.Delete(ctx, id)
}
