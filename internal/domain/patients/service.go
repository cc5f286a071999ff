package patients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ErrParse indicates the uploaded file is not a readable workbook.
var ErrParse = errors.New("workbook cannot be parsed")

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.NoRM == "" {
		return fmt.Errorf("no_rm is required")
	}
	if p.Nama == "" {
		return fmt.Errorf("nama is required")
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByNoRM(ctx context.Context, noRM string) (*Patient, error) {
	return s.repo.GetByNoRM(ctx, noRM)
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, search, limit, offset)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.NoRM == "" || p.Nama == "" {
		return fmt.Errorf("no_rm and nama are required")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// -- Bulk import --

// BulkImportResult reports the outcome of one registry import.
type BulkImportResult struct {
	TotalRows int `json:"total_rows"`
	Imported  int `json:"imported"`
	// Dropped counts rows missing the medical record number or the name.
	// Such rows are skipped without error; registry sheets routinely carry
	// blank and annotation rows.
	Dropped int `json:"dropped"`
}

// Header spellings seen across registry exports, in priority order.
var patientColumns = map[string][]string{
	"no_rm":         {"no. rm", "no rm", "no_rm", "norm"},
	"nama":          {"nama", "nama pasien", "nama_pasien", "name"},
	"jenis_kelamin": {"jenis kelamin", "jenis_kelamin", "jk", "gender"},
	"tanggal_lahir": {"tanggal lahir", "tanggal_lahir", "tgl lahir", "tgl_lahir"},
	"perusahaan":    {"perusahaan", "company"},
	"alamat":        {"alamat", "address"},
	"telepon":       {"telepon", "no telepon", "no_telepon", "phone", "hp"},
}

// BulkImport reads an xlsx registry export and upserts every usable row.
// A row is usable only when both the medical record number and the name are
// present; rows missing either are dropped silently.
func (s *Service) BulkImport(ctx context.Context, r io.Reader) (*BulkImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %s: %v", ErrParse, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s is empty", ErrParse, sheets[0])
	}

	idx := make(map[string]int)
	for i, h := range rows[0] {
		key := strings.ToLower(strings.Join(strings.Fields(h), " "))
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}

	col := func(field string, row []string) string {
		for _, cand := range patientColumns[field] {
			i, ok := idx[cand]
			if !ok {
				continue
			}
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		return ""
	}

	res := &BulkImportResult{TotalRows: len(rows) - 1}
	for _, row := range rows[1:] {
		p := &Patient{
			NoRM:         col("no_rm", row),
			Nama:         col("nama", row),
			JenisKelamin: col("jenis_kelamin", row),
			TanggalLahir: col("tanggal_lahir", row),
			Perusahaan:   col("perusahaan", row),
			Alamat:       col("alamat", row),
			Telepon:      col("telepon", row),
		}
		if p.NoRM == "" || p.Nama == "" {
			res.Dropped++
			continue
		}
		if err := s.repo.Upsert(ctx, p); err != nil {
			return res, fmt.Errorf("upsert %s: %w", p.NoRM, err)
		}
		res.Imported++
	}
	return res, nil
}
