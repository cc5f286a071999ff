package patients

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

type mockRepo struct {
	byNoRM map[string]*Patient
	byID   map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{byNoRM: make(map[string]*Patient), byID: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	m.byNoRM[p.NoRM] = p
	m.byID[p.ID] = p
	return nil
}

func (m *mockRepo) Upsert(ctx context.Context, p *Patient) error {
	if old, ok := m.byNoRM[p.NoRM]; ok {
		p.ID = old.ID
	}
	return m.Create(ctx, p)
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) GetByNoRM(_ context.Context, noRM string) (*Patient, error) {
	p, ok := m.byNoRM[noRM]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) List(_ context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.byID {
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.byID[p.ID]; !ok {
		return ErrNotFound
	}
	m.byID[p.ID] = p
	m.byNoRM[p.NoRM] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	p, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byNoRM, p.NoRM)
	return nil
}

func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row %d: %v", i, err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestBulkImport(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	r := buildSheet(t, [][]interface{}{
		{"No. RM", "Nama", "Jenis Kelamin", "Alamat"},
		{"RM001", "Budi Santoso", "L", "Bekasi"},
		{"RM002", "Siti Aminah", "P", "Tambun"},
	})
	res, err := svc.BulkImport(context.Background(), r)
	if err != nil {
		t.Fatalf("BulkImport: %v", err)
	}
	if res.Imported != 2 || res.Dropped != 0 || res.TotalRows != 2 {
		t.Fatalf("result = %+v", res)
	}
	p, err := repo.GetByNoRM(context.Background(), "RM001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.Nama != "Budi Santoso" || p.JenisKelamin != "L" || p.Alamat != "Bekasi" {
		t.Fatalf("patient = %+v", p)
	}
}

func TestBulkImportDropsIncompleteRows(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	r := buildSheet(t, [][]interface{}{
		{"no_rm", "nama"},
		{"RM001", "Budi Santoso"},
		{"RM002", " "},
		{" ", "Tanpa Nomor"},
	})
	res, err := svc.BulkImport(context.Background(), r)
	if err != nil {
		t.Fatalf("BulkImport: %v", err)
	}
	if res.Imported != 1 {
		t.Fatalf("imported = %d, want 1", res.Imported)
	}
	if res.Dropped != 2 {
		t.Fatalf("dropped = %d, want 2", res.Dropped)
	}
}

func TestBulkImportUpsertsByNoRM(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	first := buildSheet(t, [][]interface{}{
		{"no rm", "nama"},
		{"RM001", "Budi Santoso"},
	})
	if _, err := svc.BulkImport(context.Background(), first); err != nil {
		t.Fatalf("first import: %v", err)
	}
	second := buildSheet(t, [][]interface{}{
		{"no rm", "nama", "telepon"},
		{"RM001", "Budi S. Santoso", "0812000"},
	})
	if _, err := svc.BulkImport(context.Background(), second); err != nil {
		t.Fatalf("second import: %v", err)
	}

	p, err := repo.GetByNoRM(context.Background(), "RM001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.Nama != "Budi S. Santoso" || p.Telepon != "0812000" {
		t.Fatalf("patient not updated: %+v", p)
	}
	if len(repo.byNoRM) != 1 {
		t.Fatalf("registry has %d entries, want 1", len(repo.byNoRM))
	}
}

func TestBulkImportRejectsGarbage(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	if _, err := svc.BulkImport(context.Background(), strings.NewReader("nope")); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMockRepo(), zerolog.Nop())
	if err := svc.Create(context.Background(), &Patient{Nama: "Budi"}); err == nil {
		t.Fatal("expected error for missing no_rm")
	}
	if err := svc.Create(context.Background(), &Patient{NoRM: "RM1"}); err == nil {
		t.Fatal("expected error for missing nama")
	}
}
