package cases

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medicheck/mcu/internal/domain/mcu"
	"github.com/medicheck/mcu/internal/domain/patients"
	"github.com/medicheck/mcu/internal/platform/blobstore"
)

// -- Mock Repositories --

type mockCaseRepo struct {
	items map[uuid.UUID]*Case
}

func newMockCaseRepo() *mockCaseRepo {
	return &mockCaseRepo{items: make(map[uuid.UUID]*Case)}
}

func (m *mockCaseRepo) Create(_ context.Context, cs *Case) error {
	if cs.ID == uuid.Nil {
		cs.ID = uuid.New()
	}
	cs.CreatedAt = time.Now()
	m.items[cs.ID] = cs
	return nil
}

func (m *mockCaseRepo) GetByID(_ context.Context, id uuid.UUID) (*Case, error) {
	cs, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cs, nil
}

func (m *mockCaseRepo) List(_ context.Context, status string, limit, offset int) ([]*Case, int, error) {
	var result []*Case
	for _, cs := range m.items {
		if status == "" || cs.Status == status {
			result = append(result, cs)
		}
	}
	return result, len(result), nil
}

func (m *mockCaseRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	cs, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	cs.Status = status
	return nil
}

func (m *mockCaseRepo) SetRecord(_ context.Context, id uuid.UUID, recordID uuid.UUID) error {
	cs, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	cs.RecordID = &recordID
	return nil
}

func (m *mockCaseRepo) CountByNumberPrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for _, cs := range m.items {
		if strings.HasPrefix(cs.CaseNumber, prefix) {
			n++
		}
	}
	return n, nil
}

type mockAssessmentRepo struct {
	byCase map[uuid.UUID]*NursingAssessment
}

func newMockAssessmentRepo() *mockAssessmentRepo {
	return &mockAssessmentRepo{byCase: make(map[uuid.UUID]*NursingAssessment)}
}

func (m *mockAssessmentRepo) Create(_ context.Context, a *NursingAssessment) error {
	a.ID = uuid.New()
	a.SubmittedAt = time.Now()
	m.byCase[a.CaseID] = a
	return nil
}

func (m *mockAssessmentRepo) GetByCase(_ context.Context, caseID uuid.UUID) (*NursingAssessment, error) {
	a, ok := m.byCase[caseID]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

type mockConclusionRepo struct {
	byCase map[uuid.UUID]*DoctorConclusion
}

func newMockConclusionRepo() *mockConclusionRepo {
	return &mockConclusionRepo{byCase: make(map[uuid.UUID]*DoctorConclusion)}
}

func (m *mockConclusionRepo) Create(_ context.Context, c *DoctorConclusion) error {
	c.ID = uuid.New()
	c.SubmittedAt = time.Now()
	m.byCase[c.CaseID] = c
	return nil
}

func (m *mockConclusionRepo) GetByCase(_ context.Context, caseID uuid.UUID) (*DoctorConclusion, error) {
	c, ok := m.byCase[caseID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

type mockDocumentRepo struct {
	items map[uuid.UUID]*Document
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{items: make(map[uuid.UUID]*Document)}
}

func (m *mockDocumentRepo) Create(_ context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.UploadedAt = time.Now()
	m.items[d.ID] = d
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	d, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

func (m *mockDocumentRepo) ListByCase(_ context.Context, caseID uuid.UUID) ([]*Document, error) {
	var result []*Document
	for _, d := range m.items {
		if d.CaseID == caseID {
			result = append(result, d)
		}
	}
	return result, nil
}

type mockPatientDir struct {
	items map[uuid.UUID]*patients.Patient
}

func (m *mockPatientDir) Get(_ context.Context, id uuid.UUID) (*patients.Patient, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, patients.ErrNotFound
	}
	return p, nil
}

type mockRecordSink struct {
	records    []*mcu.Record
	failCreate bool
}

func (m *mockRecordSink) CreateRecord(_ context.Context, r *mcu.Record) error {
	if m.failCreate {
		return errors.New("insert record")
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.records = append(m.records, r)
	return nil
}

func (m *mockRecordSink) GenerateReport(_ context.Context, id uuid.UUID, _ string) (*mcu.RenderedReport, error) {
	for _, r := range m.records {
		if r.ID == id {
			return &mcu.RenderedReport{
				RecordID: id,
				FileName: "MCU_" + r.NPK + "_" + r.NamaKaryawan + ".pdf",
				Content:  []byte("%PDF-1.3"),
			}, nil
		}
	}
	return nil, mcu.ErrNotFound
}

// -- Fixtures --

type fixture struct {
	svc     *Service
	cases   *mockCaseRepo
	sink    *mockRecordSink
	patient *patients.Patient
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	patient := &patients.Patient{
		ID:           uuid.New(),
		NoRM:         "RM001",
		Nama:         "Budi Santoso",
		JenisKelamin: "Laki-laki",
		TanggalLahir: "1990-01-15",
	}
	dir := &mockPatientDir{items: map[uuid.UUID]*patients.Patient{patient.ID: patient}}
	caseRepo := newMockCaseRepo()
	sink := &mockRecordSink{}
	svc := NewService(
		caseRepo,
		newMockAssessmentRepo(),
		newMockConclusionRepo(),
		newMockDocumentRepo(),
		dir,
		sink,
		blobstore.NewMemoryStore("http://localhost:8080"),
		zerolog.Nop(),
	)
	svc.Now = func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, cases: caseRepo, sink: sink, patient: patient}
}

func (f *fixture) openCase(t *testing.T) *Case {
	t.Helper()
	cs, err := f.svc.Open(context.Background(), f.patient.ID, "perawat-1", "dokter-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return cs
}

func (f *fixture) advanceToConclusion(t *testing.T, cs *Case) {
	t.Helper()
	a := &NursingAssessment{TekananDarah: "120/80", Nadi: "72", MerokokVape: "Tidak"}
	if err := f.svc.SubmitAssessment(context.Background(), cs.ID, a, "perawat-1"); err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}
	_, err := f.svc.AttachDocument(context.Background(), cs.ID, DocLabResult, "lab.pdf", "application/pdf",
		strings.NewReader("%PDF-lab"), "perawat-1")
	if err != nil {
		t.Fatalf("AttachDocument: %v", err)
	}
}

// -- Tests --

func TestOpenCase(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)
	if cs.Status != StatusPendingAssessment {
		t.Fatalf("status = %q, want pending_assessment", cs.Status)
	}
	if cs.CaseNumber != "MCU-202506-0001" {
		t.Fatalf("case number = %q", cs.CaseNumber)
	}
	second := f.openCase(t)
	if second.CaseNumber != "MCU-202506-0002" {
		t.Fatalf("second case number = %q", second.CaseNumber)
	}
}

func TestOpenCaseUnknownPatient(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Open(context.Background(), uuid.New(), "n", "d"); err == nil {
		t.Fatal("expected error for unknown patient")
	}
}

func TestWorkflowHappyPath(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)

	a := &NursingAssessment{TekananDarah: "130/85", Tinggi: "170", Berat: "80"}
	if err := f.svc.SubmitAssessment(context.Background(), cs.ID, a, "perawat-1"); err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}
	got, _ := f.svc.Get(context.Background(), cs.ID)
	if got.Status != StatusPendingDocuments {
		t.Fatalf("status after assessment = %q", got.Status)
	}

	doc, err := f.svc.AttachDocument(context.Background(), cs.ID, DocPhoto1, "photo.jpg", "image/jpeg",
		strings.NewReader("jpegbytes"), "perawat-1")
	if err != nil {
		t.Fatalf("AttachDocument: %v", err)
	}
	if doc.Size == 0 || doc.Path == "" {
		t.Fatalf("document = %+v", doc)
	}
	got, _ = f.svc.Get(context.Background(), cs.ID)
	if got.Status != StatusPendingConclusion {
		t.Fatalf("status after document = %q", got.Status)
	}

	concl := &DoctorConclusion{
		Kesimpulan:     "Hipertensi ringan",
		Saran:          "Kontrol tekanan darah",
		KriteriaStatus: "FIT TO WORK WITH NOTE",
		DoctorName:     "dr. Ratna",
		DoctorSIP:      "SIP.9/2024",
	}
	closed, err := f.svc.Conclude(context.Background(), cs.ID, concl, "dokter-1")
	if err != nil {
		t.Fatalf("Conclude: %v", err)
	}
	if closed.Status != StatusCompleted {
		t.Fatalf("status = %q, want completed", closed.Status)
	}
	if closed.RecordID == nil {
		t.Fatal("record not linked")
	}

	// The materialized record merges patient, assessment and conclusion.
	if len(f.sink.records) != 1 {
		t.Fatalf("records = %d, want 1", len(f.sink.records))
	}
	rec := f.sink.records[0]
	if rec.NamaKaryawan != "Budi Santoso" || rec.PatID != "RM001" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.TekananDarah != "130/85" || rec.Tinggi != "170" {
		t.Fatalf("assessment fields missing: %+v", rec)
	}
	if rec.KriteriaStatus != "FIT TO WORK WITH NOTE" || rec.Kesimpulan != "Hipertensi ringan" {
		t.Fatalf("conclusion fields missing: %+v", rec)
	}
	if rec.TanggalMCU != "2025-06-15" {
		t.Fatalf("tanggal_mcu = %q", rec.TanggalMCU)
	}
}

func TestSubmitAssessmentWrongStage(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)
	f.advanceToConclusion(t, cs)

	err := f.svc.SubmitAssessment(context.Background(), cs.ID, &NursingAssessment{}, "perawat-1")
	if err == nil || !strings.Contains(err.Error(), "invalid case status") {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestConcludeRequiresConclusionStage(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)

	_, err := f.svc.Conclude(context.Background(), cs.ID, &DoctorConclusion{Kesimpulan: "x"}, "dokter-1")
	if err == nil || !strings.Contains(err.Error(), "invalid case status") {
		t.Fatalf("expected transition error, got %v", err)
	}
}

func TestConcludeRequiresKesimpulan(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)
	f.advanceToConclusion(t, cs)

	if _, err := f.svc.Conclude(context.Background(), cs.ID, &DoctorConclusion{}, "dokter-1"); err == nil {
		t.Fatal("expected validation error")
	}
}

type recordedTx struct {
	committed  bool
	rolledBack bool
}

func (t *recordedTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *recordedTx) Rollback(context.Context) error { t.rolledBack = true; return nil }

func TestConcludeCommitsTransaction(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)
	f.advanceToConclusion(t, cs)

	tx := &recordedTx{}
	f.svc.BeginTx = func(ctx context.Context) (context.Context, Tx, error) { return ctx, tx, nil }

	if _, err := f.svc.Conclude(context.Background(), cs.ID, &DoctorConclusion{Kesimpulan: "Sehat"}, "dokter-1"); err != nil {
		t.Fatalf("Conclude: %v", err)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("tx = %+v, want committed", tx)
	}
}

func TestConcludeRollsBackOnRecordFailure(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)
	f.advanceToConclusion(t, cs)
	f.sink.failCreate = true

	tx := &recordedTx{}
	f.svc.BeginTx = func(ctx context.Context) (context.Context, Tx, error) { return ctx, tx, nil }

	if _, err := f.svc.Conclude(context.Background(), cs.ID, &DoctorConclusion{Kesimpulan: "Sehat"}, "dokter-1"); err == nil {
		t.Fatal("expected record failure to surface")
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("tx = %+v, want rolled back", tx)
	}
	got, _ := f.svc.Get(context.Background(), cs.ID)
	if got.Status != StatusPendingConclusion {
		t.Fatalf("status = %q, case must stay open", got.Status)
	}
}

func TestAttachDocumentInvalidType(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)
	_, err := f.svc.AttachDocument(context.Background(), cs.ID, "selfie", "x.jpg", "image/jpeg",
		strings.NewReader("x"), "perawat-1")
	if err == nil {
		t.Fatal("expected error for invalid doc type")
	}
}

func TestAttachDocumentOnClosedCase(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)
	f.advanceToConclusion(t, cs)
	if _, err := f.svc.Conclude(context.Background(), cs.ID, &DoctorConclusion{Kesimpulan: "ok"}, "dokter-1"); err != nil {
		t.Fatalf("Conclude: %v", err)
	}
	_, err := f.svc.AttachDocument(context.Background(), cs.ID, DocPhoto1, "late.jpg", "image/jpeg",
		strings.NewReader("x"), "perawat-1")
	if err == nil {
		t.Fatal("expected error on completed case")
	}
}

func TestDocumentURL(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)
	f.advanceToConclusion(t, cs)

	docs, err := f.svc.ListDocuments(context.Background(), cs.ID)
	if err != nil || len(docs) != 1 {
		t.Fatalf("ListDocuments: %v, %d docs", err, len(docs))
	}
	url, err := f.svc.DocumentURL(context.Background(), docs[0].ID)
	if err != nil {
		t.Fatalf("DocumentURL: %v", err)
	}
	if !strings.Contains(url, "sig=") || !strings.Contains(url, "exp=") {
		t.Fatalf("url not signed: %q", url)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)
	if err := f.svc.Cancel(context.Background(), cs.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	got, _ := f.svc.Get(context.Background(), cs.ID)
	if got.Status != StatusCancelled {
		t.Fatalf("status = %q", got.Status)
	}
	if err := f.svc.Cancel(context.Background(), cs.ID); err == nil {
		t.Fatal("cancelling twice should fail")
	}
}

func TestCaseReport(t *testing.T) {
	f := newFixture(t)
	cs := f.openCase(t)

	if _, err := f.svc.Report(context.Background(), cs.ID, "dokter-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("report before completion: err = %v, want ErrInvalidTransition", err)
	}

	f.advanceToConclusion(t, cs)
	concl := &DoctorConclusion{Kesimpulan: "Sehat", KriteriaStatus: "FIT TO WORK"}
	if _, err := f.svc.Conclude(context.Background(), cs.ID, concl, "dokter-1"); err != nil {
		t.Fatalf("Conclude: %v", err)
	}

	rendered, err := f.svc.Report(context.Background(), cs.ID, "dokter-1")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if len(rendered.Content) == 0 {
		t.Fatal("expected rendered content")
	}
	if !strings.Contains(rendered.FileName, "Budi") {
		t.Fatalf("file name = %q", rendered.FileName)
	}
}
