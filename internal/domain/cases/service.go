package cases

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medicheck/mcu/internal/domain/mcu"
	"github.com/medicheck/mcu/internal/domain/patients"
	"github.com/medicheck/mcu/internal/platform/blobstore"
)

// PatientDirectory resolves patients for case intake.
type PatientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
}

// RecordSink receives the check-up record materialized when a case closes and
// renders its PDF report on demand.
type RecordSink interface {
	CreateRecord(ctx context.Context, r *mcu.Record) error
	GenerateReport(ctx context.Context, id uuid.UUID, generatedBy string) (*mcu.RenderedReport, error)
}

type Service struct {
	cases       CaseRepository
	assessments AssessmentRepository
	conclusions ConclusionRepository
	documents   DocumentRepository
	patients    PatientDirectory
	records     RecordSink
	store       blobstore.Store
	log         zerolog.Logger

	// SignedURLTTL bounds how long document download links stay valid.
	SignedURLTTL time.Duration
	// BeginTx, when set, runs Conclude's writes inside one transaction so
	// the conclusion, the materialized record and the case update commit
	// together. Repositories pick the transaction up from the derived
	// context.
	BeginTx func(ctx context.Context) (context.Context, Tx, error)
	// Now is injectable for tests.
	Now func() time.Time
}

// Tx is the commit/rollback surface of a database transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

func NewService(
	cases CaseRepository,
	assessments AssessmentRepository,
	conclusions ConclusionRepository,
	documents DocumentRepository,
	patients PatientDirectory,
	records RecordSink,
	store blobstore.Store,
	log zerolog.Logger,
) *Service {
	return &Service{
		cases:       cases,
		assessments: assessments,
		conclusions: conclusions,
		documents:   documents,
		patients:    patients,
		records:     records,
		store:       store,
		log:         log,

		SignedURLTTL: time.Hour,
		Now:          time.Now,
	}
}

// Open starts a new case for a patient.
func (s *Service) Open(ctx context.Context, patientID uuid.UUID, nurse, doctor string) (*Case, error) {
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}
	number, err := s.nextCaseNumber(ctx)
	if err != nil {
		return nil, err
	}
	cs := &Case{
		CaseNumber:     number,
		PatientID:      patientID,
		Status:         StatusPendingAssessment,
		AssignedNurse:  nurse,
		AssignedDoctor: doctor,
	}
	if err := s.cases.Create(ctx, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// nextCaseNumber yields MCU-YYYYMM-NNNN, sequential within the month.
func (s *Service) nextCaseNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("MCU-%s-", s.Now().Format("200601"))
	n, err := s.cases.CountByNumberPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("case sequence: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, n+1), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.cases.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Case, int, error) {
	return s.cases.List(ctx, status, limit, offset)
}

// SubmitAssessment files the nursing assessment and moves the case to the
// document collection stage.
func (s *Service) SubmitAssessment(ctx context.Context, caseID uuid.UUID, a *NursingAssessment, submittedBy string) error {
	cs, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return err
	}
	if cs.Status != StatusPendingAssessment {
		return fmt.Errorf("%w: %s", ErrInvalidTransition, cs.Status)
	}
	a.CaseID = caseID
	a.SubmittedBy = submittedBy
	if err := s.assessments.Create(ctx, a); err != nil {
		return err
	}
	return s.cases.SetStatus(ctx, caseID, StatusPendingDocuments)
}

var validDocTypes = map[string]bool{
	DocPhoto1: true, DocPhoto2: true, DocPhoto3: true, DocLabResult: true,
}

// AttachDocument stores one supporting file for a case. The first document
// on a case in the collection stage advances it to the conclusion stage.
func (s *Service) AttachDocument(ctx context.Context, caseID uuid.UUID, docType, filename, contentType string, r io.Reader, uploadedBy string) (*Document, error) {
	if !validDocTypes[docType] {
		return nil, fmt.Errorf("invalid doc_type: %s", docType)
	}
	cs, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if cs.Status == StatusCompleted || cs.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, cs.Status)
	}

	path := fmt.Sprintf("cases/%s/%s/%s", caseID, docType, filename)
	info, err := s.store.Upload(ctx, path, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	doc := &Document{
		CaseID:      caseID,
		DocType:     docType,
		Path:        info.Path,
		ContentType: info.ContentType,
		Size:        info.Size,
		UploadedBy:  uploadedBy,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		// The stored blob is orphaned; remove it so re-upload is clean.
		if rerr := s.store.Remove(ctx, info.Path); rerr != nil {
			s.log.Warn().Err(rerr).Str("path", info.Path).Msg("remove orphaned document")
		}
		return nil, err
	}

	if cs.Status == StatusPendingDocuments {
		if err := s.cases.SetStatus(ctx, caseID, StatusPendingConclusion); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (s *Service) ListDocuments(ctx context.Context, caseID uuid.UUID) ([]*Document, error) {
	return s.documents.ListByCase(ctx, caseID)
}

// DocumentURL returns a time-limited download link for one document.
func (s *Service) DocumentURL(ctx context.Context, docID uuid.UUID) (string, error) {
	doc, err := s.documents.GetByID(ctx, docID)
	if err != nil {
		return "", err
	}
	return s.store.SignedURL(ctx, doc.Path, s.SignedURLTTL)
}

// Conclude files the doctor conclusion, materializes the final check-up
// record from the patient, assessment and conclusion, and completes the
// case.
func (s *Service) Conclude(ctx context.Context, caseID uuid.UUID, c *DoctorConclusion, submittedBy string) (*Case, error) {
	cs, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if cs.Status != StatusPendingConclusion {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, cs.Status)
	}
	if c.Kesimpulan == "" {
		return nil, fmt.Errorf("kesimpulan is required")
	}

	c.CaseID = caseID
	c.SubmittedBy = submittedBy

	if s.BeginTx != nil {
		txCtx, tx, err := s.BeginTx(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin conclusion: %w", err)
		}
		if err := s.conclude(txCtx, cs, c); err != nil {
			_ = tx.Rollback(ctx)
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit conclusion: %w", err)
		}
	} else if err := s.conclude(ctx, cs, c); err != nil {
		return nil, err
	}
	return cs, nil
}

// conclude performs the writes of Conclude and mutates cs to its closed
// state.
func (s *Service) conclude(ctx context.Context, cs *Case, c *DoctorConclusion) error {
	if err := s.conclusions.Create(ctx, c); err != nil {
		return err
	}

	rec, err := s.buildRecord(ctx, cs, c)
	if err != nil {
		return err
	}
	if err := s.records.CreateRecord(ctx, rec); err != nil {
		return fmt.Errorf("materialize record: %w", err)
	}
	if err := s.cases.SetRecord(ctx, cs.ID, rec.ID); err != nil {
		return err
	}
	if err := s.cases.SetStatus(ctx, cs.ID, StatusCompleted); err != nil {
		return err
	}

	cs.RecordID = &rec.ID
	cs.Status = StatusCompleted
	return nil
}

func (s *Service) buildRecord(ctx context.Context, cs *Case, c *DoctorConclusion) (*mcu.Record, error) {
	p, err := s.patients.Get(ctx, cs.PatientID)
	if err != nil {
		return nil, fmt.Errorf("resolve patient: %w", err)
	}

	rec := &mcu.Record{
		NamaKaryawan: p.Nama,
		PatID:        p.NoRM,
		JenisKelamin: p.JenisKelamin,
		TanggalLahir: p.TanggalLahir,
		TanggalMCU:   s.Now().Format("2006-01-02"),

		Kesimpulan:     c.Kesimpulan,
		Saran:          c.Saran,
		KriteriaStatus: c.KriteriaStatus,
		StatusResume:   c.StatusResume,
	}

	a, err := s.assessments.GetByCase(ctx, cs.ID)
	if err != nil {
		// A case cannot reach the conclusion stage without an assessment,
		// but tolerate a missing one rather than blocking closure.
		s.log.Warn().Err(err).Str("case_id", cs.ID.String()).Msg("assessment missing at conclusion")
		return rec, nil
	}

	rec.TekananDarah = a.TekananDarah
	rec.Nadi = a.Nadi
	rec.SuhuBadan = a.SuhuBadan
	rec.FrekuensiNafas = a.FrekuensiNafas
	rec.Tinggi = a.Tinggi
	rec.Berat = a.Berat
	rec.BMI = a.BMI
	rec.StatusGizi = a.StatusGizi
	rec.RiwayatPenyakitSekarang = a.RiwayatPenyakitSekarang
	rec.RiwayatPenyakitDahulu = a.RiwayatPenyakitDahulu
	rec.RiwayatPenyakitKeluarga = a.RiwayatPenyakitKeluarga
	rec.RiwayatPengobatan = a.RiwayatPengobatan
	rec.RiwayatRawatInap = a.RiwayatRawatInap
	rec.RiwayatOperasi = a.RiwayatOperasi
	rec.RiwayatKecelakaan = a.RiwayatKecelakaan
	rec.MerokokVape = a.MerokokVape
	rec.JumlahBatang = a.JumlahBatang
	rec.Alkohol = a.Alkohol
	rec.Olahraga = a.Olahraga
	rec.VisusMataKanan = a.VisusMataKanan
	rec.KeadaanUmumKanan = a.KeadaanUmumKanan
	rec.VisusMataKiri = a.VisusMataKiri
	rec.KeadaanUmumKiri = a.KeadaanUmumKiri
	rec.TestButaWarna = a.TestButaWarna

	return rec, nil
}

// Report renders the PDF report for a completed case's materialized record.
func (s *Service) Report(ctx context.Context, caseID uuid.UUID, generatedBy string) (*mcu.RenderedReport, error) {
	cs, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if cs.Status != StatusCompleted || cs.RecordID == nil {
		return nil, fmt.Errorf("%w: case %s has no report yet", ErrInvalidTransition, cs.CaseNumber)
	}
	return s.records.GenerateReport(ctx, *cs.RecordID, generatedBy)
}

// Cancel terminates a case that has not completed.
func (s *Service) Cancel(ctx context.Context, caseID uuid.UUID) error {
	cs, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return err
	}
	if cs.Status == StatusCompleted || cs.Status == StatusCancelled {
		return fmt.Errorf("%w: %s", ErrInvalidTransition, cs.Status)
	}
	return s.cases.SetStatus(ctx, caseID, StatusCancelled)
}

// Assessment returns the filed nursing assessment for a case.
func (s *Service) Assessment(ctx context.Context, caseID uuid.UUID) (*NursingAssessment, error) {
	return s.assessments.GetByCase(ctx, caseID)
}

// Conclusion returns the filed doctor conclusion for a case.
func (s *Service) Conclusion(ctx context.Context, caseID uuid.UUID) (*DoctorConclusion, error) {
	return s.conclusions.GetByCase(ctx, caseID)
}
