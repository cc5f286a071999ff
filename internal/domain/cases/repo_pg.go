package cases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicheck/mcu/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Case Repository ===========

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository { return &caseRepoPG{pool: pool} }

const caseCols = `id, case_number, patient_id, status, assigned_nurse, assigned_doctor, record_id, created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.CaseNumber, &c.PatientID, &c.Status, &c.AssignedNurse, &c.AssignedDoctor, &c.RecordID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

func (r *caseRepoPG) Create(ctx context.Context, cs *Case) error {
	if cs.ID == uuid.Nil {
		cs.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO mcu_cases (id, case_number, patient_id, status, assigned_nurse, assigned_doctor)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		cs.ID, cs.CaseNumber, cs.PatientID, cs.Status, cs.AssignedNurse, cs.AssignedDoctor)
	return err
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	return scanCase(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+caseCols+` FROM mcu_cases WHERE id = $1`, id))
}

func (r *caseRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*Case, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM mcu_cases `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+caseCols+` FROM mcu_cases `+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *caseRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE mcu_cases SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseRepoPG) SetRecord(ctx context.Context, id uuid.UUID, recordID uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE mcu_cases SET record_id = $2, updated_at = NOW() WHERE id = $1`, id, recordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *caseRepoPG) CountByNumberPrefix(ctx context.Context, prefix string) (int, error) {
	var n int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM mcu_cases WHERE case_number LIKE $1`, prefix+"%").Scan(&n)
	return n, err
}

// =========== Assessment Repository ===========

type assessmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssessmentRepoPG(pool *pgxpool.Pool) AssessmentRepository { return &assessmentRepoPG{pool: pool} }

const assessmentCols = `id, case_id, tekanan_darah, nadi, suhu_badan, frekuensi_nafas,
	tinggi, berat, bmi, status_gizi,
	riwayat_penyakit_sekarang, riwayat_penyakit_dahulu, riwayat_penyakit_keluarga,
	riwayat_pengobatan, riwayat_rawat_inap, riwayat_operasi, riwayat_kecelakaan,
	merokok_vape, jumlah_batang, alkohol, olahraga,
	visus_mata_kanan, keadaan_umum_kanan, visus_mata_kiri, keadaan_umum_kiri, test_buta_warna,
	catatan_perawat, submitted_by, submitted_at`

func scanAssessment(row pgx.Row) (*NursingAssessment, error) {
	var a NursingAssessment
	err := row.Scan(&a.ID, &a.CaseID, &a.TekananDarah, &a.Nadi, &a.SuhuBadan, &a.FrekuensiNafas,
		&a.Tinggi, &a.Berat, &a.BMI, &a.StatusGizi,
		&a.RiwayatPenyakitSekarang, &a.RiwayatPenyakitDahulu, &a.RiwayatPenyakitKeluarga,
		&a.RiwayatPengobatan, &a.RiwayatRawatInap, &a.RiwayatOperasi, &a.RiwayatKecelakaan,
		&a.MerokokVape, &a.JumlahBatang, &a.Alkohol, &a.Olahraga,
		&a.VisusMataKanan, &a.KeadaanUmumKanan, &a.VisusMataKiri, &a.KeadaanUmumKiri, &a.TestButaWarna,
		&a.CatatanPerawat, &a.SubmittedBy, &a.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *assessmentRepoPG) Create(ctx context.Context, a *NursingAssessment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO nursing_assessments (id, case_id, tekanan_darah, nadi, suhu_badan, frekuensi_nafas,
			tinggi, berat, bmi, status_gizi,
			riwayat_penyakit_sekarang, riwayat_penyakit_dahulu, riwayat_penyakit_keluarga,
			riwayat_pengobatan, riwayat_rawat_inap, riwayat_operasi, riwayat_kecelakaan,
			merokok_vape, jumlah_batang, alkohol, olahraga,
			visus_mata_kanan, keadaan_umum_kanan, visus_mata_kiri, keadaan_umum_kiri, test_buta_warna,
			catatan_perawat, submitted_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24,$25,$26,$27,$28)`,
		a.ID, a.CaseID, a.TekananDarah, a.Nadi, a.SuhuBadan, a.FrekuensiNafas,
		a.Tinggi, a.Berat, a.BMI, a.StatusGizi,
		a.RiwayatPenyakitSekarang, a.RiwayatPenyakitDahulu, a.RiwayatPenyakitKeluarga,
		a.RiwayatPengobatan, a.RiwayatRawatInap, a.RiwayatOperasi, a.RiwayatKecelakaan,
		a.MerokokVape, a.JumlahBatang, a.Alkohol, a.Olahraga,
		a.VisusMataKanan, a.KeadaanUmumKanan, a.VisusMataKiri, a.KeadaanUmumKiri, a.TestButaWarna,
		a.CatatanPerawat, a.SubmittedBy)
	return err
}

func (r *assessmentRepoPG) GetByCase(ctx context.Context, caseID uuid.UUID) (*NursingAssessment, error) {
	return scanAssessment(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM nursing_assessments WHERE case_id = $1 ORDER BY submitted_at DESC LIMIT 1`, caseID))
}

// =========== Conclusion Repository ===========

type conclusionRepoPG struct{ pool *pgxpool.Pool }

func NewConclusionRepoPG(pool *pgxpool.Pool) ConclusionRepository { return &conclusionRepoPG{pool: pool} }

func (r *conclusionRepoPG) Create(ctx context.Context, c *DoctorConclusion) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctor_conclusions (id, case_id, diagnosis, kesimpulan, saran,
			kriteria_status, status_resume, doctor_name, doctor_sip, submitted_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.CaseID, c.Diagnosis, c.Kesimpulan, c.Saran,
		c.KriteriaStatus, c.StatusResume, c.DoctorName, c.DoctorSIP, c.SubmittedBy)
	return err
}

func (r *conclusionRepoPG) GetByCase(ctx context.Context, caseID uuid.UUID) (*DoctorConclusion, error) {
	var c DoctorConclusion
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, case_id, diagnosis, kesimpulan, saran, kriteria_status, status_resume,
			doctor_name, doctor_sip, submitted_by, submitted_at
		FROM doctor_conclusions WHERE case_id = $1 ORDER BY submitted_at DESC LIMIT 1`, caseID).
		Scan(&c.ID, &c.CaseID, &c.Diagnosis, &c.Kesimpulan, &c.Saran, &c.KriteriaStatus, &c.StatusResume,
			&c.DoctorName, &c.DoctorSIP, &c.SubmittedBy, &c.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &c, err
}

// =========== Document Repository ===========

type documentRepoPG struct{ pool *pgxpool.Pool }

func NewDocumentRepoPG(pool *pgxpool.Pool) DocumentRepository { return &documentRepoPG{pool: pool} }

const documentCols = `id, case_id, doc_type, path, content_type, size, uploaded_by, uploaded_at`

func (r *documentRepoPG) Create(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO mcu_documents (id, case_id, doc_type, path, content_type, size, uploaded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.CaseID, d.DocType, d.Path, d.ContentType, d.Size, d.UploadedBy)
	return err
}

func (r *documentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var d Document
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+documentCols+` FROM mcu_documents WHERE id = $1`, id).
		Scan(&d.ID, &d.CaseID, &d.DocType, &d.Path, &d.ContentType, &d.Size, &d.UploadedBy, &d.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &d, err
}

func (r *documentRepoPG) ListByCase(ctx context.Context, caseID uuid.UUID) ([]*Document, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+documentCols+` FROM mcu_documents WHERE case_id = $1 ORDER BY uploaded_at ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.CaseID, &d.DocType, &d.Path, &d.ContentType, &d.Size, &d.UploadedBy, &d.UploadedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}
