package mcu

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

// =========== Record Repository ===========

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const recordCols = `id, nama_karyawan, npk, patid, seksi, departemen, jenis_kelamin,
	tanggal_lahir, usia, tanggal_mcu,
	riwayat_penyakit_sekarang, riwayat_penyakit_dahulu, riwayat_penyakit_keluarga,
	riwayat_pengobatan, riwayat_rawat_inap, riwayat_operasi, riwayat_kecelakaan,
	merokok_vape, jumlah_batang, alkohol, olahraga,
	tekanan_darah, nadi, suhu_badan, frekuensi_nafas, tinggi, berat, bmi, status_gizi,
	visus_mata_kanan, keadaan_umum_kanan, visus_mata_kiri, keadaan_umum_kiri, test_buta_warna,
	kesimpulan, saran, kriteria_status, status_resume,
	batch_id, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.NamaKaryawan, &r.NPK, &r.PatID, &r.Seksi, &r.Departemen, &r.JenisKelamin,
		&r.TanggalLahir, &r.Usia, &r.TanggalMCU,
		&r.RiwayatPenyakitSekarang, &r.RiwayatPenyakitDahulu, &r.RiwayatPenyakitKeluarga,
		&r.RiwayatPengobatan, &r.RiwayatRawatInap, &r.RiwayatOperasi, &r.RiwayatKecelakaan,
		&r.MerokokVape, &r.JumlahBatang, &r.Alkohol, &r.Olahraga,
		&r.TekananDarah, &r.Nadi, &r.SuhuBadan, &r.FrekuensiNafas, &r.Tinggi, &r.Berat, &r.BMI, &r.StatusGizi,
		&r.VisusMataKanan, &r.KeadaanUmumKanan, &r.VisusMataKiri, &r.KeadaanUmumKiri, &r.TestButaWarna,
		&r.Kesimpulan, &r.Saran, &r.KriteriaStatus, &r.StatusResume,
		&r.BatchID, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &r, err
}

func (p *repoPG) Create(ctx context.Context, r *Record) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := conn(ctx, p.pool).Exec(ctx, `
		INSERT INTO mcu_records (id, nama_karyawan, npk, patid, seksi, departemen, jenis_kelamin,
			tanggal_lahir, usia, tanggal_mcu,
			riwayat_penyakit_sekarang, riwayat_penyakit_dahulu, riwayat_penyakit_keluarga,
			riwayat_pengobatan, riwayat_rawat_inap, riwayat_operasi, riwayat_kecelakaan,
			merokok_vape, jumlah_batang, alkohol, olahraga,
			tekanan_darah, nadi, suhu_badan, frekuensi_nafas, tinggi, berat, bmi, status_gizi,
			visus_mata_kanan, keadaan_umum_kanan, visus_mata_kiri, keadaan_umum_kiri, test_buta_warna,
			kesimpulan, saran, kriteria_status, status_resume, batch_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38,$39)`,
		r.ID, r.NamaKaryawan, r.NPK, r.PatID, r.Seksi, r.Departemen, r.JenisKelamin,
		r.TanggalLahir, r.Usia, r.TanggalMCU,
		r.RiwayatPenyakitSekarang, r.RiwayatPenyakitDahulu, r.RiwayatPenyakitKeluarga,
		r.RiwayatPengobatan, r.RiwayatRawatInap, r.RiwayatOperasi, r.RiwayatKecelakaan,
		r.MerokokVape, r.JumlahBatang, r.Alkohol, r.Olahraga,
		r.TekananDarah, r.Nadi, r.SuhuBadan, r.FrekuensiNafas, r.Tinggi, r.Berat, r.BMI, r.StatusGizi,
		r.VisusMataKanan, r.KeadaanUmumKanan, r.VisusMataKiri, r.KeadaanUmumKiri, r.TestButaWarna,
		r.Kesimpulan, r.Saran, r.KriteriaStatus, r.StatusResume, r.BatchID)
	return err
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRecord(conn(ctx, p.pool).QueryRow(ctx,
		`SELECT `+recordCols+` FROM mcu_records WHERE id = $1`, id))
}

func (p *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Record, int, error) {
	where := `WHERE 1=1`
	args := []interface{}{}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (nama_karyawan ILIKE $%d OR npk ILIKE $%d)`, len(args), len(args))
	}
	if f.BatchID != nil {
		args = append(args, *f.BatchID)
		where += fmt.Sprintf(` AND batch_id = $%d`, len(args))
	}

	var total int
	if err := conn(ctx, p.pool).QueryRow(ctx, `SELECT COUNT(*) FROM mcu_records `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := conn(ctx, p.pool).Query(ctx,
		`SELECT `+recordCols+` FROM mcu_records `+where+
			fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

func (p *repoPG) Update(ctx context.Context, r *Record) error {
	tag, err := conn(ctx, p.pool).Exec(ctx, `
		UPDATE mcu_records SET nama_karyawan=$2, npk=$3, patid=$4, seksi=$5, departemen=$6,
			jenis_kelamin=$7, tanggal_lahir=$8, usia=$9, tanggal_mcu=$10,
			riwayat_penyakit_sekarang=$11, riwayat_penyakit_dahulu=$12, riwayat_penyakit_keluarga=$13,
			riwayat_pengobatan=$14, riwayat_rawat_inap=$15, riwayat_operasi=$16, riwayat_kecelakaan=$17,
			merokok_vape=$18, jumlah_batang=$19, alkohol=$20, olahraga=$21,
			tekanan_darah=$22, nadi=$23, suhu_badan=$24, frekuensi_nafas=$25,
			tinggi=$26, berat=$27, bmi=$28, status_gizi=$29,
			visus_mata_kanan=$30, keadaan_umum_kanan=$31, visus_mata_kiri=$32, keadaan_umum_kiri=$33,
			test_buta_warna=$34, kesimpulan=$35, saran=$36, kriteria_status=$37, status_resume=$38,
			updated_at=NOW()
		WHERE id = $1`,
		r.ID, r.NamaKaryawan, r.NPK, r.PatID, r.Seksi, r.Departemen,
		r.JenisKelamin, r.TanggalLahir, r.Usia, r.TanggalMCU,
		r.RiwayatPenyakitSekarang, r.RiwayatPenyakitDahulu, r.RiwayatPenyakitKeluarga,
		r.RiwayatPengobatan, r.RiwayatRawatInap, r.RiwayatOperasi, r.RiwayatKecelakaan,
		r.MerokokVape, r.JumlahBatang, r.Alkohol, r.Olahraga,
		r.TekananDarah, r.Nadi, r.SuhuBadan, r.FrekuensiNafas,
		r.Tinggi, r.Berat, r.BMI, r.StatusGizi,
		r.VisusMataKanan, r.KeadaanUmumKanan, r.VisusMataKiri, r.KeadaanUmumKiri,
		r.TestButaWarna, r.Kesimpulan, r.Saran, r.KriteriaStatus, r.StatusResume)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, p.pool).Exec(ctx, `DELETE FROM mcu_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *repoPG) DeleteByBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	tag, err := conn(ctx, p.pool).Exec(ctx, `DELETE FROM mcu_records WHERE batch_id = $1`, batchID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// =========== Upload Batch Repository ===========

type batchRepoPG struct{ pool *pgxpool.Pool }

func NewBatchRepoPG(pool *pgxpool.Pool) BatchRepository { return &batchRepoPG{pool: pool} }

const batchCols = `id, filename, total_rows, status, uploaded_by, uploaded_at, completed_at`

func scanBatch(row pgx.Row) (*UploadBatch, error) {
	var b UploadBatch
	err := row.Scan(&b.ID, &b.Filename, &b.TotalRows, &b.Status, &b.UploadedBy, &b.UploadedAt, &b.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &b, err
}

func (p *batchRepoPG) Create(ctx context.Context, b *UploadBatch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = BatchProcessing
	}
	_, err := conn(ctx, p.pool).Exec(ctx, `
		INSERT INTO upload_batches (id, filename, total_rows, status, uploaded_by)
		VALUES ($1,$2,$3,$4,$5)`,
		b.ID, b.Filename, b.TotalRows, b.Status, b.UploadedBy)
	return err
}

func (p *batchRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*UploadBatch, error) {
	return scanBatch(conn(ctx, p.pool).QueryRow(ctx,
		`SELECT `+batchCols+` FROM upload_batches WHERE id = $1`, id))
}

func (p *batchRepoPG) List(ctx context.Context, limit, offset int) ([]*UploadBatch, int, error) {
	var total int
	if err := conn(ctx, p.pool).QueryRow(ctx, `SELECT COUNT(*) FROM upload_batches`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, p.pool).Query(ctx,
		`SELECT `+batchCols+` FROM upload_batches ORDER BY uploaded_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*UploadBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (p *batchRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	completed := "NULL"
	if status == BatchCompleted || status == BatchFailed {
		completed = "NOW()"
	}
	tag, err := conn(ctx, p.pool).Exec(ctx,
		`UPDATE upload_batches SET status = $2, completed_at = `+completed+` WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *batchRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, p.pool).Exec(ctx, `DELETE FROM upload_batches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Report History Repository ===========

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository { return &historyRepoPG{pool: pool} }

func (p *historyRepoPG) Create(ctx context.Context, h *ReportHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	_, err := conn(ctx, p.pool).Exec(ctx, `
		INSERT INTO pdf_history (id, record_id, nama_karyawan, npk, file_name, generated_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		h.ID, h.RecordID, h.NamaKaryawan, h.NPK, h.FileName, h.GeneratedBy)
	return err
}

func (p *historyRepoPG) List(ctx context.Context, limit, offset int) ([]*ReportHistory, int, error) {
	var total int
	if err := conn(ctx, p.pool).QueryRow(ctx, `SELECT COUNT(*) FROM pdf_history`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, p.pool).Query(ctx, `
		SELECT id, record_id, nama_karyawan, npk, file_name, generated_by, generated_at
		FROM pdf_history ORDER BY generated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ReportHistory
	for rows.Next() {
		var h ReportHistory
		if err := rows.Scan(&h.ID, &h.RecordID, &h.NamaKaryawan, &h.NPK, &h.FileName, &h.GeneratedBy, &h.GeneratedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &h)
	}
	return items, total, rows.Err()
}

func (p *historyRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := conn(ctx, p.pool).Exec(ctx, `DELETE FROM pdf_history WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
