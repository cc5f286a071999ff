// Package mcu holds medical check-up results: spreadsheet intake, storage,
// PDF report generation and batch export.
package mcu

import (
	"time"

	"github.com/google/uuid"

	"github.com/medicheck/mcu/internal/platform/report"
)

// Record is one employee's medical check-up result. Field names follow the
// intake spreadsheets, which carry Indonesian column headers.
type Record struct {
	ID           uuid.UUID `json:"id" db:"id"`
	NamaKaryawan string    `json:"nama_karyawan" db:"nama_karyawan"`
	NPK          string    `json:"npk" db:"npk"`
	PatID        string    `json:"patid" db:"patid"`
	Seksi        string    `json:"seksi" db:"seksi"`
	Departemen   string    `json:"departemen" db:"departemen"`
	JenisKelamin string    `json:"jenis_kelamin" db:"jenis_kelamin"`
	TanggalLahir string    `json:"tanggal_lahir" db:"tanggal_lahir"`
	Usia         string    `json:"usia" db:"usia"`
	TanggalMCU   string    `json:"tanggal_mcu" db:"tanggal_mcu"`

	RiwayatPenyakitSekarang string `json:"riwayat_penyakit_sekarang" db:"riwayat_penyakit_sekarang"`
	RiwayatPenyakitDahulu   string `json:"riwayat_penyakit_dahulu" db:"riwayat_penyakit_dahulu"`
	RiwayatPenyakitKeluarga string `json:"riwayat_penyakit_keluarga" db:"riwayat_penyakit_keluarga"`
	RiwayatPengobatan       string `json:"riwayat_pengobatan" db:"riwayat_pengobatan"`
	RiwayatRawatInap        string `json:"riwayat_rawat_inap" db:"riwayat_rawat_inap"`
	RiwayatOperasi          string `json:"riwayat_operasi" db:"riwayat_operasi"`
	RiwayatKecelakaan       string `json:"riwayat_kecelakaan" db:"riwayat_kecelakaan"`

	MerokokVape  string `json:"merokok_vape" db:"merokok_vape"`
	JumlahBatang string `json:"jumlah_batang" db:"jumlah_batang"`
	Alkohol      string `json:"alkohol" db:"alkohol"`
	Olahraga     string `json:"olahraga" db:"olahraga"`

	TekananDarah   string `json:"tekanan_darah" db:"tekanan_darah"`
	Nadi           string `json:"nadi" db:"nadi"`
	SuhuBadan      string `json:"suhu_badan" db:"suhu_badan"`
	FrekuensiNafas string `json:"frekuensi_nafas" db:"frekuensi_nafas"`
	Tinggi         string `json:"tinggi" db:"tinggi"`
	Berat          string `json:"berat" db:"berat"`
	BMI            string `json:"bmi" db:"bmi"`
	StatusGizi     string `json:"status_gizi" db:"status_gizi"`

	VisusMataKanan   string `json:"visus_mata_kanan" db:"visus_mata_kanan"`
	KeadaanUmumKanan string `json:"keadaan_umum_kanan" db:"keadaan_umum_kanan"`
	VisusMataKiri    string `json:"visus_mata_kiri" db:"visus_mata_kiri"`
	KeadaanUmumKiri  string `json:"keadaan_umum_kiri" db:"keadaan_umum_kiri"`
	TestButaWarna    string `json:"test_buta_warna" db:"test_buta_warna"`

	Kesimpulan     string `json:"kesimpulan" db:"kesimpulan"`
	Saran          string `json:"saran" db:"saran"`
	KriteriaStatus string `json:"kriteria_status" db:"kriteria_status"`
	StatusResume   string `json:"status_resume" db:"status_resume"`

	BatchID   *uuid.UUID `json:"batch_id,omitempty" db:"batch_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// EffectiveStatus is the status shown on the report: the examining criteria
// status when present, the resume status otherwise.
func (r *Record) EffectiveStatus() string {
	return report.EffectiveStatus(r.KriteriaStatus, r.StatusResume)
}

// ReportData converts the stored record into its report display view.
func (r *Record) ReportData() report.Data {
	return report.Data{
		NamaKaryawan: r.NamaKaryawan,
		PatID:        r.PatID,
		Seksi:        r.Seksi,
		Departemen:   r.Departemen,
		NPK:          r.NPK,
		JenisKelamin: r.JenisKelamin,
		TanggalLahir: r.TanggalLahir,
		Usia:         r.Usia,
		TanggalMCU:   r.TanggalMCU,

		RiwayatPenyakitSekarang: r.RiwayatPenyakitSekarang,
		RiwayatPenyakitDahulu:   r.RiwayatPenyakitDahulu,
		RiwayatPenyakitKeluarga: r.RiwayatPenyakitKeluarga,
		RiwayatPengobatan:       r.RiwayatPengobatan,
		RiwayatRawatInap:        r.RiwayatRawatInap,
		RiwayatOperasi:          r.RiwayatOperasi,
		RiwayatKecelakaan:       r.RiwayatKecelakaan,

		MerokokVape:  r.MerokokVape,
		JumlahBatang: r.JumlahBatang,
		Alkohol:      r.Alkohol,
		Olahraga:     r.Olahraga,

		TekananDarah:   r.TekananDarah,
		Nadi:           r.Nadi,
		SuhuBadan:      r.SuhuBadan,
		FrekuensiNafas: r.FrekuensiNafas,
		Tinggi:         r.Tinggi,
		Berat:          r.Berat,
		BMI:            r.BMI,
		StatusGizi:     r.StatusGizi,

		VisusMataKanan:   r.VisusMataKanan,
		KeadaanUmumKanan: r.KeadaanUmumKanan,
		VisusMataKiri:    r.VisusMataKiri,
		KeadaanUmumKiri:  r.KeadaanUmumKiri,
		TestButaWarna:    r.TestButaWarna,

		Kesimpulan:     r.Kesimpulan,
		Saran:          r.Saran,
		KriteriaStatus: r.KriteriaStatus,
		StatusResume:   r.StatusResume,
	}
}

// Batch statuses.
const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchFailed     = "failed"
)

// UploadBatch tracks one spreadsheet upload.
type UploadBatch struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Filename    string    `json:"filename" db:"filename"`
	TotalRows   int       `json:"total_rows" db:"total_rows"`
	Status      string    `json:"status" db:"status"`
	UploadedBy  string    `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// ReportHistory records one generated PDF report.
type ReportHistory struct {
	ID           uuid.UUID `json:"id" db:"id"`
	RecordID     uuid.UUID `json:"record_id" db:"record_id"`
	NamaKaryawan string    `json:"nama_karyawan" db:"nama_karyawan"`
	NPK          string    `json:"npk" db:"npk"`
	FileName     string    `json:"file_name" db:"file_name"`
	GeneratedBy  string    `json:"generated_by" db:"generated_by"`
	GeneratedAt  time.Time `json:"generated_at" db:"generated_at"`
}
