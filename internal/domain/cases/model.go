// Package cases runs the check-up workflow: a case is opened for a patient,
// a nurse submits the assessment, supporting documents are attached, and a
// doctor closes the case with a conclusion. Closing a case materializes the
// final check-up record.
package cases

import (
	"time"

	"github.com/google/uuid"
)

// Case statuses, in workflow order.
const (
	StatusPendingAssessment = "pending_assessment"
	StatusPendingDocuments  = "pending_documents"
	StatusPendingConclusion = "pending_conclusion"
	StatusCompleted         = "completed"
	StatusCancelled         = "cancelled"
)

// Document types attachable to a case.
const (
	DocPhoto1    = "photo_1"
	DocPhoto2    = "photo_2"
	DocPhoto3    = "photo_3"
	DocLabResult = "lab_result"
)

// Case is one check-up workflow instance.
type Case struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	CaseNumber     string     `json:"case_number" db:"case_number"`
	PatientID      uuid.UUID  `json:"patient_id" db:"patient_id"`
	Status         string     `json:"status" db:"status"`
	AssignedNurse  string     `json:"assigned_nurse" db:"assigned_nurse"`
	AssignedDoctor string     `json:"assigned_doctor" db:"assigned_doctor"`
	RecordID       *uuid.UUID `json:"record_id,omitempty" db:"record_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// NursingAssessment carries the vitals, anamnesis and habits collected by
// the nurse.
type NursingAssessment struct {
	ID     uuid.UUID `json:"id" db:"id"`
	CaseID uuid.UUID `json:"case_id" db:"case_id"`

	TekananDarah   string `json:"tekanan_darah" db:"tekanan_darah"`
	Nadi           string `json:"nadi" db:"nadi"`
	SuhuBadan      string `json:"suhu_badan" db:"suhu_badan"`
	FrekuensiNafas string `json:"frekuensi_nafas" db:"frekuensi_nafas"`
	Tinggi         string `json:"tinggi" db:"tinggi"`
	Berat          string `json:"berat" db:"berat"`
	BMI            string `json:"bmi" db:"bmi"`
	StatusGizi     string `json:"status_gizi" db:"status_gizi"`

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

	VisusMataKanan   string `json:"visus_mata_kanan" db:"visus_mata_kanan"`
	KeadaanUmumKanan string `json:"keadaan_umum_kanan" db:"keadaan_umum_kanan"`
	VisusMataKiri    string `json:"visus_mata_kiri" db:"visus_mata_kiri"`
	KeadaanUmumKiri  string `json:"keadaan_umum_kiri" db:"keadaan_umum_kiri"`
	TestButaWarna    string `json:"test_buta_warna" db:"test_buta_warna"`

	CatatanPerawat string `json:"catatan_perawat" db:"catatan_perawat"`

	SubmittedBy string    `json:"submitted_by" db:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
}

// DoctorConclusion closes a case.
type DoctorConclusion struct {
	ID     uuid.UUID `json:"id" db:"id"`
	CaseID uuid.UUID `json:"case_id" db:"case_id"`

	Diagnosis      string `json:"diagnosis" db:"diagnosis"`
	Kesimpulan     string `json:"kesimpulan" db:"kesimpulan"`
	Saran          string `json:"saran" db:"saran"`
	KriteriaStatus string `json:"kriteria_status" db:"kriteria_status"`
	StatusResume   string `json:"status_resume" db:"status_resume"`
	DoctorName     string `json:"doctor_name" db:"doctor_name"`
	DoctorSIP      string `json:"doctor_sip" db:"doctor_sip"`

	SubmittedBy string    `json:"submitted_by" db:"submitted_by"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
}

// Document is one file attached to a case, stored in the blob store.
type Document struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CaseID      uuid.UUID `json:"case_id" db:"case_id"`
	DocType     string    `json:"doc_type" db:"doc_type"`
	Path        string    `json:"path" db:"path"`
	ContentType string    `json:"content_type" db:"content_type"`
	Size        int64     `json:"size" db:"size"`
	UploadedBy  string    `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at" db:"uploaded_at"`
}
