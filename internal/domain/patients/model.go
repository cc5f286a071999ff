// Package patients manages the patient registry and its spreadsheet bulk
// import.
package patients

import (
	"time"

	"github.com/google/uuid"
)

// Patient is one registry entry, keyed by the hospital medical record
// number (No. RM).
type Patient struct {
	ID           uuid.UUID `json:"id" db:"id"`
	NoRM         string    `json:"no_rm" db:"no_rm"`
	Nama         string    `json:"nama" db:"nama"`
	JenisKelamin string    `json:"jenis_kelamin" db:"jenis_kelamin"`
	TanggalLahir string    `json:"tanggal_lahir" db:"tanggal_lahir"`
	Perusahaan   string    `json:"perusahaan" db:"perusahaan"`
	Alamat       string    `json:"alamat" db:"alamat"`
	Telepon      string    `json:"telepon" db:"telepon"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
