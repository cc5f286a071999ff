package mcu

import (
	"strings"
	"unicode"
)

// fieldMapping binds one Record field to the spreadsheet headers it may
// appear under. Candidates are checked in order; the first header present in
// the sheet wins. Intake files come from several sources with inconsistent
// header spelling, so each field carries every spelling seen in production.
type fieldMapping struct {
	candidates []string
	assign     func(*Record, string)
}

var fieldMappings = []fieldMapping{
	{[]string{"nama karyawan", "nama_karyawan", "nama", "name"}, func(r *Record, v string) { r.NamaKaryawan = v }},
	{[]string{"npk", "no npk", "no. npk"}, func(r *Record, v string) { r.NPK = v }},
	{[]string{"patid", "pat id", "pat_id"}, func(r *Record, v string) { r.PatID = v }},
	{[]string{"seksi", "section"}, func(r *Record, v string) { r.Seksi = v }},
	{[]string{"departemen", "department", "dept"}, func(r *Record, v string) { r.Departemen = v }},
	{[]string{"jenis kelamin", "jenis_kelamin", "gender", "jk"}, func(r *Record, v string) { r.JenisKelamin = v }},
	{[]string{"tanggal lahir", "tanggal_lahir", "tgl lahir", "tgl_lahir"}, func(r *Record, v string) { r.TanggalLahir = v }},
	{[]string{"usia", "umur", "age"}, func(r *Record, v string) { r.Usia = v }},
	{[]string{"tanggal mcu", "tanggal_mcu", "tgl mcu", "tgl_mcu"}, func(r *Record, v string) { r.TanggalMCU = v }},

	{[]string{"riwayat penyakit sekarang", "riwayat_penyakit_sekarang"}, func(r *Record, v string) { r.RiwayatPenyakitSekarang = v }},
	{[]string{"riwayat penyakit dahulu", "riwayat_penyakit_dahulu"}, func(r *Record, v string) { r.RiwayatPenyakitDahulu = v }},
	{[]string{"riwayat penyakit keluarga", "riwayat_penyakit_keluarga"}, func(r *Record, v string) { r.RiwayatPenyakitKeluarga = v }},
	{[]string{"riwayat pengobatan", "riwayat_pengobatan"}, func(r *Record, v string) { r.RiwayatPengobatan = v }},
	{[]string{"riwayat rawat inap", "riwayat_rawat_inap"}, func(r *Record, v string) { r.RiwayatRawatInap = v }},
	{[]string{"riwayat operasi", "riwayat_operasi"}, func(r *Record, v string) { r.RiwayatOperasi = v }},
	{[]string{"riwayat kecelakaan", "riwayat_kecelakaan"}, func(r *Record, v string) { r.RiwayatKecelakaan = v }},

	{[]string{"merokok/vape", "merokok vape", "merokok_vape", "merokok"}, func(r *Record, v string) { r.MerokokVape = v }},
	{[]string{"jumlah batang", "jumlah_batang"}, func(r *Record, v string) { r.JumlahBatang = v }},
	{[]string{"alkohol", "alcohol"}, func(r *Record, v string) { r.Alkohol = v }},
	{[]string{"olahraga"}, func(r *Record, v string) { r.Olahraga = v }},

	{[]string{"tekanan darah", "tekanan darah mmhg", "tekanan_darah", "tensi", "td"}, func(r *Record, v string) { r.TekananDarah = v }},
	{[]string{"nadi"}, func(r *Record, v string) { r.Nadi = v }},
	{[]string{"suhu badan", "suhu badan c", "suhu_badan", "suhu"}, func(r *Record, v string) { r.SuhuBadan = v }},
	{[]string{"frekuensi nafas", "frekuensi_nafas", "rr"}, func(r *Record, v string) { r.FrekuensiNafas = v }},
	{[]string{"tinggi", "tinggi badan", "tinggi_badan", "tb"}, func(r *Record, v string) { r.Tinggi = v }},
	{[]string{"berat", "berat badan", "berat_badan", "bb"}, func(r *Record, v string) { r.Berat = v }},
	{[]string{"bmi", "imt"}, func(r *Record, v string) { r.BMI = v }},
	{[]string{"status gizi", "status_gizi"}, func(r *Record, v string) { r.StatusGizi = v }},

	{[]string{"visus mata kanan", "visus_mata_kanan"}, func(r *Record, v string) { r.VisusMataKanan = v }},
	{[]string{"keadaan umum kanan", "keadaan_umum_kanan"}, func(r *Record, v string) { r.KeadaanUmumKanan = v }},
	{[]string{"visus mata kiri", "visus_mata_kiri"}, func(r *Record, v string) { r.VisusMataKiri = v }},
	{[]string{"keadaan umum kiri", "keadaan_umum_kiri"}, func(r *Record, v string) { r.KeadaanUmumKiri = v }},
	{[]string{"test buta warna", "test_buta_warna", "buta warna"}, func(r *Record, v string) { r.TestButaWarna = v }},

	{[]string{"kesimpulan"}, func(r *Record, v string) { r.Kesimpulan = v }},
	{[]string{"saran"}, func(r *Record, v string) { r.Saran = v }},
	{[]string{"kriteria status", "kriteria_status", "kriteria"}, func(r *Record, v string) { r.KriteriaStatus = v }},
	{[]string{"status resume", "status_resume", "resume"}, func(r *Record, v string) { r.StatusResume = v }},
}

// normalizeHeader lowercases a header, drops parenthesized units like "(cm)"
// or a stray "()", and turns remaining punctuation into spaces, so that
// "Merokok /Vape", "Frekuensi nafas ()" and "Tinggi (cm)" all resolve to the
// same candidates as their plain spellings.
func normalizeHeader(h string) string {
	var b strings.Builder
	depth := 0
	for _, r := range h {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// headerIndex maps normalized header text to its column position. The first
// occurrence of a duplicated header wins.
func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// mapRow builds a Record from one data row. Missing columns and short rows
// yield empty fields, never errors.
func mapRow(idx map[string]int, row []string) Record {
	var rec Record
	for _, fm := range fieldMappings {
		for _, cand := range fm.candidates {
			col, ok := idx[normalizeHeader(cand)]
			if !ok {
				continue
			}
			if col < len(row) {
				fm.assign(&rec, strings.TrimSpace(row[col]))
			}
			break
		}
	}
	return rec
}
