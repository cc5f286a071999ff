// Package report renders a single MCU result into a fixed-layout multi-page
// PDF. The layout is a small state machine over (page, vertical offset):
// every page starts with the branded header band, sections are emitted in a
// fixed order with explicit page breaks at section-group boundaries, and an
// overflow guard breaks the page early when variable-length free text would
// run past the bottom margin.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ErrRender indicates the record cannot be rendered at all. Missing optional
// fields never cause it; only a record without an employee name does.
var ErrRender = errors.New("record is not renderable")

// Data is the display view of one MCU result. Every field is plain display
// text; empty strings render as placeholders.
type Data struct {
	NamaKaryawan string
	PatID        string
	Seksi        string
	Departemen   string
	NPK          string
	JenisKelamin string
	TanggalLahir string
	Usia         string
	TanggalMCU   string

	RiwayatPenyakitSekarang string
	RiwayatPenyakitDahulu   string
	RiwayatPenyakitKeluarga string
	RiwayatPengobatan       string
	RiwayatRawatInap        string
	RiwayatOperasi          string
	RiwayatKecelakaan       string

	MerokokVape  string
	JumlahBatang string
	Alkohol      string
	Olahraga     string

	TekananDarah   string
	Nadi           string
	SuhuBadan      string
	FrekuensiNafas string
	Tinggi         string
	Berat          string
	BMI            string
	StatusGizi     string

	VisusMataKanan   string
	KeadaanUmumKanan string
	VisusMataKiri    string
	KeadaanUmumKiri  string
	TestButaWarna    string

	Kesimpulan     string
	Saran          string
	KriteriaStatus string
	StatusResume   string
}

// Branding drawn in the header band of every page.
const (
	headerInstitution = "Mitra Keluarga"
	headerSite        = "Grand Wisata"
	headerTagline     = "life.love.laughter"
	footerTagline     = "Senyum, cinta, dan lakukan yang terbaik untuk harimu"
	reportTitle       = "LAPORAN HASIL MEDICAL CHECK UP"
	companyLine       = "PT. SUZUKI INDOMOBIL MOTOR (TAMBUN 2)"
)

// Layout constants, in millimeters on an A4 portrait page.
const (
	leftMargin   = 15.0
	headerHeight = 25.0
	topContentY  = 35.0
	overflowY    = 250.0 // page break threshold near the bottom margin
	rowHeight    = 5.0
	sectionGap   = 10.0
	subGap       = 5.0
)

var headerFill = RGB{0, 165, 233}

// OutlineEntry records one emitted section and the page it started on.
type OutlineEntry struct {
	Page  int
	Title string
}

// Document is a rendered report.
type Document struct {
	pdf     *gofpdf.Fpdf
	Outline []OutlineEntry
	Status  Fitness
}

// Bytes returns the rendered PDF bytes.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTo streams the rendered PDF to w.
func (d *Document) WriteTo(w io.Writer) error {
	return d.pdf.Output(w)
}

// PageCount returns the number of pages in the rendered document.
func (d *Document) PageCount() int {
	return d.pdf.PageCount()
}

// Generator renders Data into Documents. The zero value is usable; doctor
// identity defaults to placeholders in the signature block.
type Generator struct {
	DoctorName    string
	DoctorLicense string
	Now           func() time.Time
}

var underscoreSpaces = regexp.MustCompile(`\s+`)

// FileName returns the deterministic output file name for one report.
func FileName(npk, namaKaryawan string) string {
	return fmt.Sprintf("MCU_%s_%s.pdf", npk, underscoreSpaces.ReplaceAllString(namaKaryawan, "_"))
}

// Render produces the paginated report for one record. It never fails on
// missing optional fields; those render as placeholder dashes. It fails only
// when the record carries no employee name.
func (g *Generator) Render(d Data) (*Document, error) {
	if strings.TrimSpace(d.NamaKaryawan) == "" {
		return nil, fmt.Errorf("%w: employee name is empty", ErrRender)
	}

	r := newRenderer()
	doc := &Document{pdf: r.pdf}

	// Page 1: patient data summary.
	r.newPage()
	r.title()
	doc.add(r.section("DATA PASIEN", 14))
	r.table(50, []kv{
		{"NAMA LENGKAP", ": " + orDash(d.NamaKaryawan)},
		{"JENIS KELAMIN", ": " + orDash(d.JenisKelamin)},
		{"NPK", ": " + orDash(d.NPK)},
		{"SEKSI", ": " + orDash(d.Seksi)},
		{"DEPARTEMEN", ": " + orDash(d.Departemen)},
		{"PERIODE", ": " + orDash(d.TanggalMCU)},
		{"PERUSAHAAN", ": " + companyLine},
	})

	// Page 2: identity detail, anamnesis, habits.
	r.newPage()
	r.title()
	doc.add(r.section("I. Identitas", 14))
	r.table(50, []kv{
		{"NPK", orDash(d.NPK)},
		{"Nama", orDash(d.NamaKaryawan)},
		{"PAT ID", orDash(d.PatID)},
		{"Tanggal lahir", orDash(d.TanggalLahir)},
		{"Usia", orDash(d.Usia) + " Tahun"},
		{"Jenis kelamin", orDash(d.JenisKelamin)},
		{"Tanggal MCU", orDash(d.TanggalMCU)},
	})
	doc.add(r.section("II. Anamnesa", 14))
	doc.add(r.subsection("Riwayat penyakit sekarang"))
	r.table(70, []kv{
		{"Riwayat Penyakit Sekarang", orText(d.RiwayatPenyakitSekarang, "Tidak Ada")},
	})
	doc.add(r.subsection("Riwayat penyakit dahulu"))
	r.table(70, []kv{
		{"Riwayat Penyakit Dahulu", orText(d.RiwayatPenyakitDahulu, "Tidak Ada")},
		{"Riwayat Penyakit Keluarga", orText(d.RiwayatPenyakitKeluarga, "Tidak Ada")},
		{"Riwayat Pengobatan", orText(d.RiwayatPengobatan, "Tidak Ada")},
		{"Riwayat Rawat Inap", orText(d.RiwayatRawatInap, "Tidak Ada")},
		{"Riwayat Operasi", orText(d.RiwayatOperasi, "Tidak Ada")},
		{"Riwayat Kecelakaan", orText(d.RiwayatKecelakaan, "Tidak pernah")},
	})
	doc.add(r.subsection("Riwayat Kebiasaan"))
	r.table(50, []kv{
		{"Merokok /Vape", orText(d.MerokokVape, "Tidak")},
		{"Jumlah Batang", orDash(d.JumlahBatang)},
		{"Alkohol", orText(d.Alkohol, "Tidak")},
		{"Olahraga", orDash(d.Olahraga)},
	})

	// Page 3: physical exam, eye exam.
	r.newPage()
	doc.add(r.section("III. Pemeriksaan Fisik", 14))
	doc.add(r.subsection("1. Status Generalis"))
	r.table(50, []kv{
		{"Hasil Tensi", orDash(d.TekananDarah) + " mmHg"},
		{"Nadi", orDash(d.Nadi) + " x/menit"},
		{"Suhu Badan", orDash(d.SuhuBadan) + " C"},
		{"Frekuensi nafas", orDash(d.FrekuensiNafas) + " (x/menit)"},
		{"Tinggi Badan", orDash(d.Tinggi) + " cm"},
		{"Berat Badan", orDash(d.Berat) + " Kg"},
		{"BMI", orDash(d.BMI) + " (Kg/m2)"},
		{"Status Gizi", orDash(d.StatusGizi)},
	})
	doc.add(r.subsection("2. Mata"))
	doc.add(r.subsection("2.1 Mata Kanan"))
	r.table(50, []kv{
		{"Visus Mata Kanan", orDash(d.VisusMataKanan)},
		{"Keadaan umum", orDash(d.KeadaanUmumKanan)},
	})
	doc.add(r.subsection("2.2 Mata Kiri"))
	r.table(50, []kv{
		{"Visus Mata Kiri", orDash(d.VisusMataKiri)},
		{"Keadaan umum", orDash(d.KeadaanUmumKiri)},
	})
	doc.add(r.subsection("2.3 Test Buta Warna"))
	r.table(50, []kv{
		{"Test buta warna", orDash(d.TestButaWarna)},
	})

	// Final page: conclusion, recommendation, status, signature.
	r.newPage()
	doc.add(r.section("IV. Kesimpulan dan Saran", 14))
	doc.add(r.subsection("Kesimpulan"))
	r.freeText(orDash(d.Kesimpulan))
	doc.add(r.subsection("Saran"))
	r.freeText(orDash(d.Saran))

	statusText := EffectiveStatus(d.KriteriaStatus, d.StatusResume)
	doc.Status = Classify(statusText)
	r.statusBlock(orDash(statusText), doc.Status)
	r.signature(g.DoctorName, g.DoctorLicense, g.now())

	if r.pdf.Err() {
		return nil, fmt.Errorf("%w: %v", ErrRender, r.pdf.Error())
	}
	return doc, nil
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (d *Document) add(e OutlineEntry) {
	d.Outline = append(d.Outline, e)
}

// ---------------------------------------------------------------------------
// Renderer state machine
// ---------------------------------------------------------------------------

type kv struct {
	label, value string
}

type renderer struct {
	pdf       *gofpdf.Fpdf
	pageWidth float64
	y         float64
}

func newRenderer() *renderer {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	w, _ := pdf.GetPageSize()

	r := &renderer{pdf: pdf, pageWidth: w}

	// The banner band is drawn on every page, always at offset zero, before
	// any body content.
	pdf.SetHeaderFunc(func() {
		pdf.SetFillColor(headerFill.R, headerFill.G, headerFill.B)
		pdf.Rect(0, 0, w, headerHeight, "F")
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 18)
		pdf.Text(leftMargin, 12, headerInstitution)
		pdf.SetFont("Helvetica", "", 10)
		pdf.Text(leftMargin, 18, headerSite)
		pdf.SetFont("Helvetica", "", 8)
		pdf.Text(w-45, 15, headerTagline)
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.SetFooterFunc(func() {
		_, h := pdf.GetPageSize()
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(100, 100, 100)
		pdf.Text((w-pdf.GetStringWidth(footerTagline))/2, h-10, footerTagline)
		pdf.SetTextColor(0, 0, 0)
	})

	return r
}

// newPage starts a new page and resets the offset to the top content band.
func (r *renderer) newPage() {
	r.pdf.AddPage()
	r.y = topContentY
}

// ensure applies the overflow guard: if drawing h more millimeters would run
// past the threshold, break the page first.
func (r *renderer) ensure(h float64) {
	if r.y+h > overflowY {
		r.newPage()
	}
}

func (r *renderer) title() {
	r.pdf.SetFont("Helvetica", "B", 16)
	r.pdf.Text((r.pageWidth-r.pdf.GetStringWidth(reportTitle))/2, r.y, reportTitle)
	r.y += 15
}

func (r *renderer) section(title string, size float64) OutlineEntry {
	r.ensure(rowHeight * 3)
	r.pdf.SetFont("Helvetica", "B", size)
	r.pdf.Text(leftMargin, r.y, title)
	r.y += subGap
	return OutlineEntry{Page: r.pdf.PageNo(), Title: title}
}

func (r *renderer) subsection(title string) OutlineEntry {
	r.ensure(rowHeight * 3)
	r.pdf.SetFont("Helvetica", "B", 12)
	r.pdf.Text(leftMargin, r.y, title)
	r.y += subGap
	return OutlineEntry{Page: r.pdf.PageNo(), Title: title}
}

// table draws a label/value table at the current offset and advances it by
// the rendered height plus fixed spacing. A label/value pair is atomic: it
// never splits across a page break.
func (r *renderer) table(labelW float64, rows []kv) {
	valueW := r.pageWidth - 2*leftMargin - labelW
	for _, row := range rows {
		r.pdf.SetFont("Helvetica", "", 9)
		lines := r.pdf.SplitText(row.value, valueW)
		n := len(lines)
		if n < 1 {
			n = 1
		}
		h := float64(n) * rowHeight
		r.ensure(h)

		r.pdf.SetFont("Helvetica", "B", 9)
		r.pdf.SetXY(leftMargin, r.y)
		r.pdf.CellFormat(labelW, rowHeight, row.label, "", 0, "L", false, 0, "")
		r.pdf.SetFont("Helvetica", "", 9)
		r.pdf.SetXY(leftMargin+labelW, r.y)
		r.pdf.MultiCell(valueW, rowHeight, row.value, "", "L", false)
		r.y += h
	}
	r.y += subGap
}

// freeText wraps text to the printable width, measures the consumed height
// as lineCount x lineHeight, and advances the offset accordingly.
func (r *renderer) freeText(text string) {
	width := r.pageWidth - 2*leftMargin
	r.pdf.SetFont("Helvetica", "", 9)
	lines := r.pdf.SplitText(text, width)
	n := len(lines)
	if n < 1 {
		n = 1
	}
	h := float64(n) * rowHeight
	r.ensure(h)
	r.pdf.SetXY(leftMargin, r.y)
	r.pdf.MultiCell(width, rowHeight, text, "", "L", false)
	r.y += h + subGap
}

// statusBlock draws the color-coded fitness box: a filled rounded rectangle
// across the printable width with the uppercased status text centered in
// white.
func (r *renderer) statusBlock(statusText string, f Fitness) {
	const blockH = 14.0
	r.ensure(blockH + sectionGap)

	fill := f.Fill()
	r.pdf.SetFillColor(fill.R, fill.G, fill.B)
	r.pdf.RoundedRect(leftMargin, r.y, r.pageWidth-2*leftMargin, blockH, 3, "1234", "F")

	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont("Helvetica", "B", 11)
	r.pdf.SetXY(leftMargin, r.y)
	r.pdf.CellFormat(r.pageWidth-2*leftMargin, blockH, strings.ToUpper(statusText), "", 0, "C", false, 0, "")
	r.pdf.SetTextColor(0, 0, 0)

	r.y += blockH + sectionGap
}

// signature draws the dated examiner block at the bottom right of the final
// page.
func (r *renderer) signature(doctorName, doctorLicense string, at time.Time) {
	r.ensure(40)
	x := r.pageWidth - 85

	r.pdf.SetFont("Helvetica", "", 10)
	r.pdf.Text(x, r.y, "Bekasi, "+at.Format("02-01-2006"))
	r.y += rowHeight
	r.pdf.Text(x, r.y, "Dokter Pemeriksa")
	r.y += 4 * rowHeight // room for the wet signature

	r.pdf.SetFont("Helvetica", "B", 10)
	r.pdf.Text(x, r.y, orDash(doctorName))
	r.y += rowHeight
	r.pdf.SetFont("Helvetica", "", 10)
	r.pdf.Text(x, r.y, "SIP. "+orDash(doctorLicense))
	r.y += rowHeight
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func orText(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
