package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries the fields printed on a proof-of-enrollment PDF.
type CertificateData struct {
	SchoolName      string
	StudentName     string
	AdmissionNumber string
	AcademicYear    string
	ClassName       string
	Status          string
	EnrollmentDate  string
	CertificateNo   string
	IssuedAt        string
}

// PDFExporter renders enrollment certificates.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Certificate creates a single-page proof-of-enrollment document.
func (e *PDFExporter) Certificate(data CertificateData) ([]byte, error) {
	if data.StudentName == "" {
		return nil, fmt.Errorf("certificate requires a student name")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, strings.ToUpper(data.SchoolName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 9, "CERTIFICATE OF ENROLLMENT", "", 1, "C", false, 0, "")
	if data.CertificateNo != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("No. %s", data.CertificateNo), "", 1, "C", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 6, "This is to certify that the student named below is recorded in the enrollment register of this school.", "", "L", false)
	pdf.Ln(4)

	rows := [][2]string{
		{"Student Name", data.StudentName},
		{"Admission Number", data.AdmissionNumber},
		{"Academic Year", data.AcademicYear},
		{"Class", data.ClassName},
		{"Enrollment Status", data.Status},
		{"Enrollment Date", data.EnrollmentDate},
	}
	pdf.SetFont("Arial", "", 11)
	for _, row := range rows {
		pdf.CellFormat(55, 8, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(8, 8, ":", "", 0, "C", false, 0, "")
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, row[1], "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s", data.IssuedAt), "", 1, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
