package admission

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ExportType restricts an export to a registration type.
type ExportType string

const (
	ExportAll     ExportType = "all"
	ExportRegular ExportType = "regular"
	ExportSCC     ExportType = "scc"
)

var ErrInvalidExportType = errors.New("type must be one of [all, regular, scc]")

func ParseExportType(s string) (ExportType, error) {
	switch typ := ExportType(strings.ToLower(strings.TrimSpace(s))); typ {
	case "", ExportAll:
		return ExportAll, nil
	case ExportRegular, ExportSCC:
		return typ, nil
	}
	return "", ErrInvalidExportType
}

// ExportFilename returns eg: admissions_2026-10-16.csv, admissions_regular_2026-10-16.csv.
func ExportFilename(typ ExportType, now time.Time) string {
	suffix := ""
	if typ == ExportRegular || typ == ExportSCC {
		suffix = "_" + string(typ)
	}
	return "admissions" + suffix + "_" + now.Format("2006-01-02") + ".csv"
}

var exportHeader = []string{
	"Application ID", "Name", "Father Name", "Mother Name", "Mobile", "Email", "Date of Birth", "Gender",
	"Category", "UIDAI Number",
	"Village/Town/City", "Police Station", "Post Office", "Block", "District", "State", "Pincode",
	"10th School", "10th Subject", "10th Marks Obtained", "10th Total Marks", "10th Percentage",
	"12th School", "12th Subject", "12th Marks Obtained", "12th Total Marks", "12th Percentage",
	"Trade", "Qualification", "Session", "Shift", "PWD Claim", "PWD Category", "Student Credit Card",
	"Registration Type", "Status", "Date Submitted",
}

// ExportHeader returns the CSV column names.
func ExportHeader() []string {
	return append([]string(nil), exportHeader...)
}

func exportRow(app Application, sessionName string) []string {
	submitted := ""
	if !app.DateSubmitted.IsZero() {
		submitted = app.DateSubmitted.UTC().Format("2006-01-02 15:04:05")
	}
	return []string{
		app.ApplicationID, app.Name, app.FatherName, app.MotherName, app.Mobile, app.Email, app.DOB, app.Gender,
		app.Category, app.UIDAINumber,
		app.VillageTownCity, app.PoliceStation, app.PostOffice, app.Block, app.District, app.State, app.Pincode,
		app.Class10thSchool, app.Class10thSubject, app.Class10thMarksObtained, app.Class10thTotalMarks, app.Class10thPercentage,
		app.Class12thSchool, app.Class12thSubject, app.Class12thMarksObtained, app.Class12thTotalMarks, app.Class12thPercentage,
		app.Trade, app.Qualification, sessionName, app.Shift, app.PWDClaim, app.PWDCategory, app.StudentCreditCard,
		app.RegistrationType, string(app.Status), submitted,
	}
}

// CSVEscape renders `value` as a CSV field: nil becomes "", and a value containing a comma,
// a double quote or a newline is quoted with its inner quotes doubled.
func CSVEscape(value interface{}) string {
	if value == nil {
		return ""
	}
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return ""
		}
		s = *v
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	if strings.ContainsAny(s, ",\"\n\r") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func writeCSVLine(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(CSVEscape(f)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// WriteCSV writes the header row followed by one row per application.
// sessionName resolves the Session column from an application's SessionID.
func WriteCSV(out io.Writer, apps []Application, sessionName func(id string) string) error {
	w := bufio.NewWriter(out)
	if err := writeCSVLine(w, exportHeader); err != nil {
		return err
	}
	for _, app := range apps {
		name := ""
		if sessionName != nil {
			name = sessionName(app.SessionID)
		}
		if err := writeCSVLine(w, exportRow(app, name)); err != nil {
			return err
		}
	}
	return w.Flush()
}
