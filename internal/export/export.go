// Package export writes result sets as CSV, XLSX or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Header is the column row written by CSV and XLSX exports.
var Header = []string{"Name", "Email", "Company", "Title", "Confidence", "Source"}

const sheetName = "Contacts"

// ParseFormat resolves a format name. An empty name is JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Filename returns a download name stamped with t.
func (f Format) Filename(t time.Time) string {
	return "contacts-" + t.UTC().Format("20060102-150405") + "." + string(f)
}

// Write encodes rs to w in format f.
func Write(w io.Writer, f Format, rs model.ResultSet) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, rs)
	case FormatXLSX:
		return WriteXLSX(w, rs)
	default:
		return WriteJSON(w, rs)
	}
}

// WriteCSV writes a header row then one row per contact. Quoting is minimal:
// only fields containing quotes, commas or newlines are quoted, with embedded
// quotes doubled.
func WriteCSV(w io.Writer, rs model.ResultSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: csv header")
	}
	for _, c := range rs {
		if err := cw.Write(row(c)); err != nil {
			return eris.Wrapf(err, "export: csv row %s", c.Email)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: csv flush")
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook with the same columns as WriteCSV.
func WriteXLSX(w io.Writer, rs model.ResultSet) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: xlsx add sheet")
	}

	hdr := sheet.AddRow()
	for _, h := range Header {
		hdr.AddCell().SetString(h)
	}
	for _, c := range rs {
		r := sheet.AddRow()
		r.AddCell().SetString(c.Name)
		r.AddCell().SetString(c.Email)
		r.AddCell().SetString(c.Company)
		r.AddCell().SetString(c.Title)
		r.AddCell().SetInt(c.Confidence)
		r.AddCell().SetString(c.Source)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: xlsx write")
	}
	return nil
}

// WriteJSON writes rs as an indented JSON array.
func WriteJSON(w io.Writer, rs model.ResultSet) error {
	if rs == nil {
		rs = model.ResultSet{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rs); err != nil {
		return eris.Wrap(err, "export: json")
	}
	return nil
}

func row(c model.ContactCandidate) []string {
	return []string{c.Name, c.Email, c.Company, c.Title, strconv.Itoa(c.Confidence), c.Source}
}
