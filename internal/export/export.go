// Package export writes stored cafés in file formats for downstream use.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cafe-sync/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// SheetName is the worksheet name used for xlsx exports.
const SheetName = "cafes"

// Header is the column order for tabular exports.
var Header = append(append([]string{}, model.CafeColumns...), "timestamp")

// ParseFormat validates a format name. An empty name selects csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX, FormatYAML, FormatJSON:
		return f, nil
	default:
		return "", eris.Errorf("export: unsupported format %q (csv, xlsx, yaml, json)", s)
	}
}

// Write encodes cafes to w in the given format.
func Write(w io.Writer, format Format, cafes []model.Cafe) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, cafes)
	case FormatXLSX:
		return writeXLSX(w, cafes)
	case FormatYAML:
		return writeYAML(w, cafes)
	case FormatJSON:
		return writeJSON(w, cafes)
	default:
		return eris.Errorf("export: unsupported format %q", format)
	}
}

func writeCSV(w io.Writer, cafes []model.Cafe) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return eris.Wrap(err, "export: write CSV header")
	}
	for _, c := range cafes {
		if err := cw.Write(record(c)); err != nil {
			return eris.Wrapf(err, "export: write CSV row %d", c.OSMID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush CSV")
}

func writeXLSX(w io.Writer, cafes []model.Cafe) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}

	for _, c := range cafes {
		row := sheet.AddRow()
		row.AddCell().SetInt64(c.OSMID)
		row.AddCell().SetString(c.Name)
		row.AddCell().SetFloat(c.Lat)
		row.AddCell().SetFloat(c.Lon)
		for _, s := range optionalFields(c) {
			row.AddCell().SetString(model.StringOrEmpty(s))
		}
		row.AddCell().SetString(formatTimestamp(c.Timestamp))
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

func writeYAML(w io.Writer, cafes []model.Cafe) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cafes); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: close yaml encoder")
}

func writeJSON(w io.Writer, cafes []model.Cafe) error {
	if cafes == nil {
		cafes = []model.Cafe{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(cafes), "export: encode json")
}

// record renders c as a CSV row in Header order. Absent optional fields are
// empty strings.
func record(c model.Cafe) []string {
	row := []string{
		strconv.FormatInt(c.OSMID, 10),
		c.Name,
		strconv.FormatFloat(c.Lat, 'f', -1, 64),
		strconv.FormatFloat(c.Lon, 'f', -1, 64),
	}
	for _, s := range optionalFields(c) {
		row = append(row, model.StringOrEmpty(s))
	}
	return append(row, formatTimestamp(c.Timestamp))
}

func optionalFields(c model.Cafe) []*string {
	return []*string{c.Phone, c.Website, c.AddrStreet, c.AddrHousenumber, c.AddrPostcode, c.AddrCity}
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
