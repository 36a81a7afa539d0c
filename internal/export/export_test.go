package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cafe-sync/internal/model"
)

func strPtr(s string) *string { return &s }

func sampleCafes() []model.Cafe {
	ts := time.Date(2026, 10, 18, 0, 0, 3, 0, time.UTC)
	return []model.Cafe{
		{OSMID: 123, Name: "Unnamed", Lat: 52.52, Lon: 13.4, Phone: strPtr("+49-30-1111"), Timestamp: &ts},
		{OSMID: 456, Name: "The Barn, Mitte", Lat: 52.5281, Lon: 13.4101,
			Website: strPtr("https://barn.coffee"), AddrCity: strPtr("Berlin")},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"csv", FormatCSV, false},
		{" XLSX ", FormatXLSX, false},
		{"yaml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"parquet", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleCafes()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"123", "Unnamed", "52.52", "13.4", "+49-30-1111", "", "", "", "", "", "2026-10-18T00:00:03Z"}, rows[1])
	assert.Equal(t, "The Barn, Mitte", rows[2][1])
	assert.Equal(t, "Berlin", rows[2][9])
}

func TestWrite_CSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, nil))
	assert.Equal(t, "osm_id,name,lat,lon,phone,website,addr_street,addr_housenumber,addr_postcode,addr_city,timestamp\n", buf.String())
}

func TestWrite_XLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, sampleCafes()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "osm_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "123", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "Unnamed", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "+49-30-1111", sheet.Rows[1].Cells[4].String())
	assert.Equal(t, "https://barn.coffee", sheet.Rows[2].Cells[5].String())
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sampleCafes()))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 123, got[0]["osm_id"])
	assert.Equal(t, "+49-30-1111", got[0]["phone"])
	assert.Nil(t, got[0]["website"])
	assert.NotContains(t, got[1], "timestamp")
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleCafes()))

	var got []model.Cafe
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleCafes()[1].Name, got[1].Name)
	assert.Equal(t, "https://barn.coffee", model.StringOrEmpty(got[1].Website))
}

func TestWrite_JSONEmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("parquet"), nil)
	require.Error(t, err)
}
