package dataset

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestWorkbook(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "estimates.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

// estimateSheet mimics the IBGE estimativa layout: two header rows, then
// (UF, state code, municipality code, name, population) rows, then a
// footnote row.
func estimateSheet() [][]string {
	return [][]string{
		{"ESTIMATIVAS DA POPULAÇÃO RESIDENTE"},
		{"UF", "COD. UF", "COD. MUNIC", "NOME DO MUNICÍPIO", "POPULAÇÃO ESTIMADA"},
		{"SP", "35", "50308", "São Paulo", "11.451.999"},
		{"SP", "35", "09502", "Campinas", "1139047"},
		{"RJ", "33", "04557", "Rio de Janeiro", "6211223(1)"},
		{"Nota: estimativas em conformidade com a DOU."},
	}
}

func TestParseWorkbook(t *testing.T) {
	path := createTestWorkbook(t, map[string][][]string{
		"Municípios": estimateSheet(),
	})

	rows, err := ParseWorkbook(path, SheetConfig{
		SkipRows: 2, UFCol: 0, NameCol: 3, PopulationCol: 4,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, PopulationRow{Municipality: "São Paulo", UF: "SP", Population: 11451999}, rows[0])
	assert.Equal(t, PopulationRow{Municipality: "Campinas", UF: "SP", Population: 1139047}, rows[1])
	assert.Equal(t, PopulationRow{Municipality: "Rio de Janeiro", UF: "RJ", Population: 6211223}, rows[2])
}

func TestParseWorkbookBySheetName(t *testing.T) {
	path := createTestWorkbook(t, map[string][][]string{
		"Capa":       {{"apresentação"}},
		"Municípios": estimateSheet(),
	})

	rows, err := ParseWorkbook(path, SheetConfig{
		Name: "Municípios", SkipRows: 2, UFCol: 0, NameCol: 3, PopulationCol: 4,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestParseWorkbookSheetNameNotFound(t *testing.T) {
	path := createTestWorkbook(t, map[string][][]string{
		"Sheet1": {{"a"}},
	})

	_, err := ParseWorkbook(path, SheetConfig{Name: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestParseWorkbookSheetIndexOutOfRange(t *testing.T) {
	path := createTestWorkbook(t, map[string][][]string{
		"Sheet1": {{"a"}},
	})

	_, err := ParseWorkbook(path, SheetConfig{Index: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestParseWorkbookNoUsableRows(t *testing.T) {
	path := createTestWorkbook(t, map[string][][]string{
		"Sheet1": {
			{"UF", "COD. UF", "COD. MUNIC", "NOME", "POP"},
			{"SP", "35", "50308", "São Paulo", "not a number"},
		},
	})

	_, err := ParseWorkbook(path, SheetConfig{
		SkipRows: 1, UFCol: 0, NameCol: 3, PopulationCol: 4,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no population rows")
}

func TestParseWorkbookMissingFile(t *testing.T) {
	_, err := ParseWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"), SheetConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open workbook")
}

func TestParsePopulation(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "11451999", want: 11451999},
		{in: "11.451.999", want: 11451999},
		{in: "852971(13)", want: 852971},
		{in: " 1 139 047 ", want: 1139047},
		{in: "6.211.223(1)", want: 6211223},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "(2)", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePopulation(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  bool
	}{
		{
			name:     "standard ftp url",
			url:      "ftp://ftp.ibge.gov.br/Estimativas_de_Populacao/estimativa.xlsx",
			wantHost: "ftp.ibge.gov.br:21",
			wantPath: "/Estimativas_de_Populacao/estimativa.xlsx",
		},
		{
			name:     "ftp url with port",
			url:      "ftp://mirror.example.com:2121/data/file.xlsx",
			wantHost: "mirror.example.com:2121",
			wantPath: "/data/file.xlsx",
		},
		{
			name:    "http scheme rejected",
			url:     "http://example.com/file.xlsx",
			wantErr: true,
		},
		{
			name:    "empty path",
			url:     "ftp://ftp.ibge.gov.br",
			wantErr: true,
		},
		{
			name:    "invalid url",
			url:     "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := parseFTPURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewFetcherDefaultTimeout(t *testing.T) {
	f := NewFetcher(0)
	assert.Equal(t, 30*time.Second, f.timeout)
}
