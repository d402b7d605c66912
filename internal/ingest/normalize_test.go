package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

func rawIncident(id, caseNumber, date string) models.RawIncident {
	return models.RawIncident{
		ID:            id,
		CaseNumber:    caseNumber,
		Date:          date,
		PrimaryType:   "THEFT",
		Description:   "$500 AND UNDER",
		Beat:          "1011",
		District:      "10",
		Ward:          "24",
		CommunityArea: "29",
		FBICode:       "06",
		IUCR:          "0820",
		Latitude:      "41.86",
		Longitude:     "-87.71",
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in    string
		want  time.Time
		valid bool
	}{
		{"01/15/2020 03:04:05 PM", time.Date(2020, 1, 15, 15, 4, 5, 0, time.UTC), true},
		{"12/31/2019 12:00:00 AM", time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"  07/04/2021 11:59:59 AM ", time.Date(2021, 7, 4, 11, 59, 59, 0, time.UTC), true},
		{"2020-01-15 15:04:05", time.Time{}, false},
		{"13/01/2020 01:00:00 PM", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseTimestamp(tt.in)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, tt.want.Equal(got.Time), "got %s", got.Time)
			}
		})
	}
}

func TestNormalizeIncidents(t *testing.T) {
	raw := []models.RawIncident{
		rawIncident("10", "HY123456", "03/02/2020 09:30:00 PM"),
		rawIncident("x", "HY000001", "not a date"),
	}
	raw[1].CommunityArea = "35.0"
	raw[1].Latitude = "NaN"
	raw[1].Beat = "  "

	table, report := NormalizeIncidents(raw)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, 2, report.RowsRead)
	assert.Equal(t, 1, report.InvalidTimestamps)
	assert.Equal(t, 1, report.InvalidNumbers)
	assert.NotEmpty(t, table.Version)

	first := table.Rows[0]
	assert.True(t, first.Complete())
	assert.Equal(t, int64(10), first.ID.V)
	assert.Equal(t, "THEFT", table.Category(&first))
	assert.Equal(t, 21, first.Calendar.Hour)
	assert.Equal(t, 2020, first.Calendar.Year)
	assert.Equal(t, time.Date(2020, 3, 2, 0, 0, 0, 0, time.UTC), first.Calendar.Date)
	assert.Equal(t, 21*time.Hour+30*time.Minute, first.Calendar.TimeOfDay)

	second := table.Rows[1]
	assert.False(t, second.ID.Valid)
	assert.False(t, second.OccurredAt.Valid)
	assert.Equal(t, 35, second.CommunityArea.V)
	assert.True(t, second.CommunityArea.Valid)
	assert.False(t, second.Latitude.Valid)
	assert.Equal(t, models.NoSymbol, second.Beat)
	assert.ElementsMatch(t,
		[]string{models.ColID, models.ColDate, models.ColBeat, models.ColLatitude},
		second.MissingFields())

	// shared categorical values intern to one symbol
	assert.Equal(t, first.PrimaryType, second.PrimaryType)
}

func TestNormalizeIncidents_VersionTracksContent(t *testing.T) {
	raw := []models.RawIncident{rawIncident("1", "A", "01/01/2020 01:00:00 AM")}
	a, _ := NormalizeIncidents(raw)
	b, _ := NormalizeIncidents(raw)
	assert.Equal(t, a.Version, b.Version)

	raw[0].Ward = "25"
	c, _ := NormalizeIncidents(raw)
	assert.NotEqual(t, a.Version, c.Version)
}

func TestParseIntegral(t *testing.T) {
	tests := []struct {
		in    string
		want  int
		valid bool
		ok    bool
	}{
		{"35", 35, true, true},
		{"35.0", 35, true, true},
		{"35.5", 0, false, false},
		{"", 0, false, true},
		{"nan", 0, false, true},
		{"abc", 0, false, false},
	}
	for _, tt := range tests {
		got, ok := parseIntegral(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.valid, got.Valid, tt.in)
		assert.Equal(t, tt.want, got.V, tt.in)
	}
}

func TestReadIncidentsCSV(t *testing.T) {
	header := strings.Join(models.IncidentColumns, ",") + ",Extra"
	input := header + "\n" +
		`1,HY1,01/02/2020 10:00:00 AM,THEFT,"OVER $500",0111,1,42,32,06,0810,41.88,-87.63,x` + "\n" +
		`2,HY2,,BATTERY,SIMPLE,0112,1,42,,08B,0486,,,y` + "\n"

	rows, err := ReadIncidentsCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "HY1", rows[0].CaseNumber)
	assert.Equal(t, "OVER $500", rows[0].Description)
	assert.Equal(t, "-87.63", rows[0].Longitude)
	assert.Equal(t, "", rows[1].Date)
	assert.Equal(t, "", rows[1].CommunityArea)
}

func TestReadIncidentsCSV_ByteOrderMark(t *testing.T) {
	input := "\uFEFF" + strings.Join(models.IncidentColumns, ",") + "\n" +
		`7,HY7,01/02/2020 10:00:00 AM,THEFT,SIMPLE,0111,1,42,32,06,0810,41.88,-87.63` + "\n"

	rows, err := ReadIncidentsCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", rows[0].ID)
	assert.Equal(t, "HY7", rows[0].CaseNumber)
}

func TestReadIncidentsCSV_ReorderedColumns(t *testing.T) {
	cols := append([]string(nil), models.IncidentColumns...)
	cols[0], cols[1] = cols[1], cols[0]
	input := strings.Join(cols, ",") + "\nHY9,9,,,,,,,,,,,\n"

	rows, err := ReadIncidentsCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "9", rows[0].ID)
	assert.Equal(t, "HY9", rows[0].CaseNumber)
}

func TestReadIncidentsCSV_MissingColumn(t *testing.T) {
	input := strings.Join(models.IncidentColumns[:12], ",") + "\n"
	_, err := ReadIncidentsCSV(context.Background(), strings.NewReader(input))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), models.ColLongitude)
}

func TestParquetQuery(t *testing.T) {
	q := parquetQuery("/data/o'brien.parquet")
	assert.True(t, strings.HasPrefix(q, `SELECT CAST("ID" AS VARCHAR), CAST("Case Number" AS VARCHAR)`))
	assert.True(t, strings.HasSuffix(q, `FROM read_parquet('/data/o''brien.parquet')`))
}

func TestMissingByYear(t *testing.T) {
	raw := []models.RawIncident{
		rawIncident("1", "A", "01/01/2019 01:00:00 AM"),
		rawIncident("2", "B", "06/01/2019 01:00:00 PM"),
		rawIncident("3", "C", "06/01/2020 01:00:00 PM"),
		rawIncident("4", "D", ""),
	}
	raw[1].Latitude = ""
	raw[1].Longitude = ""
	raw[2].Ward = ""
	raw[3].Ward = ""

	table, _ := NormalizeIncidents(raw)
	counts := MissingByYear(table)
	require.Len(t, counts, 2*len(models.IncidentColumns))

	lookup := func(year int, col string) int {
		for _, c := range counts {
			if c.Year == year && c.Column == col {
				return c.Count
			}
		}
		t.Fatalf("no count for %d/%s", year, col)
		return 0
	}
	assert.Equal(t, 1, lookup(2019, models.ColLatitude))
	assert.Equal(t, 1, lookup(2019, models.ColLongitude))
	assert.Equal(t, 0, lookup(2019, models.ColWard))
	// the undated row is excluded
	assert.Equal(t, 1, lookup(2020, models.ColWard))
	assert.Equal(t, 2019, counts[0].Year)

	assert.Nil(t, MissingByYear(nil))
}

func TestNewIncidentSource(t *testing.T) {
	src, err := NewIncidentSource(FormatCSV, "/data/crimes.csv")
	require.NoError(t, err)
	assert.Equal(t, "csv:/data/crimes.csv", src.Name())

	src, err = NewIncidentSource(FormatParquet, "/data/crimes.parquet")
	require.NoError(t, err)
	assert.IsType(t, &ParquetIncidentSource{}, src)

	_, err = NewIncidentSource("xlsx", "/data/crimes.xlsx")
	assert.Error(t, err)
}
