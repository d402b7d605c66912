package models

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// FingerprintIncidents hashes the content of a set of incident rows.
// Two tables with the same rows in the same order share a version.
func FingerprintIncidents(rows []Incident, symbols *Symbols) string {
	d := xxhash.New()
	buf := make([]byte, 0, 256)

	for i := range rows {
		r := &rows[i]
		buf = buf[:0]
		buf = appendNullInt(buf, r.ID.V, r.ID.Valid)
		buf = append(buf, r.CaseNumber...)
		buf = append(buf, 0)
		if r.OccurredAt.Valid {
			buf = strconv.AppendInt(buf, r.OccurredAt.Time.Unix(), 10)
		}
		buf = append(buf, 0)
		for _, sym := range []Symbol{r.PrimaryType, r.Description, r.Beat, r.District, r.Ward, r.FBICode, r.IUCR} {
			buf = append(buf, symbols.String(sym)...)
			buf = append(buf, 0)
		}
		buf = appendNullInt(buf, int64(r.CommunityArea.V), r.CommunityArea.Valid)
		buf = appendNullFloat(buf, r.Latitude.V, r.Latitude.Valid)
		buf = appendNullFloat(buf, r.Longitude.V, r.Longitude.Valid)
		buf = append(buf, '\n')
		_, _ = d.Write(buf)
	}

	return fmt.Sprintf("%016x", d.Sum64())
}

// FingerprintAreas hashes the content of a set of areas, geometry included
func FingerprintAreas(rows []Area) string {
	d := xxhash.New()
	buf := make([]byte, 0, 128)

	for _, a := range rows {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, int64(a.Number), 10)
		buf = append(buf, 0)
		buf = append(buf, a.Name...)
		buf = append(buf, 0)
		buf = append(buf, a.ShapeAreaRaw...)
		buf = append(buf, 0)
		_, _ = d.Write(buf)

		for _, poly := range a.Geometry {
			for _, ring := range poly {
				for _, p := range ring {
					buf = buf[:0]
					buf = strconv.AppendUint(buf, math.Float64bits(p[0]), 16)
					buf = append(buf, ' ')
					buf = strconv.AppendUint(buf, math.Float64bits(p[1]), 16)
					buf = append(buf, ',')
					_, _ = d.Write(buf)
				}
				_, _ = d.WriteString(")")
			}
			_, _ = d.WriteString("]")
		}
		_, _ = d.WriteString("\n")
	}

	return fmt.Sprintf("%016x", d.Sum64())
}

func appendNullInt(buf []byte, v int64, valid bool) []byte {
	if valid {
		buf = strconv.AppendInt(buf, v, 10)
	}
	return append(buf, 0)
}

func appendNullFloat(buf []byte, v float64, valid bool) []byte {
	if valid {
		buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
	}
	return append(buf, 0)
}
