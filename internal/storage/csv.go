package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/livetrain/internal/dynamo"
)

// Header is the column layout of telemetry.csv.
var Header = []string{
	"time",
	"x", "y", "heading",
	"vx", "vy", "omega",
	"est_x", "est_y", "est_heading",
	"ref_x", "ref_y", "ref_heading",
	"p0", "p1", "p2", "p3",
	"following", "control_fired",
}

func WriteCSV(w io.Writer, samples []dynamo.Telemetry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	row := make([]string, 0, len(Header))
	for _, tel := range samples {
		row = row[:0]
		row = append(row, formatFloat(tel.Time))
		for _, p := range []dynamo.Pose{tel.Pose, tel.Velocity, tel.Estimated, tel.Reference} {
			row = append(row, formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Heading))
		}
		for _, p := range tel.Powers {
			row = append(row, formatFloat(p))
		}
		row = append(row, strconv.FormatBool(tel.Following), strconv.FormatBool(tel.ControlFired))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses what WriteCSV wrote. Columns are matched by name, so
// missing columns read as zero.
func ReadCSV(r io.Reader) ([]dynamo.Telemetry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []dynamo.Telemetry{}, nil
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[name] = i
	}

	samples := make([]dynamo.Telemetry, 0, len(records)-1)
	for line, record := range records[1:] {
		var parseErr error
		num := func(col string) float64 {
			i, ok := index[col]
			if !ok || i >= len(record) || parseErr != nil {
				return 0
			}
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				parseErr = fmt.Errorf("line %d column %s: %w", line+2, col, err)
			}
			return v
		}
		flag := func(col string) bool {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return false
			}
			b, _ := strconv.ParseBool(record[i])
			return b
		}
		pose := func(x, y, h string) dynamo.Pose {
			return dynamo.NewPose(num(x), num(y), num(h))
		}

		tel := dynamo.Telemetry{
			Time:         num("time"),
			Pose:         pose("x", "y", "heading"),
			Velocity:     pose("vx", "vy", "omega"),
			Estimated:    pose("est_x", "est_y", "est_heading"),
			Reference:    pose("ref_x", "ref_y", "ref_heading"),
			Powers:       dynamo.WheelPowers{num("p0"), num("p1"), num("p2"), num("p3")},
			Following:    flag("following"),
			ControlFired: flag("control_fired"),
		}
		if parseErr != nil {
			return nil, parseErr
		}
		samples = append(samples, tel)
	}
	return samples, nil
}
