// Package report turns the raw artifacts of a campaign into per-repetition
// csv files and a per-configuration summary. Unparsable artifacts become
// failed rows; they never abort the report.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/perfgo/benchcamp/artifact"
	"github.com/perfgo/benchcamp/kind"
	"github.com/perfgo/benchcamp/model"
)

// Row is the parse result of one repetition.
type Row struct {
	Record     model.Record
	Repetition int
	Samples    []kind.Sample
	// Err is set when the artifact could not be parsed.
	Err error
}

// Report holds every parsed row of a campaign.
type Report struct {
	Kind string
	Unit string
	Rows []Row
}

// Failed counts rows with a parse error.
func (r *Report) Failed() int {
	n := 0
	for _, row := range r.Rows {
		if row.Err != nil {
			n++
		}
	}
	return n
}

// Build parses the measurement artifact of every repetition of records
// found in dir and writes "<identity>_<rep>.csv" next to it: the samples on
// success, the error text otherwise. Only failures to write are returned.
func Build(logger zerolog.Logger, records []model.Record, dir string, k kind.Kind) (*Report, error) {
	parser, ok := k.(kind.ResultParser)
	if !ok {
		logger.Info().Str("kind", k.Name()).Msg("Benchmark kind has no result parser, skipping report")
		return &Report{Kind: k.Name()}, nil
	}

	rep := &Report{Kind: k.Name(), Unit: parser.Unit()}
	for _, r := range records {
		for i := 0; i < r.Repetitions(); i++ {
			row := Row{Record: r, Repetition: i}
			row.Samples, row.Err = parse(parser, r, artifact.Path(dir, r, i, k.Extension()))

			csvPath := artifact.Path(dir, r, i, artifact.DefaultExtension)
			if row.Err != nil {
				logger.Error().Err(row.Err).Str("path", csvPath).Msg("Error parsing results")
			}
			if err := writeCSV(csvPath, row, parser.Unit()); err != nil {
				return nil, err
			}
			rep.Rows = append(rep.Rows, row)
		}
	}
	return rep, nil
}

func parse(p kind.ResultParser, r model.Record, path string) ([]kind.Sample, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: no measurement artifact %s", r.Identity(), path)
	}
	if err != nil {
		return nil, err
	}
	return p.ParseResult(r, data)
}

func writeCSV(path string, row Row, unit string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if row.Err != nil {
		_, err = f.WriteString(row.Err.Error() + "\n")
	} else {
		err = writeSamples(f, row, unit)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func writeSamples(f *os.File, row Row, unit string) error {
	w := csv.NewWriter(f)
	fields := row.Record.Fields()

	header := make([]string, 0, len(fields)+3)
	for _, fl := range fields {
		header = append(header, fl.Name)
	}
	header = append(header, "repetition", "label", unit)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, s := range row.Samples {
		line := make([]string, 0, len(header))
		for _, fl := range fields {
			line = append(line, fl.Value.String())
		}
		line = append(line,
			strconv.Itoa(row.Repetition),
			s.Label,
			strconv.FormatFloat(s.Value, 'f', -1, 64),
		)
		if err := w.Write(line); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
