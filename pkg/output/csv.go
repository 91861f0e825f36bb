// package output writes finalized activity datasets as flat delimited files
package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/open-sauced/pizza/activity/pkg/insights"
)

// Header is the column layout of the activity table
var Header = []string{"timestamp", "username", "name", "action_type", "repository"}

// WriteCSV writes the header and one row per event, in the order given
func WriteCSV(w io.Writer, events []insights.Event) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return err
	}

	for _, e := range events {
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Username,
			e.Name,
			string(e.ActionType),
			e.Repository,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// CSVFile is a sink writing the dataset to a file. The file is replaced
// atomically so a failed run never leaves a half written table behind.
type CSVFile struct {
	Path   string
	logger *zap.SugaredLogger
}

// NewCSVFile returns a CSVFile sink for path
func NewCSVFile(path string, logger *zap.SugaredLogger) *CSVFile {
	return &CSVFile{
		Path:   path,
		logger: logger,
	}
}

// Write implements the collector sink
func (f *CSVFile) Write(_ context.Context, dataset *insights.Dataset) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, dataset.Events); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write csv: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close temporary output file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("could not move output file into place: %w", err)
	}

	f.logger.Infof("Wrote %d rows to %s", len(dataset.Events), f.Path)
	return nil
}
