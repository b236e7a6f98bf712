// Package csvout writes one CSV file per query term.
package csvout

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	harvester "github.com/jamesprial/go-reddit-harvester"
)

// Writer is a harvester.Sink that writes each query's comments to
// <dir>/<query><suffix>.
type Writer struct {
	dir    string
	suffix string
	fields []string
}

// New creates a writer. Empty suffix and fields fall back to the defaults.
func New(dir, suffix string, fields []string) *Writer {
	if suffix == "" {
		suffix = harvester.DefaultSuffix
	}
	if len(fields) == 0 {
		fields = harvester.DefaultFields
	}
	return &Writer{
		dir:    dir,
		suffix: suffix,
		fields: fields,
	}
}

// Path returns the file the comments for query are written to
func (w *Writer) Path(query string) string {
	return filepath.Join(w.dir, harvester.OutputFilename(query, w.suffix))
}

// WriteQuery writes the full file under a temporary name and renames it into
// place, replacing any earlier output for the same term.
func (w *Writer) WriteQuery(ctx context.Context, run *harvester.Run, query string, comments []harvester.Comment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := w.Path(query)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".harvest-*.csv.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := w.encode(tmp, comments); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	info, err := tmp.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	committed = true

	log.Printf("Wrote %s comments to %s (%s)",
		humanize.Comma(int64(len(comments))), path, humanize.Bytes(uint64(info.Size())))

	return nil
}

func (w *Writer) encode(f *os.File, comments []harvester.Comment) error {
	cw := csv.NewWriter(f)

	if err := cw.Write(w.fields); err != nil {
		return err
	}

	row := make([]string, len(w.fields))
	for i := range comments {
		for j, field := range w.fields {
			row[j] = comments[i].Field(field)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
