package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hope-platform/hope-backend/internal/directory"
)

// Source produces the records of one upstream feed. The pipeline knows
// nothing else about how a source fetches or parses its data.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]directory.RawRecord, error)
}

// FileSource reads a JSON-lines feed: one RawRecord object per line. Blank
// lines and lines starting with '#' are ignored.
type FileSource struct {
	name string
	path string
	log  *zap.Logger
}

func NewFileSource(path string, log *zap.Logger) *FileSource {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return &FileSource{
		name: name,
		path: path,
		log:  log.Named("feed").With(zap.String("source", name)),
	}
}

func (s *FileSource) Name() string { return s.name }

func (s *FileSource) Fetch(ctx context.Context) ([]directory.RawRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open feed %s: %w", s.path, err)
	}
	defer f.Close()
	return DecodeRecords(ctx, f, s.log)
}

// DecodeRecords parses JSON lines into normalized records. A line that does
// not decode is logged and kept as a record carrying DecodeErr, so the
// pipeline counts it as rejected and moves on to the next line. Only a read
// failure or cancellation aborts the feed.
func DecodeRecords(ctx context.Context, r io.Reader, log *zap.Logger) ([]directory.RawRecord, error) {
	var out []directory.RawRecord

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var rec directory.RawRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			rec.DecodeErr = fmt.Errorf("line %d: %w", line, err)
			log.Warn("malformed feed line", zap.Int("line", line), zap.Error(err))
		}
		rec.Normalize()
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return out, nil
}

// StaticSource serves a fixed record list.
type StaticSource struct {
	SourceName string
	Records    []directory.RawRecord
}

func (s StaticSource) Name() string { return s.SourceName }

func (s StaticSource) Fetch(context.Context) ([]directory.RawRecord, error) {
	out := make([]directory.RawRecord, len(s.Records))
	copy(out, s.Records)
	return out, nil
}
