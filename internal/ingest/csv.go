package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVSource reads a delimited text file. The delimiter (comma, semicolon or
// tab) is detected from the header line.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source for the file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Name implements Source.
func (s *CSVSource) Name() string {
	return s.path
}

// Read implements Source.
func (s *CSVSource) Read(_ context.Context) (Table, error) {
	f, err := os.Open(s.path) // #nosec G304
	if err != nil {
		return Table{}, err
	}
	defer func() { _ = f.Close() }()

	return readDelimited(f)
}

func readDelimited(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)

	// Strip a UTF-8 byte order mark so the first header matches.
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	firstLine, err := br.Peek(br.Size())
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return Table{}, err
	}

	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(string(firstLine))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to parse delimited file: %w", err)
	}
	if len(records) == 0 {
		return Table{}, nil
	}

	return Table{Header: records[0], Rows: records[1:]}, nil
}

func detectDelimiter(sample string) rune {
	if i := strings.IndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}

	best, bestCount := ',', strings.Count(sample, ",")
	for _, d := range []rune{';', '\t'} {
		if c := strings.Count(sample, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}
