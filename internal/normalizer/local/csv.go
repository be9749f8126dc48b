// Package local parses CSV uploads in-process. It stands in for the normalization
// service in development and in the ingest CLI.
package local

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/normalizer"
)

// Parser maps each CSV row onto its header names.
type Parser struct{}

var _ normalizer.Normalizer = Parser{}

func New() Parser { return Parser{} }

func (Parser) Normalize(ctx context.Context, fileName string, raw []byte) ([]normalizer.RawRecord, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return []normalizer.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedResponse, fileName, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []normalizer.RawRecord
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedResponse, fileName, err)
		}
		if blank(row) {
			continue
		}
		if len(row) > len(header) {
			return nil, fmt.Errorf("%w: %s line %d has %d fields, header has %d",
				domain.ErrMalformedResponse, fileName, line, len(row), len(header))
		}
		rec := make(normalizer.RawRecord, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(row) {
				rec[key] = strings.TrimSpace(row[i])
			} else {
				rec[key] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
