// Источники polls для переиндексации: JSON lines или parquet-выгрузка из основной БД.
package main

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

	"github.com/parquet-go/parquet-go"
)

// maxLineSize bounds one JSON line; descriptions are capped well below this.
const maxLineSize = 1 << 20

// pollRecord is one poll exported from the poll store.
type pollRecord struct {
	ID          string `json:"id" parquet:"id"`
	Description string `json:"description" parquet:"description"`
}

// emitFunc receives records in input order. Returning false stops reading.
type emitFunc func(rec pollRecord, line int) bool

// readSource picks the reader by file extension: .parquet or JSON lines otherwise.
func readSource(ctx context.Context, path string, limit int, emit emitFunc) (int, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return readParquet(ctx, path, limit, emit)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return readJSONLines(ctx, f, limit, emit)
}

// readJSONLines reads {"id","description"} objects one per line. Blank lines are skipped.
func readJSONLines(ctx context.Context, r io.Reader, limit int, emit emitFunc) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	n, line := 0, 0
	for sc.Scan() {
		line++
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}

		var rec pollRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
		if !emit(rec, line) {
			return n, nil
		}
		if limit > 0 && n >= limit {
			return n, nil
		}
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("scan input: %w", err)
	}
	return n, nil
}

// readParquet reads the id and description columns row group by row group.
func readParquet(ctx context.Context, path string, limit int, emit emitFunc) (int, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return 0, fmt.Errorf("open parquet: %w", err)
	}

	idCol, descCol := -1, -1
	for i, col := range pf.Schema().Columns() {
		if len(col) == 0 {
			continue
		}
		switch col[0] {
		case "id":
			idCol = i
		case "description":
			descCol = i
		}
	}
	if idCol < 0 || descCol < 0 {
		return 0, fmt.Errorf("parquet schema must have id and description columns")
	}

	n := 0
	buf := make([]parquet.Row, 512)
	for _, rg := range pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		for {
			cnt, readErr := rows.ReadRows(buf)
			for i := 0; i < cnt; i++ {
				if ctx.Err() != nil {
					return n, ctx.Err()
				}
				var rec pollRecord
				for _, v := range buf[i] {
					switch v.Column() {
					case idCol:
						rec.ID = v.String()
					case descCol:
						if !v.IsNull() {
							rec.Description = v.String()
						}
					}
				}
				n++
				if !emit(rec, n) {
					return n, nil
				}
				if limit > 0 && n >= limit {
					return n, nil
				}
			}
			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return n, fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return n, nil
}
