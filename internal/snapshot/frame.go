package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Frame is a small column-oriented view over one snapshot. Values are Go
// scalars (bool, int64, float64, string, time.Time) or nil for nulls.
type Frame struct {
	columns []string
	data    map[string][]any
	rows    int
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{data: make(map[string][]any), rows: -1}
}

// AddColumn appends a column. All columns must have the same length.
func (f *Frame) AddColumn(name string, values []any) error {
	if _, ok := f.data[name]; ok {
		return fmt.Errorf("duplicate column %q", name)
	}
	if f.rows >= 0 && len(values) != f.rows {
		return fmt.Errorf("column %q has %d rows, want %d", name, len(values), f.rows)
	}
	f.rows = len(values)
	f.columns = append(f.columns, name)
	f.data[name] = values
	return nil
}

// SetColumn replaces the values of an existing column.
func (f *Frame) SetColumn(name string, values []any) error {
	if _, ok := f.data[name]; !ok {
		return fmt.Errorf("unknown column %q", name)
	}
	if len(values) != f.NumRows() {
		return fmt.Errorf("column %q has %d rows, want %d", name, len(values), f.NumRows())
	}
	f.data[name] = values
	return nil
}

// Columns returns column names in file order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// Has reports whether the frame contains the column.
func (f *Frame) Has(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Column returns the values of a column, or nil if it does not exist.
func (f *Frame) Column(name string) []any {
	return f.data[name]
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	if f.rows < 0 {
		return 0
	}
	return f.rows
}

// Decode reads a parquet buffer into a Frame.
func Decode(ctx context.Context, data []byte) (*Frame, error) {
	return readFrame(ctx, bytes.NewReader(data))
}

// ReadFile reads a parquet file into a Frame.
func ReadFile(ctx context.Context, path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	frame, err := readFrame(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

func readFrame(ctx context.Context, r parquet.ReaderAtSeeker) (*Frame, error) {
	pool := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(ctx, r, parquet.NewReaderProperties(pool), pqarrow.ArrowReadProperties{}, pool)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet: %w", err)
	}
	defer tbl.Release()

	frame := NewFrame()
	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		values := make([]any, 0, tbl.NumRows())
		for _, chunk := range col.Data().Chunks() {
			values = appendValues(values, chunk)
		}
		if err := frame.AddColumn(col.Name(), values); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func appendValues(dst []any, arr arrow.Array) []any {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			dst = append(dst, nil)
			continue
		}
		dst = append(dst, valueAt(arr, i))
	}
	return dst
}

func valueAt(arr arrow.Array, i int) any {
	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		v := a.Value(i)
		if v > math.MaxInt64 {
			return float64(v)
		}
		return int64(v)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	case *array.Date32:
		return a.Value(i).ToTime()
	default:
		return arr.ValueStr(i)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
