package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ErrEmptyInput is returned when there is nothing to serialize. An empty
// upload would create a zero-row table downstream.
var ErrEmptyInput = errors.New("no records to serialize")

// ErrColumnCollision is returned when a dotted key and a nested object
// flatten to the same column name.
var ErrColumnCollision = errors.New("flattened column collides with an existing key")

type columnKind int

const (
	kindNull columnKind = iota
	kindBool
	kindInt
	kindFloat
	kindString
)

// Flatten turns nested objects into dotted column names, so
// {"a": {"b": 1}} becomes {"a.b": 1}. Arrays are kept as values. A record
// holding both "a.b" and {"a": {"b": ...}} fails with ErrColumnCollision.
func Flatten(record map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(record))
	if err := flattenInto(out, "", record); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(out map[string]any, prefix string, record map[string]any) error {
	for k, v := range record {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			if err := flattenInto(out, key, nested); err != nil {
				return err
			}
			continue
		}
		if _, dup := out[key]; dup {
			return fmt.Errorf("%w: %s", ErrColumnCollision, key)
		}
		out[key] = v
	}
	return nil
}

// Encode normalizes records into one flat table and writes it as a snappy
// compressed parquet buffer. Column order follows first appearance, walking
// each record's keys in sorted order.
func Encode(records []map[string]any) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	rows := make([]map[string]any, len(records))
	var columns []string
	seen := make(map[string]bool)
	for i, rec := range records {
		row, err := Flatten(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows[i] = row
		for _, key := range sortedKeys(rows[i]) {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	if len(columns) == 0 {
		return nil, ErrEmptyInput
	}

	pool := memory.NewGoAllocator()
	fields := make([]arrow.Field, len(columns))
	arrays := make([]arrow.Array, len(columns))
	defer func() {
		for _, arr := range arrays {
			if arr != nil {
				arr.Release()
			}
		}
	}()

	for i, col := range columns {
		values := make([]any, len(rows))
		for r, row := range rows {
			values[r] = row[col]
		}
		arr, dt, err := buildColumn(pool, values)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		fields[i] = arrow.Field{Name: col, Type: dt, Nullable: true}
		arrays[i] = arr
	}

	schema := arrow.NewSchema(fields, nil)
	record := array.NewRecord(schema, arrays, int64(len(rows)))
	defer record.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	writer, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(record); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to write parquet record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func buildColumn(pool memory.Allocator, values []any) (arrow.Array, arrow.DataType, error) {
	switch inferKind(values) {
	case kindBool:
		b := array.NewBooleanBuilder(pool)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(bool))
		}
		return b.NewArray(), arrow.FixedWidthTypes.Boolean, nil
	case kindInt:
		b := array.NewInt64Builder(pool)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			n, _ := asInt(v)
			b.Append(n)
		}
		return b.NewArray(), arrow.PrimitiveTypes.Int64, nil
	case kindFloat:
		b := array.NewFloat64Builder(pool)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			f, _ := asFloat(v)
			b.Append(f)
		}
		return b.NewArray(), arrow.PrimitiveTypes.Float64, nil
	default:
		b := array.NewStringBuilder(pool)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			s, err := asString(v)
			if err != nil {
				return nil, nil, err
			}
			b.Append(s)
		}
		return b.NewArray(), arrow.BinaryTypes.String, nil
	}
}

func inferKind(values []any) columnKind {
	kind := kindNull
	for _, v := range values {
		if v == nil {
			continue
		}
		var k columnKind
		switch v.(type) {
		case bool:
			k = kindBool
		case int, int8, int16, int32, int64, uint8, uint16, uint32:
			k = kindInt
		case float32, float64:
			k = kindFloat
		case json.Number:
			if _, ok := asInt(v); ok {
				k = kindInt
			} else {
				k = kindFloat
			}
		default:
			return kindString
		}
		switch {
		case kind == kindNull:
			kind = k
		case kind == k:
		case (kind == kindInt && k == kindFloat) || (kind == kindFloat && k == kindInt):
			kind = kindFloat
		default:
			return kindString
		}
	}
	if kind == kindNull {
		return kindString
	}
	return kind
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	return 0, false
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case json.Number:
		return s.String(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(b), nil
}
