// Package transform turns caller rows into the delimited text the COPY
// statement reads, and reads delimited text back into rows.
package transform

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/vvka-141/vload/pkg/vload"
)

// TimestampLayout renders time.Time fields in a form both Vertica and
// PostgreSQL accept for TIMESTAMP columns.
const TimestampLayout = "2006-01-02 15:04:05.999999"

// NullMapper stages nil and any value equal to one of NullValues as the empty
// string, which COPY loads as NULL. Everything else is rendered as text.
type NullMapper struct {
	NullValues []any
}

// NewNullMapper creates a NullMapper with the given null sentinels.
func NewNullMapper(nullValues ...any) *NullMapper {
	return &NullMapper{NullValues: nullValues}
}

// MapValue implements vload.ValueMapper.
func (m *NullMapper) MapValue(v any) (string, error) {
	if m.IsNull(v) {
		return "", nil
	}
	return Render(v)
}

// IsNull reports whether v stages as NULL.
func (m *NullMapper) IsNull(v any) bool {
	if v == nil {
		return true
	}
	for _, n := range m.NullValues {
		if n == nil {
			continue
		}
		if !isComparable(v) || !isComparable(n) {
			continue
		}
		if v == n {
			return true
		}
	}
	return false
}

// isComparable checks the dynamic value: a struct of comparable type still
// panics under == when an interface field holds a slice or map.
func isComparable(v any) bool {
	return reflect.ValueOf(v).Comparable()
}

// Render converts a field value to its text form.
func Render(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case time.Time:
		return x.Format(TimestampLayout), nil
	case *time.Time:
		if x == nil {
			return "", nil
		}
		return x.Format(TimestampLayout), nil
	case fmt.Stringer:
		return x.String(), nil
	case error:
		return "", fmt.Errorf("cannot stage error value %q", x.Error())
	default:
		return fmt.Sprint(v), nil
	}
}

var _ vload.ValueMapper = (*NullMapper)(nil)
