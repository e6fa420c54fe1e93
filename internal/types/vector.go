package types

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Vector is a pgvector column value. It serializes to the pgvector text
// literal "[f1,f2,...]" so it can cross database/sql without a dedicated
// driver binding. A nil Vector maps to SQL NULL.
type Vector []float32

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return v.String(), nil
}

func (v Vector) String() string {
	var sb strings.Builder
	sb.Grow(len(v)*10 + 2)
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (v *Vector) Scan(src interface{}) error {
	if src == nil {
		*v = nil
		return nil
	}
	var raw string
	switch t := src.(type) {
	case []byte:
		raw = string(t)
	case string:
		raw = t
	default:
		return fmt.Errorf("vector: cannot scan %T", src)
	}
	parsed, err := ParseVector(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func ParseVector(raw string) (Vector, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return nil, fmt.Errorf("vector: malformed literal %q", truncateForErr(raw))
	}
	body := strings.TrimSpace(raw[1 : len(raw)-1])
	if body == "" {
		return Vector{}, nil
	}
	parts := strings.Split(body, ",")
	out := make(Vector, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("vector: bad element %q: %w", p, err)
		}
		out = append(out, float32(f))
	}
	return out, nil
}

func truncateForErr(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}

// GormDataType keeps AutoMigrate from guessing a type for Vector fields;
// the real column type comes from the field's `gorm:"type:vector(N)"` tag.
func (Vector) GormDataType() string {
	return "vector"
}
