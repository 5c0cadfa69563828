package supabase

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
)

// filter builds PostgREST query strings.
type filter struct {
	v url.Values
}

func where() filter {
	return filter{v: url.Values{}}
}

func (f filter) eq(column, value string) filter {
	f.v.Set(column, "eq."+value)
	return f
}

func (f filter) oldestFirst() filter {
	f.v.Set("order", "created_at.asc")
	return f
}

func (f filter) only(columns string) filter {
	f.v.Set("select", columns)
	return f
}

func (f filter) limit(n int) filter {
	f.v.Set("limit", strconv.Itoa(n))
	return f
}

func (f filter) encode() string {
	if f.v == nil {
		return ""
	}
	return f.v.Encode()
}

func encodeRow(row any) ([]byte, error) {
	return sonic.ConfigStd.Marshal(row)
}

// decodeRows parses a PostgREST array response. A nil body is zero rows.
func decodeRows[T any](body []byte, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	var rows []T
	if err := sonic.ConfigStd.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}
