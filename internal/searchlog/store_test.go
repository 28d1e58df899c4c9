package searchlog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	rows [][2]any
	pos  int
	err  error
}

func (f *fakeRows) Next() bool {
	return f.pos < len(f.rows)
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.pos]
	f.pos++
	*dest[0].(*string) = row[0].(string)
	*dest[1].(*int64) = row[1].(int64)
	return nil
}

func (f *fakeRows) Err() error {
	return f.err
}

func TestScanQueryCounts(t *testing.T) {
	rows := &fakeRows{rows: [][2]any{
		{"füze güvenlik", int64(12)},
		{"radar analizi", int64(7)},
	}}
	counts, err := scanQueryCounts(rows)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, QueryCount{Query: "füze güvenlik", Count: 12}, counts[0])
	assert.Equal(t, QueryCount{Query: "radar analizi", Count: 7}, counts[1])
}

func TestScanQueryCountsPropagatesRowsErr(t *testing.T) {
	rows := &fakeRows{err: errors.New("connection reset")}
	_, err := scanQueryCounts(rows)
	assert.Error(t, err)
}

func TestHandleEventSkipsMalformedMessages(t *testing.T) {
	handler := HandleEvent(nil)
	err := handler(context.Background(), []byte("key"), []byte("{not json"))
	assert.NoError(t, err, "malformed events must be committed, not redelivered")
}
