package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	csv := "age,city,signup_date\n30,Haifa,2024-01-01\n25,Tel Aviv,2024-02-15\n"

	f, err := ReadCSV(strings.NewReader(csv), 1024)
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "city", "signup_date"}, f.Columns)
	assert.Equal(t, 2, f.NumRows())
	assert.True(t, f.HasColumn("city"))
	assert.False(t, f.HasColumn("country"))

	values, ok := f.Column("age")
	require.True(t, ok)
	assert.Equal(t, []string{"30", "25"}, values)
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), 1024)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestReadCSVHeaderOnly(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b,c\n"), 1024)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestReadCSVTooLarge(t *testing.T) {
	csv := "a,b\n1,2\n3,4\n"

	_, err := ReadCSV(strings.NewReader(csv), 4)

	var tooLarge *TooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, int64(4), tooLarge.Limit)
}

func TestReadCSVMalformed(t *testing.T) {
	// second row has a different field count
	_, err := ReadCSV(strings.NewReader("a,b\n1,2,3\n"), 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed csv")
}

func TestReadCSVDuplicateColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,a\n1,2\n"), 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name")
}

func TestReadCSVEmptyColumnName(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a, \n1,2\n"), 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty name")
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		name   string
		column string
		values []string
		want   ColumnKind
	}{
		{"numeric ints", "age", []string{"1", "2", "3"}, KindNumeric},
		{"numeric floats", "price", []string{"1.5", "-2", "3e2"}, KindNumeric},
		{"numeric with blanks", "score", []string{"1", "", "3"}, KindNumeric},
		{"strings", "city", []string{"Haifa", "Tel Aviv"}, KindString},
		{"mixed falls back to string", "v", []string{"1", "two"}, KindString},
		{"all blank", "v", []string{"", ""}, KindString},
		{"date by name", "signup_date", []string{"2024-01-01"}, KindDate},
		{"date name wins over numeric cells", "update_DATE", []string{"1", "2"}, KindDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferKind(tt.column, tt.values))
		})
	}
}
