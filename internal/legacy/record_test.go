package legacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordCaseInsensitiveAccess(t *testing.T) {
	rec := Record{"BookID": int64(7), "Title": "Siku Njema"}

	assert.Equal(t, "Siku Njema", rec.Str("title"))
	assert.Equal(t, "Siku Njema", rec.Str("TITLE"))

	id, ok := rec.Int("bookid")
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	_, ok = rec.Int("missing")
	assert.False(t, ok)
}

func TestRecordStrConversions(t *testing.T) {
	rec := Record{
		"padded": "  spaced  ",
		"blob":   []byte("bytes"),
		"whole":  float64(42),
		"frac":   float64(2.5),
		"null":   nil,
		"num":    int64(13),
	}

	assert.Equal(t, "spaced", rec.Str("padded"))
	assert.Equal(t, "bytes", rec.Str("blob"))
	assert.Equal(t, "42", rec.Str("whole"))
	assert.Equal(t, "2.5", rec.Str("frac"))
	assert.Equal(t, "", rec.Str("null"))
	assert.Equal(t, "13", rec.Str("num"))
}

func TestRecordStrAnyAndIntAny(t *testing.T) {
	rec := Record{"first_name": "", "name": "Ali Hassan", "year": "2019"}

	assert.Equal(t, "Ali Hassan", rec.StrAny("first_name", "name"))
	assert.Equal(t, "", rec.StrAny("nothing", "first_name"))

	year, ok := rec.IntAny("admission_year", "year")
	assert.True(t, ok)
	assert.Equal(t, 2019, year)
}

func TestRecordFloatAndBool(t *testing.T) {
	rec := Record{
		"amount":  "150.50",
		"flag_i":  int64(1),
		"flag_s":  "Yes",
		"flag_no": "no",
	}

	amount, ok := rec.Float("amount")
	assert.True(t, ok)
	assert.InDelta(t, 150.50, amount, 0.001)

	assert.True(t, rec.Bool("flag_i"))
	assert.True(t, rec.Bool("flag_s"))
	assert.False(t, rec.Bool("flag_no"))
	assert.False(t, rec.Bool("absent"))
}
