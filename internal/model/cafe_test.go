package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestCafe_ValuesMatchColumns(t *testing.T) {
	c := Cafe{
		OSMID:    123,
		Name:     "Kaffee Kiosk",
		Lat:      52.52,
		Lon:      13.40,
		Phone:    strPtr("+49-30-1111"),
		AddrCity: strPtr("Berlin"),
	}

	vals := c.Values()
	assert.Len(t, vals, len(CafeColumns))
	assert.Equal(t, int64(123), vals[0])
	assert.Equal(t, "Kaffee Kiosk", vals[1])
	assert.Equal(t, "+49-30-1111", *vals[4].(*string))
	assert.Nil(t, vals[5].(*string))
	assert.Equal(t, "Berlin", *vals[9].(*string))
}

func TestStringOrEmpty(t *testing.T) {
	assert.Equal(t, "", StringOrEmpty(nil))
	assert.Equal(t, "x", StringOrEmpty(strPtr("x")))
}
