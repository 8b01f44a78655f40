package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeUTF8_StripsInvalidSequences(t *testing.T) {
	valid := "hello world"
	assert.Equal(t, valid, SanitizeUTF8(valid))

	invalid := "hello\xffworld"
	assert.Equal(t, "helloworld", SanitizeUTF8(invalid))

	assert.Equal(t, "", SanitizeUTF8(""))
}
