package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.NoError(t, ValidateEmail("first.last+tag@sub.example.co"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("user@"))
	assert.Error(t, ValidateEmail(""))
}

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, ValidateCurrency("USD"))
	assert.NoError(t, ValidateCurrency("EUR"))
	assert.Error(t, ValidateCurrency("usd"))
	assert.Error(t, ValidateCurrency("DOLLARS"))
	assert.Error(t, ValidateCurrency(""))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0))
	assert.NoError(t, ValidateAmount(125.50))
	assert.Error(t, ValidateAmount(-1))
}
