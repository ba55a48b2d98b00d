package shared

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Kinds(t *testing.T) {
	cause := errors.New("open TGPA.csv: no such file")
	err := fmt.Errorf("startup: %w", NewDataLoadError("Load", "cannot open source", cause))

	assert.True(t, IsDataLoad(err))
	assert.False(t, IsNotFound(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dataset.Load")

	assert.True(t, IsNotFound(ErrStudentNotFound))
	assert.False(t, IsValidation(ErrStudentNotFound))
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Row: 4, Column: "Cgpa", Value: "abc", Reason: "not a number"}
	assert.True(t, IsValidation(err))
	assert.Equal(t, `validation: row 4, column "Cgpa": not a number (value "abc")`, err.Error())

	var ve *ValidationError
	require.ErrorAs(t, fmt.Errorf("wrap: %w", err), &ve)
	assert.Equal(t, 4, ve.Row)
}

func TestParseCGPA(t *testing.T) {
	c, err := ParseCGPA(" 9.25 ")
	require.NoError(t, err)
	assert.Equal(t, CGPA(9.25), c)

	for _, raw := range []string{"", "abc", "NaN", "Inf", "-0.1", "10.01"} {
		_, err := ParseCGPA(raw)
		assert.True(t, IsValidation(err), "raw %q", raw)
	}

	assert.False(t, CGPA(math.NaN()).IsValid())
	assert.Equal(t, "8", CGPA(8).String())
}

func TestParseCGPA_RejectsNonDecimalSyntax(t *testing.T) {
	for _, raw := range []string{"0x1p3", "0X1P3", "-0x1p-2", "+0x8", "8_5", "9.2_5", "1_0"} {
		_, err := ParseCGPA(raw)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "raw %q", raw)
		assert.Equal(t, "not a number", vErr.Reason)
	}

	for _, raw := range []string{"0", "+8.5", "0.5", "1e0", "09.0"} {
		_, err := ParseCGPA(raw)
		assert.NoError(t, err, "raw %q", raw)
	}
}

func TestNewCGPARange(t *testing.T) {
	r, err := NewCGPARange(7, 9)
	require.NoError(t, err)
	assert.True(t, r.Contains(7))
	assert.True(t, r.Contains(9))
	assert.False(t, r.Contains(9.01))

	_, err = NewCGPARange(9, 7)
	assert.True(t, IsValidation(err))
	_, err = NewCGPARange(-1, 7)
	assert.True(t, IsValidation(err))
}

func TestNewRegistrationID(t *testing.T) {
	id, err := NewRegistrationID("  0012345 ")
	require.NoError(t, err)
	assert.Equal(t, RegistrationID("0012345"), id)

	_, err = NewRegistrationID("   ")
	assert.True(t, IsValidation(err))
}
