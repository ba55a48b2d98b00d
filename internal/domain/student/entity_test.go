package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/rank-explorer/internal/domain/shared"
)

func TestNewRecord_Normalizes(t *testing.T) {
	rec, err := NewRecord(" 0012215678 ", "  Ann Lee ", " Punjab ", 9.5)
	require.NoError(t, err)

	assert.Equal(t, "0012215678", rec.RegistrationID)
	assert.Equal(t, "Ann Lee", rec.Name)
	assert.Equal(t, "Punjab", rec.State)
	assert.False(t, rec.IsRanked())
}

func TestNewRecord_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		regd   string
		person string
		cgpa   float64
		column string
	}{
		{"empty id", "  ", "Ann", 9, "Regd No."},
		{"empty name", "A1", "   ", 9, "Name"},
		{"cgpa above range", "A1", "Ann", 10.5, "Cgpa"},
		{"cgpa below range", "A1", "Ann", -1, "Cgpa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecord(tt.regd, tt.person, "", tt.cgpa)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))

			var ve *shared.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.column, ve.Column)
		})
	}
}

func TestClone_IsIndependent(t *testing.T) {
	src := []Record{{RegistrationID: "A1", Name: "Ann", CGPA: 9.5}}
	cp := Clone(src)
	cp[0].Name = "Changed"

	assert.Equal(t, "Ann", src[0].Name)
	assert.Nil(t, Clone(nil))
}
