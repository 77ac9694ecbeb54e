package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assignBed struct {
	BedID string `json:"bed_id" validate:"required,notblank,max=5"`
	Count int    `json:"needle_counts" validate:"gte=0,lte=10"`
}

func TestValidator_FieldMessages(t *testing.T) {
	v := NewValidator()

	require.NoError(t, v.Validate(&assignBed{BedID: "B-3", Count: 4}))

	tests := []struct {
		name  string
		input assignBed
		field string
		want  string
	}{
		{"missing", assignBed{}, "bed_id", "bed_id is required"},
		{"blank", assignBed{BedID: "   "}, "bed_id", "bed_id must not be blank"},
		{"too long", assignBed{BedID: "BED-100"}, "bed_id", "bed_id must be at most 5 characters"},
		{"too many needles", assignBed{BedID: "B-1", Count: 11}, "needle_counts", "needle_counts must be less than or equal to 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.want, v.FormatValidationErrors(err)[tt.field])
		})
	}
}

func TestValidator_NonValidationError(t *testing.T) {
	assert.Empty(t, NewValidator().FormatValidationErrors(assert.AnError))
}
