package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{"john@x.com", "jane.doe@example.co.uk", "a-b_c@sub.domain.org"}
	invalid := []string{"", "john", "john@", "@x.com", "john@x", "john doe@x.com"}

	for _, e := range valid {
		assert.True(t, IsValidEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, IsValidEmail(e), e)
	}
}

func TestRating(t *testing.T) {
	for _, v := range []float64{1, 2, 3, 4, 5, 4.0} {
		got, err := Rating(v)
		require.NoError(t, err)
		assert.Equal(t, int(v), got)
	}
	for _, v := range []float64{0, -1, 6, 4.5, 0.5, math.NaN(), math.Inf(1)} {
		_, err := Rating(v)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation), "value %v", v)
	}
}

type samplePayload struct {
	FirstName string `json:"first_name" validate:"required,max=5"`
	Email     string `json:"email" validate:"required,crm_email"`
	Role      string `json:"role" validate:"omitempty,oneof=admin customer"`
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Struct(samplePayload{FirstName: "Johnathan", Email: "bad", Role: "root"})

	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	assert.Equal(t, "must be at most 5 characters", de.Details["first_name"])
	assert.Equal(t, "invalid email format", de.Details["email"])
	assert.Equal(t, "must be one of: admin customer", de.Details["role"])
}

func TestStruct_Valid(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(samplePayload{FirstName: "John", Email: "john@x.com"}))
}

func TestStruct_Required(t *testing.T) {
	v := New()

	err := v.Struct(samplePayload{})

	de := apperrors.ToDomainError(err)
	assert.Equal(t, "this field is required", de.Details["first_name"])
	assert.Equal(t, "this field is required", de.Details["email"])
}
