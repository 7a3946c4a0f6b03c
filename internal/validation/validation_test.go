package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string          `json:"name" validate:"required"`
	Email string          `json:"email,omitempty" validate:"omitempty,email"`
	Level string          `json:"level" validate:"oneof=low high"`
	Rate  decimal.Decimal `json:"gstRate" validate:"gte=0,lte=28"`
	Note  string          `validate:"max=3"`
}

func TestStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		err := Struct(sample{Name: "x", Level: "low", Rate: decimal.NewFromInt(18)})
		assert.NoError(t, err)
	})

	t.Run("reports json field names", func(t *testing.T) {
		err := Struct(sample{Email: "nope", Level: "mid", Rate: decimal.NewFromInt(30), Note: "long"})
		require.Error(t, err)

		var verr *Error
		require.True(t, errors.As(err, &verr))
		assert.True(t, verr.Has("name"))
		assert.True(t, verr.Has("email"))
		assert.True(t, verr.Has("level"))
		assert.True(t, verr.Has("gstRate"))
		assert.True(t, verr.Has("Note"))
		assert.False(t, verr.Has("phone"))
	})

	t.Run("decimal compared numerically", func(t *testing.T) {
		err := Struct(sample{Name: "x", Level: "high", Rate: decimal.RequireFromString("-0.5")})
		var verr *Error
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 1)
		assert.Equal(t, FieldError{Field: "gstRate", Message: "Must be greater than or equal to 0"}, verr.Fields[0])
	})
}

func TestFields(t *testing.T) {
	t.Run("errors returned by Struct", func(t *testing.T) {
		err := Struct(sample{Level: "low"})
		assert.Equal(t, []FieldError{{Field: "name", Message: "This field is required"}}, Fields(err))
	})

	t.Run("wrapped errors", func(t *testing.T) {
		err := fmt.Errorf("saving: %w", Struct(sample{Name: "x", Email: "nope", Level: "low"}))
		assert.Equal(t, []FieldError{{Field: "email", Message: "Invalid email format"}}, Fields(err))
	})

	t.Run("raw validator errors", func(t *testing.T) {
		err := Validator().Struct(sample{Name: "x", Level: "mid"})
		assert.Equal(t, []FieldError{{Field: "level", Message: "Must be one of: low high"}}, Fields(err))
	})

	t.Run("other errors", func(t *testing.T) {
		assert.Nil(t, Fields(errors.New("boom")))
		assert.Nil(t, Fields(nil))
	})
}

func TestJoin(t *testing.T) {
	tests := []struct {
		name   string
		fields []FieldError
		want   string
	}{
		{"empty", nil, ""},
		{"single", []FieldError{{Field: "name", Message: "required"}}, "name: required"},
		{
			"multiple",
			[]FieldError{{Field: "name", Message: "required"}, {Field: "phone", Message: "invalid"}},
			"name: required, phone: invalid",
		},
		{"no field", []FieldError{{Message: "bad"}}, "bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Join(tt.fields))
		})
	}
}
