// AngelaMos | 2026
// validate_test.go

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactForm struct {
	Email *string `json:"email,omitempty" validate:"omitempty,max=255,empty_or=email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32,empty_or=min=5"`
}

func TestEmptyOrRule(t *testing.T) {
	v := NewValidator()
	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		form    contactForm
		wantErr map[string]string
	}{
		{name: "absent fields", form: contactForm{}},
		{name: "empty strings clear", form: contactForm{Email: str(""), Phone: str("")}},
		{name: "valid values", form: contactForm{Email: str("a@x.com"), Phone: str("555-0100")}},
		{
			name:    "bad email",
			form:    contactForm{Email: str("nope")},
			wantErr: map[string]string{"email": "must be empty or a valid email address"},
		},
		{
			name:    "short phone",
			form:    contactForm{Phone: str("12")},
			wantErr: map[string]string{"phone": "must be empty or at least 5 characters"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.form)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantErr, FormatValidationError(err))
		})
	}
}
