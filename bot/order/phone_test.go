package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare local", "901234567", "+998901234567"},
		{"bare local 33 code", "331112233", "+998331112233"},
		{"full international", "+998901234567", "+998901234567"},
		{"country code without plus", "998901234567", "+998901234567"},
		{"spaces and dashes", "+998 90 123-45-67", "+998901234567"},
		{"surrounding whitespace", " 901234567 ", "+998901234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare country code", "998901234567", "+998901234567"},
		{"already prefixed", "+998901234567", "+998901234567"},
		// Shared contacts are not restricted to Uzbek numbers.
		{"foreign number", "79161234567", "+79161234567"},
		{"foreign prefixed", "+4915123456789", "+4915123456789"},
		{"surrounding whitespace", " 998901234567 ", "+998901234567"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeContact(tt.in))
		})
	}
}

func TestNormalizePhoneRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"too short", "12345"},
		{"bad local prefix", "101234567"},
		{"wrong country code", "+997901234567"},
		{"letters", "phone"},
		{"ten digits", "9012345678"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizePhone(tt.in)
			assert.ErrorIs(t, err, ErrInvalidPhone)
		})
	}
}
