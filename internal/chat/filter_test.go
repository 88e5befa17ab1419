package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactContacts(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		redacted bool
	}{
		{"plain text untouched", "Hola, ¿cuándo puedes empezar el trabajo?", false},
		{"email", "escríbeme a juan.perez@gmail.com y hablamos", true},
		{"phone with spaces", "mi número es 0414 123 4567", true},
		{"phone with country code", "llámame al +58-412-5551234", true},
		{"url", "mejor por https://wa.me/584125551234", true},
		{"www url", "está en www.misitio.com/contacto", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, redacted := RedactContacts(tc.in)
			assert.Equal(t, tc.redacted, redacted)
			if tc.redacted {
				assert.Contains(t, out, redactedPlaceholder)
				assert.NotEqual(t, tc.in, out)
			} else {
				assert.Equal(t, tc.in, out)
			}
		})
	}
}

func TestRedactContactsKeepsShortNumbers(t *testing.T) {
	// Prices and small figures are not phone numbers.
	out, redacted := RedactContacts("te cobro 60 dólares, en 3 días")
	assert.False(t, redacted)
	assert.Equal(t, "te cobro 60 dólares, en 3 días", out)
}
