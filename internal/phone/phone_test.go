package phone

import (
	"errors"
	"testing"

	"github.com/go-wallet-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_AcceptedFormats(t *testing.T) {
	for _, raw := range []string{
		"+639171234567",
		"639171234567",
		"09171234567",
		"0917 123 4567",
		"+63-917-123-4567",
	} {
		got, err := Normalize(raw)
		require.NoError(t, err, "input %q", raw)
		assert.Equal(t, "+639171234567", got, "input %q", raw)
	}
}

func TestNormalize_SubscriberLedByEight(t *testing.T) {
	got, err := Normalize("08181234567")
	require.NoError(t, err)
	assert.Equal(t, "+638181234567", got)
}

func TestNormalize_Rejects(t *testing.T) {
	for _, raw := range []string{
		"",
		"12345",
		"+19171234567",   // wrong country
		"+637171234567",  // subscriber must start with 8 or 9
		"0917123456",     // too short
		"091712345678",   // too long
		"+63917123456a",  // non-digit
	} {
		_, err := Normalize(raw)
		require.Error(t, err, "input %q", raw)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), "input %q", raw)
	}
}
