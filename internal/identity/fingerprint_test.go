package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveIsDeterministic(t *testing.T) {
	f := NewFingerprinter("test-key")

	first := f.Derive("1234-5678-9012", "new_id")
	second := f.Derive("1234-5678-9012", "new_id")
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestDeriveScopesByKind(t *testing.T) {
	f := NewFingerprinter("test-key")

	assert.NotEqual(t,
		f.Derive("1234-5678-9012", "new_id"),
		f.Derive("1234-5678-9012", "correction"),
	)
}

func TestDeriveDependsOnKey(t *testing.T) {
	assert.NotEqual(t,
		NewFingerprinter("key-a").Derive("1234-5678-9012", "new_id"),
		NewFingerprinter("key-b").Derive("1234-5678-9012", "new_id"),
	)
}

func TestDeriveNeverEchoesInput(t *testing.T) {
	f := NewFingerprinter("test-key")

	fingerprint := f.Derive("123456789012", "new_id")
	assert.NotContains(t, fingerprint, "123456789012")
}

func TestDeriveTrimsWhitespace(t *testing.T) {
	f := NewFingerprinter("test-key")

	assert.Equal(t,
		f.Derive("1234-5678-9012", "new_id"),
		f.Derive("  1234-5678-9012  ", "new_id"),
	)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "*****43210", MaskPhone("9876543210"))
	assert.Equal(t, "********43210", MaskPhone("+919876543210"))
	assert.Equal(t, "43210", MaskPhone("43210"))
	assert.Equal(t, "", MaskPhone(""))
}
