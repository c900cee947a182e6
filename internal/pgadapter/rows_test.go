package pgadapter

import "testing"

func TestNormalizeFallbackValueFloat32(t *testing.T) {
	got := normalizeFallbackValue(float32(1.5))
	f, ok := got.(float64)
	if !ok || f != 1.5 {
		t.Errorf("normalizeFallbackValue(float32(1.5)) = %v (%T), want float64(1.5)", got, got)
	}
}

func TestNormalizeFallbackValueUUIDBytes(t *testing.T) {
	var uuid [16]byte
	copy(uuid[:], []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10})
	got := normalizeFallbackValue(uuid)
	if got != "01020304-0506-0708-090a-0b0c0d0e0f10" {
		t.Errorf("normalizeFallbackValue(uuid) = %v, want dashed hex string", got)
	}
}

func TestNormalizeFallbackValuePassesThroughOtherTypes(t *testing.T) {
	if got := normalizeFallbackValue("public"); got != "public" {
		t.Errorf("normalizeFallbackValue(%q) = %v, want unchanged", "public", got)
	}
	if got := normalizeFallbackValue(int64(42)); got != int64(42) {
		t.Errorf("normalizeFallbackValue(int64(42)) = %v, want unchanged", got)
	}
}
