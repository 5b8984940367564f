package orchestrator

import "testing"

func TestFormatParseSHA1_RoundTrips(t *testing.T) {
	var want [20]byte
	for i := range want {
		want[i] = byte(i)
	}

	got := parseSHA1(formatSHA1(want))
	if got != want {
		t.Errorf("parseSHA1(formatSHA1(x)) = %v, want %v", got, want)
	}
}

func TestParseSHA1_InvalidInputReturnsZeroValue(t *testing.T) {
	var zero [20]byte

	if got := parseSHA1("not-hex"); got != zero {
		t.Errorf("parseSHA1(invalid) = %v, want zero value", got)
	}
}
