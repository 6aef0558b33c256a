package core

import "testing"

func TestItoa(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{7, "7"},
		{42, "42"},
		{-1, "-1"},
		{-4096, "-4096"},
		{2147483647, "2147483647"},
	}
	for _, tt := range tests {
		if got := itoa(tt.in); got != tt.want {
			t.Errorf("itoa(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUtoa(t *testing.T) {
	if got := utoa(0); got != "0" {
		t.Errorf("utoa(0) = %q", got)
	}
	if got := utoa(4294967295); got != "4294967295" {
		t.Errorf("utoa(max) = %q", got)
	}
}
