package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"garbage", true, true},
		{"garbage", false, false},
		{" true ", false, true},
	}
	for _, c := range cases {
		t.Setenv("STORYPIPE_TEST_BOOL", c.value)
		if got := ParseBoolEnv("STORYPIPE_TEST_BOOL", c.def); got != c.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", c.value, c.def, got, c.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	cases := []struct {
		value string
		def   int
		want  int
	}{
		{"", 42, 42},
		{"7", 0, 7},
		{"-3", 0, -3},
		{" 10 ", 0, 10},
		{"abc", 5, 5},
		{"1.5", 5, 5},
	}
	for _, c := range cases {
		t.Setenv("STORYPIPE_TEST_INT", c.value)
		if got := ParseIntEnv("STORYPIPE_TEST_INT", c.def); got != c.want {
			t.Errorf("ParseIntEnv(%q, %d) = %d, want %d", c.value, c.def, got, c.want)
		}
	}
}
