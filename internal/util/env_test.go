package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value       string
		defaultVal  bool
		want        bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"off", true, false},
		{"", true, true},
		{"", false, false},
		{"garbage", true, true},
	}
	for _, tc := range cases {
		t.Setenv("DMPIPE_TEST_BOOL", tc.value)
		if got := ParseBoolEnv("DMPIPE_TEST_BOOL", tc.defaultVal); got != tc.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.value, tc.defaultVal, got, tc.want)
		}
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("DMPIPE_TEST_STR", "")
	if got := GetEnvOrDefault("DMPIPE_TEST_STR", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
	t.Setenv("DMPIPE_TEST_STR", "value")
	if got := GetEnvOrDefault("DMPIPE_TEST_STR", "fallback"); got != "value" {
		t.Errorf("expected value, got %q", got)
	}
}
