package utils

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_STR_VAR", "hello")
	if got := GetEnv("TEST_STR_VAR", "default", nil); got != "hello" {
		t.Fatalf("want=%q got=%q", "hello", got)
	}
	if got := GetEnv("TEST_STR_MISSING", "default", nil); got != "default" {
		t.Fatalf("want=%q got=%q", "default", got)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_INT_VAR", "42")
	if got := GetEnvAsInt("TEST_INT_VAR", 7, nil); got != 42 {
		t.Fatalf("want=42 got=%d", got)
	}
	if got := GetEnvAsInt("TEST_INT_MISSING", 7, nil); got != 7 {
		t.Fatalf("want=7 got=%d", got)
	}

	t.Setenv("TEST_INT_BAD", "not-a-number")
	if got := GetEnvAsInt("TEST_INT_BAD", 7, nil); got != 7 {
		t.Fatalf("unparseable value: want=7 got=%d", got)
	}
}

func TestGetEnvAsInt64(t *testing.T) {
	t.Setenv("TEST_INT64_VAR", "104857600")
	if got := GetEnvAsInt64("TEST_INT64_VAR", 1, nil); got != 104857600 {
		t.Fatalf("want=104857600 got=%d", got)
	}
	if got := GetEnvAsInt64("TEST_INT64_MISSING", 9, nil); got != 9 {
		t.Fatalf("want=9 got=%d", got)
	}
}
