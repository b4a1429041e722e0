package core

import (
	"errors"
	"testing"
)

func TestCleanKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"exports/a.csv", "exports/a.csv", true},
		{"exports//b/../a.csv", "exports/a.csv", true},
		{"", "", false},
		{"   ", "", false},
		{"/abs", "", false},
		{"../escape", "", false},
		{"a/../../b", "", false},
		{`a\b`, "", false},
	}
	for _, tc := range cases {
		got, err := CleanKey(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("CleanKey(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("CleanKey(%q) expected ErrInvalidKey, got %q %v", tc.in, got, err)
		}
	}
}

func TestCopyMetadata(t *testing.T) {
	if CopyMetadata(nil) != nil {
		t.Fatalf("expected nil for empty metadata")
	}
	in := map[string]string{"a": "1"}
	out := CopyMetadata(in)
	in["a"] = "2"
	if out["a"] != "1" {
		t.Fatalf("expected copy to be detached, got %v", out)
	}
}
