package parser

import (
	"testing"

	"github.com/xtaci/dispatchd/task"
)

func TestParseValid(t *testing.T) {
	cases := []struct {
		line string
		want Request
	}{
		{"0:42\n", Request{Type: task.CPU, Seed: 42}},
		{"1:42\n", Request{Type: task.IO, Seed: 42}},
		{"  1:7\n", Request{Type: task.IO, Seed: 7}},
		{"0:18446744073709551615\n", Request{Type: task.CPU, Seed: 18446744073709551615}},
	}
	for _, c := range cases {
		got, err := Parse(c.line)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", c.line, err)
		}
		if got != c.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", c.line, got, c.want)
		}
	}
}

func TestParseExtraFieldsTakeLastAsSeed(t *testing.T) {
	got, err := Parse("0:5:99\n")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := Request{Type: task.CPU, Seed: 99}
	if got != want {
		t.Fatalf("Parse(\"0:5:99\") = %+v, want %+v", got, want)
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []string{
		"",
		"\n",
		"no-colon\n",
		"2:1\n",     // unknown task type ordinal
		"256:1\n",   // overflows uint8
		"0:-1\n",    // negative seed
		"0:abc\n",   // non-numeric seed
		"abc:1\n",   // non-numeric type
	}
	for _, line := range cases {
		if _, err := Parse(line); err == nil {
			t.Fatalf("Parse(%q) expected error, got nil", line)
		}
	}
}
