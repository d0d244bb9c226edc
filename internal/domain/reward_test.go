package domain

import (
	"math/big"
	"testing"
)

func TestFormatReward(t *testing.T) {
	cases := []struct {
		wei  string
		want string
	}{
		{"0", "0"},
		{"1000000000000000000", "1"},
		{"2500000000000000000", "2.5"},
		{"10000000000000000", "0.01"},
		{"1", "0.000000000000000001"},
		{"1234500000000000000000", "1234.5"},
	}

	for _, c := range cases {
		wei, _ := new(big.Int).SetString(c.wei, 10)
		if got := FormatReward(wei); got != c.want {
			t.Errorf("FormatReward(%s) = %q, want %q", c.wei, got, c.want)
		}
	}
}

func TestFormatReward_Nil(t *testing.T) {
	if got := FormatReward(nil); got != "0" {
		t.Errorf("FormatReward(nil) = %q", got)
	}
}

func TestParseReward(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2.5", "2500000000000000000"},
		{"1", "1000000000000000000"},
		{"0.000000000000000001", "1"},
		{".5", "500000000000000000"},
		{" 3 ", "3000000000000000000"},
	}

	for _, c := range cases {
		got, err := ParseReward(c.in)
		if err != nil {
			t.Fatalf("ParseReward(%q): %v", c.in, err)
		}
		if got.String() != c.want {
			t.Errorf("ParseReward(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParseReward_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.2.3", "-1", "0.1234567890123456789"} {
		if _, err := ParseReward(in); err == nil {
			t.Errorf("ParseReward(%q) should fail", in)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"2.5", "0.01", "7"} {
		wei, err := ParseReward(s)
		if err != nil {
			t.Fatalf("ParseReward(%q): %v", s, err)
		}
		if got := FormatReward(wei); got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}
