package query

import "testing"

func TestConstCompareTotalOrder(t *testing.T) {
	// Ascending witness list across all variants: integers (Number/IPv4/MAC
	// sharing one numeric order), then strings, then IPv6.
	asc := []Const{
		Number(-1),
		Number(5),
		IPv4(6),
		MAC(7),
		Number(100),
		Str("abc"),
		Str("abd"),
		IPv6(0, 0, 0, 1),
		IPv6(0, 0, 1, 0),
		IPv6(1, 0, 0, 0),
	}

	for i := range asc {
		for j := range asc {
			got := asc[i].Compare(asc[j])
			switch {
			case i < j && got >= 0:
				t.Errorf("Compare(%s, %s) = %d, want < 0", asc[i], asc[j], got)
			case i > j && got <= 0:
				t.Errorf("Compare(%s, %s) = %d, want > 0", asc[i], asc[j], got)
			case i == j && got != 0:
				t.Errorf("Compare(%s, %s) = %d, want 0", asc[i], asc[j], got)
			}
		}
	}

	// Antisymmetry over all pairs.
	for i := range asc {
		for j := range asc {
			if asc[i].Compare(asc[j]) != -asc[j].Compare(asc[i]) {
				t.Errorf("Compare not antisymmetric for %s, %s", asc[i], asc[j])
			}
		}
	}
}

func TestMinMax(t *testing.T) {
	a, b := Number(3), Number(9)
	if got := Min(a, b); !got.Equal(a) {
		t.Errorf("Min = %s, want %s", got, a)
	}
	if got := Max(a, b); !got.Equal(b) {
		t.Errorf("Max = %s, want %s", got, b)
	}
	if got := Min(b, a); !got.Equal(a) {
		t.Errorf("Min reversed = %s, want %s", got, a)
	}
}

func TestToInt(t *testing.T) {
	if v, err := Number(42).ToInt(); err != nil || v != 42 {
		t.Errorf("ToInt(42) = %d, %v", v, err)
	}
	if _, err := Str("x").ToInt(); err == nil {
		t.Error("ToInt on string: expected error")
	}
	if _, err := IPv4(1).ToInt(); err == nil {
		t.Error("ToInt on IPv4: expected error")
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) (Const, error)
		in    string
	}{
		{"ipv4", ParseIPv4, "10.0.0.1"},
		{"ipv4 zero", ParseIPv4, "0.0.0.0"},
		{"ipv4 max", ParseIPv4, "255.255.255.255"},
		{"mac", ParseMAC, "aa:bb:cc:dd:ee:ff"},
		{"ipv6", ParseIPv6, "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.parse(tt.in)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.in, err)
			}
			again, err := tt.parse(c.String())
			if err != nil {
				t.Fatalf("reparse %q: %v", c.String(), err)
			}
			if !c.Equal(again) {
				t.Errorf("round trip %q -> %s -> %s", tt.in, c, again)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := ParseIPv4("2001:db8::1"); err == nil {
		t.Error("ParseIPv4 on IPv6 text: expected error")
	}
	if _, err := ParseIPv4("not-an-ip"); err == nil {
		t.Error("ParseIPv4 on junk: expected error")
	}
	if _, err := ParseIPv6("10.0.0.1"); err == nil {
		t.Error("ParseIPv6 on dotted quad: expected error")
	}
	if _, err := ParseMAC("aa:bb"); err == nil {
		t.Error("ParseMAC on short address: expected error")
	}
}

func TestBigIntEncoding(t *testing.T) {
	if got := Number(1023).BigInt(16).String(); got != "1023" {
		t.Errorf("number: got %s", got)
	}

	c, err := ParseIPv4("10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.BigInt(32).String(); got != "167772161" {
		t.Errorf("ipv4 10.0.0.1: got %s, want 167772161", got)
	}

	v6 := IPv6(0, 0, 0, 1)
	if got := v6.BigInt(128).String(); got != "1" {
		t.Errorf("ipv6 ::1: got %s, want 1", got)
	}
	v6hi := IPv6(1, 0, 0, 0)
	// 1 << 96
	if got := v6hi.BigInt(128).String(); got != "79228162514264337593543950336" {
		t.Errorf("ipv6 high limb: got %s", got)
	}

	// "ab" padded to 4 bytes: 'a' 'b' ' ' ' ' big-endian.
	want := "1633820704" // 0x61622020
	if got := Str("ab").BigInt(32).String(); got != want {
		t.Errorf("string: got %s, want %s", got, want)
	}
}
