package identity

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseHexRoundTrip(t *testing.T) {
	var k Key
	for i := range k {
		k[i] = byte(i)
	}

	got, err := Parse(Hex(k))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !Equal(got, k) {
		t.Errorf("Parse(Hex(k)) = %s, want %s", got, k)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, s := range []string{"", "zz", "abcd", strings.Repeat("ab", 33)} {
		if _, err := Parse(s); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Parse(%q) = %v, want ErrInvalidKey", s, err)
		}
	}
}

func TestParseTrimsWhitespace(t *testing.T) {
	var k Key
	k[0] = 0xAB

	got, err := Parse("  " + Hex(k) + "\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !Equal(got, k) {
		t.Errorf("Parse = %s, want %s", got, k)
	}
}

func TestFromBytes(t *testing.T) {
	raw := make([]byte, Size)
	raw[5] = 0x42

	k, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if k[5] != 0x42 {
		t.Errorf("k[5] = %#x", k[5])
	}

	if _, err := FromBytes(raw[:16]); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("FromBytes(short) = %v, want ErrInvalidKey", err)
	}
}

func TestShort(t *testing.T) {
	var k Key
	k[0] = 0xAB

	s := Short(k)
	if !strings.HasPrefix(s, "ab") || !strings.HasSuffix(s, "...") {
		t.Errorf("Short = %q", s)
	}
	if len(s) != 19 {
		t.Errorf("Short length = %d", len(s))
	}
}

func TestIsZero(t *testing.T) {
	var zero Key
	if !zero.IsZero() {
		t.Error("zero key IsZero = false")
	}
	zero[0] = 1
	if zero.IsZero() {
		t.Error("non-zero key IsZero = true")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	var k Key
	k[0] = 0xCD

	data, err := json.Marshal(k)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"`+Hex(k)+`"` {
		t.Errorf("JSON = %s", data)
	}

	var got Key
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !Equal(got, k) {
		t.Errorf("round trip = %s, want %s", got, k)
	}

	if err := json.Unmarshal([]byte(`"nothex"`), &got); err == nil {
		t.Error("Unmarshal of invalid hex succeeded")
	}
}
