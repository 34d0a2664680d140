package zmodem

import "testing"

func TestBuildEscapeTableStandard(t *testing.T) {
	tab := buildEscapeTable(false, false)

	for _, b := range []byte{ZDLE, XON, XOFF, XON | 0x80, XOFF | 0x80} {
		if tab[b] != escAlways {
			t.Errorf("byte 0x%02x should be escAlways, got %d", b, tab[b])
		}
	}
	if tab[0x0d] != escIfAtCR {
		t.Errorf("CR (0x0d) should be escIfAtCR, got %d", tab[0x0d])
	}
	if tab['A'] != escNone {
		t.Errorf("'A' should be escNone, got %d", tab['A'])
	}
	// Other control characters pass through unescaped unless escapeCtrl is set.
	if tab[0x01] != escNone {
		t.Errorf("0x01 should be escNone without escapeCtrl, got %d", tab[0x01])
	}
}

func TestBuildEscapeTableControl(t *testing.T) {
	tab := buildEscapeTable(true, false)
	for i := 0; i < 32; i++ {
		if i == 0x0d {
			continue
		}
		if tab[i] != escAlways {
			t.Errorf("escapeCtrl: byte 0x%02x should be escAlways, got %d", i, tab[i])
		}
	}
	if tab[0x0d] != escAlways {
		t.Errorf("escapeCtrl: CR should be escAlways, got %d", tab[0x0d])
	}
}

func TestBuildEscapeTable8thBit(t *testing.T) {
	tab := buildEscapeTable(false, true)
	for i := 0x80; i < 0x100; i++ {
		if tab[i] == escNone {
			t.Errorf("escape8thBit: byte 0x%02x should not be escNone, got %d", i, tab[i])
		}
	}
}

func TestEscapeByteRoundTrip(t *testing.T) {
	tab := buildEscapeTable(true, true)
	for i := 0; i < 256; i++ {
		b := byte(i)
		out := escapeByte(nil, b, 0, &tab)
		if len(out) == 2 {
			if out[0] != ZDLE {
				t.Fatalf("escaped byte 0x%02x missing ZDLE marker", b)
			}
			got := unescapeByte(out[1])
			if got != b {
				t.Errorf("round-trip failed for 0x%02x: escaped=0x%02x, recovered=0x%02x", b, out[1], got)
			}
		} else if len(out) == 1 && out[0] != b {
			t.Errorf("unescaped byte changed: 0x%02x -> 0x%02x", b, out[0])
		}
	}
}

func TestEscapeByteCRConditional(t *testing.T) {
	tab := buildEscapeTable(false, false)

	out := escapeByte(nil, 0x0d, '@', &tab)
	if len(out) != 2 || out[0] != ZDLE {
		t.Errorf("CR after '@' should be escaped, got %v", out)
	}

	out = escapeByte(nil, 0x0d, 'A', &tab)
	if len(out) != 1 || out[0] != 0x0d {
		t.Errorf("CR after 'A' should pass through, got %v", out)
	}
}

// TestEscapeFlagSingleByteWindow checks that Session.escape (set by a
// ZDLE marker in hdrChar) affects exactly the one byte immediately
// following it, not any byte after — a leaked escape flag would
// silently corrupt every following header byte.
func TestEscapeFlagSingleByteWindow(t *testing.T) {
	host := &recordingHost{}
	s := NewSession(host)

	if err := s.hdrChar(ZDLE); err != nil {
		t.Fatalf("hdrChar(ZDLE): %v", err)
	}
	if !s.escape {
		t.Fatal("escape flag should be set immediately after a ZDLE marker")
	}

	if err := s.hdrChar(ZHEX ^ 0x40); err != nil {
		t.Fatalf("hdrChar(escaped ZHEX): %v", err)
	}
	if s.escape {
		t.Error("escape flag should clear after consuming exactly one escaped byte")
	}
	if s.dataType != ZHEX {
		t.Fatalf("escaped ZHEX marker wasn't unescaped: dataType = %v", s.dataType)
	}

	// A third byte, not preceded by a fresh ZDLE, must not be unescaped:
	// the flag's window is exactly one byte wide.
	if err := s.hdrChar(ZHEX ^ 0x40); err != nil {
		t.Fatalf("hdrChar(third byte): %v", err)
	}
	if s.escape {
		t.Error("escape flag must not be set without an intervening ZDLE")
	}
}

func TestIsDataTerminator(t *testing.T) {
	for _, b := range []byte{ZCRCE, ZCRCG, ZCRCQ, ZCRCW} {
		if !isDataTerminator(b) {
			t.Errorf("0x%02x should be a data terminator", b)
		}
	}
	if isDataTerminator('A') {
		t.Error("'A' should not be a data terminator")
	}
}
