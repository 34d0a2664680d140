package zmodem

// escapeClass classifies how a byte value must be handled when writing
// it into an escaped ZModem stream.
type escapeClass int

const (
	escNone   escapeClass = iota // pass through unescaped
	escAlways                    // always ZDLE-escape
	escIfAtCR                    // CR: escape only when the previously sent byte was '@'
)

// buildEscapeTable constructs the per-byte escape classification used by
// escapeByte, matching zsendline_init() from the original zm.c: bits 5
// and 6 of the byte mark it printable and exempt from escaping, unless
// escape8thBit widens the set to every byte with the high bit set;
// escapeCtrl only affects the control bytes.
func buildEscapeTable(escapeCtrl, escape8thBit bool) [256]escapeClass {
	var tab [256]escapeClass

	for i := 0; i < 256; i++ {
		if i&0x60 != 0 {
			tab[i] = escNone
			continue
		}
		switch i {
		case ZDLE, XON, XOFF, XON | 0x80, XOFF | 0x80:
			tab[i] = escAlways
		case 0x0d, 0x8d:
			if escapeCtrl {
				tab[i] = escAlways
			} else {
				tab[i] = escIfAtCR
			}
		default:
			if escapeCtrl {
				tab[i] = escAlways
			} else {
				tab[i] = escNone
			}
		}
	}

	if escape8thBit {
		for i := 0x80; i < 0x100; i++ {
			if tab[i] == escNone {
				tab[i] = escAlways
			}
		}
	}

	return tab
}

// escapeByte appends the ZDLE-escaped encoding of b to dst, given the
// previously transmitted byte (used for the CR-conditional escape) and
// the negotiated escape table. It returns the extended slice.
func escapeByte(dst []byte, b byte, lastSent byte, tab *[256]escapeClass) []byte {
	switch tab[b] {
	case escAlways:
		return append(dst, ZDLE, b^0x40)
	case escIfAtCR:
		if lastSent&0x7f == '@' {
			return append(dst, ZDLE, b^0x40)
		}
		return append(dst, b)
	default:
		return append(dst, b)
	}
}

// unescapeByte reverses a single ZDLE-escaped byte, given the byte that
// immediately followed a ZDLE marker. It mirrors the original ZRUB0/
// ZRUB1 and control-char unescape rules.
func unescapeByte(b byte) byte {
	switch b {
	case ZRUB0:
		return 0x7f
	case ZRUB1:
		return 0xff
	default:
		return b ^ 0x40
	}
}

// isDataTerminator reports whether b (the byte directly following a
// ZDLE inside a data subpacket) marks the end of that subpacket's
// payload.
func isDataTerminator(b byte) bool {
	switch b {
	case ZCRCE, ZCRCG, ZCRCQ, ZCRCW:
		return true
	default:
		return false
	}
}
