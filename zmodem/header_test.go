package zmodem

import "testing"

func TestStohdrRclhdrRoundTrip(t *testing.T) {
	for _, pos := range []uint32{0, 1, 255, 65536, 0xdeadbeef} {
		hdr := stohdr(pos)
		got := rclhdr(hdr)
		if got != pos {
			t.Errorf("stohdr/rclhdr round trip failed: pos=%d, got=%d", pos, got)
		}
	}
}

func TestEncodeHexHeaderTrailer(t *testing.T) {
	buf := encodeHexHeader(ZRINIT, Header{})
	if len(buf) < 4 || buf[0] != ZPAD || buf[1] != ZPAD || buf[2] != ZDLE || buf[3] != ZHEX {
		t.Fatalf("hex header missing ZPAD ZPAD ZDLE ZHEX prefix: %v", buf)
	}
	if buf[len(buf)-3] != '\r' || buf[len(buf)-2] != '\n' {
		t.Errorf("hex header should end in CRLF before the trailing XON: %v", buf)
	}
	if buf[len(buf)-1] != XON {
		t.Errorf("ZRINIT hex header should carry a trailing XON: %v", buf)
	}
}

func TestEncodeHexHeaderOmitsXONForAckAndFin(t *testing.T) {
	ack := encodeHexHeader(ZACK, Header{})
	if ack[len(ack)-1] == XON {
		t.Error("ZACK hex header should not carry a trailing XON")
	}
	fin := encodeHexHeader(ZFIN, Header{})
	if fin[len(fin)-1] == XON {
		t.Error("ZFIN hex header should not carry a trailing XON")
	}
	rinit := encodeHexHeader(ZRINIT, Header{})
	if rinit[len(rinit)-1] != XON {
		t.Error("ZRINIT hex header should carry a trailing XON")
	}
}

func TestEncodeBin16HeaderRoundTripsThroughSession(t *testing.T) {
	tab := buildEscapeTable(false, false)
	hdr := stohdr(42)
	buf := encodeBin16Header(ZFILE, hdr, &tab)

	host := &recordingHost{}
	s := NewSession(host)
	if err := s.StartReceive(); err != nil {
		t.Fatalf("StartReceive: %v", err)
	}
	host.xmits = nil // discard the ZRINIT sent by StartReceive
	if err := s.Feed(buf); err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if s.state != stateRFileName {
		t.Errorf("state after ZFILE header = %d, want stateRFileName", s.state)
	}
}

// recordingHost is a Host that discards file callbacks but records
// every byte slice handed to Xmit and every Status event, for tests
// that need to observe what a Session writes to its transport or
// reports to its embedder.
type recordingHost struct {
	xmits    [][]byte
	statuses []StatusKind
}

func (h *recordingHost) Xmit(p []byte) error {
	cp := append([]byte(nil), p...)
	h.xmits = append(h.xmits, cp)
	return nil
}
func (h *recordingHost) IFlush() {}
func (h *recordingHost) OFlush() {}
func (h *recordingHost) FileSize(name string) (int64, bool) { return 0, false }
func (h *recordingHost) FileOpen(name string, size, offset int64) (FileHandle, error) {
	return nil, nil
}
func (h *recordingHost) FileRead(handle FileHandle, p []byte) (int, error) { return 0, nil }
func (h *recordingHost) FileWrite(handle FileHandle, p []byte) error       { return nil }
func (h *recordingHost) FileSeek(handle FileHandle, offset int64) error    { return nil }
func (h *recordingHost) FileClose(handle FileHandle) error { return nil }
func (h *recordingHost) Status(kind StatusKind, count int, payload any) {
	h.statuses = append(h.statuses, kind)
}
func (h *recordingHost) IdleBytes(p []byte) {}
