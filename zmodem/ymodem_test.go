package zmodem

import (
	"bytes"
	"testing"
)

// TestYmodemSendBlockNumbering locks in a fix: ySendNextBlock used to
// hardcode block 1 on every call instead of advancing, which would
// desync a multi-block YMODEM transfer against any real receiver.
func TestYmodemSendBlockNumbering(t *testing.T) {
	content := bytes.Repeat([]byte{0x41}, ymodemBlockSize*3)
	host := newMemHost()
	host.source["a.bin"] = content

	s := NewSession(host)
	handle, err := host.FileOpen("a.bin", int64(len(content)), 0)
	if err != nil {
		t.Fatalf("FileOpen: %v", err)
	}
	s.file = &transferFile{handle: handle, name: "a.bin", size: int64(len(content))}

	if err := s.ySendBlockZero(true); err != nil {
		t.Fatalf("ySendBlockZero: %v", err)
	}
	if len(host.outbox) != 1 || host.outbox[0][1] != 0 {
		t.Fatalf("block-0 header should carry block number 0, got %v", host.outbox)
	}

	for _, want := range []byte{1, 2, 3} {
		host.outbox = nil
		if err := s.ySendChar(ACK); err != nil {
			t.Fatalf("ySendChar(ACK): %v", err)
		}
		if len(host.outbox) != 1 {
			t.Fatalf("expected exactly one frame sent, got %d", len(host.outbox))
		}
		got := host.outbox[0][1]
		if got != want {
			t.Errorf("block number = %d, want %d", got, want)
		}
	}

	// File exhausted: the next ACK should end the transfer with EOT,
	// not another data block.
	host.outbox = nil
	if err := s.ySendChar(ACK); err != nil {
		t.Fatalf("ySendChar(ACK) at EOF: %v", err)
	}
	if len(host.outbox) != 1 || host.outbox[0][0] != EOT {
		t.Errorf("expected a single EOT frame after the last block, got %v", host.outbox)
	}
}
