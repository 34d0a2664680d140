package zmodem

import (
	"bytes"
	"io"
	"testing"
)

// memFile is an in-memory FileHandle: a read cursor over pre-loaded
// content on the sending side, or an append-only buffer on the
// receiving side.
type memFile struct {
	name string
	data []byte
	pos  int
}

// memHost is a Host that exchanges frames through an in-memory outbox
// instead of a real transport, and serves file content from (or
// captures it into) an in-memory map keyed by name. onStatus mirrors
// LocalHost.OnStatus so tests can react to StatusPeerReady/
// StatusFileComplete the same way cmd/zsend does.
type memHost struct {
	outbox   [][]byte
	source   map[string][]byte
	received map[string][]byte
	statuses []StatusKind
	onStatus func(kind StatusKind, payload any)
}

func newMemHost() *memHost {
	return &memHost{source: map[string][]byte{}, received: map[string][]byte{}}
}

func (h *memHost) Xmit(p []byte) error {
	h.outbox = append(h.outbox, append([]byte(nil), p...))
	return nil
}
func (h *memHost) IFlush() {}
func (h *memHost) OFlush() {}

// FileSize reports the size of whatever content already sits at name,
// whether that's the source being sent or a prior partial receive —
// letting a test simulate a resumed transfer by pre-seeding received.
func (h *memHost) FileSize(name string) (int64, bool) {
	if data, ok := h.source[name]; ok {
		return int64(len(data)), true
	}
	if data, ok := h.received[name]; ok {
		return int64(len(data)), true
	}
	return 0, false
}

func (h *memHost) FileOpen(name string, size int64, offset int64) (FileHandle, error) {
	if data, ok := h.source[name]; ok {
		return &memFile{name: name, data: data, pos: int(offset)}, nil
	}
	existing := append([]byte(nil), h.received[name]...)
	return &memFile{name: name, data: existing, pos: int(offset)}, nil
}

func (h *memHost) FileRead(handle FileHandle, p []byte) (int, error) {
	f := handle.(*memFile)
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func (h *memHost) FileWrite(handle FileHandle, p []byte) error {
	f := handle.(*memFile)
	f.data = append(f.data, p...)
	return nil
}

func (h *memHost) FileSeek(handle FileHandle, offset int64) error {
	f := handle.(*memFile)
	f.pos = int(offset)
	return nil
}

func (h *memHost) FileClose(handle FileHandle) error {
	f := handle.(*memFile)
	if _, isSource := h.source[f.name]; !isSource {
		h.received[f.name] = f.data
	}
	return nil
}

func (h *memHost) Status(kind StatusKind, count int, payload any) {
	h.statuses = append(h.statuses, kind)
	if h.onStatus != nil {
		h.onStatus(kind, payload)
	}
}

func (h *memHost) IdleBytes(p []byte) {}

// pumpLoopback alternately drains each side's outbox into the other's
// Feed until both report Done or no bytes moved in a round.
func pumpLoopback(t *testing.T, send, recv *Session, sendHost, recvHost *memHost) {
	t.Helper()
	sendDone, recvDone := false, false
	for round := 0; round < 1000 && !(sendDone && recvDone); round++ {
		outbound := sendHost.outbox
		sendHost.outbox = nil
		for _, pkt := range outbound {
			if recvDone {
				break
			}
			switch err := recv.Feed(pkt); {
			case err == Done:
				recvDone = true
			case err != nil:
				t.Fatalf("receiver Feed error: %v", err)
			}
		}

		inbound := recvHost.outbox
		recvHost.outbox = nil
		for _, pkt := range inbound {
			if sendDone {
				break
			}
			switch err := send.Feed(pkt); {
			case err == Done:
				sendDone = true
			case err != nil:
				t.Fatalf("sender Feed error: %v", err)
			}
		}

		// A streaming ZCRCG window doesn't wait for an ACK between
		// chunks; in real use a Pump calls Tick on every idle-read
		// timeout to keep it flowing, so the loopback drives the same
		// call here rather than deadlocking with data never sent.
		if send.state == stateSending {
			if err := send.Tick(); err != nil && err != Done {
				t.Fatalf("sender Tick error: %v", err)
			}
			continue
		}

		if len(outbound) == 0 && len(inbound) == 0 && len(sendHost.outbox) == 0 && len(recvHost.outbox) == 0 {
			break
		}
	}
	if !sendDone || !recvDone {
		t.Fatalf("loopback did not reach completion: sendDone=%v recvDone=%v", sendDone, recvDone)
	}
}

// TestSessionLoopbackSingleFile drives a full ZMODEM exchange between
// two in-process Sessions: ZRQINIT/ZRINIT negotiation, a ZFILE offer,
// streamed ZDATA, ZEOF, and the closing ZFIN/"OO" handshake, the same
// sequence cmd/zsend and cmd/zrecv drive over a real pipe.
func TestSessionLoopbackSingleFile(t *testing.T) {
	content := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 200)
	const name = "memo.txt"

	sendHost := newMemHost()
	sendHost.source[name] = content
	recvHost := newMemHost()

	send := NewSession(sendHost)
	recv := NewSession(recvHost)

	offered := false
	sendHost.onStatus = func(kind StatusKind, payload any) {
		switch kind {
		case StatusPeerReady:
			// A ZRINIT can legitimately arrive more than once (e.g. a
			// resend triggered by a stray ZRQINIT); only offer the file
			// the first time, the same guard cmd/zsend's queue cursor
			// provides in the real CLI.
			if offered {
				return
			}
			offered = true
			if err := send.SendFile(sendHost, name, int64(len(content)), 0, 0o644, 1, int64(len(content))); err != nil {
				t.Fatalf("SendFile: %v", err)
			}
		case StatusFileComplete:
			if err := send.Finish(); err != nil {
				t.Fatalf("Finish: %v", err)
			}
		}
	}
	if err := recv.StartReceive(); err != nil {
		t.Fatalf("StartReceive: %v", err)
	}
	if err := send.StartSend(); err != nil {
		t.Fatalf("StartSend: %v", err)
	}

	pumpLoopback(t, send, recv, sendHost, recvHost)

	hasStatus := func(statuses []StatusKind, want StatusKind) bool {
		for _, s := range statuses {
			if s == want {
				return true
			}
		}
		return false
	}
	if !hasStatus(sendHost.statuses, StatusFileComplete) {
		t.Error("sender never reported StatusFileComplete")
	}
	if !hasStatus(recvHost.statuses, StatusFileComplete) {
		t.Error("receiver never reported StatusFileComplete")
	}

	got, ok := recvHost.received[name]
	if !ok {
		t.Fatalf("receiver never closed %s", name)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("received content mismatch: got %d bytes, want %d bytes", len(got), len(content))
	}
}
