package zmodem

import (
	"os"
	"testing"
	"time"
)

func TestFileMetadataRoundTrip(t *testing.T) {
	info := FileInfo{
		Name:      "report.pdf",
		Size:      123456,
		ModTime:   time.Unix(1700000000, 0),
		Mode:      0o644,
		FilesLeft: 2,
		BytesLeft: 654321,
	}
	buf := buildFileMetadata(info)
	got, err := parseFileMetadata(buf)
	if err != nil {
		t.Fatalf("parseFileMetadata: %v", err)
	}
	if got.Name != info.Name {
		t.Errorf("Name = %q, want %q", got.Name, info.Name)
	}
	if got.Size != info.Size {
		t.Errorf("Size = %d, want %d", got.Size, info.Size)
	}
	if got.ModTime.Unix() != info.ModTime.Unix() {
		t.Errorf("ModTime = %v, want %v", got.ModTime, info.ModTime)
	}
	if got.Mode != info.Mode {
		t.Errorf("Mode = %o, want %o", got.Mode, info.Mode)
	}
	if got.FilesLeft != info.FilesLeft {
		t.Errorf("FilesLeft = %d, want %d", got.FilesLeft, info.FilesLeft)
	}
	if got.BytesLeft != info.BytesLeft {
		t.Errorf("BytesLeft = %d, want %d", got.BytesLeft, info.BytesLeft)
	}
}

func TestFileMetadataHasNullTerminatorAfterName(t *testing.T) {
	buf := buildFileMetadata(FileInfo{Name: "x.bin", Size: 10})
	if len(buf) <= len("x.bin") || buf[len("x.bin")] != 0 {
		t.Fatalf("expected null byte immediately after name, got %v", buf)
	}
}

func TestParseFileMetadataMissingNull(t *testing.T) {
	_, err := parseFileMetadata([]byte("nonullhere"))
	if err == nil {
		t.Fatal("expected error for payload with no null terminator")
	}
	zerr, ok := err.(*Error)
	if !ok || zerr.Type != ErrInvalidFrame {
		t.Errorf("expected ErrInvalidFrame, got %v", err)
	}
}

func TestParseFileMetadataDefaultsModeWhenAbsent(t *testing.T) {
	got, err := parseFileMetadata([]byte("noextra.txt\x00"))
	if err != nil {
		t.Fatalf("parseFileMetadata: %v", err)
	}
	if got.Name != "noextra.txt" {
		t.Errorf("Name = %q, want %q", got.Name, "noextra.txt")
	}
	if got.Mode != 0o644 {
		t.Errorf("Mode = %o, want default 0644", got.Mode)
	}
}

func TestParseFileMetadataOctalMode(t *testing.T) {
	got, err := parseFileMetadata([]byte("exe\x001024 0 755 0 1 1024"))
	if err != nil {
		t.Fatalf("parseFileMetadata: %v", err)
	}
	if got.Mode != os.FileMode(0o755) {
		t.Errorf("Mode = %o, want 0755", got.Mode)
	}
	if got.Size != 1024 {
		t.Errorf("Size = %d, want 1024", got.Size)
	}
}
