// Package zmodem implements a byte-driven, push-style ZMODEM (plus YMODEM
// fallback) file-transfer protocol engine.
//
// The engine owns no transport of its own: a host feeds it inbound bytes
// through Session.Feed, delivers timer ticks through Session.Tick, and the
// engine drives the host's Xmit/file-I/O/Status callbacks (see Host in
// callbacks.go) in response. None of the engine's entry points block.
package zmodem

// Frame format indicators
const (
	// ZPAD is the padding character that begins frames
	ZPAD = '*'

	// ZDLE is the ZModem escape character (Ctrl-X)
	ZDLE = 0x18

	// ZDLEE is the escaped ZDLE as transmitted
	ZDLEE = ZDLE ^ 0x40

	// ZBIN indicates a binary frame with 16-bit CRC
	ZBIN = 'A'

	// ZHEX indicates a hex-encoded frame
	ZHEX = 'B'

	// ZBIN32 indicates a binary frame with 32-bit CRC
	ZBIN32 = 'C'
)

// Frame types (see frametypes array in zm.c)
const (
	ZRQINIT = iota // Request receive init
	ZRINIT         // Receive init
	ZSINIT         // Send init sequence (optional)
	ZACK           // ACK to above
	ZFILE          // File name from sender
	ZSKIP          // To sender: skip this file
	ZNAK           // Last packet was garbled
	ZABORT         // Abort batch transfers
	ZFIN           // Finish session
	ZRPOS          // Resume data trans at this position
	ZDATA          // Data packet(s) follow
	ZEOF           // End of file
	ZFERR          // Fatal Read or Write error Detected
	ZCRC           // Request for file CRC and response
	ZCHALLENGE     // Receiver's Challenge
	ZCOMPL         // Request is complete
	ZCAN           // Other end canned session with CAN*5
	ZFREECNT       // Request for free bytes on filesystem
	ZCOMMAND       // Command from sending program
	ZSTDERR        // Output to standard error, data follows
)

// ZDLE sequences
const (
	// ZCRCE - CRC next, frame ends, header packet follows
	ZCRCE = 'h'

	// ZCRCG - CRC next, frame continues nonstop
	ZCRCG = 'i'

	// ZCRCQ - CRC next, frame continues, ZACK expected
	ZCRCQ = 'j'

	// ZCRCW - CRC next, ZACK expected, end of frame
	ZCRCW = 'k'

	// ZRUB0 - Translate to rubout 0177
	ZRUB0 = 'l'

	// ZRUB1 - Translate to rubout 0377
	ZRUB1 = 'm'
)

// Byte positions within header array
const (
	// ZF0-ZF3 are flag bytes (ZF0 is first flags byte)
	ZF0 = 3
	ZF1 = 2
	ZF2 = 1
	ZF3 = 0

	// ZP0-ZP3 are position bytes (ZP0 is low order, ZP3 is high order)
	ZP0 = 0 // Low order 8 bits of position
	ZP1 = 1
	ZP2 = 2
	ZP3 = 3 // High order 8 bits of file position
)

// Bit masks for the ZRINIT flags byte ZF0
const (
	CANFDX  = 0x01 // Rx can send and receive true FDX
	CANOVIO = 0x02 // Rx can receive data during disk I/O
	CANBRK  = 0x04 // Rx can send a break signal
	CANCRY  = 0x08 // Receiver can decrypt
	CANLZW  = 0x10 // Receiver can uncompress
	CANFC32 = 0x20 // Receiver can use 32 bit Frame Check
	ESCCTL  = 0x40 // Receiver expects ctl chars to be escaped
	ESC8    = 0x80 // Receiver expects 8th bit to be escaped
)

// Bit masks for the ZRINIT flags byte ZF1
const (
	ZF1CanVHdr  = 0x01 // Variable headers OK, unused in lrzsz
	ZF1TimeSync = 0x02 // nonstandard, receiver request timesync
)

// ZATTNLEN is the max length of an attention string carried in ZSINIT
const ZATTNLEN = 32

// Bit masks for the ZSINIT flags byte ZF0
const (
	TESCCTL = 0x40 // Transmitter expects ctl chars to be escaped
	TESC8   = 0x80 // Transmitter expects 8th bit to be escaped
)

// Conversion options, one of these in ZF0 of a ZFILE header
const (
	ZCBIN   = 1 // Binary transfer - inhibit conversion
	ZCNL    = 2 // Convert NL to local end of line convention
	ZCRESUM = 3 // Resume interrupted file transfer
)

// Management include option, ored into ZF1 of a ZFILE header
const ZF1ZMSKNoLoc = 0x80 // Skip file if not present at rx

// Management options, one of these ored into ZF1 of a ZFILE header
const (
	ZF1ZMMask  = 0x1f // Mask for the choices below
	ZF1ZMNewL  = 1    // Transfer if source newer or longer
	ZF1ZMCRC   = 2    // Transfer if different file CRC or length
	ZF1ZMApnd  = 3    // Append contents to existing file (if any)
	ZF1ZMClob  = 4    // Replace existing file
	ZF1ZMNew   = 5    // Transfer if source newer
	ZF1ZMDiff  = 6    // Transfer if dates or lengths different
	ZF1ZMProt  = 7    // Protect destination file
	ZF1ZMChng  = 8    // Change filename if destination exists
)

// Transport options, one of these in ZF2 of a ZFILE header
const (
	ZTLZW   = 1 // Lempel-Ziv compression
	ZTCrypt = 2 // Encryption
	ZTRLE   = 3 // Run length encoding
)

// ZXSpars, extended option for ZF3, encodes sparse file operations
const ZXSpars = 64

// ZCAck1 acknowledges a ZCOMMAND, then asks the sender to run it
const ZCAck1 = 1

// EPERM is the errno value this engine reports in a ZCOMPL reply to a
// ZCOMMAND: remote command execution is always refused.
const EPERM = 1

// Ward Christensen / CP/M parameters - don't change these
const (
	ENQ     = 0x05
	CAN     = 'X' & 0x1F
	XOFF    = 's' & 0x1F
	XON     = 'q' & 0x1F
	SOH     = 0x01
	STX     = 0x02
	EOT     = 0x04
	ACK     = 0x06
	NAK     = 0x15
	CPMEOF  = 0x1A
	WANTCRC = 0x43 // send C not NAK to get crc not checksum
	WANTG   = 0x47 // Send G not NAK to get nonstop batch xmsn
)

// frametypes provides human-readable names for frame types, used for
// debugging and logging.
var frametypes = []string{
	"ZRQINIT",
	"ZRINIT",
	"ZSINIT",
	"ZACK",
	"ZFILE",
	"ZSKIP",
	"ZNAK",
	"ZABORT",
	"ZFIN",
	"ZRPOS",
	"ZDATA",
	"ZEOF",
	"ZFERR",
	"ZCRC",
	"ZCHALLENGE",
	"ZCOMPL",
	"ZCAN",
	"ZFREECNT",
	"ZCOMMAND",
	"ZSTDERR",
}

// FrameTypeName returns the human-readable name for a frame type.
// Returns "UNKNOWN" for invalid frame types.
func FrameTypeName(frameType int) string {
	if frameType < 0 || frameType >= len(frametypes) {
		return "UNKNOWN"
	}
	return frametypes[frameType]
}
