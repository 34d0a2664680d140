package zmodem

import (
	"context"
	"os"
	"sync/atomic"
	"time"
)

// Role distinguishes which side of a transfer a Session drives.
type Role int

const (
	RoleSender Role = iota
	RoleReceiver
)

// Protocol names which wire protocol a Session is currently speaking.
// A Session starts in ProtocolZMODEM. A sender-role Session falls back
// to ProtocolYMODEM if the peer answers its ZRQINIT with a plain C/G/NAK
// instead of a ZRINIT header; a receiver-role Session falls back after
// repeated ZRINIT timeouts (see Tick).
type Protocol int

const (
	ProtocolZMODEM Protocol = iota
	ProtocolYMODEM
)

// Config holds the negotiable and tunable parameters of a Session.
type Config struct {
	Use32BitCRC   bool
	EscapeControl bool
	TurboEscape   bool

	// Timeout is the per-tick timeout budget, in tenths of a second,
	// matching the original's timeout units.
	Timeout int

	WindowSize   uint
	BlockSize    int
	MaxBlockSize int
	ZNulls       int

	Attention []byte

	ProgressInterval time.Duration
}

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() *Config {
	return &Config{
		Use32BitCRC:      true,
		EscapeControl:    false,
		TurboEscape:      false,
		Timeout:          100,
		WindowSize:       0,
		BlockSize:        1024,
		MaxBlockSize:     8192,
		ZNulls:           0,
		Attention:        []byte{0x03, 0x8e, 0},
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Option configures a Session at construction time.
type Option func(*Session)

func WithConfig(config *Config) Option {
	return func(s *Session) { s.config = config }
}

func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.ctx = ctx }
}

func WithSessionLogger(logger Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// Session is a byte-driven ZMODEM/YMODEM engine. It owns no transport:
// a Host supplies outbound I/O and file access, and the caller feeds
// inbound bytes through Feed and periodic ticks through Tick.
type Session struct {
	host   Host
	config *Config
	logger Logger
	ctx    context.Context

	role     Role
	protocol Protocol
	state    sessionState

	inputState inputState
	escape     bool
	dataType   byte

	chrCount    int
	noiseCount  int
	cancelCount int
	crc         uint32
	hdrRaw      [9]byte
	dataBuf     []byte
	packetType  byte
	crcCount    int

	// awaitingStderr is set by gotStderr and checked by dataReceived: a
	// ZSTDERR exchange reads a data subpacket without changing s.state,
	// the same way the original's GotStderr/GotStderrData pair works.
	awaitingStderr bool

	timeoutCount int
	waitFlag     bool
	// interrupted records that Attention() fired; it is read and cleared
	// from sendMoreFileData and written from Attention, which a host may
	// call from a signal handler concurrently with Feed/Tick, so it is
	// an atomic.Bool rather than a plain bool.
	interrupted atomic.Bool
	use32BitCRC bool
	escapeTable  [256]escapeClass

	// transfer context
	file     *transferFile
	txWindow uint
	rxFlags  int

	progress   *ProgressTracker
	yRecv      *yRecvState
	ySendBlock byte
	// yEOTCount tracks the classic double-EOT handshake on the YMODEM
	// send side: 0 before EOT is sent, 1 after the first EOT (awaiting
	// the receiver's NAK), 2 after the repeated EOT (awaiting the ACK
	// that actually ends the transfer).
	yEOTCount int
}

// transferFile carries per-file state while a ZFILE/ZDATA exchange is
// in progress.
type transferFile struct {
	handle   FileHandle
	name     string
	size     int64
	mtime    int64
	mode     os.FileMode
	offset   int64
	crc32    uint32
}

// NewSession creates a Session bound to host, ready to act as either
// sender or receiver once StartSend/StartReceive is called.
func NewSession(host Host, opts ...Option) *Session {
	s := &Session{
		host:   host,
		config: DefaultConfig(),
		ctx:    context.Background(),
		logger: NoopLogger{},
		state:  stateRStart,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.use32BitCRC = s.config.Use32BitCRC
	s.escapeTable = buildEscapeTable(s.config.EscapeControl, false)
	s.progress = NewProgressTracker(func(name string, transferred, total int64, rate float64) {
		s.host.Status(StatusFileProgress, 0, FileInfo{Name: name, Size: total, BytesLeft: total - transferred, TransferRate: rate})
	}, s.config.ProgressInterval)
	return s
}

// StartReceive puts the Session into receive mode and sends the
// initial ZRINIT advertising this engine's capabilities.
func (s *Session) StartReceive() error {
	s.role = RoleReceiver
	s.protocol = ProtocolZMODEM
	s.state = stateRStart
	s.inputState = inIdle
	return s.sendZRINIT()
}

// StartSend puts the Session into send mode and sends the initial
// ZRQINIT, requesting the peer's ZRINIT.
func (s *Session) StartSend() error {
	s.role = RoleSender
	s.protocol = ProtocolZMODEM
	s.state = stateTStart
	s.inputState = inIdle
	return s.host.Xmit(encodeHexHeader(ZRQINIT, Header{}))
}

// Attention notifies the Session that the remote end's attention
// sequence arrived out of band (e.g. observed directly by a host
// watching the raw stream). It is meant to be called concurrently with
// Feed from an interrupt or signal context: it sets an atomic flag that
// sendMoreFileData observes on its next call and, while the session is
// sending, asks the host to flush output.
func (s *Session) Attention() {
	if s.state == stateSending {
		s.host.OFlush()
	}
	s.interrupted.Store(true)
}

// Progress reports the current transfer's filename, bytes moved,
// total size, average rate since the file started, and elapsed
// duration, straight from
// the session's ProgressTracker. A host can poll this from a signal
// handler (e.g. SIGINFO/SIGUSR1) to print a status line on demand
// instead of waiting for the next StatusFileProgress event.
func (s *Session) Progress() (filename string, transferred, total int64, rate float64, duration time.Duration) {
	return s.progress.GetStats()
}

// Abort cancels the session immediately, sending a CAN*8 BS*10
// sequence so the remote end recognizes the abort even mid-frame.
func (s *Session) Abort() error {
	s.state = stateDone
	s.host.IFlush()
	s.host.OFlush()
	abortSeq := []byte{CAN, CAN, CAN, CAN, CAN, CAN, CAN, CAN, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8}
	return s.host.Xmit(abortSeq)
}
