package zmodem

// sessionState names every protocol state the engine can be in, mirroring
// the original state machine: receive-side states (RStart..RFinish),
// send-side states (TStart..TFinish), the command/stderr side-channels
// (never actually driven, see below), Done, and the YMODEM mirror states.
type sessionState int

const (
	stateRStart sessionState = iota
	stateRSinitWait
	stateRFileName
	stateRFile
	stateRData
	stateRDataErr
	stateRFinish

	stateTStart
	stateTInit
	stateFileWait
	stateCrcWait
	stateSending
	stateSendWait
	stateSendDone
	stateSendEof
	stateTFinish

	stateCommandData
	stateCommandWait
	stateStderrData
	stateDone

	stateYTStart
	stateYRStart
	stateYRDataWait
	stateYRData
	stateYREOF
	stateYTFile
	stateYTDataWait
	stateYTData
	stateYTEOF
	stateYTFin
)

type actionFunc func(s *Session, hdr Header, crcGood bool) error

// transition is one entry of a state's dispatch table: which inbound
// frame type it matches (or headerAny as the catch-all), the action to
// run, whether to flush pending input/output first, and the state to
// move to before running the action.
type transition struct {
	frameType int
	action    actionFunc
	iflush    bool
	oflush    bool
	next      sessionState
}

// headerAny is the fallback entry every state table ends with, matching
// the original's "{99, ...}" sentinel row.
const headerAny = 99

// protocolFailure logs a protocol error and stays put; grounded on the
// original's ZPF(), which every unhandled-header table entry falls
// through to.
func protocolFailure(s *Session, hdr Header, crcGood bool) error {
	s.waitFlag = true
	s.host.Status(StatusProtocolError, int(frameTypeOf(s.hdrRaw)), nil)
	return nil
}

func frameTypeOf(raw [9]byte) int { return int(raw[0]) }

func headerOf(raw [9]byte) Header {
	return Header{raw[1], raw[2], raw[3], raw[4]}
}

// stateTables maps each sessionState to its transition list. It is
// populated in statetables.go's init() to keep this file's dispatch
// logic separate from the per-state wiring.
var stateTables = map[sessionState][]transition{}

// protocolDispatch runs once a complete, CRC-good header has been
// decoded into s.hdrRaw. It looks up the transition matching the
// header's frame type (or the any-type fallback) in the table for the
// current state, performs the requested flushes, transitions state,
// and invokes the action.
func (s *Session) protocolDispatch() error {
	s.timeoutCount = 0
	s.noiseCount = 0

	frameType := frameTypeOf(s.hdrRaw)
	hdr := headerOf(s.hdrRaw)

	if handled, err := s.dispatchSpecial(frameType, hdr); handled {
		return err
	}

	table := stateTables[s.state]
	var match *transition
	for i := range table {
		if table[i].frameType == headerAny || table[i].frameType == frameType {
			match = &table[i]
			break
		}
	}
	if match == nil {
		return protocolFailure(s, hdr, true)
	}

	s.state = match.next
	if match.iflush {
		s.host.IFlush()
	}
	if match.oflush {
		s.host.OFlush()
	}
	return match.action(s, hdr, true)
}

// dataReceived is invoked once a data subpacket's CRC has been
// verified (or found bad); it dispatches by the current state exactly
// as the original ZDataReceived does. The lexer returns to idle first;
// an action that continues the frame (gotFileData on ZCRCG/ZCRCQ)
// re-enters data mode itself.
func (s *Session) dataReceived(crcGood bool) error {
	data := s.dataBuf
	s.dataBuf = nil
	s.inputState = inIdle
	if s.awaitingStderr {
		return s.gotStderrData(data, crcGood)
	}
	switch s.state {
	case stateRSinitWait:
		return s.gotSinitData(data, crcGood)
	case stateRFileName:
		return s.gotFileName(data, crcGood)
	case stateRData:
		return s.gotFileData(data, crcGood)
	case stateCommandData:
		s.waitFlag = true
		s.host.Status(StatusProtocolError, ZCOMMAND, nil)
		return nil
	case stateStderrData:
		s.waitFlag = true
		s.host.Status(StatusProtocolError, ZSTDERR, nil)
		return nil
	default:
		return protocolFailure(s, Header{}, crcGood)
	}
}

// xmitHdrHex sends a hex-encoded header immediately; used for ZNAK and
// other control responses that must get through regardless of the
// negotiated binary framing.
func (s *Session) xmitHdrHex(frameType int, hdr Header) error {
	return s.host.Xmit(encodeHexHeader(frameType, hdr))
}

// xmitHdr sends a header using the session's negotiated framing
// (ZBIN32 if 32-bit CRC was negotiated, else ZBIN).
func (s *Session) xmitHdr(frameType int, hdr Header) error {
	tab := &s.escapeTable
	var buf []byte
	if s.use32BitCRC {
		buf = encodeBin32Header(frameType, hdr, tab)
	} else {
		buf = encodeBin16Header(frameType, hdr, tab)
	}
	return s.host.Xmit(buf)
}
