package zmodem

// inputState tracks what Feed is currently lexing: idle noise, a header
// in progress, a data subpacket in progress, the "OO" trailer after a
// finished transfer, or one of the YMODEM byte loops.
type inputState int

const (
	inIdle inputState = iota
	inHeader
	inData
	inFinish
	inYSend
	inYRecv
)

const maxNoise = 4096

// Feed delivers bytes received from the remote end to the session. It
// never blocks: every byte is classified and dispatched synchronously,
// driving Host callbacks as frames complete. Feed is not reentrant and
// must not be called from multiple goroutines concurrently; Attention
// is the only entry point meant to be called while a Feed call is in
// progress (e.g. from a signal handler).
func (s *Session) Feed(buf []byte) error {
	for _, c := range buf {
		if c == CAN {
			s.cancelCount++
			if s.cancelCount >= 5 {
				s.host.Status(StatusRemoteCancel, 0, nil)
				return NewError(ErrCancelled, "remote cancelled (CAN*5)")
			}
		} else {
			s.cancelCount = 0
		}

		switch s.inputState {
		case inYSend:
			if err := s.ySendChar(c); err != nil {
				return err
			}
			continue
		case inYRecv:
			if err := s.yRecvChar(c); err != nil {
				return err
			}
			continue
		}

		if c == XON || c == XOFF {
			continue
		}

		var err error
		switch s.inputState {
		case inIdle:
			err = s.idleChar(c)
		case inHeader:
			err = s.hdrChar(c)
		case inData:
			err = s.dataChar(c)
		case inFinish:
			err = s.finishChar(c)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// idleChar looks for the ZPAD ZDLE sequence introducing a header. A
// run of ZPAD bytes is tolerated (real links sometimes double them up);
// anything else outside of a header is handed to the host as idle
// noise, except while sending, where it is only counted and more than
// maxNoise bytes of it set waitFlag.
func (s *Session) idleChar(c byte) error {
	if s.chrCount == 0 {
		switch {
		case c == ZPAD:
			s.chrCount++
		case s.state == stateSending:
			s.noiseCount++
			if s.noiseCount > maxNoise {
				s.waitFlag = true
			}
		case s.state == stateTStart && (c == 'C' || c == 'G' || c == NAK):
			s.state = stateYTStart
			s.inputState = inYSend
			s.protocol = ProtocolYMODEM
			return s.ySendChar(c)
		default:
			s.host.IdleBytes([]byte{c})
		}
		return nil
	}

	switch c {
	case ZPAD:
		s.chrCount++
	case ZDLE:
		s.inputState = inHeader
		s.chrCount = 0
		s.escape = false
	default:
		for s.chrCount > 0 {
			s.host.IdleBytes([]byte{'*'})
			s.chrCount--
		}
		s.chrCount = 0
	}
	return nil
}

// hdrChar consumes one byte of a header (hex or binary), verifying the
// header's CRC once complete and dispatching to the state table via
// dispatch. The trailing "++info->chrCount; break;" in the original C
// runs on every iteration except the early-return paths below; this is
// preserved intentionally rather than "fixed", since chrCount doubles
// as the position within hdrData for ZBIN/ZBIN32 and must keep
// counting even on iterations that don't act on the header yet.
func (s *Session) hdrChar(c byte) error {
	if c == ZDLE {
		s.escape = true
		return nil
	}
	if s.escape {
		s.escape = false
		c = unescapeByte(c)
	}

	if s.chrCount == 0 {
		switch c {
		case ZHEX, ZBIN, ZBIN32:
			s.dataType = c
			s.chrCount = 1
			if c != ZBIN32 {
				s.crc = 0
			} else {
				s.crc = 0xffffffff
			}
			s.hdrRaw = [9]byte{}
		default:
			s.inputState = inIdle
			s.chrCount = 0
			return s.xmitHdrHex(ZNAK, Header{})
		}
		return nil
	}

	// hdrRaw[0] is the frame type byte, hdrRaw[1:5] the position/flag
	// bytes, hdrRaw[5:7] (ZBIN) or hdrRaw[5:9] (ZBIN32) the trailing CRC
	// bytes. Only the first 7 bytes matter for ZHEX, which is always
	// CRC-16.
	switch s.dataType {
	case ZHEX:
		if s.chrCount <= 14 && hexDigitValue(c) < 0 {
			s.inputState = inIdle
			s.chrCount = 0
			return s.xmitHdrHex(ZNAK, Header{})
		}
		if s.chrCount <= 14 {
			i := (s.chrCount - 1) / 2
			nibble := byte(hexDigitValue(c))
			if (s.chrCount-1)%2 == 0 {
				s.hdrRaw[i] = nibble << 4
			} else {
				s.hdrRaw[i] |= nibble
			}
		}
		if s.chrCount == 16 {
			crc := uint16(0)
			for i := 0; i < 7; i++ {
				crc = updateCRC16(crc, s.hdrRaw[i])
			}
			s.inputState = inIdle
			s.chrCount = 0
			if crc&0xffff != 0 {
				return s.xmitHdrHex(ZNAK, Header{})
			}
			return s.protocolDispatch()
		}
		s.chrCount++
	case ZBIN:
		s.hdrRaw[s.chrCount-1] = c
		s.crc = uint32(updateCRC16(uint16(s.crc), c))
		s.chrCount++
		if s.chrCount > 7 {
			s.inputState = inIdle
			s.chrCount = 0
			if uint16(s.crc)&0xffff != 0 {
				return s.xmitHdrHex(ZNAK, Header{})
			}
			return s.protocolDispatch()
		}
	case ZBIN32:
		s.hdrRaw[s.chrCount-1] = c
		s.crc = updateCRC32(s.crc, c)
		s.chrCount++
		if s.chrCount > 9 {
			s.inputState = inIdle
			s.chrCount = 0
			if s.crc != CRC32CheckValue {
				return s.xmitHdrHex(ZNAK, Header{})
			}
			return s.protocolDispatch()
		}
	}
	return nil
}

// dataChar consumes one byte of a data subpacket, watching for the
// ZDLE-escaped terminator (ZCRCE/G/Q/W) that ends it and folding every
// byte (including the terminator) into the running CRC.
func (s *Session) dataChar(c byte) error {
	if c == ZDLE {
		s.escape = true
		return nil
	}
	if s.escape {
		s.escape = false
		if isDataTerminator(c) {
			s.packetType = c
			if s.dataType == ZBIN32 {
				s.crcCount = 4
			} else {
				s.crcCount = 2
			}
			if s.dataType == ZBIN {
				s.crc = uint32(updateCRC16(uint16(s.crc), c))
			} else {
				s.crc = updateCRC32(s.crc, c)
			}
			return nil
		}
		c = unescapeByte(c)
	}

	switch s.dataType {
	case ZBIN:
		s.crc = uint32(updateCRC16(uint16(s.crc), c))
		if s.crcCount == 0 {
			s.dataBuf = append(s.dataBuf, c)
		} else {
			s.crcCount--
			if s.crcCount == 0 {
				return s.dataReceived(uint16(s.crc)&0xffff == 0)
			}
		}
	case ZBIN32:
		s.crc = updateCRC32(s.crc, c)
		if s.crcCount == 0 {
			s.dataBuf = append(s.dataBuf, c)
		} else {
			s.crcCount--
			if s.crcCount == 0 {
				return s.dataReceived(s.crc == CRC32CheckValue)
			}
		}
	}
	return nil
}

// finishChar waits for the "OO" trailer a sender emits after the last
// ZFIN exchange, signaling the session is fully done.
func (s *Session) finishChar(c byte) error {
	if c == 'O' {
		s.chrCount++
		if s.chrCount >= 2 {
			return Done
		}
	} else {
		s.chrCount = 0
	}
	return nil
}
