package zmodem

// beginDataSubpacket switches the lexer into data-reading mode and
// resets the running CRC accumulator the way HdrChar's header CRC
// doesn't carry over: a data subpacket's CRC covers only the payload
// and its terminator byte, not the header that introduced it.
func (s *Session) beginDataSubpacket() {
	s.inputState = inData
	s.dataBuf = nil
	s.crcCount = 0
	if s.dataType == ZBIN32 {
		s.crc = 0xffffffff
	} else {
		s.crc = 0
	}
}

func withData(next sessionState, action actionFunc) transition {
	return transition{
		frameType: headerAny,
		next:      next,
		action: func(s *Session, hdr Header, crcGood bool) error {
			s.beginDataSubpacket()
			if action == nil {
				return nil
			}
			return action(s, hdr, crcGood)
		},
	}
}

func forType(frameType int, next sessionState, action actionFunc) transition {
	return transition{frameType: frameType, next: next, action: action}
}

func dataFor(frameType int, next sessionState) transition {
	t := withData(next, nil)
	t.frameType = frameType
	return t
}

// seekToHeaderOffset honors the position a ZDATA header carries: if it
// doesn't match where the file currently sits, seek there first. This
// is what lets a receiver resume mid-file instead of only ever
// appending sequentially.
func seekToHeaderOffset(s *Session, hdr Header, crcGood bool) error {
	if s.file == nil {
		return nil
	}
	offset := int64(rclhdr(hdr))
	if offset != s.file.offset {
		if err := s.host.FileSeek(s.file.handle, offset); err != nil {
			return NewError(ErrIO, err.Error())
		}
		s.file.offset = offset
	}
	return nil
}

// dataForSeek is dataFor plus seekToHeaderOffset, used for the ZDATA
// transitions that must honor the header's offset field.
func dataForSeek(frameType int, next sessionState) transition {
	t := withData(next, seekToHeaderOffset)
	t.frameType = frameType
	return t
}

func fallback(next sessionState, action actionFunc) transition {
	return transition{frameType: headerAny, next: next, action: action}
}

func adaptNoArgs(f func(s *Session) error) actionFunc {
	return func(s *Session, hdr Header, crcGood bool) error { return f(s) }
}

func init() {
	stateTables[stateRStart] = []transition{
		dataFor(ZFILE, stateRFileName),
		dataFor(ZSINIT, stateRSinitWait),
		forType(ZRQINIT, stateRStart, adaptNoArgs((*Session).sendZRINIT)),
		forType(ZFIN, stateRFinish, (*Session).gotZFIN),
		fallback(stateRStart, protocolFailure),
	}

	stateTables[stateRSinitWait] = []transition{
		fallback(stateRStart, protocolFailure),
	}

	stateTables[stateRFileName] = []transition{
		fallback(stateRFileName, protocolFailure),
	}

	stateTables[stateRFile] = []transition{
		dataForSeek(ZDATA, stateRData),
		fallback(stateRFile, protocolFailure),
	}

	stateTables[stateRData] = []transition{
		dataForSeek(ZDATA, stateRData),
		forType(ZEOF, stateRData, (*Session).gotEOF),
		forType(ZFIN, stateRFinish, (*Session).gotZFIN),
		fallback(stateRData, protocolFailure),
	}
	stateTables[stateRDataErr] = stateTables[stateRData]

	stateTables[stateRFinish] = []transition{
		fallback(stateRFinish, protocolFailure),
	}

	notifyPeerReady := func(s *Session, hdr Header, crcGood bool) error {
		s.rxFlags = int(hdr[ZF0])
		// A receiver that didn't advertise CANFC32 can't parse a ZBIN32
		// header or a CRC-32 data subpacket; downgrade even if Config
		// asked for 32-bit CRC, matching sz/rz's own ZRINIT handling.
		s.use32BitCRC = s.config.Use32BitCRC && s.rxFlags&CANFC32 != 0
		s.host.Status(StatusPeerReady, 0, nil)
		return nil
	}
	ignoreHeader := adaptNoArgs(func(s *Session) error { return nil })

	// Send side.
	stateTables[stateTStart] = []transition{
		forType(ZRINIT, stateTStart, notifyPeerReady),
		fallback(stateTStart, protocolFailure),
	}

	stateTables[stateTInit] = []transition{
		forType(ZRINIT, stateTStart, notifyPeerReady),
		fallback(stateTInit, protocolFailure),
	}

	stateTables[stateFileWait] = []transition{
		forType(ZRPOS, stateSending, (*Session).gotRPOS),
		forType(ZSKIP, stateTStart, (*Session).gotSkip),
		forType(ZCRC, stateFileWait, ignoreHeader),
		fallback(stateFileWait, protocolFailure),
	}

	stateTables[stateCrcWait] = stateTables[stateFileWait]

	stateTables[stateSending] = []transition{
		forType(ZRPOS, stateSending, (*Session).gotRPOS),
		forType(ZSKIP, stateTStart, (*Session).gotSkip),
		fallback(stateSending, protocolFailure),
	}

	stateTables[stateSendWait] = []transition{
		forType(ZACK, stateSending, (*Session).gotSendAck),
		forType(ZRPOS, stateSending, (*Session).gotRPOS),
		forType(ZSKIP, stateTStart, (*Session).gotSkip),
		fallback(stateSendWait, protocolFailure),
	}

	stateTables[stateSendDone] = []transition{
		fallback(stateTStart, protocolFailure),
	}

	stateTables[stateSendEof] = []transition{
		forType(ZACK, stateTStart, (*Session).gotFileAcked),
		forType(ZRPOS, stateSending, (*Session).gotRPOS),
		fallback(stateSendEof, protocolFailure),
	}

	stateTables[stateTFinish] = []transition{
		forType(ZFIN, stateDone, adaptNoArgs((*Session).gotPeerZFIN)),
		fallback(stateTFinish, protocolFailure),
	}

	// Command/stderr side channels: refused outright (no remote
	// command execution), matching the original's #ifdef COMMENT'd
	// tables that leave only the ZPF fallback entry live.
	stateTables[stateCommandData] = []transition{fallback(stateCommandData, protocolFailure)}
	stateTables[stateCommandWait] = []transition{fallback(stateCommandWait, protocolFailure)}
	stateTables[stateStderrData] = []transition{fallback(stateStderrData, protocolFailure)}

	stateTables[stateDone] = []transition{
		fallback(stateDone, adaptNoArgs(func(s *Session) error { return Done })),
	}
}
