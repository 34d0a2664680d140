package zmodem

// Tick should be called whenever a configured timeout period has
// elapsed with no bytes received. It drives retransmits, downgrades,
// and terminal timeout errors as the original ZmodemTimeout does, with
// the same single switch over the current state.
func (s *Session) Tick() error {
	s.timeoutCount++

	switch s.state {
	case stateRStart:
		if s.timeoutCount > 4 {
			return s.downshiftToYmodemReceive()
		}
		fallthrough
	case stateRSinitWait, stateRFileName:
		s.host.Status(StatusSendTimeout, s.timeoutCount, nil)
		if s.timeoutCount > 4 {
			return NewError(ErrTimeout, "receiver timed out waiting for header")
		}
		s.state = stateRStart
		return s.sendZRINIT()

	case stateRFile, stateRData, stateRDataErr:
		s.host.Status(StatusSendTimeout, s.timeoutCount, nil)
		if s.timeoutCount > 2 {
			s.timeoutCount = 0
			s.state = stateRStart
			return s.sendZRINIT()
		}
		return s.resendRpos(Header{}, true)

	case stateRFinish:
		s.host.Status(StatusSendTimeout, s.timeoutCount, nil)
		return Done

	case stateTStart, stateTInit, stateFileWait, stateCrcWait,
		stateSendWait, stateSendEof, stateTFinish,
		stateYTStart, stateYTFile, stateYTDataWait, stateYTData, stateYTEOF, stateYTFin:
		s.host.Status(StatusRecvTimeout, s.timeoutCount, nil)
		return NewError(ErrTimeout, "sender timed out waiting for response")

	case stateSending:
		return s.sendMoreFileData()

	case stateCommandData, stateStderrData:
		return NewError(ErrTimeout, "timed out waiting for command/stderr data")

	case stateCommandWait:
		return NewError(ErrCmdTimeout, "remote command timed out")

	case stateYRStart, stateYRDataWait, stateYRData, stateYREOF:
		return s.yRcvTimeout()

	case stateDone:
		return Done
	}
	return nil
}

// downshiftToYmodemReceive switches a stalled ZMODEM receive attempt
// to YMODEM, matching the original's fallback after repeated ZRINIT
// timeouts (the peer may be a plain X/YMODEM sender that never
// understood ZRQINIT).
func (s *Session) downshiftToYmodemReceive() error {
	s.protocol = ProtocolYMODEM
	s.state = stateYRStart
	s.inputState = inYRecv
	s.host.Status(StatusYModemFallback, 0, nil)
	return s.yRcvStart()
}
