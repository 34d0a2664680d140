package zmodem

// Special actions that apply identically no matter which per-state
// table is active, grounded on the original's AnswerChallenge/
// GotAbort/GotCancel/GotCommand/GotStderr (zmodem.cpp lines ~723-769):
// the original's state tables repeat the same row for these frame
// types in nearly every table rather than route them through the
// per-state action list, so protocolDispatch checks for them before
// consulting stateTables at all.

// dispatchSpecial handles a header frame type that every state answers
// the same way, regardless of the session's current state. It reports
// whether frameType was one of those and, if so, the result of
// handling it.
func (s *Session) dispatchSpecial(frameType int, hdr Header) (bool, error) {
	switch frameType {
	case ZCHALLENGE:
		return true, s.answerChallenge(hdr)
	case ZABORT:
		return true, s.gotAbort()
	case ZCAN:
		return true, s.gotCancel()
	case ZCOMMAND:
		return true, s.gotCommand()
	case ZSTDERR:
		return true, s.gotStderr()
	}
	return false, nil
}

// answerChallenge replies to a ZCHALLENGE by echoing its four data
// bytes back in a ZACK, proving this end is actually receiving what
// the peer sends (and not, say, talking to its own echo).
func (s *Session) answerChallenge(hdr Header) error {
	return s.xmitHdrHex(ZACK, hdr)
}

// gotAbort answers a ZABORT header (the peer asked to abandon the
// session cleanly, as opposed to a raw CAN-run) with our own ZFIN and
// a RemoteCancel status; grounded on the original's GotAbort, which
// replies without forcing any particular next state, leaving whatever
// state is current to handle the closing ZFIN exchange on its own.
func (s *Session) gotAbort() error {
	s.host.Status(StatusRemoteCancel, 0, nil)
	return s.xmitHdrHex(ZFIN, Header{})
}

// gotCancel handles a ZCAN header the same way a CAN*5 run does: the
// peer gave up, so this end does too.
func (s *Session) gotCancel() error {
	s.host.Status(StatusRemoteCancel, 0, nil)
	return NewError(ErrCancelled, "remote cancelled (ZCAN)")
}

// gotCommand refuses a ZCOMMAND outright: this engine never executes a
// remote command, so every request gets EPERM in a ZCOMPL reply.
func (s *Session) gotCommand() error {
	return s.xmitHdrHex(ZCOMPL, Header{EPERM, 0, 0, 0})
}

// gotStderr expects a data subpacket carrying text the peer wants
// logged to the host's stderr-equivalent; the subpacket is delivered
// through dataReceived once its CRC is checked (see awaitingStderr on
// Session).
func (s *Session) gotStderr() error {
	s.awaitingStderr = true
	s.beginDataSubpacket()
	return nil
}

// gotStderrData finishes a ZSTDERR exchange: the message text is
// handed to the host as a RemoteMessage status event. A bad CRC is
// simply dropped, matching the original's GotStderrData which never
// even takes a crcGood argument.
func (s *Session) gotStderrData(data []byte, crcGood bool) error {
	s.awaitingStderr = false
	if !crcGood {
		return nil
	}
	s.host.Status(StatusRemoteMessage, len(data), string(data))
	return nil
}
