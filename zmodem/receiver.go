package zmodem

// Receive-side action functions, invoked by stateTables via
// protocolDispatch/dataReceived. Each mirrors a function from the
// original's receive-side state tables (GotFileName, GotFileData, ...),
// adapted from blocking calls into callbacks driven by the byte FSM.

// sendZRINIT announces this engine's receive capabilities: full
// duplex, overlapped I/O, and (if configured) 32-bit CRC.
func (s *Session) sendZRINIT() error {
	flags := CANFDX | CANOVIO
	if s.use32BitCRC {
		flags |= CANFC32
	}
	var hdr Header
	hdr[ZF0] = byte(flags)
	return s.xmitHdrHex(ZRINIT, hdr)
}

// gotSinitData receives the attention string from a ZSINIT exchange;
// the receiver has no use for it beyond acknowledging, since it never
// emits raw terminal bytes of its own that would need an attention
// sequence to interrupt.
func (s *Session) gotSinitData(data []byte, crcGood bool) error {
	if !crcGood {
		return s.xmitHdrHex(ZNAK, Header{})
	}
	s.state = stateRStart
	return s.xmitHdr(ZACK, Header{})
}

// gotFileName receives a ZFILE data subpacket: the filename plus
// size/mtime/mode metadata. It opens the destination file and requests
// data starting at the appropriate offset (0, or a resume point a host
// policy could supply).
func (s *Session) gotFileName(data []byte, crcGood bool) error {
	if !crcGood {
		s.state = stateRStart
		return s.xmitHdrHex(ZNAK, Header{})
	}

	info, err := parseFileMetadata(data)
	if err != nil {
		s.state = stateRStart
		return s.xmitHdrHex(ZNAK, Header{})
	}

	// A partial destination file shorter than the incoming one is
	// resumed from where it left off rather than restarted at 0.
	var offset int64
	if existing, ok := s.host.FileSize(info.Name); ok && existing < info.Size {
		offset = existing
	}

	handle, err := s.host.FileOpen(info.Name, info.Size, offset)
	if err != nil {
		s.state = stateRStart
		return s.xmitHdr(ZSKIP, Header{})
	}

	s.file = &transferFile{handle: handle, name: info.Name, size: info.Size, mode: info.Mode, offset: offset}
	s.host.Status(StatusFileStart, 0, info)
	s.progress.Start(info.Name, info.Size)

	s.state = stateRFile
	return s.xmitHdr(ZRPOS, stohdr(uint32(offset)))
}

// gotFileData receives one data subpacket's payload once its CRC has
// been checked. A bad CRC asks the sender to resend from the last
// confirmed offset; a good one is written to the file and, depending
// on the subpacket terminator, either keeps reading the same ZDATA
// frame (ZCRCG/ZCRCQ) or waits for the sender's next header
// (ZCRCE/ZCRCW) — acking first if the sender asked for one (ZCRCW/Q).
func (s *Session) gotFileData(data []byte, crcGood bool) error {
	if s.file == nil {
		return protocolFailure(s, Header{}, crcGood)
	}
	if !crcGood {
		s.inputState = inIdle
		return s.xmitHdr(ZRPOS, stohdr(uint32(s.file.offset)))
	}

	if err := s.host.FileWrite(s.file.handle, data); err != nil {
		return NewError(ErrIO, err.Error())
	}
	s.file.offset += int64(len(data))
	s.progress.Update(s.file.offset)

	switch s.packetType {
	case ZCRCG:
		s.beginDataSubpacket()
		return nil
	case ZCRCQ:
		s.beginDataSubpacket()
		return s.xmitHdr(ZACK, stohdr(uint32(s.file.offset)))
	case ZCRCW:
		s.inputState = inIdle
		return s.xmitHdr(ZACK, stohdr(uint32(s.file.offset)))
	default: // ZCRCE
		s.inputState = inIdle
		return nil
	}
}

// gotEOF finishes the current file: closes it, reports completion, and
// returns to RStart to offer ZRINIT again for the next file (or a
// ZFIN if the sender has nothing left, handled by the RStart table).
func (s *Session) gotEOF(hdr Header, crcGood bool) error {
	if s.file == nil {
		return s.sendZRINIT()
	}
	pos := rclhdr(hdr)
	if int64(pos) != s.file.offset {
		// Sender and receiver disagree on how much arrived; ask again.
		return s.xmitHdr(ZRPOS, stohdr(uint32(s.file.offset)))
	}
	s.host.FileClose(s.file.handle)
	s.progress.Complete()
	s.host.Status(StatusFileComplete, 0, FileInfo{Name: s.file.name, Size: s.file.offset})
	s.file = nil
	s.state = stateRStart
	if err := s.xmitHdr(ZACK, stohdr(uint32(pos))); err != nil {
		return err
	}
	return s.sendZRINIT()
}

// gotZFIN answers the sender's ZFIN with our own, then expects the
// "OO" trailer the sender sends to close out the link.
func (s *Session) gotZFIN(hdr Header, crcGood bool) error {
	s.inputState = inFinish
	s.chrCount = 0
	s.state = stateRFinish
	return s.xmitHdrHex(ZFIN, Header{})
}

func (s *Session) resendRpos(hdr Header, crcGood bool) error {
	offset := int64(0)
	if s.file != nil {
		offset = s.file.offset
	}
	return s.xmitHdr(ZRPOS, stohdr(uint32(offset)))
}
