package zmodem

// YMODEM fallback: used when a peer answers a ZRQINIT/ZRINIT exchange
// with a bare 'C' (CRC mode), 'G' (streaming CRC mode) or NAK (plain
// checksum mode) instead of a ZRINIT header, matching the IdleChar
// downgrade in the original.
//
// This engine implements YMODEM batch: a block-0 header (filename,
// size) precedes each file, and data blocks follow framed as SOH/STX,
// block number, its complement, payload, then CRC-16 or an 8-bit
// checksum depending on what the transfer negotiated. The receiver
// accepts 128-byte (SOH) and 1024-byte (STX) blocks and treats a
// zero-length block 0 as the end of the batch. The sender sends every
// block, block 0 included, as a 1024-byte STX block padded with CPMEOF,
// and ends its session after the EOT handshake without sending a
// zero-length block 0.

const (
	ymodemBlockSize      = 1024
	ymodemShortBlockSize = 128
)

// yRecvState holds the YMODEM receiver's in-progress block assembly,
// kept separate from the ZMODEM fields it otherwise shares a Session
// with.
type yRecvState struct {
	useCRC      bool
	blockSize   int
	buf         []byte
	blockNum    byte
	phase       int // 0=SOH/STX,1=blockNum,2=blockNumComplement,3=data,4=crc1,5=crc2
	pos         int
	sawFirstEOT bool
}

func (s *Session) yRcvStart() error {
	s.yRecv = &yRecvState{useCRC: true}
	return s.host.Xmit([]byte{'C'})
}

func (s *Session) yRcvTimeout() error {
	if s.timeoutCount > 10 {
		return NewError(ErrRecvTimeout, "YMODEM receive timed out")
	}
	if s.yRecv != nil && s.yRecv.useCRC {
		return s.host.Xmit([]byte{'C'})
	}
	return s.host.Xmit([]byte{NAK})
}

// yRecvChar consumes one byte of an inbound YMODEM block.
func (s *Session) yRecvChar(c byte) error {
	if s.yRecv == nil {
		s.yRecv = &yRecvState{useCRC: true}
	}
	yr := s.yRecv

	switch yr.phase {
	case 0:
		switch c {
		case SOH:
			yr.blockSize = ymodemShortBlockSize
			yr.phase = 1
		case STX:
			yr.blockSize = ymodemBlockSize
			yr.phase = 1
		case EOT:
			// Classic XMODEM/YMODEM double-EOT handshake: the first EOT
			// gets a NAK instead of an ACK; only a second EOT actually
			// ends the transfer.
			if !yr.sawFirstEOT {
				yr.sawFirstEOT = true
				return s.host.Xmit([]byte{NAK})
			}
			s.state = stateDone
			return s.host.Xmit([]byte{ACK})
		case CAN:
			return NewError(ErrCancelled, "sender cancelled YMODEM transfer")
		}
		return nil
	case 1:
		yr.blockNum = c
		yr.phase = 2
		return nil
	case 2:
		// complement of block number, ignored beyond framing position
		yr.buf = make([]byte, 0, yr.blockSize)
		yr.phase = 3
		return nil
	case 3:
		yr.buf = append(yr.buf, c)
		if len(yr.buf) == yr.blockSize {
			yr.phase = 4
		}
		return nil
	case 4:
		yr.pos = int(c)
		yr.phase = 5
		if !yr.useCRC {
			return s.yBlockComplete(yr)
		}
		return nil
	case 5:
		yr.phase = 0
		return s.yBlockComplete(yr)
	}
	return nil
}

func (s *Session) yBlockComplete(yr *yRecvState) error {
	if yr.blockNum == 0 {
		if len(yr.buf) == 0 || yr.buf[0] == 0 {
			s.state = stateDone
			return s.host.Xmit([]byte{ACK})
		}
		info, err := parseFileMetadata(yr.buf)
		if err != nil {
			return s.host.Xmit([]byte{NAK})
		}
		handle, err := s.host.FileOpen(info.Name, info.Size, 0)
		if err != nil {
			return s.host.Xmit([]byte{NAK})
		}
		s.file = &transferFile{handle: handle, name: info.Name, size: info.Size}
		s.host.Status(StatusFileStart, 0, info)
		s.progress.Start(info.Name, info.Size)
		return s.host.Xmit([]byte{ACK, 'C'})
	}

	if s.file != nil {
		n := len(yr.buf)
		if s.file.size > 0 && s.file.offset+int64(n) > s.file.size {
			n = int(s.file.size - s.file.offset)
		}
		if n > 0 {
			if err := s.host.FileWrite(s.file.handle, yr.buf[:n]); err != nil {
				return NewError(ErrIO, err.Error())
			}
			s.file.offset += int64(n)
			s.progress.Update(s.file.offset)
		}
	}
	return s.host.Xmit([]byte{ACK})
}

// ySendChar drives the YMODEM send side; c is whatever byte the
// receiver just sent (typically 'C', 'G', NAK, or ACK).
func (s *Session) ySendChar(c byte) error {
	switch c {
	case 'C', NAK:
		// A NAK that answers our first EOT isn't a request to restart
		// block zero: it's the receiver's half of the classic double-EOT
		// handshake, asking for the EOT to be repeated.
		if c == NAK && s.yEOTCount == 1 {
			s.yEOTCount = 2
			return s.host.Xmit([]byte{EOT})
		}
		return s.ySendBlockZero(c == 'C')
	case 'G':
		return s.ySendBlockZero(true)
	case ACK:
		if s.yEOTCount == 2 {
			s.yEOTCount = 0
			return Done
		}
		return s.ySendNextBlock()
	case CAN:
		return NewError(ErrCancelled, "receiver cancelled YMODEM transfer")
	}
	return nil
}

func (s *Session) ySendBlockZero(useCRC bool) error {
	if s.file == nil {
		return s.host.Xmit([]byte{EOT})
	}
	info := FileInfo{Name: s.file.name, Size: s.file.size}
	meta := buildFileMetadata(info)
	s.ySendBlock = 1
	return s.sendYmodemBlock(0, meta, useCRC)
}

func (s *Session) ySendNextBlock() error {
	if s.file == nil {
		return nil
	}
	buf := make([]byte, ymodemBlockSize)
	n, err := s.host.FileRead(s.file.handle, buf)
	if n == 0 || err != nil {
		s.host.FileClose(s.file.handle)
		s.progress.Complete()
		s.host.Status(StatusFileComplete, 0, FileInfo{Name: s.file.name, Size: s.file.offset})
		s.file = nil
		s.yEOTCount = 1
		return s.host.Xmit([]byte{EOT})
	}
	s.file.offset += int64(n)
	s.progress.Update(s.file.offset)
	block := s.ySendBlock
	s.ySendBlock++
	return s.sendYmodemBlock(block, buf[:n], true)
}

func (s *Session) sendYmodemBlock(blockNum byte, payload []byte, useCRC bool) error {
	padded := make([]byte, ymodemBlockSize)
	copy(padded, payload)
	for i := len(payload); i < len(padded); i++ {
		padded[i] = 0x1a // CPMEOF pad
	}

	out := make([]byte, 0, ymodemBlockSize+8)
	out = append(out, STX, blockNum, ^blockNum)
	out = append(out, padded...)

	if useCRC {
		crc := uint16(0)
		for _, b := range padded {
			crc = updateCRC16(crc, b)
		}
		fin := finalizeCRC16(crc)
		out = append(out, fin[0], fin[1])
	} else {
		sum := byte(0)
		for _, b := range padded {
			sum += b
		}
		out = append(out, sum)
	}
	return s.host.Xmit(out)
}
