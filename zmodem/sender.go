package zmodem

import (
	"os"
	"time"
)

// Send-side action functions, invoked by stateTables via
// protocolDispatch. Each mirrors a function from the original's
// send-side state tables (SendRinit equivalent, GotFileData handling
// the inbound ZRPOS, SendMoreFileData driven from Tick).

// SendFile begins offering a file to the peer: builds and sends the
// ZFILE header plus its metadata subpacket, and waits for the
// receiver's ZRPOS (or ZSKIP/ZCRC) before streaming data.
func (s *Session) SendFile(host Host, name string, size int64, mtime int64, mode uint32, filesLeft int, bytesLeft int64) error {
	handle, err := host.FileOpen(name, size, 0)
	if err != nil {
		return NewError(ErrNoFile, err.Error())
	}
	s.file = &transferFile{handle: handle, name: name, size: size}
	s.progress.Start(name, size)

	meta := buildFileMetadata(FileInfo{
		Name: name, Size: size,
		ModTime: time.Unix(mtime, 0), Mode: os.FileMode(mode),
		FilesLeft: filesLeft, BytesLeft: bytesLeft,
	})
	s.state = stateFileWait
	if err := s.xmitHdr(ZFILE, Header{}); err != nil {
		return err
	}
	terminator := byte(ZCRCW)
	return s.host.Xmit(encodeDataSubpacket(meta, terminator, s.use32BitCRC, &s.escapeTable))
}

// Finish tells the peer there are no more files: it sends the closing
// ZFIN and waits for the receiver's own ZFIN in reply before the
// session is done.
func (s *Session) Finish() error {
	s.state = stateTFinish
	return s.xmitHdrHex(ZFIN, Header{})
}

// gotPeerZFIN answers the receiver's closing ZFIN with the "OO"
// trailer that signals the link is free, then ends the session.
func (s *Session) gotPeerZFIN() error {
	if err := s.host.Xmit([]byte("OO")); err != nil {
		return err
	}
	return Done
}

// gotRPOS handles a ZRPOS header: the receiver wants data starting at
// the given offset (0 for a fresh start, nonzero to resume). It seeks
// the file if necessary, opens a ZDATA frame at that offset, and begins
// streaming.
func (s *Session) gotRPOS(hdr Header, crcGood bool) error {
	if s.file == nil {
		return protocolFailure(s, hdr, crcGood)
	}
	offset := int64(rclhdr(hdr))
	if offset != s.file.offset {
		if err := s.host.FileSeek(s.file.handle, offset); err != nil {
			return NewError(ErrIO, err.Error())
		}
		s.file.offset = offset
	}
	s.state = stateSending
	if err := s.xmitHdr(ZDATA, stohdr(uint32(offset))); err != nil {
		return err
	}
	return s.sendMoreFileData()
}

// gotSendAck handles a ZACK in SendWait: the receiver has caught up
// with the ZCRCW that ended the previous frame, so a new ZDATA frame is
// opened at the current offset and streaming continues.
// protocolDispatch has already moved the state to stateSending via the
// table entry by the time this runs.
func (s *Session) gotSendAck(hdr Header, crcGood bool) error {
	if s.file == nil {
		return nil
	}
	if err := s.xmitHdr(ZDATA, stohdr(uint32(s.file.offset))); err != nil {
		return err
	}
	return s.sendMoreFileData()
}

// gotFileAcked handles the ZACK that answers our ZEOF: the receiver
// has confirmed the whole file arrived, so close it out and report
// completion. The caller's Status handler is responsible for offering
// the next file or calling Finish if there isn't one.
func (s *Session) gotFileAcked(hdr Header, crcGood bool) error {
	if s.file == nil {
		return nil
	}
	s.host.FileClose(s.file.handle)
	s.progress.Complete()
	s.host.Status(StatusFileComplete, 0, FileInfo{Name: s.file.name, Size: s.file.offset})
	s.file = nil
	return nil
}

// gotSkip handles a ZSKIP: the receiver declined this file.
func (s *Session) gotSkip(hdr Header, crcGood bool) error {
	if s.file != nil {
		s.host.FileClose(s.file.handle)
		s.file = nil
	}
	s.state = stateTStart
	return nil
}

// sendMoreFileData sends the next data subpacket of the open ZDATA
// frame: one BlockSize chunk read from the host at the file's current
// offset. It sends one subpacket per call (gotRPOS, gotSendAck and Tick
// in stateSending drive the stream), ending it with ZCRCG (keep
// streaming) unless the configured window is exhausted or Attention
// fired (ZCRCW, wait for ZACK). At EOF it closes the frame with an
// empty ZCRCE subpacket followed by a ZEOF header.
func (s *Session) sendMoreFileData() error {
	if s.file == nil {
		return nil
	}
	blockSize := s.config.BlockSize
	if blockSize <= 0 {
		blockSize = 1024
	}

	buf := make([]byte, blockSize)
	n, err := s.host.FileRead(s.file.handle, buf)
	if n == 0 || err != nil {
		if err := s.host.Xmit(encodeDataSubpacket(nil, ZCRCE, s.use32BitCRC, &s.escapeTable)); err != nil {
			return err
		}
		s.state = stateSendEof
		return s.xmitHdr(ZEOF, stohdr(uint32(s.file.offset)))
	}

	terminator := byte(ZCRCG)
	s.txWindow += uint(n)
	if s.interrupted.Load() {
		terminator = ZCRCW
		s.interrupted.Store(false)
	} else if s.config.WindowSize > 0 && s.txWindow >= s.config.WindowSize {
		terminator = ZCRCW
	}
	if err := s.host.Xmit(encodeDataSubpacket(buf[:n], terminator, s.use32BitCRC, &s.escapeTable)); err != nil {
		return err
	}
	s.file.offset += int64(n)
	s.progress.Update(s.file.offset)

	if terminator == ZCRCW {
		s.txWindow = 0
		s.state = stateSendWait
		return nil
	}
	return nil
}
