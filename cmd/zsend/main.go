// Command zsend offers one or more files to a ZMODEM receiver over
// stdin/stdout, the same pipe-oriented usage as the original sz.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fobozz/zmodem-engine/zmodem"
	"golang.org/x/term"
)

var (
	verbose = flag.Bool("v", false, "verbose mode")
	quiet   = flag.Bool("q", false, "quiet mode")
	escape  = flag.Bool("e", false, "escape control characters")
	timeout = flag.Int("t", 100, "timeout in tenths of seconds")
	help    = flag.Bool("h", false, "show help")
	version = flag.Bool("version", false, "show version")
)

const versionString = "zsend version 0.1.0"

func main() {
	flag.Parse()

	if *help {
		showUsage(0)
	}
	if *version {
		fmt.Println(versionString)
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "%s: no files specified\n", os.Args[0])
		showUsage(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := signalContext(sigChan)
	defer cancel()

	infoChan := make(chan os.Signal, 1)
	signal.Notify(infoChan, syscall.SIGUSR1)

	// Raw mode keeps the line discipline from intercepting control
	// bytes (XON/XOFF, CAN) the protocol itself needs to see; a no-op
	// when stdin isn't actually a terminal (the common pipe-to-zsend
	// usage).
	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		oldState, err := term.MakeRaw(stdinFd)
		if err == nil {
			defer term.Restore(stdinFd, oldState)
		}
	}

	out := bufio.NewWriter(os.Stdout)
	host := zmodem.NewLocalHost(out, "")

	config := zmodem.DefaultConfig()
	config.EscapeControl = *escape
	config.Timeout = *timeout

	session := zmodem.NewSession(host, zmodem.WithConfig(config), zmodem.WithContext(ctx))

	go func() {
		for range infoChan {
			name, transferred, total, rate, elapsed := session.Progress()
			if name != "" {
				fmt.Fprintf(os.Stderr, "%s: %d/%d bytes, %.0f B/s, %s elapsed\n",
					name, transferred, total, rate, elapsed.Round(time.Second))
			}
		}
	}()

	type pending struct {
		name      string
		size      int64
		mode      uint32
		filesLeft int
		bytesLeft int64
	}
	queue := make([]pending, 0, len(files))
	var totalBytes int64
	for _, name := range files {
		abs, err := filepath.Abs(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error resolving %s: %v\n", name, err)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error accessing %s: %v\n", name, err)
			continue
		}
		if info.IsDir() {
			fmt.Fprintf(os.Stderr, "skipping directory: %s\n", name)
			continue
		}
		totalBytes += info.Size()
		queue = append(queue, pending{name: abs, size: info.Size(), mode: uint32(info.Mode().Perm())})
	}
	if len(queue) == 0 {
		fmt.Fprintf(os.Stderr, "no valid files to send\n")
		os.Exit(1)
	}
	for i := range queue {
		queue[i].filesLeft = len(queue) - i
		queue[i].bytesLeft = totalBytes
		totalBytes -= queue[i].size
	}

	next := 0
	advance := func() {
		if next >= len(queue) {
			return
		}
		p := queue[next]
		next++
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Sending: %s (%d bytes)\n", filepath.Base(p.name), p.size)
		}
		if err := session.SendFile(host, p.name, p.size, 0, p.mode, p.filesLeft, p.bytesLeft); err != nil {
			fmt.Fprintf(os.Stderr, "error sending %s: %v\n", p.name, err)
		}
	}
	host.OnStatus = func(kind zmodem.StatusKind, count int, payload any) {
		logStatus(kind, count, payload)
		switch kind {
		case zmodem.StatusPeerReady:
			advance()
		case zmodem.StatusFileComplete:
			if next < len(queue) {
				advance()
			} else if err := session.Finish(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}

	if err := session.StartSend(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	out.Flush()

	pump := zmodem.NewPump(&stdinReaderWrapper{os.Stdin}, session, 4096, *timeout)
	if err := pump.Run(ctx); err != nil && err != zmodem.Done {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func logStatus(kind zmodem.StatusKind, count int, payload any) {
	if *quiet {
		return
	}
	switch kind {
	case zmodem.StatusFileComplete:
		if info, ok := payload.(zmodem.FileInfo); ok {
			fmt.Fprintf(os.Stderr, "Completed: %s (%d bytes)\n", filepath.Base(info.Name), info.Size)
		}
	case zmodem.StatusFileProgress:
		if info, ok := payload.(zmodem.FileInfo); ok && *verbose {
			fmt.Fprintf(os.Stderr, "\r%s: %d/%d bytes (%.0f B/s)", filepath.Base(info.Name), info.Size-info.BytesLeft, info.Size, info.TransferRate)
		}
	case zmodem.StatusProtocolError:
		if *verbose {
			fmt.Fprintf(os.Stderr, "protocol error on frame %d\n", count)
		}
	case zmodem.StatusRemoteCancel:
		fmt.Fprintf(os.Stderr, "remote cancelled the transfer\n")
	}
}

func signalContext(sigChan chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}

// stdinReaderWrapper adapts os.Stdin to zmodem.ReaderWithTimeout; stdin
// doesn't support read deadlines, so SetReadDeadline is a no-op and the
// Pump instead relies on the peer keeping the link busy.
type stdinReaderWrapper struct {
	reader *os.File
}

func (r *stdinReaderWrapper) Read(p []byte) (int, error) { return r.reader.Read(p) }

func (r *stdinReaderWrapper) SetReadDeadline(t time.Time) error { return nil }

func showUsage(exitCode int) {
	fmt.Fprintf(os.Stderr, `%s - send files with the ZMODEM protocol

Usage: %s [options] file...

Options:
  -e             escape control characters
  -h             show this help message
  -q             quiet mode, minimal output
  -t N           timeout in tenths of seconds (default: 100)
  -v             verbose mode
  --version      show version

Examples:
  %s file.txt              send a single file
  %s file1.txt file2.txt   send multiple files
`, versionString, os.Args[0], os.Args[0], os.Args[0])
	os.Exit(exitCode)
}
