// Command zrecv receives files offered by a ZMODEM sender over
// stdin/stdout, the same pipe-oriented usage as the original rz.
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
	verbose   = flag.Bool("v", false, "verbose mode")
	quiet     = flag.Bool("q", false, "quiet mode")
	overwrite = flag.Bool("y", false, "overwrite existing files")
	protect   = flag.Bool("p", false, "protect existing files")
	escape    = flag.Bool("e", false, "escape control characters")
	timeout   = flag.Int("t", 100, "timeout in tenths of seconds")
	help      = flag.Bool("h", false, "show help")
	version   = flag.Bool("version", false, "show version")
)

const versionString = "zrecv version 0.1.0"

func main() {
	flag.Parse()

	if *help {
		showUsage(0)
	}
	if *version {
		fmt.Println(versionString)
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := signalContext(sigChan)
	defer cancel()

	infoChan := make(chan os.Signal, 1)
	signal.Notify(infoChan, syscall.SIGUSR1)

	// Raw mode keeps the line discipline from intercepting control
	// bytes (XON/XOFF, CAN) the protocol itself needs to see; a no-op
	// when stdin isn't actually a terminal (the common pipe-to-zrecv
	// usage).
	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		oldState, err := term.MakeRaw(stdinFd)
		if err == nil {
			defer term.Restore(stdinFd, oldState)
		}
	}

	out := bufio.NewWriter(os.Stdout)
	local := zmodem.NewLocalHost(out, "")
	local.OnStatus = func(kind zmodem.StatusKind, count int, payload any) {
		logStatus(kind, count, payload)
	}
	host := &protectingHost{LocalHost: local}

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

	if err := session.StartReceive(); err != nil {
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
	switch kind {
	case zmodem.StatusFileStart:
		if info, ok := payload.(zmodem.FileInfo); ok && !*quiet {
			fmt.Fprintf(os.Stderr, "Receiving: %s (%d bytes)\n", filepath.Base(info.Name), info.Size)
		}
	case zmodem.StatusFileComplete:
		if info, ok := payload.(zmodem.FileInfo); ok && !*quiet {
			fmt.Fprintf(os.Stderr, "Completed: %s (%d bytes)\n", filepath.Base(info.Name), info.Size)
		}
	case zmodem.StatusFileProgress:
		if info, ok := payload.(zmodem.FileInfo); ok && *verbose && !*quiet {
			fmt.Fprintf(os.Stderr, "\r%s: %d/%d bytes (%.0f B/s)", filepath.Base(info.Name), info.Size-info.BytesLeft, info.Size, info.TransferRate)
		}
	case zmodem.StatusProtocolError:
		if *verbose && !*quiet {
			fmt.Fprintf(os.Stderr, "protocol error on frame %d\n", count)
		}
	case zmodem.StatusRemoteCancel:
		if !*quiet {
			fmt.Fprintf(os.Stderr, "remote cancelled the transfer\n")
		}
	case zmodem.StatusYModemFallback:
		if !*quiet {
			fmt.Fprintf(os.Stderr, "falling back to YMODEM\n")
		}
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

// protectingHost wraps LocalHost to honor -y/-p before a file is
// truncated: LocalHost.FileOpen itself has no overwrite policy, so this
// is where -p's "leave existing files alone" and -y's "always
// overwrite" semantics are enforced.
type protectingHost struct {
	*zmodem.LocalHost
}

func (h *protectingHost) FileOpen(name string, size int64, offset int64) (zmodem.FileHandle, error) {
	if offset == 0 && *protect && !*overwrite {
		if _, err := os.Stat(name); err == nil {
			return nil, zmodem.NewError(zmodem.ErrFileSkipped, "existing file protected")
		}
	}
	return h.LocalHost.FileOpen(name, size, offset)
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
	fmt.Fprintf(os.Stderr, `%s - receive files with the ZMODEM protocol

Usage: %s [options]

Options:
  -e             escape control characters
  -h             show this help message
  -p             protect existing files
  -q             quiet mode, minimal output
  -t N           timeout in tenths of seconds (default: 100)
  -v             verbose mode
  -y             overwrite existing files
  --version      show version

Examples:
  %s                receive files from stdin
  %s -v             verbose mode
`, versionString, os.Args[0], os.Args[0], os.Args[0])
	os.Exit(exitCode)
}
