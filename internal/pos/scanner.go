package pos

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"
)

const (
	DefaultKeyGap    = 80 * time.Millisecond
	DefaultQuiet     = 100 * time.Millisecond
	DefaultMinLength = 3
)

// Keystroke is one key event. Focused is set when a text field has input
// focus, in which case the key belongs to the field and not to the scanner.
type Keystroke struct {
	Key     rune
	At      time.Time
	Ctrl    bool
	Alt     bool
	Meta    bool
	Focused bool
}

// Scanner separates barcode-scanner bursts from hand typing. Keys closer
// than KeyGap accumulate in a buffer; a gap longer than KeyGap restarts the
// buffer; after Quiet without keys a buffer of at least MinLength runes is a
// completed scan. A carriage return or newline completes the buffer at once.
//
// Scanner is a pure state machine; Run drives it from a channel with a timer.
type Scanner struct {
	KeyGap    time.Duration
	Quiet     time.Duration
	MinLength int

	buf  []rune
	last time.Time
}

func NewScanner() *Scanner {
	return &Scanner{
		KeyGap:    DefaultKeyGap,
		Quiet:     DefaultQuiet,
		MinLength: DefaultMinLength,
	}
}

// Feed consumes one keystroke. It returns a completed scan when k closes
// one: either k is a line terminator, or the quiet period had already run
// out before k arrived.
func (s *Scanner) Feed(k Keystroke) (string, bool) {
	if k.Ctrl || k.Alt || k.Meta || k.Focused {
		return "", false
	}

	var (
		scan string
		ok   bool
	)
	if len(s.buf) > 0 {
		switch gap := k.At.Sub(s.last); {
		case gap >= s.Quiet:
			scan, ok = s.take()
		case gap > s.KeyGap:
			s.buf = s.buf[:0]
		}
	}
	s.last = k.At

	if k.Key == '\r' || k.Key == '\n' {
		if !ok {
			scan, ok = s.take()
		}
		return scan, ok
	}
	s.buf = append(s.buf, k.Key)
	return scan, ok
}

// Flush completes the pending buffer if the quiet period has elapsed at now.
func (s *Scanner) Flush(now time.Time) (string, bool) {
	if len(s.buf) == 0 || now.Sub(s.last) < s.Quiet {
		return "", false
	}
	return s.take()
}

// Deadline is the moment the pending buffer will be flushed.
func (s *Scanner) Deadline() (time.Time, bool) {
	if len(s.buf) == 0 {
		return time.Time{}, false
	}
	return s.last.Add(s.Quiet), true
}

func (s *Scanner) Pending() string {
	return string(s.buf)
}

// take empties the buffer and returns it if it is long enough to be a scan.
func (s *Scanner) take() (string, bool) {
	scan := string(s.buf)
	s.buf = s.buf[:0]
	if len([]rune(scan)) < s.MinLength {
		return "", false
	}
	return scan, true
}

// Run feeds keys into the scanner and sends completed scans to scans until
// ctx is done or keys is closed. A pending buffer is flushed when keys closes.
func (s *Scanner) Run(ctx context.Context, keys <-chan Keystroke, scans chan<- string) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var deadline time.Time
	emit := func(scan string) error {
		select {
		case scans <- scan:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	arm := func() {
		if d, ok := s.Deadline(); ok {
			deadline = d
			timer.Reset(time.Until(d))
		} else {
			timer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case k, ok := <-keys:
			if !ok {
				if scan, ok := s.take(); ok {
					return emit(scan)
				}
				return nil
			}
			if scan, ok := s.Feed(k); ok {
				if err := emit(scan); err != nil {
					return err
				}
			}
			arm()

		case <-timer.C:
			if scan, ok := s.Flush(deadline); ok {
				if err := emit(scan); err != nil {
					return err
				}
			}
			arm()
		}
	}
}

// ReadKeystrokes turns a byte stream from a keyboard-wedge scanner into
// timestamped keystrokes. out is closed when r is exhausted or ctx is done.
func ReadKeystrokes(ctx context.Context, r io.Reader, out chan<- Keystroke) error {
	defer close(out)

	br := bufio.NewReader(r)
	for {
		ch, _, err := br.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		select {
		case out <- Keystroke{Key: ch, At: time.Now()}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
