package receipt

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"shoe_pos/internal/config"
)

// Printer sends a rendered ESC/POS job somewhere.
type Printer interface {
	Print(job []byte) error
	Name() string
}

// sink opens a fresh connection or file handle per job.
type sink struct {
	name string
	open func() (io.WriteCloser, error)
}

func (s sink) Name() string { return s.name }

func (s sink) Print(job []byte) error {
	w, err := s.open()
	if err != nil {
		return fmt.Errorf("printer %s: %w", s.name, err)
	}
	if _, err := w.Write(job); err != nil {
		_ = w.Close()
		return fmt.Errorf("printer %s: %w", s.name, err)
	}
	return w.Close()
}

// NewFilePrinter appends every job to path, creating its directory.
func NewFilePrinter(path string) Printer {
	return sink{name: "file:" + path, open: func() (io.WriteCloser, error) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	}}
}

func newDevicePrinter(device string) Printer {
	return sink{name: "usb:" + device, open: func() (io.WriteCloser, error) {
		return os.OpenFile(device, os.O_WRONLY, 0)
	}}
}

// newNetworkPrinter talks raw TCP, usually port 9100.
func newNetworkPrinter(addr string) Printer {
	return sink{name: "network:" + addr, open: func() (io.WriteCloser, error) {
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err != nil {
			return nil, err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn, nil
	}}
}

type noPrinter struct{}

func (noPrinter) Print([]byte) error { return nil }
func (noPrinter) Name() string       { return "none" }

func NewNullPrinter() Printer { return noPrinter{} }

// Attached reports whether jobs sent to p reach a real printer.
func Attached(p Printer) bool {
	if p == nil {
		return false
	}
	_, none := p.(noPrinter)
	return !none
}

// NewPrinter picks the printer named by printer_type.
func NewPrinter(cfg config.Config) (Printer, error) {
	switch cfg.PrinterType {
	case "", "none":
		return NewNullPrinter(), nil
	case "usb":
		return withTarget(cfg.PrinterUSBPath, "printer_usb_path", newDevicePrinter)
	case "network":
		return withTarget(cfg.PrinterAddress, "printer_address", newNetworkPrinter)
	case "file":
		return withTarget(cfg.PrinterFile, "printer_file", NewFilePrinter)
	default:
		return nil, fmt.Errorf("printer: unknown printer type %q (use usb, network, file or none)", cfg.PrinterType)
	}
}

func withTarget(target, key string, build func(string) Printer) (Printer, error) {
	if target == "" {
		return nil, fmt.Errorf("printer: %s is required", key)
	}
	return build(target), nil
}
