// Package printer sends receipts to the counter's thermal printer. The
// transport is chosen by PRINTER_TYPE: a USB line-printer device file, a raw
// TCP socket, or none at all.
package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// Printer types accepted in PRINTER_TYPE
const (
	TypeUSB     = "usb"
	TypeNetwork = "network"
	TypeNone    = "none"
)

// raw ESC/POS port on network receipt printers
const defaultRawPort = "9100"

// Config selects and addresses the receipt printer
type Config struct {
	Type    string // PRINTER_TYPE
	USBPath string // PRINTER_USB_PATH, e.g. /dev/usb/lp0
	Address string // PRINTER_ADDRESS, host or host:port
}

// Printer sends one finished ESC/POS receipt per call.
type Printer interface {
	Print(ctx context.Context, receipt []byte) error
	Close() error
	// IsConnected reports whether the device can be reached right now.
	IsConnected() bool
}

// NewPrinterFromConfig builds the printer named by cfg.Type. An empty type
// means no printer.
func NewPrinterFromConfig(cfg Config) (Printer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeUSB:
		if cfg.USBPath == "" {
			return nil, errors.New("printer: PRINTER_USB_PATH is required when PRINTER_TYPE=usb")
		}
		return NewUSBPrinter(cfg.USBPath), nil
	case TypeNetwork:
		if cfg.Address == "" {
			return nil, errors.New("printer: PRINTER_ADDRESS is required when PRINTER_TYPE=network")
		}
		addr, err := withDefaultPort(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("printer: invalid PRINTER_ADDRESS %q: %w", cfg.Address, err)
		}
		return NewNetworkPrinter(addr), nil
	case TypeNone, "":
		return NewNullPrinter(), nil
	default:
		return nil, fmt.Errorf("printer: unknown PRINTER_TYPE %q (use usb, network or none)", cfg.Type)
	}
}

func withDefaultPort(addr string) (string, error) {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr, nil
	}
	host := strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	if host == "" || strings.ContainsAny(host, " /") {
		return "", errors.New("expected host or host:port")
	}
	return net.JoinHostPort(host, defaultRawPort), nil
}

// usbPrinter writes to the line-printer device file
type usbPrinter struct {
	path string
	mu   sync.Mutex
}

// NewUSBPrinter returns a printer writing to a device such as /dev/usb/lp0.
// The device is opened per receipt, so unplugging it between sales is fine.
func NewUSBPrinter(devicePath string) Printer {
	return &usbPrinter{path: devicePath}
}

func (p *usbPrinter) Print(ctx context.Context, receipt []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// receipts must not interleave on paper
	p.mu.Lock()
	defer p.mu.Unlock()

	dev, err := os.OpenFile(p.path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("printer: receipt printer PRINTER_USB_PATH=%s not available: %w", p.path, err)
	}
	defer dev.Close()

	if _, err := dev.Write(receipt); err != nil {
		return fmt.Errorf("printer: receipt to %s cut short: %w", p.path, err)
	}
	return nil
}

func (p *usbPrinter) Close() error { return nil }

func (p *usbPrinter) IsConnected() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// networkPrinter streams receipts to a raw TCP port
type networkPrinter struct {
	address      string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	dialer       net.Dialer
	mu           sync.Mutex
}

// NewNetworkPrinter returns a printer for host:port, usually port 9100.
func NewNetworkPrinter(address string) Printer {
	return &networkPrinter{
		address:      address,
		dialTimeout:  5 * time.Second,
		writeTimeout: 10 * time.Second,
	}
}

func (p *networkPrinter) Print(ctx context.Context, receipt []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dialCtx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("printer: receipt printer PRINTER_ADDRESS=%s unreachable: %w", p.address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(p.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetWriteDeadline(deadline)

	if _, err := conn.Write(receipt); err != nil {
		return fmt.Errorf("printer: receipt to %s cut short: %w", p.address, err)
	}
	return nil
}

func (p *networkPrinter) Close() error { return nil }

func (p *networkPrinter) IsConnected() bool {
	conn, err := net.DialTimeout("tcp", p.address, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// nullPrinter accepts and drops receipts when PRINTER_TYPE=none
type nullPrinter struct{}

// NewNullPrinter returns a printer that discards everything.
func NewNullPrinter() Printer { return nullPrinter{} }

func (nullPrinter) Print(context.Context, []byte) error { return nil }

func (nullPrinter) Close() error { return nil }

func (nullPrinter) IsConnected() bool { return false }
