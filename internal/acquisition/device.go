// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"bufio"
	"context"
	"io"
	"log"
	"strings"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"

	"github.com/relabs-tech/ringdrop/internal/errs"
	"github.com/relabs-tech/ringdrop/internal/trial"
)

// Commands understood by the apparatus firmware.
const (
	CmdStart = "START"
	CmdDrop  = "DROP"
)

// PortOptions describes the serial link to the apparatus.
type PortOptions struct {
	PortName    string
	BaudRate    int
	ReadTimeout time.Duration // a read returns empty after this much silence
	SettleDelay time.Duration // the ESP32 reboots when the port opens
}

// OpenPort opens the serial port with a per-read timeout and waits for the
// board to come out of reset.
func OpenPort(opts PortOptions) (io.ReadWriteCloser, error) {
	serialOpts := serial.OpenOptions{
		PortName:              opts.PortName,
		BaudRate:              uint(opts.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: uint(opts.ReadTimeout / time.Millisecond),
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", opts.PortName)
	}
	log.Printf("acquire: serial port opened on %s at %d baud", opts.PortName, opts.BaudRate)

	if opts.SettleDelay > 0 {
		time.Sleep(opts.SettleDelay)
	}
	return port, nil
}

// Device speaks the line protocol of the drop apparatus: one command per
// line out, free-form log lines and one JSON object per trial back.
type Device struct {
	port        io.ReadWriter
	reader      *bufio.Reader
	maxAttempts int
}

// NewDevice wraps an open port. maxAttempts bounds how many lines (including
// empty reads after a timeout) ReadRecord consumes before giving up.
func NewDevice(port io.ReadWriter, maxAttempts int) *Device {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Device{
		port:        port,
		reader:      bufio.NewReader(port),
		maxAttempts: maxAttempts,
	}
}

// Send writes one command line.
func (d *Device) Send(cmd string) error {
	if _, err := io.WriteString(d.port, cmd+"\n"); err != nil {
		return errors.Wrapf(err, "send %s", cmd)
	}
	return nil
}

// DiscardInput drops everything read from the port but not yet consumed.
func (d *Device) DiscardInput() {
	d.reader.Reset(d.port)
}

// ReadRecord reads lines until one of them is a JSON object that decodes as
// a trial record, and returns its raw bytes and decoded form.
//
// Every read that does not complete a record counts as one attempt: a
// timeout, a log line, or a line that looks like JSON but does not parse.
// After maxAttempts the call fails with errs.ErrDeviceTimeout. A line split by
// a timeout is stitched back together.
func (d *Device) ReadRecord(ctx context.Context) ([]byte, trial.Record, error) {
	var pending strings.Builder

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, trial.Record{}, err
		}

		chunk, err := d.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, trial.Record{}, errors.Wrap(err, "serial read")
		}
		pending.WriteString(chunk)
		if err != nil {
			// timed out, possibly mid-line
			continue
		}

		line := strings.TrimSpace(pending.String())
		pending.Reset()
		if line == "" {
			continue
		}
		log.Printf("acquire: RAW > %s", abbreviate(line, 120))

		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}
		rec, err := trial.Parse([]byte(line))
		if err != nil {
			log.Printf("acquire: discarding line: %v", err)
			continue
		}
		return []byte(line), rec, nil
	}

	return nil, trial.Record{}, errors.Wrapf(errs.ErrDeviceTimeout,
		"no valid record after %d reads", d.maxAttempts)
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
