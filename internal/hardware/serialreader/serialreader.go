package serialreader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"rfid-door-lock/internal/types"
)

// Settings are the adapter settings for a serial-bridged RFID reader, as they
// appear in the reader settings map of the configuration file.
type Settings struct {
	DevicePath string
	BaudRate   int
}

// ParseSettings extracts reader settings from a configuration settings map.
func ParseSettings(settings map[string]interface{}) (Settings, error) {
	s := Settings{BaudRate: 9600}

	if settings != nil {
		if devicePath, ok := settings["devicePath"].(string); ok {
			s.DevicePath = devicePath
		}
		if baudRate, ok := settings["baudRate"].(float64); ok {
			s.BaudRate = int(baudRate)
		}
		if baudRate, ok := settings["baudRate"].(int); ok {
			s.BaudRate = baudRate
		}
	}

	if s.DevicePath == "" {
		return Settings{}, fmt.Errorf("devicePath is required for the serial reader")
	}
	if s.BaudRate <= 0 {
		return Settings{}, fmt.Errorf("baudRate must be positive, got %d", s.BaudRate)
	}
	return s, nil
}

// Reader reads card identifiers from an MFRC522-style reader bridged over a
// serial device node. The wire format is length-prefixed UID frames: one
// length byte (1..10) followed by that many UID bytes. Frames with a length
// outside the valid range are dropped.
//
// The serial line itself is expected to be configured (baud rate, raw mode)
// by the platform before the device node is opened.
type Reader struct {
	logger   *logrus.Entry
	settings Settings

	device io.ReadCloser
	scans  chan types.Identifier

	closeOnce sync.Once
	done      chan struct{}
}

// Open opens the device node and starts the frame reader.
func Open(settings Settings, logger *logrus.Entry) (*Reader, error) {
	device, err := os.Open(settings.DevicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open reader device %s: %w", settings.DevicePath, err)
	}

	r := &Reader{
		logger:   logger,
		settings: settings,
		device:   device,
		scans:    make(chan types.Identifier, 8),
		done:     make(chan struct{}),
	}

	logger.WithFields(logrus.Fields{
		"devicePath": settings.DevicePath,
		"baudRate":   settings.BaudRate,
	}).Info("Serial reader opened")

	go r.readFrames()
	return r, nil
}

// TryRead returns a pending card identifier, if one has arrived since the
// last poll.
func (r *Reader) TryRead(ctx context.Context) (types.Identifier, bool, error) {
	select {
	case id, ok := <-r.scans:
		if !ok {
			return nil, false, fmt.Errorf("reader device %s closed", r.settings.DevicePath)
		}
		return id, true, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
		return nil, false, nil
	}
}

// Close stops the frame reader and releases the device node.
func (r *Reader) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		err = r.device.Close()
	})
	return err
}

// readFrames pumps length-prefixed UID frames from the device into the scan
// channel until the device closes.
func (r *Reader) readFrames() {
	defer close(r.scans)

	br := bufio.NewReader(r.device)
	for {
		length, err := br.ReadByte()
		if err != nil {
			select {
			case <-r.done:
			default:
				r.logger.WithError(err).Warn("Reader device stream ended")
			}
			return
		}

		n := int(length)
		if n < 1 || n > types.MaxIdentifierLen {
			r.logger.WithField("frameLength", n).Warn("Dropping UID frame with invalid length")
			continue
		}

		uid := make([]byte, n)
		if _, err := io.ReadFull(br, uid); err != nil {
			r.logger.WithError(err).Warn("Truncated UID frame")
			return
		}

		id := types.NewIdentifier(uid)
		select {
		case r.scans <- id:
		default:
			// A scan is already pending; the loop has not consumed it yet.
			// Drop the new frame rather than queue stale taps.
			r.logger.WithField("identifier", id.Hex()).Debug("Dropping scan, previous scan still pending")
		}
	}
}
