// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 OpenVelo

package ant

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// CaptureRecord is one decoded frame as stored in a capture file. Records
// are written as a CBOR stream, one map per frame, keyed by small integers
// to keep captures compact on long sessions.
type CaptureRecord struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	MessageID uint8     `cbor:"2,keyasint"`
	Payload   []byte    `cbor:"3,keyasint"`
}

// Frame reconstructs the frame for a record. The checksum is recomputed;
// only checksum-valid frames are ever captured.
func (r *CaptureRecord) Frame() *Frame {
	return &Frame{
		length:    uint8(len(r.Payload)),
		messageID: r.MessageID,
		payload:   r.Payload,
		checksum:  Checksum(uint8(len(r.Payload)), r.MessageID, r.Payload),
		timestamp: r.Timestamp,
	}
}

// captureEncMode keeps sub-second timestamp resolution; the default time
// encoding truncates to whole seconds.
var captureEncMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeUnixMicro}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// CaptureWriter streams decoded frames to a capture file.
type CaptureWriter struct {
	enc *cbor.Encoder
}

// NewCaptureWriter creates a capture writer over w.
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{enc: captureEncMode.NewEncoder(w)}
}

// WriteFrame appends one frame to the capture.
func (cw *CaptureWriter) WriteFrame(f *Frame) error {
	rec := CaptureRecord{
		Timestamp: f.Timestamp(),
		MessageID: f.MessageID(),
		Payload:   f.Payload(),
	}
	if err := cw.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode capture record: %w", err)
	}
	return nil
}

// CaptureReader streams records back out of a capture file.
type CaptureReader struct {
	dec *cbor.Decoder
}

// NewCaptureReader creates a capture reader over r.
func NewCaptureReader(r io.Reader) *CaptureReader {
	return &CaptureReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the capture.
func (cr *CaptureReader) Next() (*CaptureRecord, error) {
	var rec CaptureRecord
	if err := cr.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("decode capture record: %w", err)
	}
	return &rec, nil
}
