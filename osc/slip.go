package osc

import (
	"errors"
	"io"

	"github.com/Lobaro/slip"
	"github.com/rs/zerolog"
)

// SLIPReader reads OSC packets framed with SLIP (RFC 1055), the stream
// framing of OSC 1.1.
type SLIPReader struct {
	r   *slip.Reader
	dec *Decoder
	log zerolog.Logger
}

// NewSLIPReader returns a SLIPReader reading from r.
func NewSLIPReader(r io.Reader, opts ...StreamOption) *SLIPReader {
	cfg := newStreamConfig(opts)
	return &SLIPReader{
		r:   slip.NewReader(r),
		dec: NewDecoder(cfg.limits),
		log: cfg.logger,
	}
}

// ReadPacket returns the next SLIP encoded packet. Empty SLIP frames are
// skipped. It returns io.EOF when the stream ends between frames.
func (s *SLIPReader) ReadPacket() (Packet, error) {
	for {
		data, err := s.readFrame()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		if max := s.dec.Limits.MaxFrameSize; max > 0 && len(data) > max {
			return nil, &DecodeError{Err: ErrFrameTooLarge}
		}
		p, err := s.dec.Parse(data)
		if err != nil {
			s.log.Debug().Err(err).Int("frame", len(data)).Msg("osc: malformed slip frame")
			return nil, err
		}
		s.log.Debug().Int("frame", len(data)).Msg("osc: decoded slip frame")
		return p, nil
	}
}

func (s *SLIPReader) readFrame() ([]byte, error) {
	var frame []byte
	for {
		p, isPrefix, err := s.r.ReadPacket()
		frame = append(frame, p...)
		if err != nil {
			if errors.Is(err, io.EOF) && len(frame) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if !isPrefix {
			return frame, nil
		}
	}
}

// SLIPWriter writes OSC packets framed with SLIP.
type SLIPWriter struct {
	w   *slip.Writer
	log zerolog.Logger
}

// NewSLIPWriter returns a SLIPWriter writing to w.
func NewSLIPWriter(w io.Writer, opts ...StreamOption) *SLIPWriter {
	cfg := newStreamConfig(opts)
	return &SLIPWriter{w: slip.NewWriter(w), log: cfg.logger}
}

// WritePacket encodes p and writes it as one SLIP frame.
func (s *SLIPWriter) WritePacket(p Packet) error {
	b, err := Encode(p)
	if err != nil {
		return err
	}
	if err := s.w.WritePacket(b); err != nil {
		return err
	}
	s.log.Debug().Int("frame", len(b)).Msg("osc: wrote slip frame")
	return nil
}
