package osc

import (
	"errors"
	"io"

	"github.com/rs/zerolog"
)

const readChunkSize = 4096

// StreamOption configures a stream reader or writer.
type StreamOption func(*streamConfig)

type streamConfig struct {
	limits Limits
	logger zerolog.Logger
}

func newStreamConfig(opts []StreamOption) streamConfig {
	cfg := streamConfig{limits: DefaultLimits(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLimits sets the decode limits of a reader.
func WithLimits(l Limits) StreamOption {
	return func(c *streamConfig) { c.limits = l }
}

// WithLogger sets the logger used for frame level debug tracing. The default
// logger discards everything.
func WithLogger(l zerolog.Logger) StreamOption {
	return func(c *streamConfig) { c.logger = l }
}

// StreamReader reads length-prefixed OSC packets from a byte stream such as
// a TCP connection (OSC 1.0 stream framing).
type StreamReader struct {
	r     io.Reader
	dec   *Decoder
	log   zerolog.Logger
	buf   []byte
	chunk []byte
	err   error
}

// NewStreamReader returns a StreamReader reading from r.
func NewStreamReader(r io.Reader, opts ...StreamOption) *StreamReader {
	cfg := newStreamConfig(opts)
	return &StreamReader{
		r:     r,
		dec:   NewDecoder(cfg.limits),
		log:   cfg.logger,
		chunk: make([]byte, readChunkSize),
	}
}

// ReadPacket returns the next packet of the stream. It returns io.EOF when
// the stream ends on a frame boundary and io.ErrUnexpectedEOF when it ends
// inside a frame. Decode errors are fatal for the stream, since the frame
// boundaries after a malformed frame cannot be trusted.
func (s *StreamReader) ReadPacket() (Packet, error) {
	for {
		rest, p, err := s.dec.DecodeStreamFrame(s.buf)
		if err != nil {
			s.log.Debug().Err(err).Int("buffered", len(s.buf)).Msg("osc: malformed stream frame")
			return nil, err
		}
		if p != nil {
			s.log.Debug().
				Int("frame", len(s.buf)-len(rest)).
				Int("buffered", len(rest)).
				Msg("osc: decoded stream frame")
			if len(rest) == 0 {
				s.buf = s.buf[:0]
			} else {
				s.buf = rest
			}
			return p, nil
		}
		if s.err != nil {
			if errors.Is(s.err, io.EOF) && len(s.buf) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, s.err
		}
		s.fill()
	}
}

// Buffered returns the bytes read from the stream that have not been decoded
// yet.
func (s *StreamReader) Buffered() []byte {
	return s.buf
}

func (s *StreamReader) fill() {
	n, err := s.r.Read(s.chunk)
	s.buf = append(s.buf, s.chunk[:n]...)
	s.err = err
	if n > 0 {
		s.log.Debug().Int("read", n).Int("buffered", len(s.buf)).Msg("osc: stream read")
	}
}

// StreamWriter writes OSC packets as length-prefixed frames. It is not safe
// for concurrent use.
type StreamWriter struct {
	w   io.Writer
	log zerolog.Logger
	buf Buffer
}

// NewStreamWriter returns a StreamWriter writing to w.
func NewStreamWriter(w io.Writer, opts ...StreamOption) *StreamWriter {
	cfg := newStreamConfig(opts)
	return &StreamWriter{w: w, log: cfg.logger}
}

// WritePacket encodes p and writes it as one frame.
func (s *StreamWriter) WritePacket(p Packet) error {
	s.buf.Reset()
	n, err := encodeFrame(p, &s.buf)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(s.buf.Bytes()); err != nil {
		return err
	}
	s.log.Debug().Int("frame", n).Msg("osc: wrote stream frame")
	return nil
}
