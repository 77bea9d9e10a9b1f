// Copyright 2013 - 2015 Sebastian Ruml <sebastian.ruml@gmail.com>

/*
Package osc encodes and decodes OpenSoundControl packets.

The package is implemented in pure Go.

The implementation is based on the Open Sound Control 1.0 Specification
(http://opensoundcontrol.org/spec-1_0).

Open Sound Control (OSC) is an open, transport-independent, message-based
protocol developed for communication among computers, sound synthesizers,
and other multimedia devices.

Features:
  - Supports OSC messages with 'i' (Int), 'h' (Long), 'f' (Float),
    'd' (Double), 's' (String), 'b' (Blob), 't' (Timetag), 'c' (Char),
    'r' (Color), 'm' (Midi), 'T' (True), 'F' (False), 'N' (Nil),
    'I' (Inf) and '[' ']' (Array) types.
  - OSC bundles, including timetags and nested bundles.
  - Datagram encoding and length-prefixed stream encoding.
  - SLIP framing for OSC 1.1 stream transports.

Packets

The unit of transmission of OSC is an OSC Packet. An OSC packet consists of
its contents, a contiguous block of binary data. The size of an OSC packet is
always 32-bit aligned.

OSC packets come in two flavors:

OSC Messages: An OSC message consists of an OSC address pattern and zero or
more OSC arguments.

OSC Bundles: An OSC Bundle consists of an OSC Timetag, followed by zero or
more OSC bundle elements. Each bundle element can be another OSC bundle (note
this recursive definition: a bundle may contain bundles) or OSC message.

Encoding

	msg := osc.NewMessage("/osc/address", osc.Int(111), osc.Bool(true), osc.String("hello"))
	data, err := osc.Encode(msg)

Encode writes into an in-memory buffer; EncodeInto writes into any Output,
for example a file wrapped in a WriteSeekerOutput. EncodeStream prefixes the
packet with its length for stream transports.

Decoding

	rest, packet, err := osc.DecodeDatagram(data)

DecodeStreamFrame decodes one length-prefixed frame and returns a nil packet
without error when more data is needed. StreamReader and SLIPReader wrap an
io.Reader.

The package never opens network connections and does not match or dispatch
OSC addresses; addresses are treated as opaque strings.
*/
package osc
