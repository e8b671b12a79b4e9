/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

// Package transceiver carries OpenFlow messages over one switch connection.
// Messages are dispatched to a Handler one at a time, in the order they were
// received.
package transceiver

import (
	"context"
	"encoding"
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yyang13/leafspine/openflow"

	"github.com/pkg/errors"
	"github.com/superkkt/go-logging"
)

var (
	logger = logging.MustGetLogger("transceiver")
)

const (
	// Allowed idle time before we send an echo request to a switch.
	maxIdleTime = 10 * time.Second
	// I/O timeouts (These timeouts should be less than maxIdleTime).
	readTimeout  = 1 * time.Second
	writeTimeout = readTimeout * 2
	// Maximum number of unanswered echo requests.
	maxPingCount = 3
	// Time allowed for the switch to send its HELLO.
	negotiationTimeout = 30 * time.Second
)

type Writer interface {
	Write(msg encoding.BinaryMarshaler) error
}

type Handler interface {
	OnHello(Writer, *openflow.Hello) error
	OnError(Writer, *openflow.Error) error
	OnFeaturesReply(Writer, *openflow.FeaturesReply) error
	OnBarrierReply(Writer, *openflow.BarrierReply) error
	OnPacketIn(Writer, *openflow.PacketIn) error
}

type Transceiver struct {
	stream      *Stream
	observer    Handler
	xid         atomic.Uint32
	pingCounter uint
}

func NewTransceiver(stream *Stream, handler Handler) *Transceiver {
	if stream == nil {
		panic("stream is nil")
	}
	if handler == nil {
		panic("handler is nil")
	}

	return &Transceiver{
		stream:   stream,
		observer: handler,
	}
}

// NextTransactionID returns a new transaction ID for an outgoing message.
func (r *Transceiver) NextTransactionID() uint32 {
	return r.xid.Add(1)
}

func isTimeout(err error) bool {
	type Timeout interface {
		Timeout() bool
	}

	if v, ok := errors.Cause(err).(Timeout); ok {
		return v.Timeout()
	}

	return false
}

func isTemporaryErr(err error) bool {
	e, ok := errors.Cause(err).(interface {
		Temporary() bool
	})
	return ok && e.Temporary()
}

func (r *Transceiver) sendEchoRequest() error {
	if r.pingCounter >= maxPingCount {
		return errors.New("device does not respond to our echo request")
	}

	// We use current timestamp to check network latency between our controller and a switch.
	timestamp, err := time.Now().GobEncode()
	if err != nil {
		return err
	}
	if err := r.Write(openflow.NewEchoRequest(r.NextTransactionID(), timestamp)); err != nil {
		return errors.Wrap(err, "failed to send ECHO_REQUEST message")
	}
	r.pingCounter++

	return nil
}

// Run reads and dispatches messages until ctx is canceled or the connection
// is closed. The first message from the switch must be HELLO.
func (r *Transceiver) Run(ctx context.Context) error {
	defer logger.Info("transceiver is closed")
	r.stream.SetReadTimeout(readTimeout)
	r.stream.SetWriteTimeout(writeTimeout)

	readerCtx, cancelReader := context.WithCancel(ctx)
	defer cancelReader()
	reader := r.runReader(readerCtx)

	packet, err := r.negotiate(ctx, reader)
	if err != nil {
		return errors.Wrap(err, "failed to negotiate the protocol version")
	}

	// Infinite loop
	for {
		if err := r.dispatch(packet); err != nil {
			if !isTemporaryErr(err) {
				return err
			}
			// Ignore the temporary error. Just log the error and keep go on.
			logger.Errorf("failed to dispatch the packet: %v", err)
		}

		// Read the next packet
		var ok bool
		select {
		case <-ctx.Done():
			logger.Info("context done")
			return nil
		case packet, ok = <-reader:
			if !ok {
				logger.Info("the reader channel is closed")
				return nil
			}
		}
	}
}

func (r *Transceiver) negotiate(ctx context.Context, reader <-chan []byte) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, errors.New("context done")
	case <-time.After(negotiationTimeout):
		return nil, errors.New("inactive for too long")
	case packet, ok := <-reader:
		if !ok {
			return nil, errors.New("the reader channel is closed")
		}
		// The first message should be HELLO.
		if packet[1] != openflow.OFPT_HELLO {
			return nil, errors.New("missing HELLO message")
		}
		if packet[0] < openflow.OF13_VERSION {
			return nil, errors.Wrap(openflow.ErrUnsupportedVersion, fmt.Sprintf("version %v", packet[0]))
		}
		logger.Info("negotiated to openflow version 1.3")

		// Return the initial packet to dispatch it.
		return packet, nil
	}
}

func (r *Transceiver) runReader(ctx context.Context) <-chan []byte {
	// Buffered channel
	c := make(chan []byte, 4096)
	go func() {
		// The channel c will be closed when this goroutine returns in order to notice the connection has been closed.
		defer close(c)
		defer logger.Debug("transceiver reader is closed")

		lastActivated := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			packet, err := r.readPacket()
			if err != nil {
				if !isTimeout(err) {
					logger.Errorf("failed to read the next packet: %v", err)
					return
				}
				// Timeout occurrs. Send a ping request if necessary.
				if time.Since(lastActivated) > maxIdleTime {
					if err := r.sendEchoRequest(); err != nil {
						logger.Errorf("failed to send an echo request: %v", err)
						return
					}
					lastActivated = time.Now()
				}
				continue
			}
			lastActivated = time.Now()

			ok, err := r.handleEcho(packet)
			if err != nil {
				logger.Errorf("failed to handle the echo request or response: %v", err)
				return
			}
			if ok {
				// Do not forward the echo request and response
				// packets because this reader handles them.
				continue
			}

			select {
			case c <- packet:
			default:
				// Drop the packet if we cannot immediately carry it.
				logger.Error("transceiver buffer full: drop the incoming packet!")
			}
		}
	}()

	return c
}

func (r *Transceiver) readPacket() ([]byte, error) {
	header, err := r.stream.Peek(8) // peek ofp_header
	if err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint16(header[2:4])
	if length < 8 {
		return nil, openflow.ErrInvalidPacketLength
	}

	return r.stream.ReadN(int(length))
}

func (r *Transceiver) handleEcho(packet []byte) (handled bool, err error) {
	switch packet[1] {
	case openflow.OFPT_ECHO_REQUEST:
		msg := new(openflow.EchoRequest)
		if err := msg.UnmarshalBinary(packet); err != nil {
			return true, err
		}
		return true, r.Write(openflow.NewEchoReply(msg.TransactionID(), msg.Payload()))
	case openflow.OFPT_ECHO_REPLY:
		r.pingCounter = 0
		return true, nil
	default:
		return false, nil
	}
}

func (r *Transceiver) dispatch(packet []byte) error {
	msg, err := openflow.ParseMessage(packet)
	if err != nil {
		if err == openflow.ErrUnsupportedMessage {
			logger.Debugf("ignoring unsupported message: type=%v", packet[1])
			return nil
		}
		// A single undecodable message does not break the session.
		logger.Errorf("failed to parse the message (type=%v): %v", packet[1], err)
		return nil
	}

	switch v := msg.(type) {
	case *openflow.Hello:
		return r.observer.OnHello(r, v)
	case *openflow.Error:
		return r.observer.OnError(r, v)
	case *openflow.FeaturesReply:
		return r.observer.OnFeaturesReply(r, v)
	case *openflow.BarrierReply:
		return r.observer.OnBarrierReply(r, v)
	case *openflow.PacketIn:
		return r.observer.OnPacketIn(r, v)
	default:
		logger.Debugf("ignoring unexpected message from the switch: type=%v", msg.Type())
		return nil
	}
}

func (r *Transceiver) Write(msg encoding.BinaryMarshaler) error {
	packet, err := msg.MarshalBinary()
	if err != nil {
		return err
	}

	if _, err := r.stream.Write(packet); err != nil {
		return err
	}

	return nil
}

func (r *Transceiver) Close() error {
	return r.stream.Close()
}
