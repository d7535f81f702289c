package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/amp-labs/amp-reconnect/eventloop"
	"github.com/amp-labs/amp-reconnect/logger"
	"github.com/amp-labs/amp-reconnect/printable"
	"github.com/amp-labs/amp-reconnect/statemachine"
)

var (
	// ErrIdleTimeout ends Online when no line arrives within the idle timeout.
	ErrIdleTimeout = fmt.Errorf("connection idle: %w", context.DeadlineExceeded)
	// ErrLineTooLong ends Online when a line exceeds the configured maximum.
	ErrLineTooLong = errors.New("line exceeds maximum length")
)

const minLineBuffer = 16

type online struct {
	statemachine.Base

	sess   *Session
	conn   net.Conn
	reader *bufio.Reader
	idle   *eventloop.Timer

	// rearms counts idle waits replaced by a newer one whose ErrAborted has
	// not come back yet.
	rearms int
	closed bool
}

func newOnline(prev statemachine.Outcome, s *Session) (statemachine.State, error) {
	c, ok := prev.(Connected)
	if !ok || c.Conn == nil {
		return nil, fmt.Errorf("%w: %T", statemachine.ErrUnexpectedOutcome, prev)
	}

	s.Attempt = 0
	s.Lines = 0

	st := &online{
		sess:   s,
		conn:   c.Conn,
		reader: bufio.NewReaderSize(c.Conn, max(s.MaxLineLength+1, minLineBuffer)),
		idle:   s.Loop.NewTimer(),
	}

	st.Init(StateOnline, s.Loop, st)

	return st, nil
}

func (o *online) OnEnter() {
	logger.Get(o.sess.Context()).Info("Connection online",
		"endpoint", o.sess.Endpoint.String(),
		"local", o.conn.LocalAddr().String())

	o.armIdle()
	o.read()
}

func (o *online) armIdle() {
	if o.idle.Wait(o.sess.IdleTimeout, o.TrackErr(o.idleFired)) {
		o.rearms++
	}
}

func (o *online) idleFired(err error) {
	switch {
	case err == nil:
		o.Complete(statemachine.Failure{Err: ErrIdleTimeout})
	case errors.Is(err, eventloop.ErrAborted) && o.rearms > 0:
		o.rearms--
	}
}

func (o *online) read() {
	eventloop.Go(o.sess.Loop, o.sess.Context(), o.readLine, statemachine.Track(&o.Base, o.lineRead))
}

// readLine runs on the worker pool. Only one read is ever outstanding, so the
// reader is never shared.
func (o *online) readLine(context.Context) ([]byte, error) {
	line, err := o.reader.ReadSlice('\n')

	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return nil, fmt.Errorf("%w: more than %d bytes", ErrLineTooLong, o.sess.MaxLineLength)
	case err != nil:
		return nil, err
	}

	line = bytes.TrimRight(line, "\r\n")
	if o.sess.MaxLineLength > 0 && len(line) > o.sess.MaxLineLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrLineTooLong, len(line))
	}

	return bytes.Clone(line), nil
}

func (o *online) lineRead(line []byte, err error) {
	if o.Done() {
		return
	}

	if err != nil {
		o.Complete(statemachine.Failure{
			Err: logger.AnnotateError(fmt.Errorf("read: %w", err), "endpoint", o.sess.Endpoint.String()),
		})

		return
	}

	o.sess.Lines++
	o.armIdle()

	logger.Get(o.sess.Context()).Info("Received line",
		"line", printable.Bytes(line),
		"count", o.sess.Lines)

	if o.sess.OnLine != nil {
		o.sess.OnLine(line)
	}

	// The handler may have canceled the run.
	if !o.Done() {
		o.read()
	}
}

func (o *online) Release() {
	o.idle.Cancel()

	if !o.closed {
		o.closed = true
		_ = o.conn.Close()
	}
}
