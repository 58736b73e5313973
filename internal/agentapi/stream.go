package agentapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/samsaffron/term-agent/internal/agent"
	"github.com/samsaffron/term-agent/internal/ndjson"
)

// frameStream decodes frames lazily from a streaming response body.
type frameStream struct {
	ctx     context.Context
	cancel  context.CancelFunc
	body    io.ReadCloser
	dec     *ndjson.Decoder
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func newFrameStream(ctx context.Context, cancel context.CancelFunc, body io.ReadCloser, timeout time.Duration) *frameStream {
	return &frameStream{
		ctx:     ctx,
		cancel:  cancel,
		body:    body,
		dec:     ndjson.NewDecoder(body),
		timeout: timeout,
	}
}

// Recv returns the next frame, or io.EOF when the body is exhausted.
func (s *frameStream) Recv() (agent.Frame, error) {
	var frame agent.Frame
	err := s.dec.Next(&frame)
	if err == nil {
		return frame, nil
	}
	if errors.Is(err, io.EOF) {
		return agent.Frame{}, io.EOF
	}
	if errors.Is(s.ctx.Err(), context.DeadlineExceeded) {
		return agent.Frame{}, &TimeoutError{Op: "stream", Timeout: s.timeout, Err: err}
	}
	var syntaxErr *ndjson.SyntaxError
	if errors.As(err, &syntaxErr) {
		return agent.Frame{}, err
	}
	return agent.Frame{}, fmt.Errorf("read stream: %w", err)
}

// Close releases the body and the turn's deadline.
func (s *frameStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
		s.cancel()
	})
	return s.closeErr
}
