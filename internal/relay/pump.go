package relay

import (
	"context"
	"errors"
	"io"
)

const readChunkSize = 4096

// Pump reads r until EOF, feeding every chunk to p and reporting each delta
// to onDelta (which may be nil). Read errors and ctx cancellation become a
// *TransportError from the final Finish.
func Pump(
	ctx context.Context,
	r io.Reader,
	p *Parser,
	onDelta func(Delta),
) (string, error) {
	emit := func(deltas []Delta) {
		if onDelta == nil {
			return
		}
		for _, d := range deltas {
			onDelta(d)
		}
	}

	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			p.Fail(err)
			break
		}

		n, err := r.Read(buf)
		if n > 0 {
			emit(p.Feed(buf[:n]))
		}

		if errors.Is(err, io.EOF) {
			emit(p.Flush())
			break
		}

		if err != nil {
			p.Fail(err)
			break
		}
	}

	return p.Finish()
}
