package reply

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const readBufferSize = 4 * 1024

// Pump copies r into d until EOF, calling observe with the updated result
// after every fragment. At EOF the decoder is closed and its terminal result
// is observed and returned.
//
// Cancellation is checked between reads. A read error or cancellation ends
// the stream without closing the decoder and no further results are observed.
func Pump(ctx context.Context, r io.Reader, d *Decoder, observe func(Result)) (Result, error) {
	buf := make([]byte, readBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return d.Result(), err
		}

		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := d.Write(buf[:n]); werr != nil {
				return d.Result(), werr
			}
			if observe != nil {
				observe(d.Result())
			}
		}

		if errors.Is(err, io.EOF) {
			res := d.Close()
			if observe != nil {
				observe(res)
			}
			return res, nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return d.Result(), ctxErr
			}
			return d.Result(), fmt.Errorf("reading reply stream: %w", err)
		}
	}
}
