// Package walk drives a demux.Decoder over a whole stream, recovering from
// damaged packets and pages along the way.
package walk

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/llehouerou/vorbisdemux/internal/demux"
)

// Stats counts what a walk saw.
type Stats struct {
	Packets int
	Bytes   int64
	Skipped int
	Resyncs int
}

// RetryFunc runs a decoder operation, feeding more input if it asks for it.
type RetryFunc func(op func() error) error

// NoRetry runs op once. It suits random-access sources, which never ask for
// more data.
func NoRetry(op func() error) error { return op() }

// Feeding returns a RetryFunc that calls feed whenever an operation reports
// demux.ErrNeedMoreData.
func Feeding(feed func() error) RetryFunc {
	return func(op func() error) error { return demux.RetryWithData(op, feed) }
}

// Skippable reports whether err concerns a single packet that the decoder
// has already moved past, so reading can simply continue.
func Skippable(err error) bool {
	return errors.Is(err, demux.ErrBadPacketType) || errors.Is(err, demux.ErrContinuedPacketFlagInvalid)
}

// Packets hands every audio packet to visit until the stream ends or visit
// returns false. Header-typed and orphaned packets are skipped and framing
// errors are recovered from with Resync. Corrupt data running to the end of
// the stream ends the walk without an error.
func Packets(ctx context.Context, d *demux.Decoder, retry RetryFunc, log zerolog.Logger, visit func(i int, packet []byte) bool) (Stats, error) {
	var st Stats
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		var packet []byte
		err := retry(func() error {
			var err error
			packet, err = d.NextAudioPacket()
			return err
		})
		switch {
		case err == nil:
			i := st.Packets
			st.Packets++
			st.Bytes += int64(len(packet))
			if !visit(i, packet) {
				return st, nil
			}
		case errors.Is(err, io.EOF):
			return st, nil
		case Skippable(err):
			st.Skipped++
			log.Debug().Err(err).Int("after_packet", st.Packets).Msg("packet skipped")
		default:
			var offset int64
			var sample uint64
			rerr := retry(func() error {
				var err error
				offset, sample, err = d.Resync()
				return err
			})
			if errors.Is(rerr, demux.ErrUnexpectedEndOfInput) {
				log.Warn().Err(err).Msg("stream ends in corrupt data")
				return st, nil
			}
			if rerr != nil {
				return st, rerr
			}
			st.Resyncs++
			log.Warn().Err(err).Int64("offset", offset).Uint64("sample", sample).Msg("resynchronized")
		}
	}
}
