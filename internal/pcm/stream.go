// Package pcm decodes the audio packets of a demuxed Vorbis stream into
// samples for github.com/gopxl/beep.
package pcm

import (
	"errors"
	"io"
	"math"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog"

	"github.com/llehouerou/vorbisdemux/internal/demux"
	"github.com/llehouerou/vorbisdemux/internal/walk"
)

var errHeadersIncomplete = errors.New("vorbis: setup header did not complete the codec")

// maxBlockSize bounds the samples per channel a single packet can produce.
const maxBlockSize = 8192

// PacketSource yields audio packets. *demux.Decoder satisfies it.
type PacketSource interface {
	NextAudioPacket() ([]byte, error)
}

// resyncer is implemented by sources that can find the next valid page
// after corruption.
type resyncer interface {
	Resync() (offset int64, sample uint64, err error)
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets the logger used for skipped packets and recoveries.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Stream) { s.log = l }
}

// Stream implements beep.Streamer over the audio packets of a stream.
type Stream struct {
	src   PacketSource
	codec Codec
	log   zerolog.Logger

	pcmBuffer []float32
	pcmPos    int
	position  int
	total     int
	skipped   int
	resyncs   int
	err       error
}

// Open reads the remaining Vorbis headers from d and returns a stream
// positioned at the first audio packet. d is bootstrapped first if needed.
// The source must be random access or already hold every header byte.
func Open(d *demux.Decoder, opts ...Option) (*Stream, error) {
	return open(d, newVorbisCodec, opts...)
}

func open(d *demux.Decoder, newCodec codecFactory, opts ...Option) (*Stream, error) {
	if !d.Bootstrapped() {
		if err := d.Bootstrap(); err != nil {
			return nil, err
		}
	}

	codec, err := newCodec(d.IdentificationHeader())
	if err != nil {
		return nil, err
	}
	comment := d.CommentHeader()
	if comment == nil {
		comment = minimalCommentHeader()
	}
	if _, err := codec.AddHeaderPacket(comment); err != nil {
		return nil, err
	}
	setup, err := d.ReadPacket()
	if err != nil {
		return nil, err
	}
	complete, err := codec.AddHeaderPacket(setup)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, errHeadersIncomplete
	}

	s := NewStream(d, codec, opts...)
	if total, err := d.TotalSamples(); err == nil {
		s.total = int(min(total, uint64(math.MaxInt)))
	} else {
		s.log.Debug().Err(err).Msg("stream length unknown")
	}
	return s, nil
}

// NewStream returns a stream decoding packets from src with a codec whose
// headers are complete.
func NewStream(src PacketSource, codec Codec, opts ...Option) *Stream {
	s := &Stream{
		src:       src,
		codec:     codec,
		log:       zerolog.Nop(),
		pcmBuffer: make([]float32, maxBlockSize*max(codec.Channels(), 1)),
	}
	s.pcmPos = len(s.pcmBuffer) // empty buffer triggers a decode
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream fills samples with stereo frames. Mono is duplicated to both
// channels; channels past the second are dropped.
func (s *Stream) Stream(samples [][2]float64) (n int, ok bool) {
	if s.err != nil {
		return 0, false
	}

	channels := channelsOf(s.codec)
	for n < len(samples) {
		if s.pcmPos < len(s.pcmBuffer) {
			for n < len(samples) && s.pcmPos < len(s.pcmBuffer) {
				samples[n][0] = float64(s.pcmBuffer[s.pcmPos])
				if channels >= 2 {
					samples[n][1] = float64(s.pcmBuffer[s.pcmPos+1])
				} else {
					samples[n][1] = samples[n][0]
				}
				s.pcmPos += channels
				n++
				s.position++
			}
			continue
		}

		if !s.decodeNext() {
			return n, n > 0
		}
	}
	return n, true
}

// decodeNext refills the PCM buffer from the next usable packet. It
// returns false at the end of the stream or on an unrecoverable error.
func (s *Stream) decodeNext() bool {
	packet, err := s.src.NextAudioPacket()
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return false
	case walk.Skippable(err):
		s.skipped++
		s.log.Debug().Err(err).Msg("skipping packet")
		return true
	default:
		return s.recover(err)
	}

	spc, err := s.codec.Decode(packet, s.pcmBuffer[:cap(s.pcmBuffer)])
	if err != nil {
		s.skipped++
		s.log.Debug().Err(err).Int("bytes", len(packet)).Msg("skipping undecodable packet")
		return true
	}
	s.pcmBuffer = s.pcmBuffer[:spc*channelsOf(s.codec)]
	s.pcmPos = 0
	return true
}

// recover resynchronizes after a framing error when the source supports it.
func (s *Stream) recover(cause error) bool {
	r, ok := s.src.(resyncer)
	if !ok || errors.Is(cause, demux.ErrNeedMoreData) {
		s.err = cause
		return false
	}
	offset, sample, err := r.Resync()
	if err != nil {
		if errors.Is(err, demux.ErrUnexpectedEndOfInput) {
			// corruption ran to the end of the stream
			return false
		}
		s.err = err
		return false
	}
	s.resyncs++
	s.log.Warn().
		Err(cause).
		Int64("offset", offset).
		Uint64("sample", sample).
		Msg("stream resynchronized")
	if err := s.codec.Reset(); err != nil {
		s.err = err
		return false
	}
	return true
}

func channelsOf(c Codec) int { return max(c.Channels(), 1) }

// Err returns the error that stopped the stream, if any.
func (s *Stream) Err() error { return s.err }

// Len returns the total number of frames, or 0 when the length is unknown.
func (s *Stream) Len() int { return s.total }

// Position returns the number of frames streamed so far.
func (s *Stream) Position() int { return s.position }

// Skipped returns the number of packets dropped as undecodable.
func (s *Stream) Skipped() int { return s.skipped }

// Resyncs returns the number of times the stream recovered from corruption.
func (s *Stream) Resyncs() int { return s.resyncs }

// Format describes the samples Stream produces.
func (s *Stream) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(s.codec.SampleRate()),
		NumChannels: min(channelsOf(s.codec), 2),
		Precision:   2,
	}
}

var _ beep.Streamer = (*Stream)(nil)
