// Test program that feeds an Ogg Vorbis file to the demuxer in random-sized
// chunks, optionally corrupting it, and reports what was recovered.
package main

import (
	"bytes"
	"context"
	"flag"
	"math/rand/v2"
	"os"

	"github.com/rs/zerolog"

	"github.com/llehouerou/vorbisdemux/internal/bytesource"
	"github.com/llehouerou/vorbisdemux/internal/demux"
	"github.com/llehouerou/vorbisdemux/internal/walk"
)

func main() {
	maxChunk := flag.Int("max-chunk", 512, "largest chunk appended at once")
	corrupt := flag.Int("corrupt", 0, "number of bytes to overwrite past the first 4 KiB")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	if flag.NArg() != 1 || *maxChunk <= 0 {
		log.Fatal().Msg("usage: chunkfeed [-max-chunk N] [-corrupt N] [-seed N] FILE")
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read input")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	if *corrupt > 0 && len(data) > 4096 {
		for range *corrupt {
			i := 4096 + rng.IntN(len(data)-4096)
			data[i] ^= byte(1 + rng.IntN(255))
		}
		log.Info().Int("bytes", *corrupt).Msg("Corrupted input")
	}

	r := bytes.NewReader(data)
	src := bytesource.NewPush()
	d := demux.New(src, demux.WithLogger(log.Level(zerolog.WarnLevel)))

	feeds := 0
	feed := func() error {
		if src.Closed() {
			return demux.ErrUnexpectedEndOfInput
		}
		feeds++
		_, err := src.FillFrom(r, 1+rng.IntN(*maxChunk))
		return err
	}

	if err := demux.RetryWithData(d.Bootstrap, feed); err != nil {
		log.Fatal().Err(err).Msg("Failed to read headers")
	}
	small, large := d.BlockSizes()
	log.Info().
		Uint8("channels", d.Channels()).
		Uint32("rate", d.SampleRate()).
		Int("block_small", small).
		Int("block_large", large).
		Msg("Headers read")

	st, err := walk.Packets(context.Background(), d, walk.Feeding(feed), log, func(int, []byte) bool { return true })
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read packets")
	}

	log.Info().
		Int("feeds", feeds).
		Int("packets", st.Packets).
		Int64("bytes", st.Bytes).
		Int("skipped", st.Skipped).
		Int("resyncs", st.Resyncs).
		Int("pages", d.PagesRead()).
		Msg("Done")
}
