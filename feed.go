package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/llehouerou/vorbisdemux/internal/bytesource"
	"github.com/llehouerou/vorbisdemux/internal/demux"
	"github.com/llehouerou/vorbisdemux/internal/errmsg"
	"github.com/llehouerou/vorbisdemux/internal/walk"
)

// feeder appends chunks of a file to a push source on demand, optionally
// throttled to a byte rate.
type feeder struct {
	ctx     context.Context
	f       *os.File
	src     *bytesource.Push
	chunk   int
	limiter *rate.Limiter

	feeds        int
	peakRetained int
}

func (fd *feeder) feed() error {
	if fd.src.Closed() {
		return demux.ErrUnexpectedEndOfInput
	}
	if fd.limiter != nil {
		if err := fd.limiter.Wait(fd.ctx); err != nil {
			return err
		}
	}
	if _, err := fd.src.FillFrom(fd.f, fd.chunk); err != nil {
		return err
	}
	fd.feeds++
	fd.peakRetained = max(fd.peakRetained, fd.src.Retained())
	return nil
}

func (fd *feeder) retry(op func() error) error {
	return demux.RetryWithData(op, fd.feed)
}

func runFeed(ctx context.Context, a *app, args []string) error {
	fset := newFlagSet("feed", a.out)
	chunk := fset.Int("chunk", a.cfg.GetPushConfig().ChunkSize, "bytes appended per feed")
	bps := fset.Int("rate", 0, "throttle input to BYTES/S (0 is unthrottled)")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 1 {
		fset.Usage()
		return errors.New("expected exactly one file")
	}
	if *chunk <= 0 {
		return fmt.Errorf("invalid chunk size %d", *chunk)
	}
	path := fset.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		return errmsg.Wrap(errmsg.OpFileOpen, path, err)
	}
	defer f.Close()

	src := bytesource.NewPush()
	fd := &feeder{ctx: ctx, f: f, src: src, chunk: *chunk}
	if *bps > 0 {
		// one token per chunk
		fd.limiter = rate.NewLimiter(rate.Limit(float64(*bps)/float64(*chunk)), 1)
	}
	d := demux.New(src, a.decoderOptions()...)

	if err := fd.retry(d.Bootstrap); err != nil {
		return errmsg.Wrap(errmsg.OpFeed, path, err)
	}
	var setup []byte
	err = fd.retry(func() error {
		var err error
		setup, err = d.ReadPacket()
		return err
	})
	if err != nil {
		return errmsg.Wrap(errmsg.OpFeed, path, err)
	}
	a.log.Debug().Int("setup_bytes", len(setup)).Int("feeds", fd.feeds).Msg("headers complete")

	st, err := walk.Packets(ctx, d, fd.retry, a.log, func(int, []byte) bool { return true })
	if err != nil {
		return errmsg.Wrap(errmsg.OpFeed, path, err)
	}

	fmt.Fprintf(a.out, "%s: %s feeds of %s, peak retained %s\n", path,
		humanize.Comma(int64(fd.feeds)), humanize.IBytes(uint64(*chunk)), humanize.IBytes(uint64(fd.peakRetained)))
	printWalkSummary(a, st, d)
	return nil
}
