package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"

	"github.com/llehouerou/vorbisdemux/internal/errmsg"
	"github.com/llehouerou/vorbisdemux/internal/pcm"
)

// ctxStreamer stops streaming once ctx is done.
type ctxStreamer struct {
	ctx context.Context
	s   beep.Streamer
}

func (c ctxStreamer) Stream(samples [][2]float64) (int, bool) {
	if c.ctx.Err() != nil {
		return 0, false
	}
	return c.s.Stream(samples)
}

func (c ctxStreamer) Err() error {
	if err := c.ctx.Err(); err != nil {
		return err
	}
	return c.s.Err()
}

func runDecode(ctx context.Context, a *app, args []string) error {
	fset := newFlagSet("decode", a.out)
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 2 {
		fset.Usage()
		return errors.New("expected an input and an output file")
	}
	in, outPath := fset.Arg(0), fset.Arg(1)

	f, d, err := a.openFile(in)
	if err != nil {
		return errmsg.Wrap(errmsg.OpFileOpen, in, err)
	}
	defer f.Close()

	s, err := pcm.Open(d, pcm.WithLogger(a.log))
	if err != nil {
		return errmsg.Wrap(errmsg.OpDecode, in, err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return errmsg.Wrap(errmsg.OpFileCreate, outPath, err)
	}
	cs := ctxStreamer{ctx: ctx, s: s}
	if err := wav.Encode(out, cs, s.Format()); err != nil {
		out.Close()
		return errmsg.Wrap(errmsg.OpDecode, in, err)
	}
	if err := out.Close(); err != nil {
		return errmsg.Wrap(errmsg.OpFileCreate, outPath, err)
	}
	if err := cs.Err(); err != nil {
		return errmsg.Wrap(errmsg.OpDecode, in, err)
	}

	fmt.Fprintf(a.out, "%s: %d frames at %d Hz", outPath, s.Position(), s.Format().SampleRate)
	if n := s.Skipped(); n > 0 {
		fmt.Fprintf(a.out, ", %d packets skipped", n)
	}
	if n := s.Resyncs(); n > 0 {
		fmt.Fprintf(a.out, ", %d resyncs", n)
	}
	fmt.Fprintln(a.out)
	return nil
}
