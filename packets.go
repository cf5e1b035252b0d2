package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/vorbisdemux/internal/demux"
	"github.com/llehouerou/vorbisdemux/internal/errmsg"
	"github.com/llehouerou/vorbisdemux/internal/walk"
)

func runPackets(ctx context.Context, a *app, args []string) error {
	fset := newFlagSet("packets", a.out)
	limit := fset.Int("limit", 0, "stop after N audio packets (0 lists all)")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 1 {
		fset.Usage()
		return errors.New("expected exactly one file")
	}
	path := fset.Arg(0)

	f, d, err := a.openFile(path)
	if err != nil {
		return errmsg.Wrap(errmsg.OpFileOpen, path, err)
	}
	defer f.Close()

	if err := d.Bootstrap(); err != nil {
		return errmsg.Wrap(errmsg.OpListPackets, path, err)
	}
	setup, err := d.ReadPacket()
	if err != nil {
		return errmsg.Wrap(errmsg.OpListPackets, path, err)
	}
	fmt.Fprintf(a.out, "%s: %d ch, %d Hz, setup header %s\n",
		path, d.Channels(), d.SampleRate(), humanize.IBytes(uint64(len(setup))))
	fmt.Fprintf(a.out, "%8s %8s %8s %14s\n", "PACKET", "BYTES", "PAGE", "GRANULE")

	st, err := walk.Packets(ctx, d, walk.NoRetry, a.log, func(i int, packet []byte) bool {
		granule := "-"
		if g, ok := d.PacketGranule(); ok {
			granule = fmt.Sprint(g)
		}
		fmt.Fprintf(a.out, "%8d %8d %8d %14s\n", i, len(packet), d.PageSequence(), granule)
		return *limit <= 0 || i+1 < *limit
	})
	if err != nil {
		return errmsg.Wrap(errmsg.OpListPackets, path, err)
	}
	printWalkSummary(a, st, d)
	return nil
}

func printWalkSummary(a *app, st walk.Stats, d *demux.Decoder) {
	fmt.Fprintf(a.out, "%s packets, %s in %s pages",
		humanize.Comma(int64(st.Packets)), humanize.IBytes(uint64(st.Bytes)), humanize.Comma(int64(d.PagesRead())))
	if st.Skipped > 0 {
		fmt.Fprintf(a.out, ", %d skipped", st.Skipped)
	}
	if st.Resyncs > 0 {
		fmt.Fprintf(a.out, ", %d resyncs", st.Resyncs)
	}
	fmt.Fprintln(a.out)
}
