package main

import (
	"os"

	"github.com/llehouerou/vorbisdemux/internal/bytesource"
	"github.com/llehouerou/vorbisdemux/internal/demux"
)

func (a *app) decoderOptions(extra ...demux.Option) []demux.Option {
	opts := append(a.cfg.DecoderOptions(), demux.WithLogger(a.log))
	return append(opts, extra...)
}

// openFile opens path as a random-access decoder. The caller closes the file.
func (a *app) openFile(path string, extra ...demux.Option) (*os.File, *demux.Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	src, err := bytesource.NewFile(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, demux.New(src, a.decoderOptions(extra...)...), nil
}
