package main

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/jfreymuth/oggvorbis"

	"github.com/llehouerou/vorbisdemux/internal/demux"
	"github.com/llehouerou/vorbisdemux/internal/errmsg"
	"github.com/llehouerou/vorbisdemux/internal/probecache"
	"github.com/llehouerou/vorbisdemux/internal/tags"
)

// verification is the result of cross-checking a probe with oggvorbis.
type verification struct {
	samples int64
	err     error
}

func runInspect(ctx context.Context, a *app, args []string) error {
	fset := newFlagSet("inspect", a.out)
	verify := fset.Bool("verify", false, "cross-check the length with an independent decoder")
	noCache := fset.Bool("no-cache", false, "neither read nor update the probe cache")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() == 0 {
		fset.Usage()
		return errors.New("no file given")
	}

	var cache *probecache.Cache
	if !*noCache {
		cache = a.openCache()
		if cache != nil {
			defer cache.Close()
		}
	}

	for _, path := range fset.Args() {
		e, cached, err := a.probe(ctx, cache, path)
		if err != nil {
			return errmsg.Wrap(errmsg.OpInspect, path, err)
		}
		t, err := tags.ReadFile(path)
		if err != nil {
			a.log.Debug().Err(err).Str("file", path).Msg("no comments")
		}
		var v *verification
		if *verify {
			v = verifyLength(path)
		}
		if _, err := io.WriteString(a.out, renderReport(e, t, cached, v)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// openCache opens the configured probe cache. Failures only disable caching.
func (a *app) openCache() *probecache.Cache {
	cfg, err := a.cfg.GetCacheConfig()
	if err != nil {
		a.log.Warn().Err(err).Msg(errmsg.Format(errmsg.OpCacheOpen, err))
		return nil
	}
	if !*cfg.Enabled {
		return nil
	}
	cache, err := probecache.Open(cfg.Path)
	if err != nil {
		a.log.Warn().Str("path", cfg.Path).Msg(errmsg.Format(errmsg.OpCacheOpen, err))
		return nil
	}
	return cache
}

// probe bootstraps the stream at path, locates its first audio page and
// its last page. Results are served from and stored in cache when non-nil.
func (a *app) probe(ctx context.Context, cache *probecache.Cache, path string) (probecache.Entry, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return probecache.Entry{}, false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return probecache.Entry{}, false, err
	}

	if cache != nil {
		e, err := cache.Get(ctx, abs, info.Size(), info.ModTime())
		switch {
		case err != nil:
			a.log.Warn().Str("file", path).Msg(errmsg.Format(errmsg.OpCacheLookup, err))
		case e != nil:
			return *e, true, nil
		}
	}

	f, d, err := a.openFile(abs, demux.WithRetainComments(true))
	if err != nil {
		return probecache.Entry{}, false, err
	}
	defer f.Close()

	if err := d.Bootstrap(); err != nil {
		return probecache.Entry{}, false, err
	}
	e := probecache.Entry{
		Path:       abs,
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		SampleRate: d.SampleRate(),
		Channels:   d.Channels(),
	}
	e.BlockSmall, e.BlockLarge = d.BlockSizes()
	e.Vendor, _ = d.Vendor()

	// skip the setup header and start the first audio packet
	if err := d.SkipPacket(); err != nil {
		return probecache.Entry{}, false, err
	}
	if ok, err := d.MaybeStartPacket(); err != nil {
		a.log.Warn().Err(err).Str("file", path).Msg("no audio packet after headers")
	} else if ok {
		if first, ok := d.FirstProbedPage(); ok {
			e.AudioStart = &first.PageStart
		}
	}

	if last, err := d.FindLastPage(); err != nil {
		a.log.Warn().Err(err).Str("file", path).Msg("last page not found")
	} else {
		e.LastPageStart = &last.PageStart
		e.LastPageEnd = &last.PageEnd
		if last.GranuleKnown && last.LastDecodedSample <= math.MaxInt64 {
			total := int64(last.LastDecodedSample)
			e.TotalSamples = &total
		}
	}

	if cache != nil {
		if err := cache.Put(ctx, e); err != nil {
			a.log.Warn().Str("file", path).Msg(errmsg.Format(errmsg.OpCacheStore, err))
		}
	}
	return e, false, nil
}

// verifyLength measures the stream with jfreymuth/oggvorbis, which parses
// the container on its own.
func verifyLength(path string) *verification {
	f, err := os.Open(path)
	if err != nil {
		return &verification{err: err}
	}
	defer f.Close()

	samples, _, err := oggvorbis.GetLength(f)
	return &verification{samples: samples, err: err}
}
