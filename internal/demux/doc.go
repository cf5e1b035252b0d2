// Package demux turns an Ogg byte stream into Vorbis packets.
//
// A Decoder owns all session state for one logical stream. It finds and
// parses Ogg pages, walks their lacing tables to expose packet boundaries
// across page breaks, and validates the Vorbis identification header before
// handing packets to an audio decoder.
//
// Decoders work over a random-access bytesource.File or an incrementally fed
// bytesource.Push. With a push source every exported operation is retryable:
// when it cannot finish because the source is momentarily empty it returns
// ErrNeedMoreData and leaves the decoder exactly as it was before the call,
// so the same call can be repeated once more bytes have been appended.
//
// Typical use:
//
//	d := demux.New(src)
//	if err := d.Bootstrap(); err != nil {
//		return err
//	}
//	setup, err := d.ReadPacket()
//	...
//	for {
//		packet, err := d.NextPacket()
//		if errors.Is(err, io.EOF) {
//			break
//		}
//		...
//	}
//
// Multiplexed and chained streams are not supported.
package demux
