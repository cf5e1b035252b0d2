package demux

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/llehouerou/vorbisdemux/internal/bytesource"
)

const (
	// DefaultOverlapDepth is the number of resync candidates tracked at once.
	DefaultOverlapDepth = 4
	minOverlapDepth     = 2
)

// ProbedPage records the byte span of a page and the sample position at its
// end. It anchors stream length estimation.
type ProbedPage struct {
	PageStart         int64
	PageEnd           int64
	LastDecodedSample uint64
	GranuleKnown      bool
}

// segmentCursor points at the next lacing value of the loaded page.
// An unloaded cursor means the page is used up and a new one must be read.
type segmentCursor struct {
	index  int
	loaded bool
}

// state is every mutable field of a session. It is a plain value so a
// push-mode operation can snapshot and restore it wholesale.
type state struct {
	// identification header
	sampleRate uint32
	channels   uint8
	blockSize  [2]int
	ident      []byte
	comments   []byte

	lastErr ErrorKind
	eof     bool
	// needMore is set when eof came from a push source that is not closed.
	needMore bool

	// page
	pageStart   int64
	pageFlags   byte
	segments    []byte
	pageSeq     uint32
	granule     uint64
	serial      uint32
	serialKnown bool
	pagesRead   int

	// packet cursor
	next            segmentCursor
	segBytesLeft    int
	lastSegOfPacket bool
	lastSeg         int
	packetBytes     int
	packetsStarted  int

	// granule tracking
	endSegWithKnownGranule int
	knownGranule           uint64
	packetGranule          uint64
	packetGranuleKnown     bool

	bootstrapped bool
	inHeaders    bool
	firstPage    *ProbedPage
	lastPage     *ProbedPage
}

// Decoder is the session object for one logical Ogg/Vorbis stream. It is
// not safe for concurrent use.
type Decoder struct {
	state

	src            bytesource.Source
	log            zerolog.Logger
	overlapDepth   int
	retainComments bool
	checkSerial    bool

	// resyncResume is where an interrupted Resync can restart without
	// losing a candidate page.
	resyncResume int64
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for page-level diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Decoder) { d.log = l }
}

// WithOverlapDepth sets how many candidate pages Resync tracks at once.
// Values below 2 are raised to 2.
func WithOverlapDepth(n int) Option {
	return func(d *Decoder) { d.overlapDepth = max(n, minOverlapDepth) }
}

// WithRetainComments keeps the raw comment header instead of skipping it.
func WithRetainComments(retain bool) Option {
	return func(d *Decoder) { d.retainComments = retain }
}

// WithSerialCheck enables or disables rejecting pages whose serial number
// differs from the first page's.
func WithSerialCheck(check bool) Option {
	return func(d *Decoder) { d.checkSerial = check }
}

// New creates a decoder reading from src.
func New(src bytesource.Source, opts ...Option) *Decoder {
	d := &Decoder{
		src:          src,
		log:          zerolog.Nop(),
		overlapDepth: DefaultOverlapDepth,
		checkSerial:  true,
	}
	d.endSegWithKnownGranule = noKnownGranule
	d.lastSegOfPacket = true
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LastError returns the most specific error kind recorded so far.
func (d *Decoder) LastError() ErrorKind { return d.lastErr }

// EndOfInput reports whether a read hit the end of the source.
func (d *Decoder) EndOfInput() bool { return d.eof }

// SampleRate returns the stream sample rate once bootstrapped.
func (d *Decoder) SampleRate() uint32 { return d.sampleRate }

// Channels returns the channel count once bootstrapped.
func (d *Decoder) Channels() uint8 { return d.channels }

// BlockSizes returns the short and long block sizes once bootstrapped.
func (d *Decoder) BlockSizes() (small, large int) { return d.blockSize[0], d.blockSize[1] }

// Bootstrapped reports whether Bootstrap completed.
func (d *Decoder) Bootstrapped() bool { return d.bootstrapped }

// IdentificationHeader returns the raw identification packet.
func (d *Decoder) IdentificationHeader() []byte { return d.ident }

// CommentHeader returns the raw comment packet, or nil unless the decoder
// was created with WithRetainComments.
func (d *Decoder) CommentHeader() []byte { return d.comments }

// PageSequence returns the sequence number of the last parsed page.
func (d *Decoder) PageSequence() uint32 { return d.pageSeq }

// PageFlags returns the header flags of the last parsed page.
func (d *Decoder) PageFlags() byte { return d.pageFlags }

// Segments returns the lacing table of the current page.
func (d *Decoder) Segments() []byte { return d.segments }

// PagesRead returns the number of pages parsed.
func (d *Decoder) PagesRead() int { return d.pagesRead }

// FirstProbedPage returns the page on which the first audio packet begins.
func (d *Decoder) FirstProbedPage() (ProbedPage, bool) {
	if d.firstPage == nil {
		return ProbedPage{}, false
	}
	return *d.firstPage, true
}

// LastProbedPage returns the page found by FindLastPage.
func (d *Decoder) LastProbedPage() (ProbedPage, bool) {
	if d.lastPage == nil {
		return ProbedPage{}, false
	}
	return *d.lastPage, true
}

// fail records kind and returns it as an error.
func (d *Decoder) fail(kind ErrorKind) error {
	d.lastErr = kind
	return kind
}

// eofKind is the error for a required read that ran out of bytes.
func (d *Decoder) eofKind() ErrorKind {
	if d.needMore {
		return ErrNeedMoreData
	}
	return ErrUnexpectedEndOfInput
}

// atomically runs op. On an incremental source a need-more-data failure
// rolls back all state and the source position so op can be retried;
// otherwise bytes behind the new position are released.
func (d *Decoder) atomically(op func() error) error {
	if !d.src.Incremental() {
		return op()
	}
	saved := d.state
	pos := d.src.Position()
	err := op()
	if errors.Is(err, ErrNeedMoreData) {
		d.state = saved
		if serr := d.src.Seek(pos); serr != nil {
			return d.fail(ErrSeekFailed)
		}
		return d.fail(ErrNeedMoreData)
	}
	if c, ok := d.src.(bytesource.Compactor); ok {
		c.Compact()
	}
	return err
}
