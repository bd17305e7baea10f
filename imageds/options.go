package imageds

import (
	"runtime"

	"github.com/crazypenguincode/CNTK/bytesource"
)

// DefaultChunkCapacity is the sample cap per chunk.
const DefaultChunkCapacity = 512

// DefaultMultiViewReplicas is the conventional replica count for
// multi-view crop mode.
const DefaultMultiViewReplicas = 10

type options struct {
	precision        ElementType
	grayscale        bool
	replicas         int
	chunkCapacity    int
	containerSupport bool
	remote           map[string]bytesource.Reader
	readConcurrency  int
	logger           *Logger
}

// Option configures a Deserializer.
type Option func(*options)

// WithPrecision sets the floating element type used for labels and for
// converting images whose native depth has no direct representation.
// Must be ElementTypeFloat32 (default) or ElementTypeFloat64.
func WithPrecision(e ElementType) Option {
	return func(o *options) {
		o.precision = e
	}
}

// WithGrayscale decodes images to a single luminance channel instead of
// three color channels.
func WithGrayscale() Option {
	return func(o *options) {
		o.grayscale = true
	}
}

// WithMultiViewCrop assigns replicas sequence ids per accepted mapping
// line, all sharing one chunk, so downstream transforms can derive one
// crop per replica. Pass DefaultMultiViewReplicas for the conventional
// ten-crop setup.
func WithMultiViewCrop(replicas int) Option {
	return func(o *options) {
		o.replicas = replicas
	}
}

// WithChunkCapacity overrides the per-chunk sample cap.
func WithChunkCapacity(n int) Option {
	return func(o *options) {
		o.chunkCapacity = n
	}
}

// WithContainerSupport toggles archive-container paths. When disabled,
// a `container@item` path fails the build with ErrUnsupportedFormat.
func WithContainerSupport(enabled bool) Option {
	return func(o *options) {
		o.containerSupport = enabled
	}
}

// WithRemoteReader routes mapping-file paths of the form
// `scheme://...` to reader (e.g. "s3" with a bytesource/minio Reader).
func WithRemoteReader(scheme string, reader bytesource.Reader) Option {
	return func(o *options) {
		o.remote[scheme] = reader
	}
}

// WithReadConcurrency bounds the number of parallel byte-source reads
// inside one LoadChunk call. The call itself stays synchronous.
func WithReadConcurrency(n int) Option {
	return func(o *options) {
		o.readConcurrency = n
	}
}

// WithLogger configures structured logging. Pass nil to disable.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		precision:        ElementTypeFloat32,
		replicas:         1,
		chunkCapacity:    DefaultChunkCapacity,
		containerSupport: true,
		remote:           make(map[string]bytesource.Reader),
		readConcurrency:  runtime.GOMAXPROCS(0),
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o *options) validate() error {
	if o.precision != ElementTypeFloat32 && o.precision != ElementTypeFloat64 {
		return &ConfigError{Option: "precision", Reason: "must be float32 or float64, got " + o.precision.String()}
	}
	if o.replicas < 1 {
		return &ConfigError{Option: "multi-view replicas", Reason: "must be at least 1"}
	}
	if o.chunkCapacity < 1 {
		return &ConfigError{Option: "chunk capacity", Reason: "must be at least 1"}
	}
	if o.readConcurrency < 1 {
		return &ConfigError{Option: "read concurrency", Reason: "must be at least 1"}
	}
	return nil
}
