package udf

import (
	"github.com/go-logr/logr"

	"github.com/s0up4200/go-udf/pkg/device"
)

type mountOptions struct {
	logger      logr.Logger
	maxAEDHops  int
	diagnostics *Diagnostics
	blockDevice device.BlockDevice
}

func defaultMountOptions() mountOptions {
	return mountOptions{
		logger:     logr.Discard(),
		maxAEDHops: DefaultMaxAEDHops,
	}
}

// Option configures Mount/Open. Grounded on iso-kit's
// pkg/option package's functional-options shape, applied here to the
// mount/open path rather than ISO creation.
type Option func(*mountOptions)

// WithLogger attaches a logr.Logger; the default is logr.Discard().
func WithLogger(log logr.Logger) Option {
	return func(o *mountOptions) { o.logger = log }
}

// WithMaxAEDHops bounds allocation-extent-descriptor continuation
// chain traversal (invariant AD-1). The default is DefaultMaxAEDHops.
func WithMaxAEDHops(n int) Option {
	return func(o *mountOptions) {
		if n > 0 {
			o.maxAEDHops = n
		}
	}
}

// WithDiagnostics captures internal resolution offsets into d on every
// subsequent ICB read (OpenFile, Dir, ListTree, ExtractAll), so d
// describes the most recently read node.
func WithDiagnostics(d *Diagnostics) Option {
	return func(o *mountOptions) { o.diagnostics = d }
}

// WithBlockDevice injects a prebuilt device.BlockDevice instead of
// having Open construct one from a path, letting tests back a volume
// with an afero.MemMapFs-backed device.FileDevice.
func WithBlockDevice(dev device.BlockDevice) Option {
	return func(o *mountOptions) { o.blockDevice = dev }
}
