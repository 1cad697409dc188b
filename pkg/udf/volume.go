package udf

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/s0up4200/go-udf/pkg/device"
)

// Partition is the decoded {number, start, length} triple a
// PartitionDescriptor reduces to once mounted (distilled spec §3).
type Partition struct {
	Number uint16
	Start  uint32
	Length uint32
}

// Volume is the result of Mount: every structure needed to resolve a
// path into an ICB and a logical-block stream. Grounded on go-bdinfo's
// internal/fs/udf.Reader, generalized to the distilled spec's explicit
// data model (lbshift-driven addressing, partition map fixup) the
// teacher's single-sector-size reader never needed.
type Volume struct {
	Device device.BlockDevice

	// LBShift is log2(logical_block_size / 512); invariant VD-1 keeps it
	// in {0,1,2,3}.
	LBShift uint

	PVD PrimaryVolumeDescriptor
	LVD LogicalVolumeDescriptor

	// Partitions is indexed by the value partition maps are rewritten to
	// point at during fixupPartitionMaps (invariant PM-1).
	Partitions []Partition

	PartitionMaps []PartitionMap

	RootICB LongAD

	log  logr.Logger
	diag *Diagnostics
	opts mountOptions
}

// blockSize is 1 << (9 + LBShift): the logical block size in bytes.
func (v *Volume) blockSize() int {
	return 1 << (9 + v.LBShift)
}

// readBlock reads an entire logical block's worth of bytes at the given
// logical block number.
func (v *Volume) readBlock(block uint32) ([]byte, error) {
	buf := make([]byte, v.blockSize())
	if err := v.Device.ReadAt(block<<v.LBShift, 0, buf); err != nil {
		return nil, ioError("read block", err)
	}
	return buf, nil
}

// lookupBlock implements the distilled spec's lookup_block: translate a
// partition-relative block number to an absolute logical block number.
func (v *Volume) lookupBlock(partRef uint16, blockNum uint32) (uint32, error) {
	if int(partRef) >= len(v.PartitionMaps) {
		return 0, badFormat(msgInvalidPartRef)
	}
	pdIndex := v.PartitionMaps[partRef].PDIndex
	if pdIndex < 0 || pdIndex >= len(v.Partitions) {
		return 0, badFormat(msgInvalidPartRef)
	}
	return v.Partitions[pdIndex].Start + blockNum, nil
}

// Mount probes dev for a UDF volume and assembles a Volume per the
// distilled spec's five-step mount algorithm (AVDP probe, VRS scan,
// VDS iteration, partition-map fixup, root FSD read). Grounded on
// go-bdinfo's Reader.readVolumeDescriptors / readFileSetDescriptor,
// generalized to vary lbshift and keep the VRS/partition-fixup steps
// the teacher's single-geometry reader skipped entirely.
func Mount(dev device.BlockDevice, opts ...Option) (*Volume, error) {
	o := defaultMountOptions()
	for _, opt := range opts {
		opt(&o)
	}

	v := &Volume{Device: dev, log: o.logger, diag: o.diagnostics, opts: o}

	lbshift, vdsStart, err := probeAVDP(dev)
	if err != nil {
		return nil, err
	}
	v.LBShift = lbshift
	v.log.V(1).Info("avdp found", "lbshift", lbshift, "vdsStart", vdsStart)

	if err := scanVRS(dev, lbshift); err != nil {
		return nil, err
	}
	v.log.V(1).Info("vrs confirmed")

	if err := v.iterateVDS(vdsStart); err != nil {
		return nil, err
	}
	v.log.V(1).Info("vds iterated", "partitions", len(v.Partitions), "partitionMaps", len(v.PartitionMaps))

	if err := v.fixupPartitionMaps(); err != nil {
		return nil, err
	}

	if err := v.readRootFSD(); err != nil {
		return nil, err
	}

	return v, nil
}

// avdpSize is the fixed, always-512-byte-sector-relative AVDP record
// size this reader probes for.
const avdpSize = 32

// probeAVDP implements distilled spec step 1. Candidate AVDP sectors
// are {256, 512}; lbshift ranges 0..3.
func probeAVDP(dev device.BlockDevice) (uint, uint32, error) {
	for lbshift := uint(0); lbshift <= 3; lbshift++ {
		for _, candidate := range [2]uint32{256, 512} {
			buf := make([]byte, avdpSize)
			byteOff := int64(candidate<<lbshift) * 512
			sector := uint32(byteOff / int64(dev.SectorSize()))
			subOff := int(byteOff % int64(dev.SectorSize()))
			if err := dev.ReadAt(sector, subOff, buf); err != nil {
				continue
			}
			avdp, err := readAVDP(buf)
			if err != nil {
				continue
			}
			if avdp.Tag.Location != candidate {
				continue
			}
			return lbshift, avdp.MainVDSExtentLocation, nil
		}
	}
	return 0, 0, badFormat(msgNotUDF)
}

var vrsMagics = map[string]bool{
	stdIDBEA01: true,
	stdIDBOOT2: true,
	stdIDCD001: true,
	stdIDCDW02: true,
	stdIDTEA01: true,
}

// scanVRS implements distilled spec step 2.
func scanVRS(dev device.BlockDevice, lbshift uint) error {
	sector := uint32(vrsFirstSectorBase>>(lbshift+9)) + 1
	step := uint32(vrsStepBase>>(lbshift+9)) + 1

	for {
		buf := make([]byte, 7)
		if err := dev.ReadAt(sector, 1, buf); err != nil {
			return badFormat(msgNotUDF)
		}
		magic := string(buf[:5])
		switch magic {
		case stdIDNSR02, stdIDNSR03:
			return nil
		default:
			if !vrsMagics[magic] {
				return badFormatf("unrecognized vrs magic %q", magic)
			}
		}
		sector += step
	}
}

// iterateVDS implements distilled spec step 3.
func (v *Volume) iterateVDS(startBlock uint32) error {
	block := startBlock
	sawTerm := false

	for {
		buf, err := v.readBlock(block)
		if err != nil {
			return err
		}
		tag, err := readTag(buf, 0)
		if err != nil {
			return err
		}

		switch tag.Ident {
		case tagPrimaryVolume:
			pvd, err := readPVD(buf)
			if err != nil {
				return err
			}
			v.PVD = pvd
		case tagPartition:
			pd, err := readPD(buf)
			if err != nil {
				return err
			}
			if len(v.Partitions) >= MaxPartitionDescriptors {
				return badFormat(msgTooManyPDs)
			}
			v.Partitions = append(v.Partitions, Partition{
				Number: pd.PartitionNumber,
				Start:  pd.PartitionStartingLoc,
				Length: pd.PartitionLength,
			})
		case tagLogicalVolume:
			lvd, err := readLVD(buf)
			if err != nil {
				return err
			}
			v.LVD = lvd
			maps, err := lvd.partitionMaps()
			if err != nil {
				return err
			}
			if len(v.PartitionMaps)+len(maps) > MaxPartitionMaps {
				return badFormat(msgTooManyPartitionMaps)
			}
			v.PartitionMaps = append(v.PartitionMaps, maps...)
			v.RootICB = lvd.FileSetDescriptorAD
		case tagTerminating:
			sawTerm = true
		default:
			if tag.Ident > tagTerminating {
				return &Error{Kind: BadFormat, Msg: msgInvalidTagIdent, Err: fmt.Errorf("ident %d", tag.Ident)}
			}
			// other known idents (e.g. unallocated space, volume descriptor
			// pointer) are skipped per distilled spec step 3.
		}

		if sawTerm {
			return nil
		}
		block++
	}
}

// fixupPartitionMaps implements distilled spec step 4 (invariant PM-1).
func (v *Volume) fixupPartitionMaps() error {
	for i, pm := range v.PartitionMaps {
		found := -1
		for j, pd := range v.Partitions {
			if pd.Number == pm.PartitionNumber {
				found = j
				break
			}
		}
		if found < 0 {
			return badFormat(msgCantFindPD)
		}
		v.PartitionMaps[i].PDIndex = found
	}
	return nil
}

// readRootFSD implements distilled spec step 5.
func (v *Volume) readRootFSD() error {
	block, err := v.lookupBlock(v.RootICB.PartitionRef, v.RootICB.Position)
	if err != nil {
		return err
	}
	buf, err := v.readBlock(block)
	if err != nil {
		return err
	}
	fsd, err := readFSD(buf)
	if err != nil {
		return err
	}
	v.RootICB = fsd.RootDirICB
	return nil
}

// UUID derives an identifier from the volume set identifier, following
// the on-disk derivation rule byte-for-byte: volumes with a set
// identifier shorter than 8 characters have no UUID ("" is returned).
// Otherwise the first 16 characters (zero-padded if shorter) are
// scanned for the first non-hex-digit at index k; k<8 hex-encodes the
// first 8 raw bytes, k<16 lowercases the first 8 characters and
// hex-encodes the next 4 raw bytes, and k==16 lowercases all 16
// characters as-is. Every non-empty result is 16 hex digits.
func (v *Volume) UUID() string {
	src := v.PVD.VolumeSetIdentifier
	if len(src) < 8 {
		return ""
	}
	buf := make([]byte, 16)
	copy(buf, src)

	k := 16
	for i := 0; i < 16; i++ {
		if !isHexDigit(buf[i]) {
			k = i
			break
		}
	}

	switch {
	case k < 8:
		return fmt.Sprintf("%02x%02x%02x%02x%02x%02x%02x%02x",
			buf[0], buf[1], buf[2], buf[3], buf[4], buf[5], buf[6], buf[7])
	case k < 16:
		return strings.ToLower(string(buf[:8])) + fmt.Sprintf("%02x%02x%02x%02x", buf[8], buf[9], buf[10], buf[11])
	default:
		return strings.ToLower(string(buf[:16]))
	}
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// UUIDString formats UUID() through github.com/google/uuid, for callers
// (cmd/udfview) that want the canonical RFC 4122 punctuated form: the
// 16-hex-digit value is right-padded with zeros to 32 digits and parsed.
// Grounded on altmount's uuid.New() usage
// (internal/api/stream_tracker.go), adapted here to parse a derived
// identifier rather than mint a random one. Returns "" when the volume
// has no UUID, and the raw derived string if parsing fails.
func (v *Volume) UUIDString() string {
	raw := v.UUID()
	if raw == "" {
		return ""
	}
	padded := raw
	if len(padded) < 32 {
		padded += strings.Repeat("0", 32-len(padded))
	}
	if id, err := uuid.Parse(padded); err == nil {
		return id.String()
	}
	return raw
}

// Label returns the volume identifier from the PVD, the UDF analogue
// of a filesystem label.
func (v *Volume) Label() string {
	return v.PVD.VolumeIdentifier
}

// rootNode reads a fresh node for the root directory's ICB. Per the
// concurrency model, no cache is maintained across top-level calls, so
// every resolution starts from a freshly read root.
func (v *Volume) rootNode() (*node, error) {
	return v.readICB(v.RootICB)
}

// Close releases the underlying block device, if it implements io.Closer.
func (v *Volume) Close() error {
	if c, ok := v.Device.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
