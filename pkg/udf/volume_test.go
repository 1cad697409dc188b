package udf

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/go-udf/pkg/device"
)

// buildFixtureImage assembles a minimal, byte-exact UDF image entirely
// in memory: AVDP at sector 256 (lbshift 0), a VRS confirming NSR02 at
// sector 64, a three-descriptor VDS (PVD, PD, LVD) terminated by a TD,
// a root FSD, a root directory File Entry holding one inline FID for
// "hello.txt", and that child's own inline-data File Entry. Every
// allocation in this fixture uses AD_IN_ICB so no allocation-descriptor
// list or AED chain needs to be built, keeping the fixture legible
// while still exercising Mount end-to-end.
func buildFixtureImage(t *testing.T) []byte {
	t.Helper()
	const sectorSize = 512
	img := make([]byte, 300*sectorSize)

	put16 := func(off int, v uint16) { img[off] = byte(v); img[off+1] = byte(v >> 8) }
	put32 := func(off int, v uint32) {
		img[off] = byte(v)
		img[off+1] = byte(v >> 8)
		img[off+2] = byte(v >> 16)
		img[off+3] = byte(v >> 24)
	}
	put64 := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			img[off+i] = byte(v >> (8 * i))
		}
	}
	putTag := func(off int, ident uint16) { put16(off, ident) }
	putDstring := func(off, fieldLen int, s string) {
		img[off] = 8 // compression id 8
		copy(img[off+1:], s)
		img[off+fieldLen-1] = byte(1 + len(s))
	}

	// --- VRS at sector 64 ---
	vrsOff := 64 * sectorSize
	copy(img[vrsOff+1:], "NSR02")

	// --- AVDP at sector 256 ---
	avdpOff := 256 * sectorSize
	putTag(avdpOff, tagAnchorVolume)
	put32(avdpOff+12, 256) // tag.Location == candidate
	put32(avdpOff+20, 100) // MainVDSExtentLocation => VDS starts at block 100

	// --- VDS: PVD at block 100 ---
	pvdOff := 100 * sectorSize
	putTag(pvdOff, tagPrimaryVolume)
	putDstring(pvdOff+24, 32, "TESTVOL")
	putDstring(pvdOff+190, 128, "1234567890abcdef")

	// --- PD at block 101 ---
	pdOff := 101 * sectorSize
	putTag(pdOff, tagPartition)
	put16(pdOff+18, 0)  // PartitionNumber
	put32(pdOff+188, 0) // PartitionStartingLoc
	put32(pdOff+192, 1000)

	// --- LVD at block 102 ---
	lvdOff := 102 * sectorSize
	putTag(lvdOff, tagLogicalVolume)
	put32(lvdOff+212, 512) // LogicalBlockSize
	putDstring(lvdOff+84, 128, "TESTLV")
	put32(lvdOff+392, 6) // PartitionMapTableLen
	put32(lvdOff+396, 1) // NumPartitionMaps
	mapTable := []byte{0x01, 0x06, 0x01, 0x00, 0x00, 0x00}
	copy(img[lvdOff+440:], mapTable)
	// FileSetDescriptorAD long AD at 416: points at the FSD block (150).
	put32(lvdOff+416, 0)
	put32(lvdOff+420, 150)
	put16(lvdOff+424, 0)

	// --- TD at block 103 ---
	putTag(103*sectorSize, tagTerminating)

	// --- FSD at block 150 ---
	fsdOff := 150 * sectorSize
	putTag(fsdOff, tagFileSet)
	put32(fsdOff+400, 0)
	put32(fsdOff+404, 160) // RootDirICB -> block 160
	put16(fsdOff+408, 0)

	// --- Root ICB (File Entry, directory) at block 160 ---
	rootOff := 160 * sectorSize
	putTag(rootOff, tagFile)
	img[rootOff+27] = fileTypeDirectory
	put16(rootOff+34, icbAllocInICB)
	put32(rootOff+168, 0)  // ext attr length
	put32(rootOff+172, 48) // alloc descs length == inline dir size
	put64(rootOff+56, 48)  // InfoLength
	// modTime (offset 84) left zeroed; decodeTimestamp handles a
	// zero-valued timestamp without erroring.

	// One inline FID for "hello.txt" at offset 176 within the root block.
	fidOff := rootOff + 176
	putTag(fidOff, tagFileIdentifier)
	put16(fidOff+16, 1) // FileVersionNumber
	img[fidOff+18] = 0  // characteristics: plain file
	img[fidOff+19] = 10 // FileIdentifierLen (1 compression byte + 9 chars)
	put32(fidOff+20, 0)
	put32(fidOff+24, 170) // ICB position -> block 170
	put16(fidOff+28, 0)   // ICB partition ref
	put16(fidOff+36, 0)   // ImplUseLen
	img[fidOff+38] = 8    // compression id
	copy(img[fidOff+39:], "hello.txt")

	// --- Child File Entry ("hello.txt") at block 170 ---
	childOff := 170 * sectorSize
	putTag(childOff, tagFile)
	img[childOff+27] = fileTypeRegular
	put16(childOff+34, icbAllocInICB)
	put32(childOff+168, 0)
	put32(childOff+172, 2)
	put64(childOff+56, 2)
	copy(img[childOff+176:], "hi")

	return img
}

func openFixtureVolume(t *testing.T) *Volume {
	t.Helper()
	img := buildFixtureImage(t)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "image.udf", img, 0o644))

	dev, err := device.Open(fs, "image.udf", SectorSize)
	require.NoError(t, err)

	vol, err := Mount(dev)
	require.NoError(t, err)
	return vol
}

func TestMount_FixtureImage(t *testing.T) {
	vol := openFixtureVolume(t)

	require.EqualValues(t, 0, vol.LBShift)
	require.Len(t, vol.Partitions, 1)
	require.Len(t, vol.PartitionMaps, 1)
	require.Equal(t, 0, vol.PartitionMaps[0].PDIndex, "PM-1: partition map rewritten to PD index")
	require.Equal(t, "TESTVOL", vol.Label())
}

func TestMount_UUIDDerivation_AllHexSixteenChars(t *testing.T) {
	vol := openFixtureVolume(t)
	require.Equal(t, "1234567890abcdef", vol.UUID())
}

func TestMount_RootDirectoryListing(t *testing.T) {
	vol := openFixtureVolume(t)

	var names []string
	err := vol.Dir("/", func(name string, e *Entry) (bool, error) {
		names = append(names, name)
		return false, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{".", "hello.txt"}, names)
}

func TestMount_OpenFileAndRead(t *testing.T) {
	vol := openFixtureVolume(t)

	f, err := vol.OpenFile("/hello.txt")
	require.NoError(t, err)
	defer f.Close()

	require.EqualValues(t, 2, f.Size())
	buf := make([]byte, 2)
	n, err := f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "hi", string(buf))
}

func TestMount_ListTree(t *testing.T) {
	vol := openFixtureVolume(t)

	tree, err := vol.ListTree("")
	require.NoError(t, err)
	require.Equal(t, []string{"/hello.txt"}, tree)
}

func TestMount_FailsOnTruncatedImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "empty.udf", make([]byte, 512), 0o644))

	dev, err := device.Open(fs, "empty.udf", SectorSize)
	require.NoError(t, err)

	_, err = Mount(dev)
	require.Error(t, err)
	var udfErr *Error
	require.ErrorAs(t, err, &udfErr)
	require.Equal(t, BadFormat, udfErr.Kind)
}
