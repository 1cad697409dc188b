package udf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// blockMapDevice serves fixed 512-byte blocks keyed by absolute
// logical block number, letting path_test build a small directory
// tree without assembling a full disk image byte-for-byte.
type blockMapDevice struct {
	blocks map[uint32][]byte
}

func (d *blockMapDevice) SectorSize() int { return SectorSize }

func (d *blockMapDevice) ReadAt(sector uint32, byteOffset int, buf []byte) error {
	b := d.blocks[sector]
	if b == nil {
		b = make([]byte, SectorSize)
	}
	copy(buf, b[byteOffset:])
	return nil
}

func put16At(b []byte, off int, v uint16) { b[off] = byte(v); b[off+1] = byte(v >> 8) }
func put32At(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}
func put64At(b []byte, off int, v uint64) {
	for i := 0; i < 8; i++ {
		b[off+i] = byte(v >> (8 * i))
	}
}

// fidBytes builds one 4-byte-aligned FID record pointing at the given
// ICB, for splicing into a directory's inline data.
func fidBytes(name string, icbBlock uint32, characteristics byte) []byte {
	idLen := 0
	if name != "" {
		idLen = 1 + len(name) // OSTA-8 compression byte + chars
	}
	total := (fidHeaderSize + idLen + 3) &^ 3
	b := make([]byte, total)
	put16At(b, 0, tagFileIdentifier)
	put16At(b, 16, 1) // FileVersionNumber
	b[18] = characteristics
	b[19] = byte(idLen)
	put32At(b, 20, 0)
	put32At(b, 24, icbBlock)
	put16At(b, 28, 0) // ICB partition ref
	put16At(b, 36, 0) // ImplUseLen
	if idLen > 0 {
		b[38] = 8
		copy(b[39:], name)
	}
	return b
}

// fileEntryBlock builds one 512-byte File Entry block (AD_IN_ICB
// only) at the given logical block, with inlineData placed right
// after the header (offset 176, matching volume_test.go's fixture).
func fileEntryBlock(fileType byte, inlineData []byte) []byte {
	block := make([]byte, 512)
	put16At(block, 0, tagFile)
	block[27] = fileType
	put16At(block, 34, icbAllocInICB)
	put32At(block, 168, 0) // ext attr length
	put32At(block, 172, uint32(len(inlineData)))
	put64At(block, 56, uint64(len(inlineData)))
	copy(block[176:], inlineData)
	return block
}

// buildPathFixture assembles:
//
//	/          (block 1, root dir)
//	/dir       (block 2, subdirectory)
//	/dir/leaf.txt (block 4, regular file, content "leaf")
//	/link      (block 3, symlink to /dir/leaf.txt)
func buildPathFixture(t *testing.T) *Volume {
	t.Helper()

	leafData := []byte("leaf")
	leafBlock := fileEntryBlock(fileTypeRegular, leafData)

	subdirData := fidBytes("leaf.txt", 4, 0)
	subdirBlock := fileEntryBlock(fileTypeDirectory, subdirData)

	var symlinkData []byte
	addComp := func(compType byte, name string) {
		var ident []byte
		if name != "" {
			ident = append([]byte{8}, name...) // OSTA compression id 8
		}
		c := make([]byte, 4+len(ident))
		c[0] = compType
		c[1] = byte(len(ident))
		copy(c[4:], ident)
		symlinkData = append(symlinkData, c...)
	}
	addComp(2, "")
	addComp(5, "dir")
	addComp(5, "leaf.txt")
	symlinkBlock := fileEntryBlock(fileTypeSymlink, symlinkData)

	var rootData []byte
	rootData = append(rootData, fidBytes("dir", 2, charDirectory)...)
	rootData = append(rootData, fidBytes("link", 3, 0)...)
	rootBlock := fileEntryBlock(fileTypeDirectory, rootData)

	dev := &blockMapDevice{blocks: map[uint32][]byte{
		1: rootBlock,
		2: subdirBlock,
		3: symlinkBlock,
		4: leafBlock,
	}}

	vol := &Volume{
		Device:  dev,
		LBShift: 0,
		LVD:     LogicalVolumeDescriptor{LogicalBlockSize: 512},
		Partitions: []Partition{
			{Number: 0, Start: 0, Length: 1000},
		},
		PartitionMaps: []PartitionMap{
			{Type: 1, PartitionNumber: 0, PDIndex: 0},
		},
		RootICB: LongAD{Position: 1, PartitionRef: 0},
		opts:    defaultMountOptions(),
	}
	return vol
}

func TestFindFile_NestedDirectory(t *testing.T) {
	vol := buildPathFixture(t)
	root, err := vol.rootNode()
	require.NoError(t, err)

	n, err := findFile(root, "/dir/leaf.txt", kindRegular)
	require.NoError(t, err)

	buf := make([]byte, n.Size())
	_, err = n.ReadFile(0, buf)
	require.NoError(t, err)
	require.Equal(t, "leaf", string(buf))
}

func TestFindFile_FollowsTrailingSymlinkForRegularWant(t *testing.T) {
	vol := buildPathFixture(t)
	root, err := vol.rootNode()
	require.NoError(t, err)

	n, err := findFile(root, "/link", kindRegular)
	require.NoError(t, err)

	buf := make([]byte, n.Size())
	_, err = n.ReadFile(0, buf)
	require.NoError(t, err)
	require.Equal(t, "leaf", string(buf))
}

func TestFindFile_ReturnsSymlinkEntryWhenExplicitlyWanted(t *testing.T) {
	vol := buildPathFixture(t)
	root, err := vol.rootNode()
	require.NoError(t, err)

	n, err := findFile(root, "/link", kindSymlink)
	require.NoError(t, err)

	target, err := n.readSymlink()
	require.NoError(t, err)
	require.Equal(t, "/dir/leaf.txt", target)
}

func TestFindFile_NoSuchFile(t *testing.T) {
	vol := buildPathFixture(t)
	root, err := vol.rootNode()
	require.NoError(t, err)

	_, err = findFile(root, "/nope", kindRegular)
	require.Error(t, err)
}

func TestOpenFile_FollowsSymlinkToRegularFile(t *testing.T) {
	vol := buildPathFixture(t)

	f, err := vol.OpenFile("/link")
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, f.Size())
	n, err := f.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "leaf", string(buf[:n]))
}
