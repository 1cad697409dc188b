package udf

// Diagnostics captures internal offsets resolved for the most recently
// read ICB (after OpenFile, the opened file's node), for debugging tools
// (cmd/udfdebug) that need to show exactly where on disk a node's
// metadata lives. Populated only when a non-nil *Diagnostics is supplied
// via WithDiagnostics; no
// package-scope mutable state exists anywhere in this package.
type Diagnostics struct {
	// ICBSector is the absolute logical block number the node's File
	// Entry / Extended File Entry was read from.
	ICBSector uint32
	// FileAttributeOffset is the byte offset of ICBTag.Flags within the
	// ICB block buffer.
	FileAttributeOffset uint32
	// FileSizeOffset is the byte offset of InfoLength within the ICB
	// block buffer.
	FileSizeOffset uint32
	// PartitionStart is the start block of the partition the node's ICB
	// was addressed in.
	PartitionStart uint32
}

func (v *Volume) recordDiagnostics(icbSector uint32, _ FileEntry, partStart uint32) {
	if v.diag == nil {
		return
	}
	*v.diag = Diagnostics{
		ICBSector:           icbSector,
		FileAttributeOffset: 34, // ICBTag starts at 16, Flags at ICBTag-relative offset 18
		FileSizeOffset:      56,
		PartitionStart:      partStart,
	}
}
