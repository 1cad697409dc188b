// Package udf implements a read-only reader for UDF/ECMA-167
// filesystem images: volume discovery, ICB/allocation-descriptor
// resolution, file data reads, and directory traversal including
// symlinks. Grounded on go-bdinfo's internal/fs/udf package, rebuilt
// around an explicit Volume/node/File model with a concrete
// afero-backed block device (pkg/device) for testability.
package udf

import (
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/s0up4200/go-udf/pkg/device"
)

// Open mounts the UDF image at name (via os/afero) and returns its
// Volume. Pass WithBlockDevice to supply an already-open device.BlockDevice
// instead (e.g. one backed by afero.NewMemMapFs() in tests).
func Open(name string, opts ...Option) (*Volume, error) {
	o := defaultMountOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dev := o.blockDevice
	if dev == nil {
		fd, err := device.Open(afero.NewOsFs(), name, SectorSize)
		if err != nil {
			return nil, ioError("open device", err)
		}
		dev = fd
	}

	return Mount(dev, opts...)
}

// File is an open handle to a regular file within a mounted Volume,
// implementing io.ReadCloser. Grounded on go-bdinfo's udfFile,
// generalized over the node abstraction shared with directory walking.
type File struct {
	n      *node
	offset int64
}

// OpenFile implements distilled spec C7's open: resolve name against
// the volume's root and return a readable handle.
func (v *Volume) OpenFile(name string) (*File, error) {
	root, err := v.rootNode()
	if err != nil {
		return nil, err
	}
	n, err := findFile(root, name, kindRegular)
	if err != nil {
		return nil, err
	}
	return &File{n: n}, nil
}

// Read implements io.Reader, advancing the file's internal offset.
func (f *File) Read(p []byte) (int, error) {
	if f.offset >= f.n.Size() {
		return 0, io.EOF
	}
	remain := f.n.Size() - f.offset
	if int64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := f.n.ReadFile(f.offset, p)
	f.offset += int64(n)
	return n, err
}

// Close releases no additional resources beyond the shared Volume;
// provided to satisfy io.ReadCloser (distilled spec C7's close frees
// only the node, which is owned solely by this handle).
func (f *File) Close() error { return nil }

// Size returns the file's declared length.
func (f *File) Size() int64 { return f.n.Size() }

// Dir implements distilled spec C7's dir: resolve path to a directory
// node and invoke hook once per entry (including the synthetic ".").
func (v *Volume) Dir(dirPath string, hook func(name string, e *Entry) (stop bool, err error)) error {
	root, err := v.rootNode()
	if err != nil {
		return err
	}
	dirNode, err := findFile(root, dirPath, kindDirectory)
	if err != nil {
		return err
	}
	return dirNode.iterateDir(hook)
}

// ListTree walks the volume breadth-first from root (or from startPath
// if non-empty), returning every entry's full path. Supplements the
// distilled spec's single-directory Dir with a whole-tree listing, the
// kind of operation a real udfview CLI needs and the distilled C7
// surface deliberately left to callers to compose from Dir + recursion.
func (v *Volume) ListTree(startPath string) ([]string, error) {
	if startPath == "" {
		startPath = "/"
	}

	type queued struct {
		path string
	}
	var out []string
	queue := []queued{{path: startPath}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		err := v.Dir(cur.path, func(name string, e *Entry) (bool, error) {
			if name == "." || name == ".." {
				return false, nil
			}
			full := path.Join(cur.path, name)
			out = append(out, full)
			if e.IsDir() {
				queue = append(queue, queued{path: full})
			}
			return false, nil
		})
		if err != nil {
			return out, err
		}
	}

	return out, nil
}

// ExtractAll copies every regular file under startPath into destDir on
// the host filesystem (via afero.Fs, default afero.NewOsFs()),
// preserving relative directory structure. Supplements the distilled
// spec's file-by-file read/open surface with the bulk extraction a
// udfview-style CLI needs. A symlink to a regular file is followed and
// its target's content is written at the symlink's own path, matching
// OpenFile's semantics; a symlink that resolves to a directory (or any
// other entry findFile rejects) is treated like a directory entry.
func (v *Volume) ExtractAll(startPath, destDir string, destFS afero.Fs) error {
	if destFS == nil {
		destFS = afero.NewOsFs()
	}
	if startPath == "" {
		startPath = "/"
	}

	paths, err := v.ListTree(startPath)
	if err != nil {
		return err
	}

	for _, p := range paths {
		rel := strings.TrimPrefix(strings.TrimPrefix(p, startPath), "/")
		outPath := path.Join(destDir, rel)

		root, err := v.rootNode()
		if err != nil {
			return err
		}
		n, err := findFile(root, p, kindRegular)
		if err != nil {
			// Directories, and symlinks that do not resolve to a regular
			// file, fail the kindRegular check; create the directory and
			// move on.
			if derr := destFS.MkdirAll(outPath, 0o755); derr == nil {
				continue
			}
			continue
		}

		if err := destFS.MkdirAll(path.Dir(outPath), 0o755); err != nil {
			return err
		}
		out, err := destFS.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}

		buf := make([]byte, 1<<20)
		var off int64
		for off < n.Size() {
			want := buf
			if remain := n.Size() - off; int64(len(want)) > remain {
				want = want[:remain]
			}
			nRead, rerr := n.ReadFile(off, want)
			if rerr != nil {
				out.Close()
				return rerr
			}
			if _, werr := out.Write(want[:nRead]); werr != nil {
				out.Close()
				return werr
			}
			off += int64(nRead)
		}
		out.Close()
	}

	return nil
}
