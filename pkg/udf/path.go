package udf

import "strings"

// findFile implements the distilled spec's external path-resolver
// collaborator (fshelp_find_file) concretely, since this is a
// standalone library with no bootloader host to supply it. It splits
// path on '/', walks each component via iterateDir, and follows
// symlinks: an intermediate symlink is resolved as a directory, and a
// trailing symlink is resolved against want, except when want is
// kindSymlink, in which case the symlink's own node is returned.
func findFile(root *node, path string, want entryKind) (*node, error) {
	cur := root
	components := strings.Split(strings.Trim(path, "/"), "/")
	if len(components) == 1 && components[0] == "" {
		if want != kindDirectory {
			return nil, badFormat("path resolves to a directory")
		}
		return root, nil
	}

	for i, comp := range components {
		if comp == "" || comp == "." {
			continue
		}
		last := i == len(components)-1

		var found *node
		var foundKind entryKind
		var target string
		err := cur.iterateDir(func(name string, e *Entry) (bool, error) {
			if name == comp {
				found = e.node
				foundKind = e.kind
				target = e.target
				return true, nil
			}
			return false, nil
		})
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, badFormat("no such file or directory")
		}

		// Intermediate symlink components must always resolve further
		// (they're only useful as a directory to keep walking). A
		// trailing symlink is followed too unless the caller explicitly
		// asked for the symlink entry itself (want == kindSymlink).
		if foundKind == kindSymlink && !(last && want == kindSymlink) {
			targetWant := kindDirectory
			if last {
				targetWant = want
			}
			resolved, err := resolveSymlink(cur, target, targetWant)
			if err != nil {
				return nil, err
			}
			cur = resolved
			continue
		}

		cur = found
		if last && want != foundKind {
			return nil, badFormatf("unexpected entry kind for %q", path)
		}
	}

	return cur, nil
}

func resolveSymlink(from *node, target string, want entryKind) (*node, error) {
	if strings.HasPrefix(target, "/") {
		root, err := from.vol.rootNode()
		if err != nil {
			return nil, err
		}
		return findFile(root, target, want)
	}
	return findFile(from, target, want)
}
