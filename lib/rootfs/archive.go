// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rootfs

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"
)

// ErrUnsafePath is returned for archive entries that would land outside
// the destination.
var ErrUnsafePath = errors.New("unsafe path in snapshot")

// Pack writes the tree under root to w as a tar stream compressed with
// codec.
func Pack(root string, w io.Writer, codec Codec) error {
	compressed, err := codec.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating %s writer: %w", codec, err)
	}
	archive := tar.NewWriter(compressed)

	type inode struct{ device, number uint64 }
	links := make(map[inode]string)

	walkErr := filepath.WalkDir(root, func(current string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(root, current)
		if err != nil {
			return err
		}
		if relative == "." {
			return nil
		}
		name := filepath.ToSlash(relative)

		info, err := entry.Info()
		if err != nil {
			return err
		}
		mode := info.Mode()
		if !mode.IsDir() && !mode.IsRegular() && mode&fs.ModeSymlink == 0 {
			return nil
		}

		var target string
		if mode&fs.ModeSymlink != 0 {
			if target, err = os.Readlink(current); err != nil {
				return fmt.Errorf("reading link %s: %w", name, err)
			}
		}
		header, err := tar.FileInfoHeader(info, target)
		if err != nil {
			return fmt.Errorf("header for %s: %w", name, err)
		}
		header.Name = name
		if mode.IsDir() {
			header.Name += "/"
		}

		if stat, ok := info.Sys().(*syscall.Stat_t); ok && mode.IsRegular() && stat.Nlink > 1 {
			key := inode{uint64(stat.Dev), stat.Ino}
			if first, seen := links[key]; seen {
				header.Typeflag = tar.TypeLink
				header.Linkname = first
				header.Size = 0
			} else {
				links[key] = name
			}
		}

		if err := archive.WriteHeader(header); err != nil {
			return fmt.Errorf("writing header for %s: %w", name, err)
		}
		if header.Typeflag != tar.TypeReg {
			return nil
		}
		file, err := os.Open(current)
		if err != nil {
			return err
		}
		_, err = io.Copy(archive, file)
		file.Close()
		if err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		return nil
	})

	if walkErr != nil {
		archive.Close()
		compressed.Close()
		return fmt.Errorf("packing %s: %w", root, walkErr)
	}
	if err := archive.Close(); err != nil {
		compressed.Close()
		return fmt.Errorf("finishing tar stream: %w", err)
	}
	if err := compressed.Close(); err != nil {
		return fmt.Errorf("finishing %s stream: %w", codec, err)
	}
	return nil
}

// Unpack extracts a snapshot read from r into root, creating root if
// needed. Directory modes are applied after their contents are
// written, deepest first.
func Unpack(r io.Reader, root string, codec Codec) error {
	decompressed, err := codec.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating %s reader: %w", codec, err)
	}
	defer decompressed.Close()

	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", root, err)
	}
	destination, err := os.OpenRoot(root)
	if err != nil {
		return fmt.Errorf("opening %s: %w", root, err)
	}
	defer destination.Close()

	type directory struct {
		name  string
		mode  fs.FileMode
		mtime time.Time
	}
	var directories []directory

	archive := tar.NewReader(decompressed)
	for {
		header, err := archive.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}

		name, err := localName(header.Name)
		if err != nil {
			return err
		}
		if name == "." {
			continue
		}
		mode := fs.FileMode(header.Mode).Perm()

		if parent := path.Dir(name); parent != "." {
			if err := destination.MkdirAll(parent, 0o755); err != nil {
				return fmt.Errorf("creating parent of %s: %w", name, err)
			}
		}

		switch header.Typeflag {
		case tar.TypeDir:
			// Owner write stays on until every entry is extracted.
			if err := destination.MkdirAll(name, 0o700); err != nil {
				return fmt.Errorf("creating %s: %w", name, err)
			}
			directories = append(directories, directory{name, mode, header.ModTime})

		case tar.TypeReg:
			if err := removeExisting(destination, name); err != nil {
				return err
			}
			file, err := destination.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
			if err != nil {
				return fmt.Errorf("creating %s: %w", name, err)
			}
			_, err = io.Copy(file, archive)
			closeErr := file.Close()
			if err = errors.Join(err, closeErr); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
			// The umask applied at creation.
			if err := destination.Chmod(name, mode); err != nil {
				return fmt.Errorf("setting mode of %s: %w", name, err)
			}
			if err := destination.Chtimes(name, header.ModTime, header.ModTime); err != nil {
				return fmt.Errorf("setting times of %s: %w", name, err)
			}

		case tar.TypeSymlink:
			if err := removeExisting(destination, name); err != nil {
				return err
			}
			if err := destination.Symlink(header.Linkname, name); err != nil {
				return fmt.Errorf("creating link %s: %w", name, err)
			}

		case tar.TypeLink:
			target, err := localName(header.Linkname)
			if err != nil {
				return err
			}
			if err := removeExisting(destination, name); err != nil {
				return err
			}
			if err := destination.Link(target, name); err != nil {
				return fmt.Errorf("linking %s to %s: %w", name, target, err)
			}

		default:
			// Devices, FIFOs and extended headers are not restored.
		}

		if os.Geteuid() == 0 {
			_ = destination.Lchown(name, header.Uid, header.Gid)
		}
	}

	slices.Reverse(directories)
	for _, dir := range directories {
		if err := destination.Chmod(dir.name, dir.mode); err != nil {
			return fmt.Errorf("setting mode of %s: %w", dir.name, err)
		}
		if err := destination.Chtimes(dir.name, dir.mtime, dir.mtime); err != nil {
			return fmt.Errorf("setting times of %s: %w", dir.name, err)
		}
	}
	return nil
}

// localName cleans an archive name and rejects absolute paths and
// parent references.
func localName(name string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(name, "./"))
	if cleaned == "." {
		return cleaned, nil
	}
	if !filepath.IsLocal(filepath.FromSlash(cleaned)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return cleaned, nil
}

// removeExisting clears a non-directory entry so it can be replaced.
func removeExisting(destination *os.Root, name string) error {
	info, err := destination.Lstat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking %s: %w", name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s: a directory is in the way", name)
	}
	if err := destination.Remove(name); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// PackFile snapshots root into the file at target, choosing the codec
// from its name. The file is written beside target and renamed into
// place on success.
func PackFile(root, target string) error {
	codec, err := CodecForPath(target)
	if err != nil {
		return err
	}
	file, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+"-*")
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	temporary := file.Name()
	defer os.Remove(temporary)

	if err := Pack(root, file, codec); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return os.Rename(temporary, target)
}

// UnpackFile restores the snapshot at source into root, choosing the
// codec from its name.
func UnpackFile(source, root string) error {
	codec, err := CodecForPath(source)
	if err != nil {
		return err
	}
	file, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer file.Close()
	return Unpack(file, root, codec)
}
