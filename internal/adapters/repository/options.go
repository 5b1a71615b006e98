package repository

import "io/fs"

// FileOption applies a configuration option to the FileStore.
type FileOption func(*FileStore)

// WithFileMode sets the permission bits of record files.
func WithFileMode(mode fs.FileMode) FileOption {
	return func(s *FileStore) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}

// WithDirMode sets the permission bits used when creating the data directory.
func WithDirMode(mode fs.FileMode) FileOption {
	return func(s *FileStore) {
		if mode != 0 {
			s.dirMode = mode
		}
	}
}
