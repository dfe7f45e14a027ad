package internal

import (
	"log"
	"os"
	"path/filepath"
)

// FullPathname makes filename absolute against the invocation directory.
func FullPathname(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		return filename, nil
	}
	wd, err := os.Getwd()
	return filepath.Join(wd, filename), err
}

// MkdirAll is os.MkdirAll with panics in place of errors.
func MkdirAll(path string, perm os.FileMode) {
	if err := os.MkdirAll(path, perm); err != nil {
		log.Panic(err)
	}
}

// FileCreate is os.Create with panics in place of errors.
func FileCreate(name string) *os.File {
	file, err := os.Create(name)
	if err != nil {
		log.Panic(err)
	}
	return file
}
