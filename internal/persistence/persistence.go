// Package persistence writes archival JSON records to disk.
package persistence

import (
	"encoding/json"
	"os"
	"path"
	"time"
)

// File is an archival file, created under a date-based directory tree.
type File struct {
	fp *os.File
}

// New creates <dataDir>/<kind>/<yyyy>/<mm>/<dd>/<uuid>.json, creating any
// missing directory.
func New(dataDir, kind, uuid string) (*File, error) {
	dir := path.Join(dataDir, kind, time.Now().UTC().Format("2006/01/02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fp, err := os.OpenFile(path.Join(dir, uuid+".json"), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{fp: fp}, nil
}

// Write marshals v as JSON and writes it to the file.
func (f *File) Write(v interface{}) error {
	return json.NewEncoder(f.fp).Encode(v)
}

// Name returns the path of the file.
func (f *File) Name() string {
	return f.fp.Name()
}

// Close closes the file.
func (f *File) Close() error {
	return f.fp.Close()
}

// WriteJSON writes v as indented JSON to path, replacing any existing file.
func WriteJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
