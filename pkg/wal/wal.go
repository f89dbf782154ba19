// Package wal implements a JSON-lines write-ahead log. Each record is one
// JSON document; replay streams records back in append order.
package wal

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
)

// FileModeReadOnly is rw-r--r--, the default for journal files.
const FileModeReadOnly fs.FileMode = 0644

type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// New opens or creates the WAL file at path. O_APPEND makes every write land
// at the end of the file regardless of the read offset.
func New(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Write appends one record and forces it to disk before returning.
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := json.NewEncoder(w.file).Encode(v); err != nil {
		return err
	}
	return w.file.Sync()
}

// Sync flushes buffered writes to stable storage.
func (w *WAL) Sync() error {
	return w.file.Sync()
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	return w.file.Close()
}

// ReadAll replays every record from the start of the file, handing the raw
// JSON of each to callback. Streaming avoids holding the whole journal in
// memory at once.
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
	return nil
}
