package vfs

import (
	"context"
	"errors"
	"io/fs"

	"github.com/spf13/afero"
)

// Handle is an opaque local file handle supplied by the host integration.
type Handle interface {
	ReadText(ctx context.Context) (string, error)
	ReadBytes(ctx context.Context) ([]byte, error)
}

// AferoHandle reads a named file from an afero filesystem.
type AferoHandle struct {
	Fs   afero.Fs
	Name string
}

// ReadText reads the whole file as text.
func (h AferoHandle) ReadText(ctx context.Context) (string, error) {
	data, err := h.ReadBytes(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadBytes reads the whole file.
func (h AferoHandle) ReadBytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(h.Fs, h.Name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewError(OpFetch, h.Name, ErrNotFound)
		}
		return nil, NewError(OpFetch, h.Name, errors.Join(ErrNotFound, err))
	}
	return data, nil
}
