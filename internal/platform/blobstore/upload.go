package blobstore

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrMissingFile is returned by ReadFormFile when the form has no such file.
var ErrMissingFile = errors.New("file is required")

// Upload is a document received in a multipart form.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Head returns the leading bytes used for content sniffing.
func (u *Upload) Head() []byte {
	if len(u.Data) > 512 {
		return u.Data[:512]
	}
	return u.Data
}

// ReadFormFile reads the named multipart file into memory, enforcing
// MaxFileSize.
func ReadFormFile(c echo.Context, field string) (*Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ErrMissingFile
		}
		return nil, fmt.Errorf("reading form file %q: %w", field, err)
	}
	if fh.Size > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening form file %q: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading form file %q: %w", field, err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return &Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
