package httpserver

import (
	"io"
	"mime/multipart"
)

// newMultipart streams a single-file form into pw and returns its content type.
func newMultipart(pw *io.PipeWriter, filename, content string) string {
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.WriteString(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	return mw.FormDataContentType()
}
