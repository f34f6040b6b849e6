// Package httpx berisi helper request yang dipakai bersama oleh controller.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"FACEATTEND/extractor"
	"FACEATTEND/ledger"
)

const MaxUploadBytes = 10 << 20

// ReadUpload membaca field file multipart, maksimal MaxUploadBytes.
func ReadUpload(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("field %q: %w", field, err)
	}
	if fh.Size > MaxUploadBytes {
		return nil, "", fmt.Errorf("file too large (%d bytes, max %d)", fh.Size, MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty file")
	}
	return data, fh.Filename, nil
}

// FaultStatus memetakan kegagalan lingkungan (extractor, database) ke status HTTP.
func FaultStatus(err error) int {
	switch {
	case errors.Is(err, extractor.ErrUnavailable), errors.Is(err, ledger.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, extractor.ErrBadResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
