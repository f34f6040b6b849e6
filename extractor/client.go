package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultURL = "http://localhost:8000"

// Client memanggil sidecar HTTP gaya face_recognition:
//
//	POST /faces/detect  file=<image>                 -> {"regions": [[top, right, bottom, left], ...]}
//	POST /faces/encode  file=<image> regions=<json>  -> {"encodings": [[...], ...]}
type Client struct {
	baseURL string
	client  *http.Client
}

var _ Extractor = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type detectResponse struct {
	Regions [][4]int `json:"regions"`
}

type encodeResponse struct {
	Encodings [][]float64 `json:"encodings"`
}

func (c *Client) DetectFaces(ctx context.Context, img []byte) ([]Region, error) {
	body, err := c.postMultipartImage(ctx, "/faces/detect", img, nil)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse detect response: %w", err)
	}

	regions := make([]Region, 0, len(resp.Regions))
	for _, r := range resp.Regions {
		regions = append(regions, Region{Top: r[0], Right: r[1], Bottom: r[2], Left: r[3]})
	}
	return regions, nil
}

func (c *Client) EncodeFaces(ctx context.Context, img []byte, regions []Region) ([][]float64, error) {
	if len(regions) == 0 {
		return nil, nil
	}

	boxes := make([][4]int, 0, len(regions))
	for _, r := range regions {
		boxes = append(boxes, [4]int{r.Top, r.Right, r.Bottom, r.Left})
	}
	regionsJSON, err := json.Marshal(boxes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal regions: %w", err)
	}

	body, err := c.postMultipartImage(ctx, "/faces/encode", img, map[string]string{"regions": string(regionsJSON)})
	if err != nil {
		return nil, err
	}

	var resp encodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse encode response: %w", err)
	}
	if n := len(resp.Encodings); n != 0 && n != len(regions) {
		return nil, fmt.Errorf("%w: %d encodings for %d regions", ErrBadResponse, n, len(regions))
	}
	return resp.Encodings, nil
}

// postMultipartImage mengirim gambar sebagai part "file" ditambah field form lain.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, img []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(img); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("extractor error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
