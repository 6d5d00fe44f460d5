// Package extract is the client for the external document-conversion
// service, which turns a PDF into markdown, text chunks with heading paths
// and bounding boxes, and extracted figure images.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appcfg "github.com/paperlens/core/internal/config"
)

// Default page size in PDF points, used to normalize bounding boxes when the
// converter does not report true page dimensions. Non-Letter pages get
// approximate normalized coordinates in that case; the fallback is
// deliberate and callers treat such boxes as best-effort.
const (
	fallbackPageWidth  = 612.0
	fallbackPageHeight = 792.0
)

// PageBox is a raw bounding box in PDF points as reported by the converter.
type PageBox struct {
	Left   float64 `json:"l"`
	Top    float64 `json:"t"`
	Right  float64 `json:"r"`
	Bottom float64 `json:"b"`
}

// NormalizedBox is a bounding box scaled to [0,1] page coordinates.
type NormalizedBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	// Approximate is set when the fallback page size was used.
	Approximate bool `json:"approximate,omitempty"`
}

// Chunk is one extracted text span.
type Chunk struct {
	Index    int      `json:"index"`
	Text     string   `json:"text"`
	Headings []string `json:"headings"` // coarse → fine
	Pages    []int    `json:"page_numbers"`
	BBox     *PageBox `json:"bbox,omitempty"`
}

// Image is one extracted figure.
type Image struct {
	Filename      string   `json:"filename"`
	DataBase64    string   `json:"data_base64"`
	Caption       string   `json:"caption,omitempty"`
	Page          *int     `json:"page,omitempty"`
	PictureNumber int      `json:"picture_number"`
	BBox          *PageBox `json:"bbox,omitempty"`
}

// PageSize is a page's true dimensions in points, when known.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Result is the full extraction of one document.
type Result struct {
	Markdown  string           `json:"markdown"`
	Chunks    []Chunk          `json:"chunks"`
	Images    []Image          `json:"images"`
	PageSizes map[int]PageSize `json:"page_sizes,omitempty"`
}

// Client calls the extraction service over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(cfg appcfg.ExtractorConfig) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Extract converts raw PDF bytes into markdown, chunks and images.
func (c *Client) Extract(ctx context.Context, pdf []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/extract", bytes.NewReader(pdf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode extraction response: %w", err)
	}
	if strings.TrimSpace(result.Markdown) == "" && len(result.Chunks) == 0 {
		return nil, fmt.Errorf("extraction produced no content")
	}
	return &result, nil
}

// NormalizeBox scales a raw box into [0,1] coordinates using the true page
// size when available, else the US-Letter fallback.
func NormalizeBox(box *PageBox, page *int, sizes map[int]PageSize) *NormalizedBox {
	if box == nil {
		return nil
	}

	width, height := fallbackPageWidth, fallbackPageHeight
	approximate := true
	if page != nil && sizes != nil {
		if size, ok := sizes[*page]; ok && size.Width > 0 && size.Height > 0 {
			width, height = size.Width, size.Height
			approximate = false
		}
	}

	return &NormalizedBox{
		Left:        clamp01(box.Left / width),
		Top:         clamp01(box.Top / height),
		Right:       clamp01(box.Right / width),
		Bottom:      clamp01(box.Bottom / height),
		Approximate: approximate,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
