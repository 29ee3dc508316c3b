package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/marmos91/kidwatch/pkg/codec"
)

// HTTPDetector posts JPEG frames to a detection service as multipart form
// uploads ("file", "model", "conf") and expects
// {"detections": [{"class_id", "confidence", "bbox"}]} back.
type HTTPDetector struct {
	endpoint string
	model    string
	quality  int
	client   *http.Client
}

// NewHTTPDetector creates a detector for endpoint. A zero timeout means 30s.
func NewHTTPDetector(endpoint, model string, timeout time.Duration) *HTTPDetector {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPDetector{
		endpoint: endpoint,
		model:    model,
		quality:  codec.DefaultJPEGQuality,
		client:   &http.Client{Timeout: timeout},
	}
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
	Error      string      `json:"error,omitempty"`
}

// Detect implements Detector.
func (h *HTTPDetector) Detect(ctx context.Context, frame codec.Frame, minConfidence float64) ([]Detection, error) {
	img, err := codec.EncodeJPEG(frame, h.quality)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", codec.FrameName(frame.Index))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(img); err != nil {
		return nil, err
	}
	if h.model != "" {
		if err := w.WriteField("model", h.model); err != nil {
			return nil, err
		}
	}
	if err := w.WriteField("conf", strconv.FormatFloat(minConfidence, 'f', -1, 64)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detector returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("detector: %s", out.Error)
	}
	return out.Detections, nil
}
