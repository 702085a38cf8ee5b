// Package apiclient is the thin HTTP client for the layer server and the
// collaborator services behind it (feedback, SPOF analysis, export, BOM).
// Calls are direct forwards; the only logic here is dispatch-style error
// classification so callers can treat all remote failures uniformly.
package apiclient

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

	"github.com/paulmach/orb/geojson"

	"github.com/dominggo/ai-osp/internal/dispatch"
	"github.com/dominggo/ai-osp/internal/models"
)

// DefaultTimeout bounds every layer-server call. These endpoints forward to
// fast services; long-running work goes through the dispatcher instead.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client for the layer server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a layer-server client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// LayerDescriptor is the server's record of an uploaded layer.
type LayerDescriptor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Uploaded string `json:"uploaded_at"`
}

// UploadLayer uploads raw GeoJSON as a multipart file and returns the stored
// descriptor.
func (c *Client) UploadLayer(ctx context.Context, name, filename string, data []byte) (*LayerDescriptor, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", name); err != nil {
		return nil, fmt.Errorf("write name field: %w", err)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("write file field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/api/layers/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var desc LayerDescriptor
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &desc, nil
}

// ListLayers returns the layers stored on the server.
func (c *Client) ListLayers(ctx context.Context) ([]LayerDescriptor, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/layers", nil, "")
	if err != nil {
		return nil, err
	}
	var layers []LayerDescriptor
	if err := json.Unmarshal(body, &layers); err != nil {
		return nil, fmt.Errorf("decode layer list: %w", err)
	}
	return layers, nil
}

// DeleteLayer removes a stored layer by id.
func (c *Client) DeleteLayer(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/layers/"+id, nil, "")
	return err
}

// SubmitFeedback posts one feedback record. Failures come back as
// *dispatch.Error so the feedback queue can absorb them.
func (c *Client) SubmitFeedback(ctx context.Context, rec models.FeedbackRecord) error {
	_, err := c.postJSON(ctx, "/api/feedback", rec)
	return err
}

// spofRequest is the analysis request body.
type spofRequest struct {
	GeoJSON *geojson.FeatureCollection `json:"geojson"`
	Result  *models.PlanResult         `json:"result"`
}

// AnalyzeSPOF runs single-point-of-failure analysis for a completed plan and
// returns the SPOF sub-document.
func (c *Client) AnalyzeSPOF(ctx context.Context, merged *geojson.FeatureCollection, result *models.PlanResult) (map[string]any, error) {
	body, err := c.postJSON(ctx, "/api/spof/analyze", spofRequest{GeoJSON: merged, Result: result})
	if err != nil {
		return nil, err
	}
	var spof map[string]any
	if err := json.Unmarshal(body, &spof); err != nil {
		return nil, fmt.Errorf("decode spof response: %w", err)
	}
	return spof, nil
}

// exportRequest is the export request body.
type exportRequest struct {
	Formats  []string                   `json:"formats"`
	GeoJSON  *geojson.FeatureCollection `json:"geojson"`
	Result   *models.PlanResult         `json:"result,omitempty"`
	Feedback []models.FeedbackRecord    `json:"feedback,omitempty"`
}

// Export renders the workspace into the requested formats and returns the
// binary artifact (an archive when multiple formats are requested).
func (c *Client) Export(ctx context.Context, formats []string, merged *geojson.FeatureCollection, result *models.PlanResult, fb []models.FeedbackRecord) ([]byte, error) {
	return c.postJSON(ctx, "/api/export", exportRequest{
		Formats:  formats,
		GeoJSON:  merged,
		Result:   result,
		Feedback: fb,
	})
}

// GenerateBOM computes the bill of materials for a planning result.
func (c *Client) GenerateBOM(ctx context.Context, result *models.PlanResult) (map[string]any, error) {
	body, err := c.postJSON(ctx, "/api/bom/generate", map[string]any{"result": result})
	if err != nil {
		return nil, err
	}
	var bom map[string]any
	if err := json.Unmarshal(body, &bom); err != nil {
		return nil, fmt.Errorf("decode bom response: %w", err)
	}
	return bom, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json")
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, dispatch.ClassifyTransport(err, models.TargetAPI, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dispatch.ClassifyTransport(err, models.TargetAPI, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, dispatch.RejectionError(models.TargetAPI, path, resp.StatusCode, data)
	}
	return data, nil
}
