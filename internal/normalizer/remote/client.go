package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"github.com/timmy/leadflow/internal/config"
	"github.com/timmy/leadflow/internal/domain"
	"github.com/timmy/leadflow/internal/normalizer"
)

// Client posts raw uploads to the external normalization service.
type Client struct {
	client   *resty.Client
	endpoint string
}

var _ normalizer.Normalizer = (*Client)(nil)

// New creates a Client for cfg. Requests go to <base_url>/normalize.
func New(cfg *config.EndpointConfig) *Client {
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &Client{
		client:   client,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/normalize",
	}
}

type normalizeResponse struct {
	List []map[string]interface{} `json:"list"`
}

// Normalize sends raw as text/csv and decodes {"list": [{...}, ...]}.
func (c *Client) Normalize(ctx context.Context, fileName string, raw []byte) ([]normalizer.RawRecord, error) {
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/csv").
		SetHeader("X-File-Name", fileName).
		SetBody(raw).
		Post(c.endpoint)
	if err != nil {
		return nil, errors.WithHint(
			fmt.Errorf("%w: %v", domain.ErrNormalizationUnavailable, err),
			"the normalization service is unreachable; retry later")
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return nil, errors.WithHint(
			fmt.Errorf("%w: HTTP %d", domain.ErrNormalizationUnavailable, httpResp.StatusCode()),
			"the normalization service rejected the upload; retry later")
	}

	return decode(httpResp.Body())
}

// decode requires a JSON object whose list member is an array of objects.
func decode(body []byte) ([]normalizer.RawRecord, error) {
	var probe map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&probe); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	rawList, ok := probe["list"]
	if !ok {
		return nil, fmt.Errorf("%w: missing list", domain.ErrMalformedResponse)
	}

	var resp normalizeResponse
	if err := json.Unmarshal(body, &resp); err != nil || bytes.Equal(bytes.TrimSpace(rawList), []byte("null")) {
		return nil, fmt.Errorf("%w: list is not an array of objects", domain.ErrMalformedResponse)
	}

	records := make([]normalizer.RawRecord, 0, len(resp.List))
	for i, item := range resp.List {
		if item == nil {
			return nil, fmt.Errorf("%w: list[%d] is not an object", domain.ErrMalformedResponse, i)
		}
		rec := make(normalizer.RawRecord, len(item))
		for k, v := range item {
			rec[k] = stringify(v)
		}
		records = append(records, rec)
	}
	return records, nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
