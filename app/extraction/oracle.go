package extraction

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/config"
	"go.uber.org/zap"
)

// HTTPOracle calls the extraction service over HTTP.
type HTTPOracle struct {
	client *resty.Client
}

func NewHTTPOracle(cfg config.ExtractionConfig) *HTTPOracle {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}

	return &HTTPOracle{client: client}
}

// Extract posts the input to /extract. Transport failures are returned as
// is; a body that breaks the contract yields a *common.MalformedPayloadError.
func (o *HTTPOracle) Extract(ctx context.Context, in Input) (*Result, error) {
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(in).
		Post("/extract")
	if err != nil {
		return nil, fmt.Errorf("failed to send extraction request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode(), resp.String())
	}

	result, err := ParseResult(resp.Body())
	if err != nil {
		common.LogWarn("extraction payload rejected", zap.Error(err))
		return nil, err
	}
	return result, nil
}
