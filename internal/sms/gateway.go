package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Response: ответ шлюза как есть, код провайдера и его текст.
type Response struct {
	Code    string
	Message string
}

type Gateway interface {
	Send(ctx context.Context, to []string, message string) (Response, error)
}

type HTTPGatewayConfig struct {
	URL      string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// HTTPGateway шлёт POST JSON на URL провайдера. В ответе response_code и сообщение.
type HTTPGateway struct {
	cfg    HTTPGatewayConfig
	client *http.Client
}

func NewHTTPGateway(cfg HTTPGatewayConfig) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &HTTPGateway{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type sendRequest struct {
	APIKey   string `json:"api_key"`
	SenderID string `json:"senderid"`
	Number   string `json:"number"`
	Message  string `json:"message"`
}

type sendResponse struct {
	Code    json.Number `json:"response_code"`
	Success string      `json:"success_message"`
	Error   string      `json:"error_message"`
}

func (g *HTTPGateway) Send(ctx context.Context, to []string, message string) (Response, error) {
	if g.cfg.URL == "" {
		return Response{}, fmt.Errorf("sms gateway url is not configured")
	}
	body, err := json.Marshal(sendRequest{
		APIKey:   g.cfg.APIKey,
		SenderID: g.cfg.SenderID,
		Number:   strings.Join(to, ","),
		Message:  message,
	})
	if err != nil {
		return Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return Response{}, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out sendResponse
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode gateway response: %w", err)
	}
	msg := out.Success
	if out.Error != "" {
		msg = out.Error
	}
	return Response{Code: out.Code.String(), Message: msg}, nil
}
