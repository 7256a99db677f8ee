package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/herdwise/internal/config"
)

// MaxBodyLength is the Cloud API limit for a text body, in runes.
const MaxBodyLength = 4096

// Client sends farm notifications through the WhatsApp Cloud API.
type Client interface {
	// SendText delivers body to one recipient, split into as many messages
	// as the body length requires, and returns the message ids in order.
	SendText(ctx context.Context, to, body string) ([]string, error)
}

// APIError is a non-2xx answer from the Cloud API.
type APIError struct {
	Status  int
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	TraceID string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d code=%d message=%s", e.Status, e.Code, e.Message)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

// NewClient builds a WhatsApp API client using the provided configuration values.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

type textPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body       string `json:"body"`
		PreviewURL bool   `json:"preview_url"`
	} `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

// SendText implements Client. Chunks already delivered are reported even
// when a later chunk fails.
func (c *APIClient) SendText(ctx context.Context, to, body string) ([]string, error) {
	if to == "" {
		return nil, fmt.Errorf("send whatsapp message: recipient is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("send whatsapp message: body is empty")
	}

	chunks := SplitBody(body, MaxBodyLength)
	ids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		id, err := c.send(ctx, to, chunk)
		if err != nil {
			return ids, fmt.Errorf("send part %d/%d: %w", i+1, len(chunks), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *APIClient) send(ctx context.Context, to, body string) (string, error) {
	payload := textPayload{MessagingProduct: "whatsapp", To: to, Type: "text"}
	payload.Text.Body = body

	result := new(sendResponse)
	apiErr := new(errorEnvelope)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return "", err
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		e := apiErr.Error
		e.Status = resp.StatusCode()
		return "", &e
	}

	if len(result.Messages) == 0 {
		return "", nil
	}
	return result.Messages[0].ID, nil
}

// SplitBody cuts body into pieces of at most limit runes, preferring line
// breaks. Lines longer than limit are cut mid-line.
func SplitBody(body string, limit int) []string {
	if limit <= 0 || len([]rune(body)) <= limit {
		return []string{body}
	}

	var (
		chunks  []string
		current []rune
	)
	flush := func() {
		if chunk := strings.TrimRight(string(current), "\n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current = current[:0]
	}

	for _, line := range strings.SplitAfter(body, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if len(current)+len(runes) > limit {
			flush()
		}
		current = append(current, runes...)
	}
	flush()
	return chunks
}
