package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hongyue0721/image-fill-site/internal/domain"
)

const (
	reasonEmptyData      = "empty data"
	reasonNoImagePayload = "no image payload"

	rejectBodyLimit = 512
)

type editResponse struct {
	Data []json.RawMessage `json:"data"`
}

type editResponseItem struct {
	B64JSON string `json:"b64_json,omitempty"`
	Base64  string `json:"base64,omitempty"`
	URL     string `json:"url,omitempty"`
}

// decodeItem reads the known fields of one data element. Elements that are
// not objects, and fields that are not strings, are left empty.
func decodeItem(raw json.RawMessage) editResponseItem {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return editResponseItem{}
	}
	str := func(key string) string {
		var v string
		if f, ok := fields[key]; ok {
			_ = json.Unmarshal(f, &v)
		}
		return v
	}
	return editResponseItem{B64JSON: str("b64_json"), Base64: str("base64"), URL: str("url")}
}

type payloadKind int

const (
	payloadUnrecognized payloadKind = iota
	payloadInlineBase64
	payloadAltBase64
	payloadRemoteURL
)

func (k payloadKind) String() string {
	switch k {
	case payloadInlineBase64:
		return "b64_json"
	case payloadAltBase64:
		return "base64"
	case payloadRemoteURL:
		return "url"
	default:
		return "unrecognized"
	}
}

// imagePayload is the first data item reduced to the one shape we act on.
type imagePayload struct {
	kind  payloadKind
	value string
}

func classifyPayload(item editResponseItem) imagePayload {
	switch {
	case strings.TrimSpace(item.B64JSON) != "":
		return imagePayload{kind: payloadInlineBase64, value: item.B64JSON}
	case strings.TrimSpace(item.Base64) != "":
		return imagePayload{kind: payloadAltBase64, value: item.Base64}
	case strings.TrimSpace(item.URL) != "":
		return imagePayload{kind: payloadRemoteURL, value: strings.TrimSpace(item.URL)}
	default:
		return imagePayload{kind: payloadUnrecognized}
	}
}

// ResponseInterpreter turns an upstream edit response into image bytes.
type ResponseInterpreter struct {
	httpClient *http.Client
}

// NewResponseInterpreter uses client for follow-up URL downloads.
func NewResponseInterpreter(client *http.Client) *ResponseInterpreter {
	if client == nil {
		client = &http.Client{}
	}
	return &ResponseInterpreter{httpClient: client}
}

// Interpret consumes and closes resp.Body. timeout bounds the follow-up
// download when the upstream answers with a URL.
func (ri *ResponseInterpreter) Interpret(ctx context.Context, resp *http.Response, provider string, timeout time.Duration) (*domain.EditResult, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamNetworkError{Provider: provider, Op: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.UpstreamRejectedError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Body:       excerpt(raw, rejectBodyLimit),
		}
	}

	var decoded editResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &domain.UpstreamPayloadError{Provider: provider, Reason: "invalid json body", Err: err}
	}
	if decoded.Data == nil {
		return nil, &domain.UpstreamPayloadError{Provider: provider, Reason: reasonEmptyData}
	}
	if len(decoded.Data) == 0 {
		return nil, &domain.UpstreamPayloadError{Provider: provider, Reason: reasonNoImagePayload}
	}

	payload := classifyPayload(decodeItem(decoded.Data[0]))
	switch payload.kind {
	case payloadInlineBase64, payloadAltBase64:
		data, err := decodeBase64Image(payload.value)
		if err != nil {
			return nil, &domain.UpstreamPayloadError{Provider: provider, Reason: "invalid " + payload.kind.String(), Err: err}
		}
		if len(data) == 0 {
			return nil, &domain.UpstreamPayloadError{Provider: provider, Reason: reasonNoImagePayload}
		}
		return &domain.EditResult{Data: data, MIME: SniffMIME(data), Provider: provider}, nil
	case payloadRemoteURL:
		target := payload.value
		if resp.Request != nil && resp.Request.URL != nil {
			if u, err := resp.Request.URL.Parse(target); err == nil {
				target = u.String()
			}
		}
		return ri.fetchImage(ctx, target, provider, timeout)
	default:
		return nil, &domain.UpstreamPayloadError{Provider: provider, Reason: reasonNoImagePayload}
	}
}

func (ri *ResponseInterpreter) fetchImage(ctx context.Context, url, provider string, timeout time.Duration) (*domain.EditResult, error) {
	fetchCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.UpstreamNetworkError{Provider: provider, Op: "fetch image", Err: err}
	}
	resp, err := ri.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamNetworkError{Provider: provider, Op: "fetch image", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &domain.UpstreamNetworkError{
			Provider: provider,
			Op:       "fetch image",
			Err:      fmt.Errorf("http %d", resp.StatusCode),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.UpstreamNetworkError{Provider: provider, Op: "fetch image", Err: err}
	}

	mimeType := contentMediaType(resp.Header.Get("Content-Type"))
	if mimeType == "" {
		mimeType = SniffMIME(data)
	}
	return &domain.EditResult{Data: data, MIME: mimeType, Provider: provider}, nil
}

func contentMediaType(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(header); err == nil {
		return mt
	}
	return header
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeBase64Image accepts padded, unpadded and URL-safe alphabets, and a
// leading data URL header.
func decodeBase64Image(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "data:") {
		if idx := strings.Index(value, ","); idx >= 0 {
			value = value[idx+1:]
		}
	}
	value = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, value)

	var firstErr error
	for _, enc := range base64Encodings {
		data, err := enc.DecodeString(value)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, errors.Join(errors.New("base64 decode failed"), firstErr)
}

func excerpt(b []byte, limit int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
