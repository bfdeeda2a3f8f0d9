package imagegen

import (
	"context"
	"net/http"

	"github.com/hongyue0721/image-fill-site/internal/domain"
)

type HTTPEditorOptions struct {
	// HTTPClient must not set a Timeout; deadlines come from the attempt.
	HTTPClient *http.Client
}

// HTTPEditor sends edit requests to OpenAI-compatible upstreams.
type HTTPEditor struct {
	httpClient  *http.Client
	interpreter *ResponseInterpreter
}

func NewHTTPEditor(opts HTTPEditorOptions) *HTTPEditor {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPEditor{
		httpClient:  client,
		interpreter: NewResponseInterpreter(client),
	}
}

// Edit runs build, send and interpret for a single candidate. The attempt
// timeout is applied to a context that ignores the caller's cancellation.
func (e *HTTPEditor) Edit(ctx context.Context, attempt EditAttempt) (*domain.EditResult, error) {
	provider := attempt.Upstream.Name

	callCtx := context.WithoutCancel(ctx)
	if attempt.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, attempt.Timeout)
		defer cancel()
	}

	req, err := BuildEditRequest(callCtx, attempt.Upstream, attempt.Prompt, attempt.Image, attempt.Mask)
	if err != nil {
		return nil, &domain.UpstreamNetworkError{Provider: provider, Op: "build request", Err: err}
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamNetworkError{Provider: provider, Op: "send edit", Err: err}
	}
	return e.interpreter.Interpret(callCtx, resp, provider, attempt.Timeout)
}

var _ Editor = (*HTTPEditor)(nil)
