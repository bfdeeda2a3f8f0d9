package imagegen

import (
	"context"
	"time"

	"github.com/hongyue0721/image-fill-site/internal/domain"
)

// EditEndpointPath is appended to an upstream base URL.
const EditEndpointPath = "/v1/images/edits"

// Part is one file attached to an edit request.
type Part struct {
	Filename string
	Data     []byte
}

// AssetSource yields the base image and mask. Implementations must read the
// current value on every call.
type AssetSource interface {
	Original(ctx context.Context) (Part, error)
	Mask(ctx context.Context) (Part, error)
}

// EditAttempt carries everything a single candidate call needs.
type EditAttempt struct {
	Upstream domain.UpstreamDescriptor
	Prompt   string
	Image    Part
	Mask     Part
	Timeout  time.Duration
}

// Editor performs one edit call against one upstream.
type Editor interface {
	Edit(ctx context.Context, attempt EditAttempt) (*domain.EditResult, error)
}
