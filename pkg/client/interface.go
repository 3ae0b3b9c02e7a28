package client

import (
	"context"

	"github.com/menta2k/tour-viewer/pkg/types"
)

// VisionClient is a vision language model backend
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	Locate(ctx context.Context, model, prompt, imgB64 string) (*types.LocateResult, error)
}
