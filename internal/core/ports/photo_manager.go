package ports

import "context"

// PhotoResult is the outcome of an image-host upload.
type PhotoResult struct {
	Success  bool
	URL      string
	PublicID string
	Message  string
}

// PhotoManager is the external image-hosting capability. The core never
// inspects image bytes; it only stores the returned URL and public id.
type PhotoManager interface {
	Upload(ctx context.Context, filename string, data []byte) (*PhotoResult, error)
	Delete(ctx context.Context, publicID string) (bool, error)
}
