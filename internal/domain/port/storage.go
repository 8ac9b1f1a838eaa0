package port

import (
	"context"
	"io"
)

type VideoStorage interface {
	DownloadVideo(ctx context.Context, objectKey string, destPath string) error
	UploadFrame(ctx context.Context, objectKey string, jpeg []byte) error
	UploadBundle(ctx context.Context, objectKey string, reader io.Reader, size int64) error
}
