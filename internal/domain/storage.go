package domain

import "context"

type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
}
