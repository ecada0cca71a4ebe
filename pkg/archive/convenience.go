package archive

import "context"

// Archive captures url with a default client, waiting for the snapshot when
// wait is set.
func Archive(ctx context.Context, url string, wait bool) (*Result, error) {
	return New().ArchiveURL(ctx, url, CaptureOptions{Wait: wait})
}

func Latest(ctx context.Context, url string) (*Snapshot, error) {
	return New().LatestSnapshot(ctx, url)
}

func Get(ctx context.Context, url, provider string) (*Result, error) {
	return NewMulti().Check(ctx, url, provider)
}
