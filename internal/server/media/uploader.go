// Package media abstracts the external media host. Handlers stage uploads to
// local temp files; the uploader moves them to object storage and always
// cleans the temp file up, success or not.
package media

import "context"

// Object describes a stored media object.
type Object struct {
	// URL is the stable, publicly reachable address of the object.
	URL string
	// Key identifies the object for later deletion.
	Key string
}

// Uploader pushes local files to the media host and deletes stored objects.
type Uploader interface {
	// Upload stores the file at localPath and returns its Object. The local
	// file is removed whether or not the upload succeeds.
	Upload(ctx context.Context, localPath string) (*Object, error)

	// Delete removes a previously uploaded object by its key.
	Delete(ctx context.Context, key string) error
}
