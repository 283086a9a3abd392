// Package secrets wraps Google Secret Manager access, adapted from
// main.go's inline getSecret helper into a reusable client the rest of
// the ambient stack (notify, replay) can share.
package secrets

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// Client fetches secret payloads by their full resource name
// ("projects/.../secrets/.../versions/latest").
type Client struct {
	inner *secretmanager.Client
}

// NewClient opens a Secret Manager client using ambient credentials
// (GOOGLE_APPLICATION_CREDENTIALS or the instance's default service
// account), same as main.go's getSecret.
func NewClient(ctx context.Context) (*Client, error) {
	inner, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secrets: create client: %w", err)
	}
	return &Client{inner: inner}, nil
}

// NewClientWithCredentialsFile opens a Secret Manager client against an
// explicit service-account key file, for environments where ambient
// credential discovery (the default NewClient path) isn't set up - e.g.
// a local dev box exercising the same deploy config the production
// container uses.
func NewClientWithCredentialsFile(ctx context.Context, path string) (*Client, error) {
	inner, err := secretmanager.NewClient(ctx, option.WithCredentialsFile(path))
	if err != nil {
		return nil, fmt.Errorf("secrets: create client with credentials file: %w", err)
	}
	return &Client{inner: inner}, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error { return c.inner.Close() }

// Access fetches the latest (or pinned) version of a secret by its full
// resource name.
func (c *Client) Access(ctx context.Context, name string) (string, error) {
	req := &secretmanagerpb.AccessSecretVersionRequest{Name: name}
	result, err := c.inner.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("secrets: access %s: %w", name, err)
	}
	return string(result.Payload.GetData()), nil
}
