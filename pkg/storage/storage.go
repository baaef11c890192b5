// Package storage reads rendered certificate artifacts from Azure Blob Storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub001/pkg/lifecycle"
)

// Artifact is an open blob stream plus the metadata needed to serve it.
// The caller must close Body.
type Artifact struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// System manages artifact reads and lifecycle coordination.
type System interface {
	// Start registers a startup hook that verifies the container is reachable.
	Start(lc *lifecycle.Coordinator) error
	// Download opens the artifact at key. Returns ErrNotFound if it does not exist.
	Download(ctx context.Context, key string) (*Artifact, error)
	// Exists reports whether an artifact exists at key.
	Exists(ctx context.Context, key string) (bool, error)
}

type azure struct {
	client    *azblob.Client
	container string
	prefix    string
	logger    *slog.Logger
}

// New creates a storage system from the given configuration.
// No request is made until Start or the first read.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:    client,
		container: cfg.ContainerName,
		prefix:    cfg.KeyPrefix,
		logger:    logger.With("system", "storage"),
	}, nil
}

func newClient(cfg *Config) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	return azblob.NewClient(cfg.AccountURL, cred, nil)
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	a.logger.Info("starting storage system")

	lc.OnStartup(lifecycle.Hook{
		Name: "storage",
		Run: func(ctx context.Context) error {
			_, err := a.client.ServiceClient().
				NewContainerClient(a.container).
				GetProperties(ctx, nil)
			if err != nil {
				a.logger.Warn("storage container unavailable", "container", a.container, "error", err)
				return err
			}
			a.logger.Info("storage container ready", "container", a.container)
			return nil
		},
	})

	return nil
}

func (a *azure) Download(ctx context.Context, key string) (*Artifact, error) {
	name, err := a.blobName(key)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download artifact %s: %w", name, err)
	}

	art := &Artifact{Body: resp.Body, ContentType: "application/pdf"}
	if resp.ContentType != nil && *resp.ContentType != "" {
		art.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		art.ContentLength = *resp.ContentLength
	}
	return art, nil
}

func (a *azure) Exists(ctx context.Context, key string) (bool, error) {
	name, err := a.blobName(key)
	if err != nil {
		return false, err
	}

	_, err = a.client.ServiceClient().
		NewContainerClient(a.container).
		NewBlobClient(name).
		GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check artifact %s: %w", name, err)
	}
	return true, nil
}

func (a *azure) blobName(key string) (string, error) {
	key, err := ResolveKey(key)
	if err != nil {
		return "", err
	}
	if a.prefix == "" {
		return key, nil
	}
	return path.Join(a.prefix, key), nil
}

// ResolveKey turns a stored document URI into a blob key. Absolute URLs
// contribute their path with the container segment removed; bare keys
// pass through. Traversal segments are rejected.
func ResolveKey(uri string) (string, error) {
	key := strings.TrimSpace(uri)
	if u, err := url.Parse(key); err == nil && u.Scheme != "" {
		key = strings.TrimPrefix(u.Path, "/")
		if _, rest, ok := strings.Cut(key, "/"); ok {
			key = rest
		}
	}
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return key, nil
}
