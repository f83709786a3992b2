package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// CloudinaryConfig contains the credentials for a Cloudinary account.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStore keeps media on Cloudinary.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// NewCloudinaryStore builds a store from account credentials.
func NewCloudinaryStore(cfg CloudinaryConfig, logger zerolog.Logger) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryStore{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary_store").Logger(),
	}, nil
}

// Put uploads the blob; the key without its extension becomes the public id.
func (s *CloudinaryStore) Put(ctx context.Context, key string, reader io.Reader, _ int64, _ string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	result, err := s.client.Upload.Upload(ctx, reader, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicID(cleaned),
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("media uploaded to cloudinary")
	return result.SecureURL, nil
}

// Delete removes the asset behind key.
func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	id := publicID(cleaned)
	if s.folder != "" {
		id = s.folder + "/" + id
	}
	if _, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id}); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

func publicID(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}
