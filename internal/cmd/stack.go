package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/3leaps/navconv/internal/config"
	"github.com/3leaps/navconv/pkg/blobstore"
	"github.com/3leaps/navconv/pkg/codegen"
	"github.com/3leaps/navconv/pkg/convert"
	"github.com/3leaps/navconv/pkg/extract"
	"github.com/3leaps/navconv/pkg/jobs"
	"github.com/3leaps/navconv/pkg/sandbox"
	"github.com/3leaps/navconv/pkg/schemaconv"
)

// pipeline bundles the wired conversion components shared by the convert
// and worker commands.
type pipeline struct {
	converter  *convert.Converter
	extractor  *extract.Extractor
	schemaConv *schemaconv.Converter
	blobs      blobstore.Store
	store      *jobs.Store
}

// buildPipeline wires the pipeline from configuration.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline, error) {
	cg := codegen.New(codegen.Config{
		BaseURL:           cfg.Codegen.BaseURL,
		APIKey:            cfg.Codegen.APIKey,
		Model:             cfg.Codegen.Model,
		Temperature:       cfg.Codegen.Temperature,
		Timeout:           cfg.Codegen.Timeout,
		RequestsPerSecond: cfg.Codegen.RequestsPerSecond,
		ServiceRetries:    cfg.Codegen.ServiceRetries,
	}, logger)

	runner := sandbox.NewExecRunner(sandbox.Config{
		Interpreter: cfg.Sandbox.Interpreter,
		Timeout:     cfg.Sandbox.Timeout,
	})

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		converter:  convert.New(cg, runner, logger),
		extractor:  extract.New(),
		schemaConv: schemaconv.New(cg, runner, logger),
		blobs:      blobs,
		store:      jobs.NewStore(cfg.Jobs.DataDir),
	}, nil
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.Storage.Backend {
	case "", "local":
		return blobstore.NewLocal(cfg.Storage.LocalDir)
	case "s3":
		return blobstore.NewS3(ctx, blobstore.S3Config{
			Bucket:          cfg.Storage.S3.Bucket,
			Prefix:          cfg.Storage.S3.Prefix,
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			Profile:         cfg.Storage.S3.Profile,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			ForcePathStyle:  cfg.Storage.S3.ForcePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
