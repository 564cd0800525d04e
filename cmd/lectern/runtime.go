package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jackzampolin/lectern/internal/analysis"
	"github.com/jackzampolin/lectern/internal/classify"
	"github.com/jackzampolin/lectern/internal/config"
	"github.com/jackzampolin/lectern/internal/fileconv"
	"github.com/jackzampolin/lectern/internal/objstore"
	"github.com/jackzampolin/lectern/internal/prompts"
	"github.com/jackzampolin/lectern/internal/providers"
	"github.com/jackzampolin/lectern/internal/samples"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	registry *providers.Registry
	objects  objstore.Store
	raster   fileconv.Rasterizer
	prompts  *prompts.Store
	logger   *slog.Logger
}

// newApp loads configuration and constructs the configured provider
// clients and stores.
func newApp(ctx context.Context) (*app, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	logger := slog.Default()

	registry := providers.NewRegistry()
	for name, p := range cfg.EnabledProviders() {
		switch p.Type {
		case "bedrock":
			client, err := providers.NewBedrockClient(ctx, providers.BedrockConfig{
				Region:     p.Region,
				ModelID:    p.Model,
				EmbedModel: cfg.Embedding.Model,
				EmbedDims:  cfg.Embedding.Dimensions,
				RateLimit:  p.RateLimit,
				Logger:     logger,
			})
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", name, err)
			}
			registry.RegisterModel(client)
			registry.RegisterEmbedder(client)
		case "openai":
			registry.RegisterModel(providers.NewOpenAIClient(providers.OpenAIConfig{
				APIKey:    config.ResolveEnvVars(p.APIKey),
				Model:     p.Model,
				BaseURL:   p.BaseURL,
				RateLimit: p.RateLimit,
				Logger:    logger,
			}))
		default:
			return nil, fmt.Errorf("provider %s: unknown type %q", name, p.Type)
		}
	}

	return &app{
		cfg:      cfg,
		registry: registry,
		objects:  newObjectStore(ctx, cfg, logger),
		raster:   &fileconv.PopplerRasterizer{Logger: logger},
		prompts:  mustPrompts(),
		logger:   logger,
	}, nil
}

// newObjectStore routes between local paths and s3://. The S3 client is
// optional; without AWS credentials local paths still work.
func newObjectStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) objstore.Store {
	var opts []func(*awsconfig.LoadOptions) error
	if region := cfg.Embedding.Region; region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Debug("aws config unavailable, s3 paths disabled", "error", err)
		return objstore.NewRouter(nil)
	}
	return objstore.NewRouter(objstore.NewS3(s3.NewFromConfig(awsCfg)))
}

func mustPrompts() *prompts.Store {
	store, err := prompts.Default()
	if err != nil {
		panic(err)
	}
	return store
}

// modelClient resolves the requested provider, falling back to the
// configured default.
func (a *app) modelClient(name string) (providers.ModelClient, error) {
	if name == "" {
		name = a.cfg.Defaults.Provider
	}
	return a.registry.Model(name)
}

func (a *app) analyzer(client providers.ModelClient) *analysis.Analyzer {
	return &analysis.Analyzer{
		Client:  client,
		Raster:  a.raster,
		Objects: a.objects,
		Prompts: a.prompts,
		Config:  a.cfg,
		Logger:  a.logger,
	}
}

// sampleStore keys sample files under <store root>/<classification prefix>.
func (a *app) sampleStore() *samples.Store {
	root := strings.TrimSuffix(os.ExpandEnv(a.cfg.Store.Root), "/")
	return samples.NewStore(a.objects, root+"/"+a.cfg.ClassificationPrefix)
}

func (a *app) sampler() (*classify.Sampler, error) {
	embedder, err := a.registry.Embedder(a.cfg.Embedding.Provider)
	if err != nil {
		return nil, err
	}
	return &classify.Sampler{
		Embedder: embedder,
		Samples:  a.sampleStore(),
		Objects:  a.objects,
		Raster:   a.raster,
		Logger:   a.logger,
	}, nil
}

func (a *app) engine() (*classify.Engine, error) {
	embedder, err := a.registry.Embedder(a.cfg.Embedding.Provider)
	if err != nil {
		return nil, err
	}
	return &classify.Engine{
		Embedder: embedder,
		Samples:  a.sampleStore(),
		Objects:  a.objects,
		Raster:   a.raster,
		Logger:   a.logger,
	}, nil
}
