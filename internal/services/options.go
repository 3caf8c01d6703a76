package services

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/blob"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/catalog_stats"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/find_orphans"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/get_product"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/list_products"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/repo"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/delete_asset"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/set_metadata"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/upload_asset"
	"github.com/light-bringer/storefront-catalog/internal/bus"
	"github.com/light-bringer/storefront-catalog/internal/config"
	"github.com/light-bringer/storefront-catalog/internal/metrics"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
	"github.com/light-bringer/storefront-catalog/internal/pkg/committer"
	"github.com/light-bringer/storefront-catalog/internal/views"
)

var _ contracts.Invalidator = (*bus.Bus)(nil)

// ServiceOptions holds all dependencies for the application.
type ServiceOptions struct {
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Clock   clock.Clock
	Bus     *bus.Bus
	Relay   *bus.NATSRelay

	Metadata contracts.MetadataStore
	Assets   contracts.AssetStore
	Legacy   contracts.Enumerator
	Engine   *reconcile.Engine

	SetMetadata *set_metadata.Interactor
	DeleteAsset *delete_asset.Interactor
	UploadAsset *upload_asset.Interactor

	GetProduct   *get_product.Query
	ListProducts *list_products.Query
	FindOrphans  *find_orphans.Query
	CatalogStats *catalog_stats.Query

	Home    *views.Home
	Gallery *views.Gallery
	Admin   *views.Admin

	closers []func() error
}

// NewServiceOptions creates and wires up all application dependencies.
func NewServiceOptions(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ServiceOptions, error) {
	s := &ServiceOptions{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.New(),
		Clock:   clock.NewRealClock(),
	}
	if err := s.build(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *ServiceOptions) build(ctx context.Context) error {
	cfg := s.Config

	// 1. Infrastructure
	s.Bus = bus.New(s.Log, s.Metrics)
	s.closers = append(s.closers, func() error { s.Bus.Close(); return nil })

	var natsConn *nats.Conn
	if cfg.MetadataBackend == config.BackendNATS || cfg.NATSRelay {
		conn, err := nats.Connect(cfg.NATSURL, nats.Name("storefront-catalog"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		natsConn = conn
		s.closers = append(s.closers, func() error { return conn.Drain() })
	}

	// 2. Stores
	metadata, err := s.openMetadataStore(ctx, natsConn)
	if err != nil {
		return err
	}
	s.Metadata = repo.NewLoggedStore(s.Log, cfg.MetadataBackend, metadata)

	if err := s.openAssetStores(ctx); err != nil {
		return err
	}

	// 3. Reconciliation
	s.Engine = reconcile.NewEngine(s.Legacy, s.Assets, s.Metadata, reconcile.Options{
		LegacyFolder: cfg.LegacyFolder,
		AssetPrefix:  cfg.AssetPrefix,
		Concurrency:  cfg.ReconcileConcurrency,
	}, s.Log, s.Metrics)

	// 4. Command use cases
	s.SetMetadata = set_metadata.NewInteractor(s.Metadata, s.Bus, cfg.MetadataPropagationDelay, s.Log)
	s.DeleteAsset = delete_asset.NewInteractor(s.Assets, s.Metadata, s.Bus,
		delete_asset.Options{MetadataFirst: cfg.DeleteMetadataFirst}, s.Log, s.Metrics)
	s.UploadAsset = upload_asset.NewInteractor(s.Assets, s.Bus, s.Clock,
		upload_asset.Options{Prefix: cfg.AssetPrefix, KeepOriginalName: cfg.KeepOriginalNames}, s.Log)

	// 5. Queries
	s.GetProduct = get_product.NewQuery(s.Engine)
	s.ListProducts = list_products.NewQuery(s.Engine)
	s.FindOrphans = find_orphans.NewQuery(s.Engine, s.Metadata, s.Log)
	s.CatalogStats = catalog_stats.NewQuery(s.Engine)

	// 6. Views
	s.Home = views.NewHome(s.Engine, s.Bus, s.Clock, s.Log, s.Metrics)
	s.Gallery = views.NewGallery(s.Engine, s.Bus, s.Clock, s.Log, s.Metrics)
	s.Admin = views.NewAdmin(s.Engine, s.Bus, s.Clock, s.Log, s.Metrics)

	// 7. Cross-replica invalidation
	if cfg.NATSRelay {
		s.Relay = bus.NewNATSRelay(s.Bus, natsConn, cfg.NATSSubject, s.Log)
		if err := s.Relay.Start(ctx); err != nil {
			return err
		}
		s.closers = append(s.closers, s.Relay.Stop)
	}
	return nil
}

func (s *ServiceOptions) openMetadataStore(ctx context.Context, natsConn *nats.Conn) (contracts.MetadataStore, error) {
	cfg := s.Config
	switch cfg.MetadataBackend {
	case config.BackendSpanner:
		client, err := spanner.NewClient(ctx, cfg.SpannerDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to create Spanner client: %w", err)
		}
		s.closers = append(s.closers, func() error { client.Close(); return nil })
		return repo.NewSpannerStore(client, committer.NewCommitter(client), s.Clock), nil

	case config.BackendRedis:
		store, err := repo.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, s.Clock)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, nil

	case config.BackendBolt:
		store, err := repo.OpenBoltStore(cfg.BoltPath, s.Clock)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, nil

	case config.BackendNATS:
		js, err := jetstream.New(natsConn)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		return repo.OpenNATSKVStore(ctx, js, cfg.NATSKVBucket, s.Clock)
	}

	s.Log.Warn("using in-memory metadata store, data is lost on restart")
	return repo.NewMemoryStore(s.Clock), nil
}

func (s *ServiceOptions) openAssetStores(ctx context.Context) error {
	cfg := s.Config
	if cfg.AssetBackend == config.BackendMinio {
		client, err := blob.NewMinioClient(blob.MinioConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return err
		}
		assets := blob.NewMinioStore(client, cfg.AssetBucket, cfg.PublicBaseURL)
		if err := assets.EnsureBucket(ctx); err != nil {
			return err
		}
		s.Assets = assets
		s.Legacy = blob.NewMinioEnumerator(client, cfg.LegacyBucket, cfg.PublicBaseURL)
		return nil
	}

	assets := blob.NewMemoryStore(cfg.AssetBucket, cfg.PublicBaseURL)
	s.Assets = assets
	s.Legacy = assets
	if cfg.LegacyBucket != cfg.AssetBucket {
		s.Legacy = blob.NewMemoryStore(cfg.LegacyBucket, cfg.PublicBaseURL)
	}
	return nil
}

// MountViews mounts the three view caches. A failed initial load is
// logged; the views retry on the next invalidation.
func (s *ServiceOptions) MountViews(ctx context.Context) {
	for _, c := range []*views.Cache{s.Home.Cache, s.Gallery.Cache, s.Admin.Cache} {
		if err := c.Mount(ctx); err != nil {
			s.Log.Warn("initial view load failed", zap.String("view", c.Name()), zap.Error(err))
		}
	}
}

// UnmountViews detaches the view caches.
func (s *ServiceOptions) UnmountViews() {
	for _, c := range []*views.Cache{s.Home.Cache, s.Gallery.Cache, s.Admin.Cache} {
		c.Unmount()
	}
}

// Ready probes the metadata store.
func (s *ServiceOptions) Ready(ctx context.Context) error {
	return repo.Probe(ctx, s.Metadata)
}

// Close closes all resources, newest first.
func (s *ServiceOptions) Close() {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if err := errors.Join(errs...); err != nil {
		s.Log.Warn("error while closing resources", zap.Error(err))
	}
}
