package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/catalog_stats"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/find_orphans"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/get_product"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/list_products"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/delete_asset"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/set_metadata"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/upload_asset"
	"github.com/light-bringer/storefront-catalog/internal/bus"
	"github.com/light-bringer/storefront-catalog/internal/views"
)

const (
	maxPatchBytes  = 64 << 10
	maxUploadBytes = 32 << 20
)

// Deps lists what the HTTP layer delegates to.
type Deps struct {
	// Commands
	SetMetadata *set_metadata.Interactor
	DeleteAsset *delete_asset.Interactor
	UploadAsset *upload_asset.Interactor

	// Queries
	GetProduct   *get_product.Query
	ListProducts *list_products.Query
	FindOrphans  *find_orphans.Query
	CatalogStats *catalog_stats.Query

	// Views
	Home    *views.Home
	Gallery *views.Gallery
	Admin   *views.Admin

	Bus     *bus.Bus
	Ready   func(ctx context.Context) error
	Metrics http.Handler
	Log     *zap.Logger
}

// Handler is a thin coordinator that delegates to use cases, queries and views.
type Handler struct {
	deps Deps
	log  *zap.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps, log: deps.Log.Named("http")}
}

// Routes returns the mux with every endpoint and the request middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/products", h.listProducts(reconcile.ModeStorefront))
	mux.HandleFunc("GET /api/v1/products/featured", h.featured)
	mux.HandleFunc("GET /api/v1/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/v1/gallery", h.gallery)

	mux.HandleFunc("GET /api/v1/admin/products", h.listProducts(reconcile.ModeAdmin))
	mux.HandleFunc("PUT /api/v1/admin/products/{name}/metadata", h.setMetadata)
	mux.HandleFunc("DELETE /api/v1/admin/products/{name}", h.deleteAsset)
	mux.HandleFunc("POST /api/v1/admin/assets", h.uploadAsset)
	mux.HandleFunc("GET /api/v1/admin/orphans", h.orphans)
	mux.HandleFunc("GET /api/v1/admin/stats", h.stats)
	if h.deps.Admin != nil {
		mux.HandleFunc("GET /api/v1/admin/unannotated", h.unannotated)
	}

	mux.Handle("GET /api/v1/events", NewEventsHandler(h.deps.Bus, h.log))
	mux.HandleFunc("GET /healthz", h.healthz)
	if h.deps.Metrics != nil {
		mux.Handle("GET /metrics", h.deps.Metrics)
	}

	return withRequestLogging(h.log, mux)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		h.log.Warn("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, format string, args ...interface{}) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf(format, args...)})
}

func optionalBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a boolean", name)
	}
	return &v, nil
}

func optionalInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

// listProducts handles GET /api/v1/products and GET /api/v1/admin/products.
func (h *Handler) listProducts(mode reconcile.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		req := &list_products.Request{
			Mode:     mode,
			Category: q.Get("category"),
			Search:   q.Get("q"),
		}
		if s := q.Get("sort"); s != "" {
			req.Sort = domain.ParseSortKey(s)
		}

		var err error
		if req.Featured, err = optionalBool(r, "featured"); err != nil {
			badRequest(w, "%v", err)
			return
		}
		if req.InStock, err = optionalBool(r, "in_stock"); err != nil {
			badRequest(w, "%v", err)
			return
		}
		desc, err := optionalBool(r, "desc")
		if err != nil {
			badRequest(w, "%v", err)
			return
		}
		req.Desc = desc != nil && *desc
		if req.Limit, err = optionalInt(r, "limit"); err != nil {
			badRequest(w, "%v", err)
			return
		}
		if req.Offset, err = optionalInt(r, "offset"); err != nil {
			badRequest(w, "%v", err)
			return
		}

		resp, err := h.deps.ListProducts.Execute(r.Context(), req)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// getProduct handles GET /api/v1/products/{id}.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.GetProduct.Execute(r.Context(), &get_product.Request{
		ID:   r.PathValue("id"),
		Mode: reconcile.ModeStorefront,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ViewResponse is a page payload served from a view cache.
type ViewResponse struct {
	State      string           `json:"state"`
	Products   []domain.Product `json:"products"`
	Categories []string         `json:"categories,omitempty"`
	Error      string           `json:"error,omitempty"`
	Retryable  bool             `json:"retryable,omitempty"`
	LoadedAt   *time.Time       `json:"loaded_at,omitempty"`
}

func viewResponse(snap views.Snapshot, products []domain.Product) ViewResponse {
	resp := ViewResponse{State: snap.State.String(), Products: products}
	if resp.Products == nil {
		resp.Products = []domain.Product{}
	}
	if snap.Err != nil {
		_, body := mapDomainError(snap.Err)
		resp.Error = body.Error
		resp.Retryable = true
	}
	if !snap.LoadedAt.IsZero() {
		loadedAt := snap.LoadedAt
		resp.LoadedAt = &loadedAt
	}
	return resp
}

// featured handles GET /api/v1/products/featured from the home view.
func (h *Handler) featured(w http.ResponseWriter, r *http.Request) {
	snap := h.deps.Home.Snapshot()
	writeJSON(w, http.StatusOK, viewResponse(snap, h.deps.Home.Featured()))
}

// gallery handles GET /api/v1/gallery from the gallery view.
func (h *Handler) gallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	desc, _ := strconv.ParseBool(q.Get("desc"))
	products := h.deps.Gallery.Search(views.GalleryQuery{
		Term:     q.Get("q"),
		Category: q.Get("category"),
		SortDesc: desc,
	})
	resp := viewResponse(h.deps.Gallery.Snapshot(), products)
	resp.Categories = h.deps.Gallery.Categories()
	writeJSON(w, http.StatusOK, resp)
}

// unannotated handles GET /api/v1/admin/unannotated from the admin view:
// assets that are listed but not yet visible on the storefront.
func (h *Handler) unannotated(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewResponse(h.deps.Admin.Snapshot(), h.deps.Admin.Unannotated()))
}

// setMetadata handles PUT /api/v1/admin/products/{name}/metadata.
func (h *Handler) setMetadata(w http.ResponseWriter, r *http.Request) {
	var patch domain.MetadataPatch
	if err := json.NewDecoder(io.LimitReader(r.Body, maxPatchBytes)).Decode(&patch); err != nil {
		if errors.Is(err, domain.ErrInvalidPatch) {
			h.fail(w, r, err)
			return
		}
		badRequest(w, "invalid JSON body: %v", err)
		return
	}

	name := r.PathValue("name")
	locator := r.URL.Query().Get("locator")
	if locator == "" && patch.PublicURL == nil {
		locator = h.resolveLocator(r, name)
	}

	rec, err := h.deps.SetMetadata.Execute(r.Context(), &set_metadata.Request{
		RawName: name,
		Locator: locator,
		Patch:   patch,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// resolveLocator looks the asset up in the admin listing. Metadata may be
// written before the binary is listed, so a failed lookup only means the
// record goes without a public URL.
func (h *Handler) resolveLocator(r *http.Request, name string) string {
	p, err := h.deps.GetProduct.Execute(r.Context(), &get_product.Request{Name: name, Mode: reconcile.ModeAdmin})
	if err != nil {
		h.log.Debug("no locator for metadata write", zap.String("asset", name), zap.Error(err))
		return ""
	}
	return p.Locator
}

// deleteAsset handles DELETE /api/v1/admin/products/{name}. Without a
// locator query parameter the asset is looked up in the listing first.
func (h *Handler) deleteAsset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	locator := r.URL.Query().Get("locator")
	if locator == "" {
		p, err := h.deps.GetProduct.Execute(r.Context(), &get_product.Request{Name: name, Mode: reconcile.ModeAdmin})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		locator = p.Locator
	}

	resp, err := h.deps.DeleteAsset.Execute(r.Context(), &delete_asset.Request{RawName: name, Locator: locator})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":           resp.Key,
		"asset_removed": resp.AssetRemoved,
	})
}

// uploadAsset handles POST /api/v1/admin/assets (multipart field "file").
func (h *Handler) uploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "multipart field \"file\" is required: %v", err)
		return
	}
	defer file.Close()

	asset, err := h.deps.UploadAsset.Execute(r.Context(), &upload_asset.Request{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Size:        header.Size,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// orphans handles GET /api/v1/admin/orphans. It never purges.
func (h *Handler) orphans(w http.ResponseWriter, r *http.Request) {
	resp, err := h.deps.FindOrphans.Execute(r.Context(), &find_orphans.Request{})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// stats handles GET /api/v1/admin/stats.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.CatalogStats.Execute(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// healthz probes the metadata store.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.deps.Ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
