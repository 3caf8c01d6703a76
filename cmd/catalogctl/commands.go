package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/find_orphans"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/get_product"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/queries/list_products"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/reconcile"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/delete_asset"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/set_metadata"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/usecases/upload_asset"
)

func mode(admin bool) reconcile.Mode {
	if admin {
		return reconcile.ModeAdmin
	}
	return reconcile.ModeStorefront
}

func newListCmd(c *cli) *cobra.Command {
	var (
		admin bool
		sort  string
		req   list_products.Request
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products (storefront view unless --admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Mode = mode(admin)
			if sort != "" {
				req.Sort = domain.ParseSortKey(sort)
			}
			resp, err := c.svc.ListProducts.Execute(cmd.Context(), &req)
			if err != nil {
				return err
			}
			return c.print(resp)
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "include assets without visible metadata")
	cmd.Flags().StringVar(&req.Category, "category", "", "filter by category")
	cmd.Flags().StringVarP(&req.Search, "search", "q", "", "match title or description, ignoring case")
	cmd.Flags().StringVar(&sort, "sort", "", "sort key: title, name, category, price or updated_at")
	cmd.Flags().BoolVar(&req.Desc, "desc", false, "reverse the order")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "page offset")
	return cmd
}

func newGetCmd(c *cli) *cobra.Command {
	var admin bool
	cmd := &cobra.Command{
		Use:   "get <id-or-name>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.svc.GetProduct.Execute(cmd.Context(), &get_product.Request{ID: args[0], Name: args[0], Mode: mode(admin)})
			if err != nil {
				return err
			}
			return c.print(p)
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "also find products hidden from the storefront")
	return cmd
}

func newSetCmd(c *cli) *cobra.Command {
	var (
		title, description, category, currency, videoURL, locator string
		price                                                      float64
		inStock, featured                                          bool
		tags                                                       []string
	)
	cmd := &cobra.Command{
		Use:   "set <raw-name>",
		Short: "Create or update the metadata of an asset; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var patch domain.MetadataPatch
			if flags.Changed("title") {
				patch.Title = domain.String(title)
			}
			if flags.Changed("description") {
				patch.Description = domain.String(description)
			}
			if flags.Changed("category") {
				patch.Category = domain.String(category)
			}
			if flags.Changed("price") {
				patch.Price = domain.Float(price)
			}
			if flags.Changed("currency") {
				patch.Currency = domain.String(currency)
			}
			if flags.Changed("in-stock") {
				patch.InStock = domain.Bool(inStock)
			}
			if flags.Changed("featured") {
				patch.Featured = domain.Bool(featured)
			}
			if flags.Changed("tags") {
				patch.Tags = domain.Strings(tags...)
			}
			if flags.Changed("video-url") {
				patch.VideoURL = domain.String(videoURL)
			}
			if !patch.HasChanges() {
				return fmt.Errorf("nothing to set: pass at least one field flag")
			}

			rec, err := c.svc.SetMetadata.Execute(cmd.Context(), &set_metadata.Request{
				RawName: args[0],
				Locator: locator,
				Patch:   patch,
			})
			if err != nil {
				return err
			}
			return c.print(rec)
		},
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "display title; empty hides the product")
	f.StringVar(&description, "description", "", "description")
	f.StringVar(&category, "category", "", "category")
	f.Float64Var(&price, "price", 0, "price")
	f.StringVar(&currency, "currency", "", "currency code")
	f.BoolVar(&inStock, "in-stock", false, "in stock")
	f.BoolVar(&featured, "featured", false, "featured on the home page")
	f.StringSliceVar(&tags, "tags", nil, "comma separated tags")
	f.StringVar(&videoURL, "video-url", "", "product video URL")
	f.StringVar(&locator, "locator", "", "public URL recorded on first write")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	var locator string
	cmd := &cobra.Command{
		Use:   "delete <raw-name>",
		Short: "Delete an asset and its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if locator == "" {
				p, err := c.svc.GetProduct.Execute(cmd.Context(), &get_product.Request{Name: args[0], Mode: reconcile.ModeAdmin})
				if err != nil {
					return err
				}
				locator = p.Locator
			}
			resp, err := c.svc.DeleteAsset.Execute(cmd.Context(), &delete_asset.Request{RawName: args[0], Locator: locator})
			if err != nil {
				if pde, ok := domain.AsPartialDelete(err); ok {
					return fmt.Errorf("%w (run `catalogctl orphans` to inspect %s)", err, pde.Key)
				}
				return err
			}
			return c.print(map[string]interface{}{"key": resp.Key, "asset_removed": resp.AssetRemoved})
		},
	}
	cmd.Flags().StringVar(&locator, "locator", "", "asset locator; looked up from the listing when empty")
	return cmd
}

func newUploadCmd(c *cli) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a local file to the asset store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}

			asset, err := c.svc.UploadAsset.Execute(cmd.Context(), &upload_asset.Request{
				FileName:    filepath.Base(args[0]),
				ContentType: contentType,
				Body:        f,
				Size:        info.Size(),
			})
			if err != nil {
				return err
			}
			return c.print(asset)
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "MIME type (default application/octet-stream)")
	return cmd
}

func newOrphansCmd(c *cli) *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Report metadata without assets and assets without metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.svc.FindOrphans.Execute(cmd.Context(), &find_orphans.Request{Purge: purge})
			if err != nil {
				return err
			}
			return c.print(resp)
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "delete metadata records whose asset is gone")
	return cmd
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.svc.CatalogStats.Execute(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(stats)
		},
	}
}
