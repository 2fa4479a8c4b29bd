package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/eric/internal/jsonl"
	"github.com/mesh-intelligence/eric/internal/paths"
	"github.com/mesh-intelligence/eric/internal/refresh"
	"github.com/mesh-intelligence/eric/pkg/items"
	"github.com/mesh-intelligence/eric/pkg/types"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the record cache",
	}
	cmd.AddCommand(
		newCacheGetCmd(a),
		newCacheKeysCmd(a),
		newCacheProductsCmd(a),
		newCacheRefreshCmd(a),
		newCacheWarmCmd(a),
		newCacheExportCmd(a),
		newCacheImportCmd(a),
	)
	return cmd
}

// withRuntime opens the cache for the duration of fn. Logs go to stderr.
func (a *app) withRuntime(cmd *cobra.Command, fn func(rt *runtime) error) error {
	rt, err := a.newRuntime(cmd.ErrOrStderr(), nil, nil)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func newCacheGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <device|product> <id>",
		Short: "Print a record's cache snapshot, loading it from the board on a miss",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(rt *runtime) error {
				ctx := cmd.Context()
				rec, err := items.NewCacheable(rt.env, args[0], args[1])
				if err != nil {
					return err
				}
				lookup, err := rec.FetchCacheSnapshot(ctx)
				hit := err == nil && lookup.Hit
				if err := rec.Load(ctx, nil); err != nil {
					return err
				}
				snapshot, err := rec.PrepareCacheData(items.WithoutAlerts(ctx))
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					return writeJSON(out, map[string]any{"key": rec.CacheKey(), "hit": hit, "data": snapshot})
				}
				status := color.New(color.FgYellow).Sprint("MISS")
				if hit {
					status = color.New(color.FgGreen).Sprint("HIT")
				}
				fmt.Fprintf(out, "%s %s\n", rec.CacheKey(), status)
				return writeJSON(out, snapshot)
			})
		},
	}
}

func newCacheKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys <device|product>",
		Short: "List the cached keys of a record type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(rt *runtime) error {
				keys, err := items.CachedKeys(cmd.Context(), rt.env, args[0])
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					if keys == nil {
						keys = []string{}
					}
					return writeJSON(cmd.OutOrStdout(), keys)
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}
}

func newCacheProductsCmd(a *app) *cobra.Command {
	var includeIndex bool
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List cached products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(rt *runtime) error {
				ctx := cmd.Context()
				products, err := items.FetchAllProducts(ctx, rt.env, includeIndex)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					snapshots := make([]any, 0, len(products))
					for _, p := range products {
						s, err := p.PrepareCacheData(items.WithoutAlerts(ctx))
						if err != nil {
							return err
						}
						snapshots = append(snapshots, s)
					}
					return writeJSON(out, snapshots)
				}
				for _, p := range products {
					fmt.Fprintf(out, "%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Price(), p.LinkedDeviceID())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&includeIndex, "include-index", false, "include Index products")
	return cmd
}

func newCacheRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <device|product> <id>",
		Short: "Reload a record from the board and overwrite its cache entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(rt *runtime) error {
				if err := refresh.New(rt.env).Refresh(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Refreshed %s\n", items.CacheKey(args[0], args[1]))
				return nil
			})
		},
	}
}

func newCacheWarmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "warm",
		Short: "Load every device and product from the boards into the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(rt *runtime) error {
				start := time.Now()
				stats, err := refresh.New(rt.env).WarmAll(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					return writeJSON(out, stats)
				}
				fmt.Fprintf(out, "Cached %d devices and %d products (%d without a device) in %s\n",
					stats.Devices, stats.Products, stats.Orphans, time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

func newCacheExportCmd(a *app) *cobra.Command {
	var upload bool
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Dump the cache to a JSONL file or the backup bucket",
		Long: "Write every cached device and product as one JSON line. Without a file the\n" +
			"dump goes to the data directory's dumps folder; with --upload it goes to\n" +
			"the configured backup bucket.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd, func(rt *runtime) error {
				ctx := cmd.Context()
				entries, skipped, err := jsonl.Export(ctx, rt.env.Cache, types.CacheableRecordTypes...)
				if err != nil {
					return err
				}
				for _, k := range skipped {
					rt.logger.Warn("skipped unreadable cache entry", "key", k)
				}
				out := cmd.OutOrStdout()

				if upload {
					bs, err := a.openBackup(ctx)
					if err != nil {
						return err
					}
					key, err := bs.Upload(ctx, entries)
					if err != nil {
						return sysErr("%w", err)
					}
					fmt.Fprintf(out, "Uploaded %d entries to s3://%s/%s\n", len(entries), a.config.BackupBucket, key)
					return nil
				}

				path := ""
				if len(args) == 1 {
					path = args[0]
				} else {
					dir := paths.DumpDir(a.dataDir)
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return sysErr("create dump directory: %w", err)
					}
					path = filepath.Join(dir, "cache-"+time.Now().UTC().Format("20060102T150405Z")+".jsonl")
				}
				if err := jsonl.WriteFile(path, entries); err != nil {
					return sysErr("%w", err)
				}
				size := int64(0)
				if fi, err := os.Stat(path); err == nil {
					size = fi.Size()
				}
				fmt.Fprintf(out, "Wrote %d entries (%s) to %s\n", len(entries), humanize.Bytes(uint64(size)), path)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&upload, "upload", false, "upload the dump to the backup bucket")
	return cmd
}

func newCacheImportCmd(a *app) *cobra.Command {
	var fromBucket bool
	cmd := &cobra.Command{
		Use:   "import [file|object-key]",
		Short: "Load a JSONL dump into the cache",
		Long: "Write every entry of a dump into the cache, overwriting existing keys.\n" +
			"With --from-bucket the argument names an object in the backup bucket;\n" +
			"without an argument the newest dump there is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !fromBucket && len(args) == 0 {
				return fmt.Errorf("a dump file is required unless --from-bucket is set")
			}
			return a.withRuntime(cmd, func(rt *runtime) error {
				ctx := cmd.Context()
				entries, source, err := a.readDump(ctx, args, fromBucket)
				if err != nil {
					return err
				}
				if err := jsonl.Import(ctx, rt.env.Cache, entries); err != nil {
					return sysErr("%w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s entries from %s\n", humanize.Comma(int64(len(entries))), source)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fromBucket, "from-bucket", false, "read the dump from the backup bucket")
	return cmd
}

func (a *app) readDump(ctx context.Context, args []string, fromBucket bool) ([]jsonl.Entry, string, error) {
	if !fromBucket {
		entries, err := jsonl.ReadFile(args[0])
		if err != nil {
			return nil, "", err
		}
		return entries, args[0], nil
	}
	bs, err := a.openBackup(ctx)
	if err != nil {
		return nil, "", err
	}
	key := ""
	if len(args) == 1 {
		key = args[0]
	} else if key, err = bs.Latest(ctx); err != nil {
		return nil, "", err
	}
	entries, err := bs.Download(ctx, key)
	if err != nil {
		return nil, "", sysErr("%w", err)
	}
	return entries, "s3://" + a.config.BackupBucket + "/" + key, nil
}

func writeJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
