package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sola-scriptura-text-search/internal/bootstrap"
	"github.com/sola-scriptura-text-search/internal/config"
	"github.com/sola-scriptura-text-search/internal/events"
	"github.com/sola-scriptura-text-search/internal/importer"
	"github.com/sola-scriptura-text-search/internal/repository"
)

func importCMD() *cobra.Command {
	var notify bool

	var cmd = &cobra.Command{
		Use:   "import <file-or-dir>...",
		Short: "Import OSIS or JSON bibles into the configured store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.GetConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.StorageBackend == config.StorageNone {
				return fmt.Errorf("import needs STORAGE_BACKEND=postgres or sqlite")
			}

			bibles, err := importer.LoadAll(args)
			if err != nil {
				return err
			}

			store, err := bootstrap.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var repo repository.BibleRepository = store
			if notify && cfg.RedisURL != "" {
				opts, err := redis.ParseURL(cfg.RedisURL)
				if err != nil {
					return fmt.Errorf("REDIS_URL: %w", err)
				}
				rdb := redis.NewClient(opts)
				defer rdb.Close()
				repo = events.NewNotifyingRepository(store, events.NewPublisher(rdb, cfg.RedisChannel))
			}

			for _, b := range bibles {
				if err := repo.SaveBible(ctx, b); err != nil {
					return fmt.Errorf("save %s: %w", b.Name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d books\t%d verses\n", b.ID, b.Name, b.BookCount(), b.VerseCount())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", true, "publish change events when REDIS_URL is set")

	return cmd
}
