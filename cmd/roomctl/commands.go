package main

import (
	"encoding/json"
	"fmt"

	"github.com/npezzotti/roomrent/internal/database"
	"github.com/npezzotti/roomrent/internal/diagnostics"
	"github.com/npezzotti/roomrent/internal/fallback"
	"github.com/npezzotti/roomrent/internal/listing"
	"github.com/npezzotti/roomrent/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSeedCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo users, profiles, rooms and images",
		Long: `Create the demo accounts through the auth admin API, give each a profile
row and insert the demo rooms with their images. Accounts that already exist are
reused, so the command can be run more than once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := e.adminClient()
			if err != nil {
				return err
			}

			repo, closeRepo, err := e.repository(client)
			if err != nil {
				return err
			}
			defer closeRepo()

			sum, err := seed.NewSeeder(client, repo, e.log.Named("seed")).
				Seed(cmd.Context(), seed.DefaultUsers, seed.DefaultRooms)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			e.log.Info("seed complete",
				zap.Int("users", len(sum.Users)),
				zap.Int("rooms", sum.Rooms),
				zap.Int("images", sum.Images),
			)
			return printJSON(cmd, sum)
		},
	}
}

func newSeedImagesCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-images",
		Short: "Give every room without images a placeholder image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := e.adminClient()
			if err != nil {
				return err
			}

			repo, closeRepo, err := e.repository(client)
			if err != nil {
				return err
			}
			defer closeRepo()

			svc := listing.NewService(repo,
				listing.NewBucketStorage(client, e.Bucket),
				fallback.NewMemoryStore(e.log.Named("fallback")),
				e.log.Named("listing"),
			)

			n, err := svc.PopulateImages(cmd.Context(), "")
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]int{"updated": n})
		},
	}
}

func newDiagnosticsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics",
		Short: "Check configuration and the image storage bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := e.ServiceKey
			if key == "" {
				key = e.AnonKey
			}
			hasEnv := e.AnonKey != ""

			client, err := e.clientWithKey(key)
			if err != nil {
				return err
			}

			report := diagnostics.NewChecker(
				listing.NewBucketStorage(client, e.Bucket),
				e.Bucket,
				hasEnv,
				e.log.Named("diagnostics"),
			).Run(cmd.Context(), nil)

			return printJSON(cmd, report)
		},
	}
}

func newMigrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the Postgres schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(database.MigrateUp), string(database.MigrateDown)},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := database.ParseMigrateDirection(args[0])
			if err != nil {
				return err
			}
			if e.DSN == "" {
				return errNoDSN
			}

			pg, err := database.NewPgRoomRepository(e.DSN)
			if err != nil {
				return err
			}
			defer pg.Close()

			version, err := database.Migrate(pg.DB(), dir)
			if err != nil {
				return err
			}

			e.log.Info("migration complete", zap.String("direction", string(dir)), zap.Uint("version", version))
			return printJSON(cmd, map[string]uint{"version": version})
		},
	}
}
