package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noah-isme/codequest-api/internal/catalog"
	"github.com/noah-isme/codequest-api/internal/database"
	"github.com/noah-isme/codequest-api/internal/models"
)

func newSeedCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CODEQUEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var (
		file    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert users, modules, lessons and challenges from a YAML catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := catalog.Load(file)
			if err != nil {
				return err
			}

			dsn := v.GetString("database.url")
			if dsn == "" {
				return fmt.Errorf("database url is required (--database-url or CODEQUEST_DATABASE_URL)")
			}

			db, err := database.Open(dsn)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			if migrate {
				if err := db.AutoMigrate(models.AllModels()...); err != nil {
					return fmt.Errorf("migrate database: %w", err)
				}
			}

			summary, err := catalog.Seed(cmd.Context(), db, parsed)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(summary)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the YAML catalog")
	cmd.Flags().String("database-url", "", "database DSN, or sqlite://<path>")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "run schema migrations before seeding")
	_ = cmd.MarkFlagRequired("file")
	_ = v.BindPFlag("database.url", cmd.Flags().Lookup("database-url"))

	return cmd
}
