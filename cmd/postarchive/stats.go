package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-post-archive/internal/config"
	"github.com/tbourn/go-post-archive/internal/repo"
	"github.com/tbourn/go-post-archive/internal/sysutil"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print table counts and the newest post timestamp",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)

		db, err := openDB(cfg, false)
		if err != nil {
			return err
		}

		counts, err := repo.CountRows(cmd.Context(), db)
		if err != nil {
			return err
		}
		newest, err := repo.NewestPost(cmd.Context(), db)
		if err != nil {
			return err
		}

		out := struct {
			Tables     *repo.TableCounts `json:"tables"`
			NewestPost *time.Time        `json:"newest_post"`
		}{counts, newest}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
