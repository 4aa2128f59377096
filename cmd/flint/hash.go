package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dustin/go-humanize"

	"github.com/pkg/errors"

	"github.com/ritoshark/flint/pkg/hashes"
)

func hashRefreshMain(command *cobra.Command, arguments []string) error {
	stats, err := hashes.Refresh(
		context.Background(), hashDirectory(),
		hashConfiguration.force, logger.Sublogger("hashes"),
	)
	if err != nil {
		return errors.Wrap(err, "refresh failed")
	}
	fmt.Printf(
		"Downloaded %d, skipped %d, %d errors\n",
		stats.Downloaded, stats.Skipped, stats.Errors,
	)
	if stats.Errors > 0 {
		return errors.Errorf("%d files failed to download", stats.Errors)
	}
	return nil
}

func hashStatusMain(command *cobra.Command, arguments []string) error {
	fmt.Println("Hash directory:", hashDirectory())
	for _, status := range hashes.Status(hashDirectory()) {
		if !status.Present {
			fmt.Printf("%-28s missing\n", status.Name)
			continue
		}
		age := humanize.Time(status.ModTime)
		state := "fresh"
		if status.Stale {
			state = "stale"
		}
		fmt.Printf(
			"%-28s %s (%s, updated %s)\n",
			status.Name, state, humanize.IBytes(uint64(status.Size)), age,
		)
	}
	return nil
}

func hashReloadMain(command *cobra.Command, arguments []string) error {
	store, err := hashes.Load(hashDirectory(), logger.Sublogger("hashes"))
	if err != nil {
		return errors.Wrap(err, "reload failed")
	}
	fmt.Printf("Loaded %s hash records\n", humanize.Comma(int64(store.Count())))
	return nil
}

var hashCommand = &cobra.Command{
	Use:   "hash",
	Short: "Manage the shared hash lists",
}

var hashConfiguration struct {
	force bool
}

var hashRefreshCommand = &cobra.Command{
	Use:          "refresh",
	Short:        "Download stale hash lists from the upstream mirror",
	RunE:         hashRefreshMain,
	SilenceUsage: true,
}

var hashStatusCommand = &cobra.Command{
	Use:          "status",
	Short:        "Show the local state of the hash lists",
	RunE:         hashStatusMain,
	SilenceUsage: true,
}

var hashReloadCommand = &cobra.Command{
	Use:          "reload",
	Short:        "Reload the hash lists from disk and report the record count",
	RunE:         hashReloadMain,
	SilenceUsage: true,
}

func init() {
	hashRefreshCommand.Flags().BoolVarP(&hashConfiguration.force, "force", "f", false, "Download all files regardless of age")
	hashCommand.AddCommand(hashRefreshCommand, hashStatusCommand, hashReloadCommand)
}
