package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/ritoshark/flint/cmd"
	"github.com/ritoshark/flint/pkg/wad"
)

func extractMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errors.New("archive path required")
	}
	reader, err := wad.Mount(arguments[0])
	if err != nil {
		return errors.Wrap(err, "unable to mount archive")
	}
	defer reader.Close()

	options := &wad.ExtractOptions{Include: extractConfiguration.include}
	result, err := wad.ExtractAll(
		context.Background(), reader,
		extractConfiguration.output, hashStore(), options,
		logger.Sublogger("extract"),
	)
	if err != nil {
		return errors.Wrap(err, "extraction failed")
	}
	fmt.Printf("Extracted %d chunks (%d failed)\n", result.ExtractedCount, result.FailedCount)
	if result.FailedCount > 0 {
		cmd.Warning(fmt.Sprintf("%d chunks could not be extracted", result.FailedCount))
	}
	return nil
}

func extractSkinMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errors.New("archive path required")
	}
	if extractSkinConfiguration.champion == "" {
		return errors.New("champion name required")
	}
	reader, err := wad.Mount(arguments[0])
	if err != nil {
		return errors.Wrap(err, "unable to mount archive")
	}
	defer reader.Close()

	result, err := wad.ExtractSkinAssets(
		context.Background(), reader,
		extractSkinConfiguration.output,
		extractSkinConfiguration.champion,
		hashStore(),
		logger.Sublogger("extract"),
	)
	if err != nil {
		return errors.Wrap(err, "extraction failed")
	}
	fmt.Printf(
		"Extracted %d chunks (%d failed, %d hash-named)\n",
		result.ExtractedCount, result.FailedCount, len(result.PathMappings),
	)
	return nil
}

var extractCommand = &cobra.Command{
	Use:          "extract <archive>",
	Short:        "Extract archive chunks to a directory",
	RunE:         extractMain,
	SilenceUsage: true,
}

var extractConfiguration struct {
	output  string
	include []string
}

var extractSkinCommand = &cobra.Command{
	Use:          "skin <archive>",
	Short:        "Extract a champion archive's asset and data chunks into a mountable WAD folder",
	RunE:         extractSkinMain,
	SilenceUsage: true,
}

var extractSkinConfiguration struct {
	output   string
	champion string
}

func init() {
	flags := extractCommand.Flags()
	flags.StringVarP(&extractConfiguration.output, "out", "o", ".", "Output directory")
	flags.StringArrayVar(&extractConfiguration.include, "include", nil, "Restrict extraction to chunks matching this pattern (repeatable)")

	skinFlags := extractSkinCommand.Flags()
	skinFlags.StringVarP(&extractSkinConfiguration.output, "out", "o", ".", "Output directory")
	skinFlags.StringVarP(&extractSkinConfiguration.champion, "champion", "c", "", "Champion internal name")

	extractCommand.AddCommand(extractSkinCommand)
}
