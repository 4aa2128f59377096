package main

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/dustin/go-humanize"

	"github.com/ritoshark/flint/pkg/hashes"
	"github.com/ritoshark/flint/pkg/wad"
)

func wadInfoMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errors.New("archive path required")
	}
	reader, err := wad.Mount(arguments[0])
	if err != nil {
		return errors.Wrap(err, "unable to mount archive")
	}
	defer reader.Close()

	var compressed, uncompressed uint64
	for _, chunk := range reader.Chunks() {
		compressed += uint64(chunk.CompressedSize)
		uncompressed += uint64(chunk.UncompressedSize)
	}
	fmt.Println("Archive:", arguments[0])
	fmt.Println("Chunks:", reader.Count())
	fmt.Printf("Compressed: %s\n", humanize.IBytes(compressed))
	fmt.Printf("Uncompressed: %s\n", humanize.IBytes(uncompressed))
	return nil
}

func wadListMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errors.New("archive path required")
	}
	reader, err := wad.Mount(arguments[0])
	if err != nil {
		return errors.Wrap(err, "unable to mount archive")
	}
	defer reader.Close()

	store := hashStore()
	type row struct {
		name string
		size uint32
	}
	rows := make([]row, 0, reader.Count())
	for _, digest := range reader.Digests() {
		chunk, _ := reader.Get(digest)
		rows = append(rows, row{
			name: store.Resolve(hashes.Game, digest),
			size: chunk.UncompressedSize,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].name < rows[j].name
	})
	for _, r := range rows {
		fmt.Printf("%-12s %s\n", humanize.IBytes(uint64(r.size)), r.name)
	}
	return nil
}

var wadCommand = &cobra.Command{
	Use:   "wad",
	Short: "Inspect WAD archives",
}

var wadInfoCommand = &cobra.Command{
	Use:          "info <archive>",
	Short:        "Show archive summary information",
	RunE:         wadInfoMain,
	SilenceUsage: true,
}

var wadListCommand = &cobra.Command{
	Use:          "list <archive>",
	Short:        "List archive chunks with resolved names",
	RunE:         wadListMain,
	SilenceUsage: true,
}

func init() {
	wadCommand.AddCommand(wadInfoCommand, wadListCommand)
}
