package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/ritoshark/flint/pkg/bin"
	"github.com/ritoshark/flint/pkg/bin/text"
	"github.com/ritoshark/flint/pkg/filesystem"
)

// binProvider builds the digest resolver for text conversion, installing it
// as the process-wide cached provider on first use.
func binProvider() text.Provider {
	text.InitializeCachedProvider(func() text.Provider {
		return &text.StoreProvider{Store: hashStore()}
	})
	return text.CachedProvider()
}

func binToTextMain(command *cobra.Command, arguments []string) error {
	if len(arguments) < 1 || len(arguments) > 2 {
		return errors.New("input path (and optional output path) required")
	}
	input := arguments[0]
	output := input + ".py"
	if len(arguments) == 2 {
		output = arguments[1]
	}

	var converted string
	var err error
	if binConfiguration.noResolve {
		var tree *bin.Tree
		if tree, err = bin.ParseFile(input); err == nil {
			converted, err = text.Marshal(tree)
		}
	} else {
		converted, err = text.ReadOrConvert(input, binProvider(), logger.Sublogger("bin"))
	}
	if err != nil {
		return errors.Wrap(err, "conversion failed")
	}
	if err := filesystem.WriteFileAtomic(output, []byte(converted), 0644); err != nil {
		return errors.Wrap(err, "unable to write output")
	}
	return nil
}

func binFromTextMain(command *cobra.Command, arguments []string) error {
	if len(arguments) < 1 || len(arguments) > 2 {
		return errors.New("input path (and optional output path) required")
	}
	input := arguments[0]
	output := strings.TrimSuffix(input, ".py")
	if len(arguments) == 2 {
		output = arguments[1]
	}

	content, err := os.ReadFile(input)
	if err != nil {
		return errors.Wrap(err, "unable to read input")
	}
	if err := text.SaveText(output, string(content), logger.Sublogger("bin")); err != nil {
		return errors.Wrap(err, "conversion failed")
	}
	return nil
}

func binInfoMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errors.New("input path required")
	}
	tree, err := bin.ParseFile(arguments[0])
	if err != nil {
		return errors.Wrap(err, "unable to parse tree")
	}
	fmt.Println("Magic:", tree.Magic)
	fmt.Println("Version:", tree.Version)
	fmt.Println("Objects:", len(tree.Objects))
	fmt.Println("Dependencies:", len(tree.Dependencies))
	for _, dependency := range tree.Dependencies {
		fmt.Printf("  %s (%s)\n", dependency, bin.Classify(dependency))
	}
	return nil
}

var binCommand = &cobra.Command{
	Use:   "bin",
	Short: "Convert and inspect property trees",
}

var binConfiguration struct {
	noResolve bool
}

var binToTextCommand = &cobra.Command{
	Use:          "to-text <input> [<output>]",
	Short:        "Convert a property tree to its text form",
	RunE:         binToTextMain,
	SilenceUsage: true,
}

var binFromTextCommand = &cobra.Command{
	Use:          "from-text <input> [<output>]",
	Short:        "Convert text form back to a property tree",
	RunE:         binFromTextMain,
	SilenceUsage: true,
}

var binInfoCommand = &cobra.Command{
	Use:          "info <input>",
	Short:        "Show property tree summary information",
	RunE:         binInfoMain,
	SilenceUsage: true,
}

func init() {
	binToTextCommand.Flags().BoolVar(&binConfiguration.noResolve, "no-resolve", false, "Render hex digests without name resolution")
	binCommand.AddCommand(binToTextCommand, binFromTextCommand, binInfoCommand)
}
