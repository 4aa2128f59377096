package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/ritoshark/flint/cmd"
	"github.com/ritoshark/flint/pkg/bin/text"
	"github.com/ritoshark/flint/pkg/project"
	"github.com/ritoshark/flint/pkg/wad"
)

func projectCreateMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errors.New("project name required")
	}
	if projectCreateConfiguration.champion == "" {
		return errors.New("champion name required")
	}

	leaguePath := projectCreateConfiguration.leaguePath
	if leaguePath == "" {
		leaguePath = globalConfiguration.LeaguePath
	}

	created, err := project.Create(
		arguments[0],
		projectCreateConfiguration.champion,
		projectCreateConfiguration.skin,
		leaguePath,
		projectCreateConfiguration.output,
		projectCreateConfiguration.creator,
	)
	if err != nil {
		return errors.Wrap(err, "unable to create project")
	}
	fmt.Println("Created project at", created.Root)

	// Extraction into the fresh project, when an installation is known. A
	// failed extraction unwinds the project directory: a half-extracted
	// project is worse than no project.
	if leaguePath == "" {
		cmd.Warning("no league path configured; created an empty project")
		return nil
	}
	wadPath, err := wad.FindChampionWAD(leaguePath, created.Champion)
	if err != nil {
		project.Remove(created)
		return errors.Wrap(err, "unable to locate champion archive")
	}
	reader, err := wad.Mount(wadPath)
	if err != nil {
		project.Remove(created)
		return errors.Wrap(err, "unable to mount champion archive")
	}
	defer reader.Close()

	result, err := wad.ExtractSkinAssets(
		context.Background(), reader,
		created.BaseContentPath(), created.Champion,
		hashStore(), logger.Sublogger("extract"),
	)
	if err != nil {
		project.Remove(created)
		return errors.Wrap(err, "extraction failed")
	}
	fmt.Printf(
		"Extracted %d chunks (%d failed, %d hash-named)\n",
		result.ExtractedCount, result.FailedCount, len(result.PathMappings),
	)
	return nil
}

func projectOpenMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errors.New("project path required")
	}
	opened, err := project.Open(arguments[0])
	if err != nil {
		return errors.Wrap(err, "unable to open project")
	}
	fmt.Println("Name:", opened.DisplayName)
	fmt.Println("Slug:", opened.Name)
	fmt.Println("Version:", opened.Version)
	fmt.Println("Champion:", opened.Champion)
	fmt.Println("Skin:", opened.SkinID)
	for _, author := range opened.Authors {
		if author.Role != "" {
			fmt.Printf("Author: %s (%s)\n", author.Name, author.Role)
		} else {
			fmt.Println("Author:", author.Name)
		}
	}
	return nil
}

func projectPreconvertMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errors.New("project path required")
	}
	opened, err := project.Open(arguments[0])
	if err != nil {
		return errors.Wrap(err, "unable to open project")
	}

	text.InitializeCachedProvider(func() text.Provider {
		return &text.StoreProvider{Store: hashStore()}
	})
	converted, err := project.PreconvertBins(
		context.Background(), opened.Root,
		text.CachedProvider(), logger.Sublogger("preconvert"),
	)
	if err != nil {
		return errors.Wrap(err, "preconversion failed")
	}
	fmt.Printf("Preconverted %d trees\n", converted)
	return nil
}

var projectCommand = &cobra.Command{
	Use:   "project",
	Short: "Create and manage mod projects",
}

var projectCreateCommand = &cobra.Command{
	Use:          "create <name>",
	Short:        "Create a project and extract the champion's assets into it",
	RunE:         projectCreateMain,
	SilenceUsage: true,
}

var projectCreateConfiguration struct {
	champion   string
	skin       uint32
	leaguePath string
	output     string
	creator    string
}

var projectOpenCommand = &cobra.Command{
	Use:          "open <path>",
	Short:        "Show project information",
	RunE:         projectOpenMain,
	SilenceUsage: true,
}

var projectPreconvertCommand = &cobra.Command{
	Use:          "preconvert <path>",
	Short:        "Convert a project's trees to text form ahead of time",
	RunE:         projectPreconvertMain,
	SilenceUsage: true,
}

func init() {
	flags := projectCreateCommand.Flags()
	flags.StringVarP(&projectCreateConfiguration.champion, "champion", "c", "", "Champion internal name")
	flags.Uint32VarP(&projectCreateConfiguration.skin, "skin", "s", 0, "Skin identifier")
	flags.StringVar(&projectCreateConfiguration.leaguePath, "league-path", "", "Game installation path")
	flags.StringVarP(&projectCreateConfiguration.output, "out", "o", ".", "Directory in which to create the project")
	flags.StringVar(&projectCreateConfiguration.creator, "creator", "", "Author name recorded in the project config")

	projectCommand.AddCommand(projectCreateCommand, projectOpenCommand, projectPreconvertCommand)
}
