package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/ritoshark/flint/pkg/organizer"
	"github.com/ritoshark/flint/pkg/wad"
)

func organizeMain(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errors.New("content base directory required")
	}
	if organizeConfiguration.creator == "" || organizeConfiguration.project == "" {
		return errors.New("creator and project names required")
	}
	if organizeConfiguration.champion == "" {
		return errors.New("champion name required")
	}

	config := organizer.NewConfig(
		organizeConfiguration.creator,
		organizeConfiguration.project,
		organizeConfiguration.champion,
		organizeConfiguration.skin,
	)
	config.EnableConcat = !organizeConfiguration.noConcat
	config.EnableRepath = !organizeConfiguration.noRepath
	config.CleanupUnused = !organizeConfiguration.keepUnused

	result, err := organizer.Organize(
		context.Background(), arguments[0], config,
		wad.PathMapping{}, logger.Sublogger("organize"),
	)
	if err != nil {
		return errors.Wrap(err, "organization failed")
	}
	if result.Concat != nil {
		fmt.Printf(
			"Concatenated %d trees into %s (%d objects, %d collisions)\n",
			result.Concat.SourceCount, result.Concat.ConcatPath,
			result.Concat.ObjectCount, result.Concat.CollisionCount,
		)
	}
	if result.Repath != nil {
		fmt.Printf(
			"Repathed %d trees: %d paths modified, %d files relocated, %d removed\n",
			result.Repath.BinsProcessed, result.Repath.PathsModified,
			result.Repath.FilesRelocated, result.Repath.FilesRemoved,
		)
		for _, missing := range result.Repath.MissingPaths {
			fmt.Println("  missing:", missing)
		}
	}
	return nil
}

var organizeCommand = &cobra.Command{
	Use:          "organize <content-base>",
	Short:        "Concatenate linked trees and namespace asset paths for a project",
	RunE:         organizeMain,
	SilenceUsage: true,
}

var organizeConfiguration struct {
	creator    string
	project    string
	champion   string
	skin       uint32
	noConcat   bool
	noRepath   bool
	keepUnused bool
}

func init() {
	flags := organizeCommand.Flags()
	flags.StringVar(&organizeConfiguration.creator, "creator", "", "Creator name for the namespace prefix")
	flags.StringVar(&organizeConfiguration.project, "project", "", "Project name for the namespace prefix")
	flags.StringVarP(&organizeConfiguration.champion, "champion", "c", "", "Champion internal name")
	flags.Uint32VarP(&organizeConfiguration.skin, "skin", "s", 0, "Target skin identifier")
	flags.BoolVar(&organizeConfiguration.noConcat, "no-concat", false, "Skip linked tree concatenation")
	flags.BoolVar(&organizeConfiguration.noRepath, "no-repath", false, "Skip asset repathing")
	flags.BoolVar(&organizeConfiguration.keepUnused, "keep-unused", false, "Keep files not referenced by any rewritten tree")
}
