package main

import (
	"strings"
	"sync"

	"clipcut/config"
	"clipcut/ffmpeg"
	"clipcut/pipeline"

	"github.com/spf13/cobra"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var files []string
		if c.configFlag != nil {
			if path := strings.TrimSpace(*c.configFlag); path != "" {
				files = append(files, path)
			}
		}
		c.config, c.configErr = config.Load(files...)
	})
	return c.config, c.configErr
}

// runner builds the ffmpeg runner and a pipeline on top of it.
func (c *commandContext) runner() (*ffmpeg.Runner, *pipeline.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	r, err := ffmpeg.NewRunner(cfg)
	if err != nil {
		return nil, nil, err
	}
	p := pipeline.New(r, pipeline.Options{
		TempRoot:     cfg.TempRoot,
		Namespace:    cfg.AppNamespace,
		PreviewDir:   cfg.PreviewDir(),
		MaxInputSize: cfg.MaxInputSize,
	})
	return r, p, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "clipcut",
		Short:         "Cut, transition and join video segments with ffmpeg",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))

	return rootCmd
}
