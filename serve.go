package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"clipcut/api"
	"clipcut/project"
	"clipcut/task"

	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(ctx)
		},
	}
}

func serve(cc *commandContext) error {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}

	// Runner first; the pipeline and the task manager sit on top of it.
	ffmpegRunner, editor, err := cc.runner()
	if err != nil {
		return err
	}
	if err := ffmpegRunner.CheckTools(); err != nil {
		log.Printf("Warning: %v. Edits will fail until it is installed.", err)
	}

	taskManager, err := task.NewManager(cfg, editor)
	if err != nil {
		return err
	}
	taskManager.WithResourceChecker(ffmpegRunner)

	projects, err := project.Open(cfg.ProjectDB)
	if err != nil {
		return err
	}
	defer projects.Close()

	router := api.SetupRouter(api.Services{
		Tasks:     taskManager,
		Previewer: editor,
		Media:     ffmpegRunner,
		Projects:  projects,
	}, cfg)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	taskManager.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}

	// Restore default behavior on the interrupt signal and notify user of shutdown.
	stop()
	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
	return nil
}
