// Command fixer-web serves the compliance fix-loop HTTP API: asset intake,
// fix start/progress/cancel, a live SSE progress stream, thumbnails, and a
// ZIP export of originals and fixed images.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shopaudit/imagefix/internal/fixer"
	"github.com/shopaudit/imagefix/internal/gemini"
	"github.com/shopaudit/imagefix/internal/logging"
)

// CLI flags
var (
	portFlag        int
	imageModelFlag  string
	verifyModelFlag string
	maxRetriesFlag  int
)

var rootCmd = &cobra.Command{
	Use:   "fixer-web",
	Short: "HTTP API for the listing image fix loop",
	Long: `fixer-web starts a local server that audits failed listing images through
the iterative fix loop: regenerate with Gemini, verify the result, and retry
with the reviewer's critique until the image passes or the attempt budget is
exhausted.

Examples:
  fixer-web
  fixer-web --port 9090
  fixer-web --verify-model gemini-3-pro-preview`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().StringVar(&imageModelFlag, "image-model", gemini.DefaultImageModel, "Model for fix generation")
	rootCmd.Flags().StringVar(&verifyModelFlag, "verify-model", gemini.DefaultVerifyModel, "Model for fix verification")
	rootCmd.Flags().IntVar(&maxRetriesFlag, "max-retries", gemini.DefaultMaxRetries, "Per-call retry budget for transient provider failures")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Shared server state, initialized in runMain.
var (
	assetRegistry = newAssetStore()
	fixService    *fixer.Service
)

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal().Msg("GEMINI_API_KEY is required")
	}

	client := gemini.NewClient(apiKey, gemini.WithModels(imageModelFlag, verifyModelFlag))
	invoker := gemini.NewInvoker()
	invoker.MaxRetries = maxRetriesFlag
	fixService = fixer.NewService(client, client, invoker)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/assets", handleAssets)
	mux.HandleFunc("/api/asset", handleAssetGet)
	mux.HandleFunc("/api/asset/image", handleAssetImage)
	mux.HandleFunc("/api/asset/thumbnail", handleAssetThumbnail)
	mux.HandleFunc("/api/assets/export.zip", handleExportZip)
	mux.HandleFunc("/api/fix/start", handleFixStart)
	mux.HandleFunc("/api/fix/progress", handleFixProgress)
	mux.HandleFunc("/api/fix/stream", handleFixStream)
	mux.HandleFunc("/api/fix/cancel", handleFixCancel)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", portFlag),
		Handler: mux,
	}

	go func() {
		log.Info().Int("port", portFlag).Msg("fixer-web listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
}
