// Command fixer-cli runs the compliance fix loop on a local image file and
// writes the fixed image next to the input. Intended for spot checks and
// prompt tuning without the web service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shopaudit/imagefix/internal/compliance"
	"github.com/shopaudit/imagefix/internal/fixer"
	"github.com/shopaudit/imagefix/internal/gemini"
	"github.com/shopaudit/imagefix/internal/imagedata"
	"github.com/shopaudit/imagefix/internal/logging"
)

// CLI flags
var (
	imageFlag           string
	reportFlag          string
	outputFlag          string
	categoryFlag        string
	enhancementTypeFlag string
	promptFlag          string
	maxAttemptsFlag     int
	thresholdFlag       int
)

var rootCmd = &cobra.Command{
	Use:   "fixer-cli",
	Short: "Fix a listing image for marketplace compliance",
	Long: `fixer-cli regenerates a non-compliant product image with Gemini and
verifies the result, retrying with the reviewer's critique until the image
passes or the attempt budget is exhausted.

Examples:
  fixer-cli --image product.jpg --report audit.json
  fixer-cli --image hero.png --category lifestyle --max-attempts 5
  fixer-cli --image box.jpg --prompt "Remove the promotional banner only"`,
	RunE: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&imageFlag, "image", "i", "", "Path to the image to fix (required)")
	rootCmd.Flags().StringVarP(&reportFlag, "report", "r", "", "Path to a compliance report JSON file")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output path for the fixed image (default: <image>-fixed.<ext>)")
	rootCmd.Flags().StringVarP(&categoryFlag, "category", "c", "", "Image category: lifestyle, infographic, in-use, comparison, size-reference")
	rootCmd.Flags().StringVar(&enhancementTypeFlag, "enhancement-type", "", "Enhancement type for the generic template")
	rootCmd.Flags().StringVar(&promptFlag, "prompt", "", "Custom instruction, used verbatim instead of the composed one")
	rootCmd.Flags().IntVar(&maxAttemptsFlag, "max-attempts", fixer.DefaultMaxAttempts, "Maximum generate-and-verify attempts")
	rootCmd.Flags().IntVar(&thresholdFlag, "threshold", fixer.DefaultSatisfactionThreshold, "Minimum verification score treated as a pass")
	rootCmd.MarkFlagRequired("image")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	logging.Init()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	data, err := os.ReadFile(imageFlag)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	img := imagedata.FromBytes(data)
	width, height := imagedata.Dimensions(img)

	logCaptureMetadata(imageFlag)

	asset := &compliance.Asset{
		ID:     strings.TrimSuffix(filepath.Base(imageFlag), filepath.Ext(imageFlag)),
		Role:   compliance.RoleMain,
		Image:  img,
		Width:  width,
		Height: height,
	}

	report, err := loadReport(reportFlag)
	if err != nil {
		return err
	}

	client := gemini.NewClient(apiKey)
	orch := fixer.NewOrchestrator(client, client, gemini.NewInvoker(), printProgress)

	state, err := orch.Run(context.Background(), asset, report, nil, fixer.Options{
		MaxAttempts:           maxAttemptsFlag,
		SatisfactionThreshold: thresholdFlag,
		CustomPrompt:          promptFlag,
		Category:              categoryFlag,
		EnhancementType:       enhancementTypeFlag,
	})
	if err != nil {
		if state.Err != nil {
			return fmt.Errorf("fix run failed (%s): %s", state.Err.Kind, state.Err.Message)
		}
		return fmt.Errorf("fix run failed: %w", err)
	}

	if state.Phase != fixer.PhasePassed {
		fmt.Printf("\nNo attempt passed verification after %d attempt(s); last critique: %s\n",
			len(state.Attempts), state.LastCritique)
		return nil
	}

	output := outputFlag
	if output == "" {
		ext := filepath.Ext(imageFlag)
		output = strings.TrimSuffix(imageFlag, ext) + "-fixed" + ext
	}
	if err := os.WriteFile(output, asset.FixedImage.Data, 0o644); err != nil {
		return fmt.Errorf("write fixed image: %w", err)
	}

	fmt.Printf("\nFixed image written to %s\n", output)
	return nil
}

// loadReport reads a compliance report JSON file. With no report the fix
// runs on the composed category instruction alone.
func loadReport(path string) (*compliance.ComplianceResult, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report compliance.ComplianceResult
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &report, nil
}

// logCaptureMetadata logs the EXIF capture summary for the input image.
// Best-effort; screenshots and processed images often carry none.
func logCaptureMetadata(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	exifData, err := imagemeta.Decode(file)
	if err != nil {
		log.Debug().Str("path", path).Msg("No EXIF metadata in input image")
		return
	}

	event := log.Info().Str("path", path)
	if cameraMake := strings.TrimSpace(exifData.Make); cameraMake != "" {
		event = event.Str("camera", strings.TrimSpace(cameraMake+" "+exifData.Model))
	}
	if !exifData.DateTimeOriginal().IsZero() {
		event = event.Time("taken", exifData.DateTimeOriginal())
	}
	event.Msg("Input image metadata")
}

// printProgress renders the projected step list on every state transition.
func printProgress(state fixer.FixProgressState) {
	fmt.Printf("\n[attempt %d/%d, phase %s]\n", state.Attempt, state.MaxAttempts, state.Phase)
	for _, step := range fixer.Project(state) {
		marker := " "
		switch step.Status {
		case fixer.StepInProgress:
			marker = ">"
		case fixer.StepCompleted:
			marker = "x"
		case fixer.StepFailed:
			marker = "!"
		}
		line := fmt.Sprintf("  [%s] %s", marker, step.Label)
		if step.Score != nil {
			line += fmt.Sprintf(" (score %d)", *step.Score)
		}
		fmt.Println(line)
	}
	for _, thought := range state.ThinkingSteps {
		log.Debug().Str("thought", thought).Msg("Verifier reasoning")
	}
}
