package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bryanchriswhite/viewcapture/internal/api"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a view to a PNG file",
	Long: `Capture the scene view, the game view or the whole editor window once and
write it as PNG. The image is scaled down to fit within the bounds, keeping
its aspect ratio.`,
	Example: `  # Capture the game view with default bounds (1920x1080)
  viewcapture capture

  # Capture the scene view at most 1280x720
  viewcapture capture --target scene --max-width 1280 --max-height 720 -o scene.png

  # Print the API response instead of writing a file
  viewcapture capture --target editor --json`,
	RunE: runCapture,
}

var (
	captureTarget    string
	captureMaxWidth  int
	captureMaxHeight int
	captureOutput    string
	captureJSON      bool
)

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().StringVarP(&captureTarget, "target", "t", "", "view to capture: scene, game or editor (default from config)")
	captureCmd.Flags().IntVar(&captureMaxWidth, "max-width", 0, "maximum output width, 64-1920")
	captureCmd.Flags().IntVar(&captureMaxHeight, "max-height", 0, "maximum output height, 64-1080")
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "", "output file (default <target>.png)")
	captureCmd.Flags().BoolVar(&captureJSON, "json", false, "print the JSON response with base64 image data")
}

func runCapture(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	defaults := api.DefaultsFrom(configMgr.Get().Capture)

	req := api.CaptureRequest{Target: captureTarget}
	if cmd.Flags().Changed("max-width") {
		req.MaxWidth = &captureMaxWidth
	}
	if cmd.Flags().Changed("max-height") {
		req.MaxHeight = &captureMaxHeight
	}

	target, bounds, err := req.Resolve(defaults)
	if err != nil {
		return err
	}

	a, err := newApp(configMgr)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.orchestrator.Capture(target, bounds)

	if captureJSON {
		var resp api.CaptureResponse
		if err != nil {
			resp = api.FailureResponse(err)
		} else {
			resp = api.SuccessResponse(res)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if encErr := encoder.Encode(resp); encErr != nil {
			return encErr
		}
		return err
	}

	if err != nil {
		return err
	}

	out := captureOutput
	if out == "" {
		out = string(target) + ".png"
	}
	if err := os.WriteFile(out, res.PNG, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Printf("%s\n", res.Description)
	fmt.Printf("Wrote %dx%d PNG (%d bytes) to %s\n", res.Width, res.Height, len(res.PNG), out)
	return nil
}
