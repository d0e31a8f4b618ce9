package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/viewcapture/internal/window"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List windows and the targets they match",
	Long: `List all visible windows with the capture targets (scene, game, editor)
whose title or class patterns match them.

Use this to check the target rules in the config file before capturing.`,
	Example: `  # List windows in table format (default)
  viewcapture targets

  # List windows in JSON format
  viewcapture targets --format json

  # Show the currently focused window
  viewcapture targets --current`,
	RunE: runTargets,
}

var (
	targetsFormat  string
	targetsCurrent bool
)

func init() {
	rootCmd.AddCommand(targetsCmd)

	targetsCmd.Flags().StringVarP(&targetsFormat, "format", "f", "table", "output format (table or json)")
	targetsCmd.Flags().BoolVarP(&targetsCurrent, "current", "c", false, "show current focused window")
}

func runTargets(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	backend, err := window.NewBackend()
	if err != nil {
		return fmt.Errorf("failed to connect to window system: %w", err)
	}
	defer backend.Close()

	resolver := window.NewResolver(backend, configMgr)

	if targetsCurrent {
		return showCurrentWindow(resolver)
	}

	matches, err := resolver.Matches()
	if err != nil {
		return err
	}

	switch targetsFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(matches)
	case "table":
		return printMatchesTable(matches)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", targetsFormat)
	}
}

func printMatchesTable(matches []window.Match) error {
	if len(matches) == 0 {
		fmt.Println("No windows found")
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleColoredBright)
	t.AppendHeader(table.Row{"Title", "Class", "PID", "Size", "Focused", "Targets"})

	for _, m := range matches {
		focused := "No"
		if m.Window.Focused {
			focused = "Yes"
		}
		targets := strings.Join(m.Targets, ",")
		if targets == "" {
			targets = "-"
		}
		t.AppendRow(table.Row{
			truncate(m.Window.Title, 48),
			m.Window.Class,
			m.Window.PID,
			fmt.Sprintf("%dx%d", m.Window.Geometry.Width, m.Window.Geometry.Height),
			focused,
			targets,
		})
	}

	fmt.Println(t.Render())
	return nil
}

func showCurrentWindow(resolver *window.Resolver) error {
	current, err := resolver.FocusedWindow()
	if err != nil {
		fmt.Println("No window is currently focused")
		return nil
	}

	if targetsFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(current)
	}

	fmt.Printf("Title:    %s\n", current.Title)
	fmt.Printf("Class:    %s\n", current.Class)
	fmt.Printf("PID:      %d\n", current.PID)
	fmt.Printf("Geometry: %dx%d at (%d, %d)\n",
		current.Geometry.Width, current.Geometry.Height,
		current.Geometry.X, current.Geometry.Y)

	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
