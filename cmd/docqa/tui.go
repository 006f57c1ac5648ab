package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"docqa/internal/extract"
	"docqa/internal/service"
	"docqa/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui file...",
	Short: "Ingest local files and ask questions in a terminal UI",
	Long: `Ingest the given files and open an interactive question loop over them.

Controls:
  Enter    - Ask
  ↑/↓      - Cycle source chunks
  Ctrl+C   - Quit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	svc, err := buildService(cmd.Context(), appCfg, logger)
	if err != nil {
		return err
	}
	ids, summary, err := ingestFiles(cmd, svc, args)
	if err != nil {
		return err
	}

	m := tui.New(svc, uuid.NewString(), ids, appCfg.Retrieval.TopK, summary)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func ingestFiles(cmd *cobra.Command, svc *service.RAGService, paths []string) ([]string, string, error) {
	ids := make([]string, 0, len(paths))
	var summaries []string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, "", err
		}
		name := filepath.Base(p)
		text, err := extract.Text(name, data)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", p, err)
		}
		res, err := svc.Ingest(cmd.Context(), name, text)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", p, err)
		}
		ids = append(ids, res.DocumentID)
		if res.Summary != "" {
			summaries = append(summaries, res.Summary)
		}
	}
	return ids, strings.Join(summaries, " "), nil
}
