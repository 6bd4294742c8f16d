package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sketchiq/internal/diagram"
	"github.com/ziadkadry99/sketchiq/internal/export"
	"github.com/ziadkadry99/sketchiq/internal/render"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current diagram or the transcript",
}

var exportSourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Print or write the current diagram source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		w, err := openStudio(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		return writeOrPrint(cmd, []byte(export.Source(w.ctrl)+"\n"))
	},
}

func newImageExportCmd(format render.Format) *cobra.Command {
	c := &cobra.Command{
		Use:   string(format),
		Short: fmt.Sprintf("Render the current diagram to %s", format),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			w, err := openStudio(ctx)
			if err != nil {
				return err
			}
			defer w.Close()

			out, err := export.Image(ctx, w.ctrl, format)
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("out")
			written, err := export.WriteFile(path, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", written)
			return nil
		},
	}
	c.Flags().StringP("out", "o", "", fmt.Sprintf("output file (default %s)", export.DefaultFilename(format)))
	return c
}

var exportTranscriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Export the conversation and history as Markdown or HTML",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		ctx := context.Background()
		w, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer w.Close()

		lang, err := diagram.ParseLanguage(w.cfg.Language)
		if err != nil {
			return err
		}

		st := w.store.State()
		switch format {
		case "md", "markdown":
			return writeOrPrint(cmd, []byte(export.TranscriptMarkdown(st, lang)))
		case "html":
			page, err := export.TranscriptHTML(st, lang)
			if err != nil {
				return err
			}
			return writeOrPrint(cmd, page)
		default:
			return fmt.Errorf("unknown transcript format %q: must be md or html", format)
		}
	},
}

// writeOrPrint writes data to --out when set, stdout otherwise.
func writeOrPrint(cmd *cobra.Command, data []byte) error {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}

func init() {
	exportSourceCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	exportTranscriptCmd.Flags().String("format", "md", "transcript format: md or html")
	exportTranscriptCmd.Flags().StringP("out", "o", "", "output file (default stdout)")

	exportCmd.AddCommand(
		exportSourceCmd,
		newImageExportCmd(render.FormatSVG),
		newImageExportCmd(render.FormatPNG),
		exportTranscriptCmd,
	)
	rootCmd.AddCommand(exportCmd)
}
