package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/SephirothFFKH/LZXAuto/pkg/safeconv"
)

// ErrUnknownFormat is returned for an unsupported summary format.
var ErrUnknownFormat = errors.New("unknown output format")

// Format selects how a summary is rendered.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a flag value into a Format. Empty selects text.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Render writes sum to w in the given format.
func Render(w io.Writer, sum Summary, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(sum)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(sum)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}

		return enc.Close()
	case FormatText, "":
		return renderText(w, sum)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
}

func renderText(w io.Writer, sum Summary) error {
	_, err := fmt.Fprintf(w, "Session %s: %s (%s)\n",
		statusColor(sum.Status).Sprint(sum.Status), sum.Root, sum.Duration.Round(time.Millisecond))
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if sum.Error != "" {
		_, err = color.New(color.FgRed).Fprintf(w, "  error: %s\n", sum.Error)
		if err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"Counter", "Value"})
	tbl.AppendRows([]table.Row{
		{"Scanned", humanize.Comma(sum.Scanned)},
		{"Compressed", humanize.Comma(sum.Compressed)},
		{"Failed", humanize.Comma(sum.Failed)},
		{"Skipped (unchanged)", humanize.Comma(sum.SkippedUnchanged)},
		{"Skipped (extension)", humanize.Comma(sum.SkippedExtension)},
		{"Skipped (inaccessible)", humanize.Comma(sum.SkippedInaccessible)},
		{"Directories normalized", humanize.Comma(sum.DirsNormalized)},
		{"Normalize failures", humanize.Comma(sum.NormalizeFailed)},
		{"Bytes scanned", humanize.Bytes(safeconv.MustInt64ToUint64(sum.BytesScanned))},
		{"Bytes sent to compressor", humanize.Bytes(safeconv.MustInt64ToUint64(sum.BytesInvoked))},
	})
	tbl.Render()

	return nil
}

func statusColor(status Status) *color.Color {
	switch status {
	case StatusCompleted:
		return color.New(color.FgGreen)
	case StatusCancelled:
		return color.New(color.FgYellow)
	case StatusAborted:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgCyan)
	}
}
