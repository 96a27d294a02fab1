package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/SephirothFFKH/LZXAuto/pkg/filecache"
	"github.com/SephirothFFKH/LZXAuto/pkg/observability"
	"github.com/SephirothFFKH/LZXAuto/pkg/session"
)

// cacheStatus is the report printed by the status command.
type cacheStatus struct {
	Location   string `json:"location"   yaml:"location"`
	Records    int    `json:"records"    yaml:"records"`
	Compressed int    `json:"compressed" yaml:"compressed"`
	Unchanged  int    `json:"unchanged"  yaml:"unchanged"`
	Failed     int    `json:"failed"     yaml:"failed"`
}

func newStatusCommand(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cache contents per outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return root.status(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(session.FormatText), "Output format: text, json, yaml")

	return cmd
}

func (o *rootOptions) status(cmd *cobra.Command, formatName string) (err error) {
	format, err := session.ParseFormat(formatName)
	if err != nil {
		return err
	}

	env, err := o.setup(observability.ModeStatus, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.shutdown(&err)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cache, err := env.openCache(ctx)
	if err != nil {
		return err
	}

	counts := cache.CountByOutcome()
	st := cacheStatus{
		Location:   cache.Location(),
		Records:    cache.Len(),
		Compressed: counts[filecache.OutcomeCompressed],
		Unchanged:  counts[filecache.OutcomeUnchanged],
		Failed:     counts[filecache.OutcomeFailed],
	}

	err = cache.Close()
	if err != nil {
		return fmt.Errorf("close cache: %w", err)
	}

	return writeStatus(cmd.OutOrStdout(), st, format)
}

func writeStatus(w io.Writer, st cacheStatus, format session.Format) error {
	switch format {
	case session.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(st)
	case session.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(st)
		if err != nil {
			return fmt.Errorf("encode status: %w", err)
		}

		return enc.Close()
	default:
		fmt.Fprintf(w, "Cache: %s\n", st.Location)

		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Outcome", "Records"})
		tw.AppendRow(table.Row{filecache.OutcomeCompressed.String(), humanize.Comma(int64(st.Compressed))})
		tw.AppendRow(table.Row{filecache.OutcomeUnchanged.String(), humanize.Comma(int64(st.Unchanged))})
		tw.AppendRow(table.Row{filecache.OutcomeFailed.String(), humanize.Comma(int64(st.Failed))})
		tw.AppendFooter(table.Row{"Total", humanize.Comma(int64(st.Records))})
		tw.Render()

		return nil
	}
}
