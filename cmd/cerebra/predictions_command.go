package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/cerebra/internal/infrastructure"
	"github.com/JaimeStill/cerebra/internal/migrations"
	"github.com/JaimeStill/cerebra/internal/predictions"
	"github.com/JaimeStill/cerebra/pkg/database"
	"github.com/JaimeStill/cerebra/pkg/lifecycle"
	"github.com/JaimeStill/cerebra/pkg/pagination"
)

func newPredictionsCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		classes []string
		status  string
	)

	cmd := &cobra.Command{
		Use:   "predictions",
		Short: "List recent predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			dbCfg := infrastructure.DatabaseConfig(cfg)
			db, err := database.New(&dbCfg, logger, migrations.Hook(logger))
			if err != nil {
				return err
			}

			lc := lifecycle.New()
			if err := db.Start(lc); err != nil {
				return err
			}
			lc.WaitForStartup()
			defer lc.Shutdown(5 * time.Second)

			if !db.Ready() {
				return database.ErrNotReady
			}

			var filters predictions.Filters
			filters.Classes = classes
			if status != "" {
				filters.Status = &status
			}

			history := predictions.New(db.Connection(), logger, cfg.Pagination)
			page, err := history.List(
				cmd.Context(),
				pagination.PageRequest{Page: 1, PageSize: limit},
				filters,
			)
			if err != nil {
				return err
			}

			if len(page.Data) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No predictions recorded")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderPredictions(page.Data))
			fmt.Fprintf(cmd.OutOrStdout(), "Showing %d of %d\n", len(page.Data), page.Total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of rows")
	cmd.Flags().StringSliceVar(&classes, "class", nil, "Only show these predicted classes (repeatable)")
	cmd.Flags().StringVar(&status, "status", "", "Only show this status (completed or model_missing)")
	return cmd
}

func renderPredictions(rows []predictions.Prediction) string {
	headers := []string{"Created", "Token", "File", "Class", "Confidence", "Status"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}

	out := make([][]string, 0, len(rows))
	for _, p := range rows {
		class, confidence := "-", "-"
		if p.PredictedClass != nil {
			class = *p.PredictedClass
		}
		if p.Confidence != nil {
			confidence = fmt.Sprintf("%.2f", *p.Confidence)
		}
		out = append(out, []string{
			p.CreatedAt.Local().Format(time.DateTime),
			p.Token,
			p.OriginalName,
			class,
			confidence,
			p.Status,
		})
	}
	return renderTable(headers, out, aligns)
}
