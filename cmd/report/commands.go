package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"profit-dashboard/internal/config"
	"profit-dashboard/internal/dataset"
	"profit-dashboard/internal/export"
	"profit-dashboard/internal/models"
	"profit-dashboard/internal/observability"
	"profit-dashboard/internal/services"
)

const loadTimeout = 30 * time.Second

type rootOptions struct {
	file     string
	cacheDir string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "report",
		Short:         "Product sales & profit analysis from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.file, "file", "", "dataset file, .csv or .xlsx (default $DATASET_FILE)")
	cmd.PersistentFlags().StringVar(&opts.cacheDir, "cache-dir", "", "row cache directory (default $DATASET_CACHE_DIR)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	cmd.AddCommand(
		newProductsCmd(opts),
		newMonthsCmd(opts),
		newSummaryCmd(opts),
	)
	return cmd
}

// loadAnalytics reads the dataset named by flags or the environment.
func loadAnalytics(cmd *cobra.Command, opts *rootOptions) (*services.Analytics, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("file") {
		cfg.Dataset.File = opts.file
	}
	if flags.Changed("cache-dir") {
		cfg.Dataset.CacheDir = opts.cacheDir
	}
	cfg.Logger.Level = opts.logLevel
	cfg.Logger.Format = "text"

	window, err := cfg.Window()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger)
	analytics := services.NewAnalytics(services.WithWindow(window), services.WithLogger(logger))
	source := dataset.NewSource(cfg.Dataset.File,
		dataset.WithCacheDir(cfg.Dataset.CacheDir),
		dataset.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()

	if err := analytics.Load(ctx, source); err != nil {
		return nil, err
	}
	return analytics, nil
}

func parseMode(s string) (models.SearchMode, error) {
	switch mode := models.SearchMode(s); mode {
	case models.ModeDescription, models.ModeCode:
		return mode, nil
	default:
		return "", fmt.Errorf("--mode must be %q or %q", models.ModeDescription, models.ModeCode)
	}
}

func newProductsCmd(root *rootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List product descriptions or codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMode(mode)
			if err != nil {
				return err
			}
			analytics, err := loadAnalytics(cmd, root)
			if err != nil {
				return err
			}
			for _, p := range analytics.Products(m) {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(models.ModeDescription), "description or code")
	return cmd
}

func newMonthsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "months",
		Short: "List the selectable months",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			window, err := cfg.Window()
			if err != nil {
				return err
			}

			data := pterm.TableData{{"Key", "Month"}}
			for _, m := range window.Months() {
				data = append(data, []string{m.Key(), m.Label()})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(cmd.OutOrStdout()).Render()
		},
	}
}

type summaryOptions struct {
	mode    string
	product string
	start   string
	end     string
	export  string
}

func newSummaryCmd(root *rootOptions) *cobra.Command {
	opts := &summaryOptions{}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print KPIs, monthly totals and the profit model for one product",
		Example: `  report summary --product "Widget" --start 2024-04 --end 2024-09
  report summary --mode code --product W1 --start "April 2024" --end "March 2025" --export widget.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := opts.selection()
			if err != nil {
				return err
			}

			var format export.Format
			if opts.export != "" {
				if format, err = export.FormatFromPath(opts.export); err != nil {
					return err
				}
			}

			analytics, err := loadAnalytics(cmd, root)
			if err != nil {
				return err
			}

			report, err := analytics.Report(cmd.Context(), sel)
			if err != nil {
				if msg := services.HaltMessage(err); msg != "" {
					return errors.New(msg)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if err := printReport(out, report); err != nil {
				return err
			}

			if opts.export != "" {
				if err := writeExport(opts.export, format, report); err != nil {
					return err
				}
				fmt.Fprintln(out, pterm.Success.Sprintf("wrote %s", opts.export))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.mode, "mode", string(models.ModeDescription), "match the product by description or code")
	f.StringVar(&opts.product, "product", "", "product description or code")
	f.StringVar(&opts.start, "start", "", "first month, e.g. 2024-04")
	f.StringVar(&opts.end, "end", "", "last month, e.g. 2025-03")
	f.StringVar(&opts.export, "export", "", "also write the report to this .csv, .json, .pdf or .xlsx file")
	cmd.MarkFlagRequired("product")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}

func (o *summaryOptions) selection() (models.Selection, error) {
	mode, err := parseMode(o.mode)
	if err != nil {
		return models.Selection{}, err
	}
	start, err := models.ParseYearMonth(o.start)
	if err != nil {
		return models.Selection{}, fmt.Errorf("--start: %w", err)
	}
	end, err := models.ParseYearMonth(o.end)
	if err != nil {
		return models.Selection{}, fmt.Errorf("--end: %w", err)
	}
	return models.Selection{Mode: mode, Product: o.product, Start: start, End: end}, nil
}

func printReport(out io.Writer, report *models.Report) error {
	fmt.Fprintln(out, pterm.Bold.Sprintf("%s, %s to %s", report.ProductLabel, report.StartLabel, report.EndLabel))
	fmt.Fprintln(out)

	kpis := pterm.TableData{
		{"Total Units Sold", "Total Sales ($)", "Total Profit ($)", "Avg Margin %"},
		{
			export.FormatUnits(report.KPIs.TotalUnits),
			export.FormatMoney(report.KPIs.TotalSales),
			export.FormatMoney(report.KPIs.TotalProfit),
			export.FormatPercent(report.KPIs.AvgMargin),
		},
	}
	if err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(kpis).WithWriter(out).Render(); err != nil {
		return err
	}
	fmt.Fprintln(out)

	monthly := pterm.TableData{{"Month", "Rows", "Units", "Sales", "Profit", "Margin %", "Predicted"}}
	for i, m := range report.Monthly {
		predicted := ""
		if i < len(report.Regression.Predictions) {
			predicted = export.FormatMoney(report.Regression.Predictions[i].Predicted)
		}
		monthly = append(monthly, []string{
			m.Period.Label(), fmt.Sprint(m.Rows), export.FormatUnits(m.AmountSold),
			export.FormatMoney(m.TotalSale), export.FormatMoney(m.TotalProfit),
			fmt.Sprintf("%.2f", m.MarginPct), predicted,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithRightAlignment().WithData(monthly).WithWriter(out).Render(); err != nil {
		return err
	}
	fmt.Fprintln(out)

	reg := report.Regression
	fmt.Fprintln(out, pterm.Bold.Sprint("Profit model (in-sample)"))
	fmt.Fprintf(out, "Mean Absolute Error: %s   R2 Score: %s\n", export.FormatMoney(reg.MAE), export.FormatR2(reg))

	coefs := pterm.TableData{{"Feature", "Coefficient"}}
	for _, c := range reg.Coefficients {
		coefs = append(coefs, []string{c.Feature, fmt.Sprintf("%.4f", c.Value)})
	}
	coefs = append(coefs, []string{"Intercept", fmt.Sprintf("%.4f", reg.Intercept)})
	if err := pterm.DefaultTable.WithHasHeader().WithData(coefs).WithWriter(out).Render(); err != nil {
		return err
	}

	for _, w := range reg.Warnings {
		fmt.Fprintln(out, pterm.Warning.Sprint("low confidence: "+w))
	}
	return nil
}

func writeExport(path string, format export.Format, report *models.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.Write(f, format, report); err != nil {
		f.Close()
		return fmt.Errorf("write %s export: %w", format, err)
	}
	return f.Close()
}
