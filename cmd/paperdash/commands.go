package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"paperdash/internal/analysis/indicator"
	"paperdash/internal/analysis/visual"
	"paperdash/internal/app"
	"paperdash/internal/config"
	"paperdash/internal/dashboard"
	"paperdash/internal/display"
	"paperdash/internal/logger"
	"paperdash/internal/pkg/jsonutil"
	"paperdash/internal/source"

	"github.com/go-echarts/go-echarts/v2/components"
)

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	logFile    *os.File
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "paperdash",
		Short:         "Paper trading dashboard",
		Long:          "paperdash reconciles a paper-trading bot's decision log with its portfolio snapshot and serves the result.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			path := config.ResolvePath(opts.configPath)
			cfg, err := config.LoadOrDefault(path)
			if err != nil {
				return fmt.Errorf("读取配置失败: %w", err)
			}
			if opts.logLevel != "" {
				cfg.App.LogLevel = opts.logLevel
			}
			logFile, err := setupLogOutput(cfg.App.LogPath)
			if err != nil {
				return fmt.Errorf("初始化日志文件失败: %w", err)
			}
			logger.SetLevel(cfg.App.LogLevel)
			opts.cfg = cfg
			opts.logFile = logFile
			logger.Debugf("配置加载完成 (env=%s, file=%s)", cfg.App.Env, path)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logFile != nil {
				_ = opts.logFile.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $"+config.EnvConfigPath+" or "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override app.log_level")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newComputeCmd(opts))
	root.AddCommand(newRenderCmd(opts))
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Refresh periodically and serve the dashboard over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.NewApp(opts.cfg)
			if err != nil {
				return fmt.Errorf("初始化应用失败: %w", err)
			}
			return a.Run(cmd.Context())
		},
	}
}

func newComputeCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON bool
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute the dashboard once and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			model, parsed, err := computeOnce(cmd, opts.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case raw:
				if len(model.Records) == 0 {
					return fmt.Errorf("decision log has no records")
				}
				_, err = fmt.Fprintln(out, jsonutil.Pretty(model.Records[len(model.Records)-1].Raw().Raw))
				return err
			case asJSON:
				buf, err := jsonutil.Indent(model)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(buf))
				return err
			default:
				fmt.Fprint(out, display.Render(model, display.Options{RecentTrades: opts.cfg.Dashboard.RecentTrades}))
				if n := len(parsed.Skipped); n > 0 {
					fmt.Fprintf(out, "\n%d of %d lines skipped\n", n, parsed.NonBlank())
				}
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the model as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the raw JSON of the latest record")
	return cmd
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		outDir string
		png    bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the dashboard charts as HTML (and PNG)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outDir == "" {
				outDir = opts.cfg.Charts.OutputDir
			}
			if !cmd.Flags().Changed("png") {
				png = opts.cfg.Charts.PNG
			}
			model, _, err := computeOnce(cmd, opts.cfg)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			series := dashboard.FilterRange(model.Series, opts.cfg.Dashboard.RangeDays, time.Now())
			pages := map[string]components.Charter{
				"equity":   visual.EquityChart(series),
				"exposure": visual.ExposureChart(visual.ExposureSlices(model.Positions, model.KPI.Cash)),
			}
			for _, symbol := range candleSymbols(model) {
				candles, _ := indicator.LatestCandles(model.Records, symbol)
				rep, err := indicator.Compute(candles, indicator.Settings{
					Symbol:    symbol,
					EMAFast:   opts.cfg.Indicators.EMAFast,
					EMASlow:   opts.cfg.Indicators.EMASlow,
					RSIPeriod: opts.cfg.Indicators.RSIPeriod,
				})
				if err != nil {
					logger.Warnf("indicators for %s: %v", symbol, err)
				}
				pages["candles_"+strings.ToLower(symbol)] = visual.CandleChart(symbol, candles, rep)
			}
			for name, chart := range pages {
				html, err := visual.RenderHTML(chart)
				if err != nil {
					return fmt.Errorf("render %s: %w", name, err)
				}
				path := filepath.Join(outDir, name+".html")
				if err := os.WriteFile(path, html, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				if !png {
					continue
				}
				img, err := visual.RenderPNG(cmd.Context(), name, html, 0)
				if err != nil {
					return fmt.Errorf("screenshot %s: %w", name, err)
				}
				pngPath := filepath.Join(outDir, img.Filename)
				if err := os.WriteFile(pngPath, img.Bytes, 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pngPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default charts.output_dir)")
	cmd.Flags().BoolVar(&png, "png", false, "also write PNG screenshots (needs headless Chrome)")
	return cmd
}

func computeOnce(cmd *cobra.Command, cfg *config.Config) (dashboard.Model, dashboard.ParseResult, error) {
	in, err := source.Load(cmd.Context(), source.Paths{
		Decisions: cfg.Sources.DecisionsPath,
		Portfolio: cfg.Sources.PortfolioPath,
	})
	if err != nil {
		return dashboard.Model{}, dashboard.ParseResult{}, err
	}
	return dashboard.Compute(in.Parse.Records, in.Snapshot), in.Parse, nil
}

// candleSymbols lists the symbols that have a candle window in the newest record carrying one.
func candleSymbols(m dashboard.Model) []string {
	seen := make(map[string]bool)
	var out []string
	for i := len(m.Records) - 1; i >= 0 && len(out) == 0; i-- {
		for name := range m.Records[i].Candles {
			key := dashboard.NormalizeSymbol(name)
			if key != "" && !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	sort.Strings(out)
	return out
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		// 标准输出留给命令结果
		logger.SetOutput(os.Stderr)
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stderr, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
