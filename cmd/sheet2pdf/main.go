package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"sheet2pdf/internal/config"
	"sheet2pdf/internal/layout"
	"sheet2pdf/internal/render"
)

var version = "dev"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "sheet2pdf %s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  sheet2pdf [flags] <input.xlsx> [output.pdf]\n")
		fmt.Fprintf(os.Stderr, "  sheet2pdf [flags] -out-dir <dir> <input.xlsx>...\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (Optional):\n")
		fmt.Fprintf(os.Stderr, "  SPACING_MODE  Default for -spacing (fit or legacy)\n")
		fmt.Fprintf(os.Stderr, "  FONT_FAMILY   Default for -font\n")
		fmt.Fprintf(os.Stderr, "  CONFIG_FILE   YAML file with the same settings\n")
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  sheet2pdf report.xlsx\n")
		fmt.Fprintf(os.Stderr, "  sheet2pdf -spacing legacy report.xlsx out/report.pdf\n")
		fmt.Fprintf(os.Stderr, "  sheet2pdf -out-dir pdfs a.xlsx b.xlsx c.xlsx\n")
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheet2pdf: %v\n", err)
		os.Exit(1)
	}

	spacing := flag.String("spacing", cfg.SpacingMode, "Column spacing: fit (columns fill the page) or legacy (columns overshoot by 10%)")
	font := flag.String("font", cfg.FontFamily, "PDF core font for cell text")
	outDir := flag.String("out-dir", "", "Directory for PDFs when converting several workbooks")
	parallel := flag.Int("parallel", 4, "Workbooks converted at once with -out-dir")
	verbose := flag.Bool("v", false, "Log every sheet")
	showVersion := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sheet2pdf %s\n", version)
		os.Exit(0)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	mode, err := layout.ParseSpacingMode(*spacing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheet2pdf: %v\n", err)
		os.Exit(2)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := render.Options{
		Spacing: mode,
		Font:    *font,
		Logger:  logger,
		OnSheet: func(p render.SheetProgress) {
			logger.Info("Sheet rendered", "sheet", p.Sheet, "index", p.Index+1, "total", p.Total, "rows", p.Rows)
		},
	}

	if *outDir != "" || len(args) > 2 {
		if *outDir == "" {
			fmt.Fprintln(os.Stderr, "sheet2pdf: several inputs need -out-dir")
			os.Exit(2)
		}
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "sheet2pdf: %v\n", err)
			os.Exit(1)
		}
		results, err := render.ConvertBatch(ctx, args, *outDir, *parallel, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sheet2pdf: %v\n", err)
			os.Exit(1)
		}
		for i, in := range args {
			report(in, render.OutputPath(in, *outDir), results[i])
		}
		return
	}

	input := args[0]
	output := render.OutputPath(input, "")
	if len(args) == 2 {
		output = args[1]
	}

	res, err := render.ConvertFile(ctx, input, output, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sheet2pdf: %v\n", err)
		os.Exit(1)
	}
	report(input, output, res)
}

func report(input, output string, res *render.Result) {
	fmt.Printf("%s -> %s (%d sheets, %d rows, %v)\n", input, output, res.Sheets, res.Rows, res.Duration.Round(time.Millisecond))
	if res.Clipped > 0 {
		fmt.Printf("  %d cells beyond the first row's width were not drawn\n", res.Clipped)
	}
}
