package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"fedcorpus/pkg/config"
	"fedcorpus/pkg/models"
	"fedcorpus/pkg/orchestrate"
	"fedcorpus/pkg/storage"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "crawl":
		runCrawl(os.Args[2:])
	case "stats":
		runStats(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("fedcorpus %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `fedcorpus - Federal Reserve document acquisition

Usage:
  fedcorpus <command> [options]

Commands:
  crawl       Acquire documents from federalreserve.gov
  stats       Show stored document counts per category
  validate    Validate configuration file
  version     Show version info

Run 'fedcorpus <command> -h' for command-specific help.`)
}

// newLogger builds the root logger with the requested level.
func newLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// parseCategories resolves a comma-separated -types value, defaulting
// to every category when empty.
func parseCategories(s string) ([]models.Category, error) {
	if strings.TrimSpace(s) == "" {
		return models.AllCategories(), nil
	}
	var cats []models.Category
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cat, err := models.ParseCategory(part)
		if err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	if len(cats) == 0 {
		return models.AllCategories(), nil
	}
	return cats, nil
}

// runCrawl handles the crawl subcommand
func runCrawl(args []string) {
	fs := flag.NewFlagSet("crawl", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to YAML config file (defaults apply if empty)")
	types := fs.String("types", "", "Comma-separated document types (statement,minutes,speech,testimony); all if empty")
	startYear := fs.Int("start-year", 0, "First year to acquire (overrides config)")
	endYear := fs.Int("end-year", 0, "Last year to acquire (overrides config)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fedcorpus crawl [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fedcorpus crawl -types statement,minutes\n")
		fmt.Fprintf(os.Stderr, "  fedcorpus crawl -start-year 2020 -end-year 2023\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := newLogger(*logLevel)

	cats, err := parseCategories(*types)
	if err != nil {
		log.Fatalf("Invalid -types value: %v", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *startYear != 0 {
		cfg.Scraper.StartYear = *startYear
	}
	if *endYear != 0 {
		cfg.Scraper.EndYear = *endYear
	}
	if cfg.Scraper.StartYear > cfg.Scraper.EndYear {
		log.Fatalf("Invalid year range: %d-%d", cfg.Scraper.StartYear, cfg.Scraper.EndYear)
	}

	rootLog := logrus.NewEntry(log)
	store, err := storage.NewStore(cfg.Storage.DataDir, rootLog)
	if err != nil {
		log.Fatalf("Store error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := orchestrate.New(cfg, store, rootLog)
	results, err := orch.RunAll(ctx, cats, cfg.Scraper.StartYear, cfg.Scraper.EndYear)

	fmt.Println("\nAcquisition results:")
	fmt.Printf("  %-12s %8s %8s\n", "category", "new", "total")
	for _, r := range results {
		status := ""
		if r.Err != nil && !errors.Is(r.Err, context.Canceled) {
			status = "  (failed)"
		}
		fmt.Printf("  %-12s %8d %8d%s\n", r.Category.String(), r.New, r.Total, status)
	}

	if err != nil {
		log.Warnf("Run ended early: %v", err)
		os.Exit(1)
	}
}

// runStats handles the stats subcommand
func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to YAML config file (defaults apply if empty)")
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fedcorpus stats [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := newLogger(*logLevel)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	store, err := storage.NewStore(cfg.Storage.DataDir, logrus.NewEntry(log))
	if err != nil {
		log.Fatalf("Store error: %v", err)
	}

	orch := orchestrate.New(cfg, store, logrus.NewEntry(log))
	stats := orch.Stats()

	total := 0
	fmt.Printf("%-12s %8s\n", "category", "stored")
	for _, cat := range models.AllCategories() {
		fmt.Printf("%-12s %8d\n", cat.String(), stats[cat])
		total += stats[cat]
	}
	fmt.Printf("%-12s %8d\n", "total", total)
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fedcorpus validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: %s\n", configPath)
	fmt.Fprintf(stdout, "  base_url:      %s\n", cfg.Scraper.BaseURL)
	fmt.Fprintf(stdout, "  data_dir:      %s\n", cfg.Storage.DataDir)
	fmt.Fprintf(stdout, "  year range:    %d-%d\n", cfg.Scraper.StartYear, cfg.Scraper.EndYear)
	fmt.Fprintf(stdout, "  concurrency:   %d\n", cfg.Scraper.MaxConcurrentRequests)
	fmt.Fprintf(stdout, "  rate:          %.1f req/s\n", cfg.Scraper.RequestsPerSecond)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}
