package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"rugguard/internal/analyzer"
	"rugguard/internal/cmdlog"
	"rugguard/internal/config"
	"rugguard/internal/jobs"
	"rugguard/internal/logging"
	"rugguard/internal/metrics"
	"rugguard/internal/theme"
	"rugguard/internal/util"
)

func main() {
	app := &cli.App{
		Name:    "rugguard",
		Usage:   "answers trigger replies on X with a trust report for the original author",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "./rugguard.yaml",
				Usage:   "path to the YAML config",
				EnvVars: []string{"RUGGUARD_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "write a default config file",
				Action: runInit,
			},
			{
				Name:   "run",
				Usage:  "poll for triggers and reply until interrupted",
				Action: runBot,
			},
			{
				Name:      "analyze",
				Usage:     "analyze one account and print its report",
				ArgsUsage: "<username>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "post-to", Usage: "tweet id to reply to with the report"},
					&cli.BoolFlag{Name: "json", Usage: "print the full analysis as JSON"},
				},
				Action: runAnalyze,
			},
			{
				Name:      "trusted",
				Usage:     "refresh the trusted list and print its size, or check one username",
				ArgsUsage: "[username]",
				Action:    runTrusted,
			},
			{
				Name:   "stats",
				Usage:  "print stored analysis statistics",
				Action: runStats,
			},
			{
				Name:  "cleanup",
				Usage: "delete stored data older than the retention window",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Usage: "retention in days (default from config)"},
				},
				Action: runCleanup,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(cctx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return cfg, err
	}
	if err := logging.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		return cfg, fmt.Errorf("init logging: %w", err)
	}
	return cfg, nil
}

func runInit(cctx *cli.Context) error {
	path := cctx.String("config")
	return cmdlog.Run("init", func() error {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Save(path, config.Default()); err != nil {
			return err
		}
		abs, _ := filepath.Abs(path)
		theme.PrintBanner(os.Stdout, versioninfo.Short())
		fmt.Println("Config written to:", abs)
		return nil
	})
}

func runBot(cctx *cli.Context) error {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmdlog.Run("run", func() error {
		b, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		theme.PrintBanner(os.Stdout, versioninfo.Short())
		detector := b.detector(ctx)
		proc := b.processor()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return jobs.RunPollLoop(gctx, detector, proc, cfg.PollingInterval()) })
		g.Go(func() error { return jobs.RunTrustedRefreshLoop(gctx, b.ledger, cfg.TrustUpdateInterval()) })
		if cfg.Storage.RetentionDays > 0 {
			retention := time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour
			g.Go(func() error { return jobs.RunCleanupLoop(gctx, b.db, retention, 24*time.Hour) })
		}
		if cfg.Metrics.Addr != "" {
			srv := metrics.NewServer(cfg.Metrics.Addr)
			g.Go(func() error {
				logging.Info("metrics_listen", map[string]any{"addr": cfg.Metrics.Addr})
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(sctx)
			})
		}
		logging.Info("bot_started", map[string]any{
			"phrase":           cfg.Trigger.Phrase,
			"polling_interval": cfg.Trigger.PollingInterval,
			"trusted_accounts": b.ledger.Size(),
			"dry_run":          cfg.Replies.DryRun,
		})
		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			logging.Info("bot_stopped", nil)
			return nil
		}
		return err
	})
}

func runAnalyze(cctx *cli.Context) error {
	username := util.SanitizeUsername(cctx.Args().First())
	if username == "" {
		return errors.New("usage: rugguard analyze <username>")
	}
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	postTo := cctx.String("post-to")
	if postTo == "" {
		// reading needs only the bearer token
		cfg.Replies.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cctx.Context
	return cmdlog.Run("analyze", func() error {
		b, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer b.Close()
		b.refreshTrusted(ctx)

		a, err := b.analyzer.AnalyzeUsername(ctx, username)
		if err != nil {
			fmt.Println(analyzer.FailureReport(username, err))
			return err
		}
		if cctx.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(a); err != nil {
				return err
			}
		} else {
			fmt.Println(a.Report.Text)
		}
		if postTo == "" {
			return nil
		}
		id, err := b.client.PostReply(ctx, postTo, a.Report.Text)
		if err != nil {
			return fmt.Errorf("post reply: %w", err)
		}
		fmt.Println("Reply posted:", id)
		return nil
	})
}

func runTrusted(cctx *cli.Context) error {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	ctx := cctx.Context
	return cmdlog.Run("trusted", func() error {
		b, err := buildTrustOnly(ctx, cfg)
		if err != nil {
			return err
		}
		defer b.Close()
		if err := b.ledger.ForceRefresh(ctx); err != nil {
			logging.Warn("trusted_refresh_failed", map[string]any{"error": err.Error()})
		}
		if name := cctx.Args().First(); name != "" {
			handle := util.SanitizeUsername(name)
			fmt.Printf("@%s trusted: %t\n", handle, b.ledger.Contains(handle))
			return nil
		}
		fmt.Printf("Trusted accounts: %d\n", b.ledger.Size())
		return nil
	})
}

func runStats(cctx *cli.Context) error {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	ctx := cctx.Context
	return cmdlog.Run("stats", func() error {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		s, err := db.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Analyses:          %d\n", s.Analyses)
		fmt.Printf("Unique users:      %d\n", s.UniqueUsers)
		fmt.Printf("Average risk:      %.1f\n", s.AvgRiskScore)
		fmt.Printf("Processed tweets:  %d\n", s.ProcessedTweets)
		fmt.Printf("Trusted accounts:  %d\n", s.TrustedAccounts)
		levels := make([]string, 0, len(s.ByTrustLevel))
		for lvl := range s.ByTrustLevel {
			levels = append(levels, lvl)
		}
		sort.Strings(levels)
		for _, lvl := range levels {
			fmt.Printf("  %-18s %d\n", lvl, s.ByTrustLevel[lvl])
		}
		return nil
	})
}

func runCleanup(cctx *cli.Context) error {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	days := cctx.Int("days")
	if days <= 0 {
		days = cfg.Storage.RetentionDays
	}
	if days <= 0 {
		return errors.New("retention must be positive")
	}
	ctx := cctx.Context
	return cmdlog.Run("cleanup", func() error {
		db, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		n, err := db.Cleanup(ctx, time.Now().UTC().AddDate(0, 0, -days))
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d rows older than %d days\n", n, days)
		return nil
	})
}
