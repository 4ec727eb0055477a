package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"quotecard/internal/bot"
	"quotecard/internal/card"
	"quotecard/internal/config"
	"quotecard/internal/database"
	"quotecard/internal/layout"
	"quotecard/internal/logging"
	"quotecard/internal/scheduler"
	"quotecard/internal/server"
	"quotecard/internal/session"
	"quotecard/internal/source"
	"quotecard/internal/summarizer"
	"quotecard/internal/templates"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gogpu/gg"
)

type app struct {
	cfg config.Config
	log *slog.Logger
}

type cli struct {
	Serve  serveCmd  `cmd:"" default:"1" help:"Run the HTTP API and, when a token is set, the Telegram bot."`
	Render renderCmd `cmd:""             help:"Render a quote card to a PNG file."`
	Wrap   wrapCmd   `cmd:""             help:"Print text wrapped to a column width."`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("quotecard"),
		kong.Description("Quote card renderer with streaming summaries."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(log)
	gg.SetLogger(log)

	kctx.FatalIfErrorf(kctx.Run(&app{cfg: cfg, log: log}))
}

type serveCmd struct{}

func (serveCmd) Run(a *app) error {
	log := a.log
	cfg := a.cfg
	start := time.Now()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fonts, err := card.LoadFonts(cfg.FontPath)
	if err != nil {
		return fmt.Errorf("load fonts: %w", err)
	}
	defer func() {
		if err = fonts.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close fonts",
				"error", err)
		}
	}()

	composer := card.NewComposer(fonts, log)
	summ := summarizer.NewRelaySummarizer(initStreamer(ctx, cfg, log), cfg.SummaryCacheTTL, log)

	sessions := session.NewStore()
	defer func() {
		if err = sessions.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close sessions",
				"error", err)
		}
	}()

	sched := scheduler.New(ctx, sessions, cfg.SessionSweepSpec, cfg.SessionTTL, log)
	if err = sched.Start(); err != nil {
		return fmt.Errorf("start scheduler (spec = %s): %w", sched.Spec(), err)
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", sched.Spec(),
		"sessionTTL", cfg.SessionTTL)

	if token := strings.TrimSpace(cfg.TelegramToken); token != "" {
		db, dbErr := database.New(ctx, cfg.DBPath, log)
		if dbErr != nil {
			return fmt.Errorf("init database (path = %s): %w", cfg.DBPath, dbErr)
		}
		defer func() {
			if err = db.Close(); err != nil {
				log.ErrorContext(ctx, "Failed to close db",
					"error", err,
					"dbPath", cfg.DBPath)
			}
		}()

		botInst, botErr := bot.New(token, bot.Dependencies{
			DB:            db,
			Sessions:      sessions,
			Composer:      composer,
			Summarizer:    summ,
			Resolver:      source.NewResolver(log),
			AllowedUsers:  cfg.AllowedUsers,
			MaxInputChars: cfg.MaxInputChars,
		}, log)
		if botErr != nil {
			return fmt.Errorf("init bot: %w", botErr)
		}
		defer botInst.Stop()

		go botInst.Start(ctx)
		log.InfoContext(ctx, "Bot is started",
			"allowedUsersCount", len(cfg.AllowedUsers),
			"updateTimeoutSeconds", bot.BotUpdateTimeout)
	} else {
		log.WarnContext(ctx, "TELEGRAM_TOKEN is missing so the bot is disabled",
			"envVar", "TELEGRAM_TOKEN")
	}

	srv := server.New(composer, summ, cfg.MaxInputChars, log)
	log.InfoContext(ctx, "HTTP server is starting",
		"addr", cfg.HTTPAddr)

	if err = srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		return fmt.Errorf("serve HTTP (addr = %s): %w", cfg.HTTPAddr, err)
	}

	log.InfoContext(ctx, "Exiting...",
		"uptimeSeconds", time.Since(start).Seconds())

	return nil
}

func initStreamer(ctx context.Context, cfg config.Config, log *slog.Logger) summarizer.Streamer {
	if strings.TrimSpace(cfg.SummarizerAPIKey) == "" {
		log.WarnContext(ctx, "SUMMARIZER_API_KEY is missing so fallback will be used",
			"envVar", "SUMMARIZER_API_KEY")

		return summarizer.FallbackStreamer{}
	}

	s, err := summarizer.NewOpenAIStreamer(
		cfg.SummarizerAPIKey,
		cfg.SummarizerBaseURL,
		cfg.SummarizerModel,
		cfg.SummarizerTemperature,
		cfg.SummarizerTimeout,
	)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create summarizer so fallback will be used",
			"error", err,
			"envVar", "SUMMARIZER_API_KEY")

		return summarizer.FallbackStreamer{}
	}

	log.InfoContext(ctx, "Summarizer is initialized",
		"baseURL", cfg.SummarizerBaseURL,
		"model", cfg.SummarizerModel)

	return s
}

type renderCmd struct {
	Text     string `arg:""     optional:""         help:"Quote text. Read from stdin when omitted."`
	Template string `short:"t"  default:"classic"   help:"Template key (${enum})." enum:"classic,modern,warm"`
	Out      string `short:"o"  default:"."         help:"Output directory."       type:"existingdir"`
	Preview  bool   `help:"Render the preview surface instead of the full card."`
}

func (r renderCmd) Run(a *app) error {
	text, err := textOrStdin(r.Text)
	if err != nil {
		return err
	}

	fonts, err := card.LoadFonts(a.cfg.FontPath)
	if err != nil {
		return fmt.Errorf("load fonts: %w", err)
	}
	defer fonts.Close()

	tmpl, err := templates.Get(r.Template)
	if err != nil {
		return err
	}

	mode := card.ModeFull
	if r.Preview {
		mode = card.ModePreview
	}

	surface, err := card.NewComposer(fonts, a.log).Compose(text, tmpl, mode)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}
	defer surface.Close()

	export, err := card.ExportPNG(surface, time.Now())
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	path := filepath.Join(r.Out, export.Filename)
	if err = os.WriteFile(path, export.Data, 0o644); err != nil { //nolint:gosec // Output is a public image.
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Println(path)

	return nil
}

type wrapCmd struct {
	Text  string  `arg:""    optional:""  help:"Text to wrap. Read from stdin when omitted."`
	Width float64 `short:"w" default:"40" help:"Maximum line width in terminal columns."`
}

func (w wrapCmd) Run(_ *app) error {
	text, err := textOrStdin(w.Text)
	if err != nil {
		return err
	}

	for _, line := range layout.Wrap(text, layout.Columns, w.Width).Lines {
		fmt.Println(line)
	}

	return nil
}

func textOrStdin(text string) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return string(data), nil
}
