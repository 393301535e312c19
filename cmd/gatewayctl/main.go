package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"modelgate/internal/app"
	"modelgate/internal/artifact"
	"modelgate/internal/config"
	"modelgate/internal/ingest"
	"modelgate/internal/logger"
	"modelgate/internal/storage"
)

func main() {
	if err := newCLI(config.Load, &app.Options{RouteLogEcho: os.Stderr}).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// gateway carries what every command needs to build the core.
type gateway struct {
	loadConfig func() (*config.Config, error)
	options    *app.Options
}

func newCLI(load func() (*config.Config, error), opts *app.Options) *cli.App {
	g := &gateway{loadConfig: load, options: opts}

	return &cli.App{
		Name:  "gatewayctl",
		Usage: "Route questions and uploads through the model gateway without the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: func(c *cli.Context) error {
			slog.SetDefault(logger.New(c.App.ErrWriter, c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question, with retrieval when context is given",
				ArgsUsage: "<question>",
				Action:    g.ask,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "context",
						Aliases: []string{"c"},
						Usage:   "Context text to answer from",
					},
					&cli.StringFlag{
						Name:  "context-file",
						Usage: "Read the context from a file",
					},
				},
			},
			{
				Name:      "upload-document",
				Usage:     "Ingest a document and summarize or query it",
				ArgsUsage: "<file>",
				Action:    g.uploadDocument,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Targeted extraction request instead of a summary",
					},
				},
			},
			{
				Name:      "upload-media",
				Usage:     "Ingest an audio or video file and analyze it",
				ArgsUsage: "<file>",
				Action:    g.uploadMedia,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "type",
						Aliases:  []string{"t"},
						Usage:    "Declared modality (audio or video)",
						Required: true,
					},
				},
			},
			{
				Name:      "validate",
				Usage:     "Check a filename against the upload rules without storing anything",
				ArgsUsage: "<file>",
				Action:    validateCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Declared modality (audio or video); empty for documents",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Count stored artifacts per category",
				Action: g.stats,
			},
		},
	}
}

func (g *gateway) withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	a, err := app.New(ctx, cfg, deps, slog.Default(), g.options)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func (g *gateway) ask(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return errors.New("a question is required")
	}

	contextText := c.String("context")
	if path := c.String("context-file"); path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("read context file: %w", err)
		}
		contextText = string(data)
	}

	return g.withApp(c, func(ctx context.Context, a *app.App) error {
		resp, err := a.Router.RouteQuestion(ctx, question, contextText)
		if err != nil {
			return err
		}
		return printJSON(c, resp)
	})
}

func (g *gateway) uploadDocument(c *cli.Context) error {
	path, err := fileArg(c)
	if err != nil {
		return err
	}

	return g.withApp(c, func(ctx context.Context, a *app.App) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		art, err := a.Pipeline.Ingest(ctx, f, filepath.Base(path), artifact.MediaNone)
		if err != nil {
			return err
		}
		resp, err := a.Router.RouteDocument(ctx, art, c.String("query"))
		if err != nil {
			return err
		}
		return printJSON(c, resp)
	})
}

func (g *gateway) uploadMedia(c *cli.Context) error {
	path, err := fileArg(c)
	if err != nil {
		return err
	}

	return g.withApp(c, func(ctx context.Context, a *app.App) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		art, err := a.Pipeline.IngestMedia(ctx, f, filepath.Base(path), artifact.ParseMediaType(c.String("type")))
		if err != nil {
			return err
		}
		resp, err := a.Router.RouteMedia(ctx, art)
		if err != nil {
			return err
		}
		return printJSON(c, resp)
	})
}

// validateCommand is a dry run: it never opens or stores the file.
func validateCommand(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("exactly one file name is required")
	}
	name := c.Args().First()
	declared := artifact.ParseMediaType(c.String("type"))

	category, ext, err := ingest.Validate(name, declared)
	if err != nil {
		return err
	}
	return printJSON(c, map[string]string{
		"category":  string(category),
		"extension": ext,
		"mime_type": ingest.MIMEType(ext),
	})
}

func (g *gateway) stats(c *cli.Context) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := storage.Scan(c.Context, cfg.StorageRoot)
	if err != nil {
		return err
	}
	return printJSON(c, st)
}

func fileArg(c *cli.Context) (string, error) {
	if c.Args().Len() != 1 {
		return "", errors.New("exactly one file is required")
	}
	return filepath.Clean(c.Args().First()), nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
