package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/evmaki/pothos/internal"
	"github.com/evmaki/pothos/internal/archive"
	pkgconfig "github.com/evmaki/pothos/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// loadConfig reads the config file named by --config. Agents run from cron
// without a file fall back to the defaults.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// action adapts an internal runner to a cli action.
func action(run func(context.Context, ...internal.Option) error, extra func(*cli.Command) []internal.Option) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}
		if extra != nil {
			opts = append(opts, extra(cmd)...)
		}
		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
		return nil
	}
}

func hashPassword(_ context.Context, cmd *cli.Command) error {
	password := cmd.String("password")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	hash, err := archive.HashPassword(password, int(cmd.Int("cost")))
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "pothos",
		Usage:   "Plant timelapse capture, preparation and archive",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "capture",
				Usage:  "Record sensor readings and take one frame",
				Action: action(internal.Capture, nil),
			},
			{
				Name:  "prepare",
				Usage: "Curate new frames, assemble the weekly video and upload",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "Keep running and re-run when new frames arrive",
						Sources: cli.EnvVars("POTHOS_WATCH"),
					},
				},
				Action: action(internal.Prepare, func(cmd *cli.Command) []internal.Option {
					return []internal.Option{internal.WithWatch(cmd.Bool("watch"))}
				}),
			},
			{
				Name:   "serve",
				Usage:  "Run the archive HTTP server",
				Action: action(internal.Serve, nil),
			},
			{
				Name:   "mcp",
				Usage:  "Expose the archive over MCP on stdio",
				Action: action(internal.ServeMCP, nil),
			},
			{
				Name:  "hash-password",
				Usage: "Print the bcrypt hash for archive.password_hash",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password to hash (read from stdin when empty)",
					},
					&cli.IntFlag{
						Name:  "cost",
						Usage: "bcrypt cost",
						Value: 10,
					},
				},
				Action: hashPassword,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
