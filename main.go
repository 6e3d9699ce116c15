package main

import (
	"log"
	"os"

	dbcmd "github.com/dtnitsch/lunch-bot/internal/db"
	"github.com/dtnitsch/lunch-bot/internal/extract"
	"github.com/dtnitsch/lunch-bot/internal/lunch"
	"github.com/dtnitsch/lunch-bot/models"
	"github.com/urfave/cli/v2"
)

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.yaml",
		Usage:   "path to the YAML config (missing file uses built-in restaurants)",
	}
	databaseFlag := &cli.StringFlag{
		Name:  "database",
		Usage: "run history database (overrides the config value)",
	}
	logFlags := []cli.Flag{
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output"},
	}
	deliveryFlags := []cli.Flag{
		configFlag,
		databaseFlag,
		&cli.BoolFlag{Name: "dry-run", Usage: "print the message to stdout instead of sending it"},
		&cli.BoolFlag{Name: "plain", Usage: "with --dry-run, strip Markdown emphasis"},
	}

	app := &cli.App{
		Name:  "lunch-bot",
		Usage: "Post today's lunch menus to a chat",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Build today's menu report once and deliver it",
				Flags: append(append([]cli.Flag{
					&cli.BoolFlag{Name: "once-per-day", Usage: "skip if a report was already delivered today"},
				}, deliveryFlags...), logFlags...),
				Action: lunch.RunAction,
			},
			{
				Name:  "serve",
				Usage: "Deliver the report on a cron schedule until interrupted",
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{Name: "schedule", Usage: "cron expression (default from config: " + models.DefaultSchedule + ")"},
					&cli.BoolFlag{Name: "run-now", Usage: "also run once at startup"},
				}, deliveryFlags...), logFlags...),
				Action: lunch.ServeAction,
			},
			{
				Name:  "extract",
				Usage: "Run one extraction strategy against a saved document",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "saved HTML or JSON document"},
					&cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Value: "header", Usage: "header, card or feed"},
					&cli.StringFlag{Name: "date", Usage: "target date YYYY-MM-DD"},
					&cli.StringFlag{Name: "day", Usage: "target weekday name in the locale (this week)"},
					&cli.StringFlag{Name: "locale", Value: models.DefaultLocale, Usage: "sv or en"},
					&cli.StringFlag{Name: "restaurant", Aliases: []string{"r"}, Usage: "take strategy and options from this configured restaurant"},
					&cli.StringFlag{Name: "marker-tags", Usage: "header: comma-separated tags allowed to carry day markers"},
					&cli.StringFlag{Name: "card-attr", Usage: "card: day attribute name"},
					&cli.StringFlag{Name: "list-selector", Usage: "card: dish list selector inside the card"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "text", Usage: "text, json or yaml"},
					configFlag,
				}, logFlags...),
				Action: extract.ExtractAction,
			},
			{
				Name:  "history",
				Usage: "Show recent runs from the history database",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "number of runs"},
					configFlag,
					databaseFlag,
				}, logFlags...),
				Action: dbcmd.HistoryAction,
				Subcommands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "Show per-restaurant results of a run (latest if omitted)",
						ArgsUsage: "[run-id]",
						Flags:     []cli.Flag{configFlag, databaseFlag},
						Action:    dbcmd.ShowRunAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
