// Command osuctl queries the osu! API and the render farm from the terminal using the same
// clients as the bot, and manages the settings schema.
//
// Usage:
//
//	osuctl user <name>
//	osuctl beatmap <url or id>
//	osuctl beatmapsets [--limit N] <user> <category>
//	osuctl scores [--limit N] [--fails] <user> <category>
//	osuctl skins [--search text]
//	osuctl migrate up|down
//
// Flags must come before positional arguments. migrate down rolls back the most recent
// migration only.
//
// Credentials come from the same environment as the bot (OSU_CLIENT_ID, OSU_CLIENT_SECRET,
// DB_DSN, ...); a .env file in the working directory is loaded first.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/onnwee/aswo/cache"
	"github.com/onnwee/aswo/commands"
	"github.com/onnwee/aswo/config"
	"github.com/onnwee/aswo/db"
	"github.com/onnwee/aswo/ordr"
	"github.com/onnwee/aswo/osuapi"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := newApp(cfg, os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

const positionalUsage = "user and category required (flags go before them: --limit 3 peppy best)"

func newApp(cfg *config.Config, out io.Writer) *cli.App {
	osu := func() *osuapi.Client {
		tokens := &osuapi.TokenCache{
			ClientID:     cfg.OsuClientID,
			ClientSecret: cfg.OsuClientSecret,
			TokenURL:     cfg.OsuTokenURL,
			MaxAge:       cfg.OsuTokenMaxAge,
		}
		return osuapi.NewClient(cfg.OsuAPIURL, tokens, cfg.OsuRatePerMin)
	}
	limitFlag := &cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 5, Usage: "number of results"}

	return &cli.App{
		Name:   "osuctl",
		Usage:  "query the osu! API and render farm",
		Writer: out,
		// errors are returned to main, which owns the exit
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:      "user",
				Usage:     "show a user profile",
				ArgsUsage: "<name or id>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("user name required", 2)
					}
					u, err := osu().FetchUser(c.Context, strings.Join(c.Args().Slice(), " "))
					if err != nil {
						return err
					}
					return printUser(out, u, time.Now())
				},
			},
			{
				Name:      "beatmap",
				Usage:     "show a beatmap",
				ArgsUsage: "<url or id>",
				Action: func(c *cli.Context) error {
					id, ok := commands.ExtractBeatmapID(c.Args().First())
					if !ok {
						return cli.Exit("beatmap url or id required", 2)
					}
					b, err := osu().FetchBeatmap(c.Context, id)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(out, "%s - %s [%s]\ncreator: %s\nstars: %s  status: %s  mode: %s\n%s\nmirror: %s\n",
						b.Artist, b.Title, b.Version, b.Creator, osuapi.ThousandsFloat(b.DifficultyRating, 2),
						b.Status, b.Mode, b.URL, b.MirrorURL())
					return err
				},
			},
			{
				Name:      "beatmapsets",
				Usage:     "list a user's beatmapsets",
				ArgsUsage: "<user> <" + strings.Join(osuapi.BeatmapsetCategories, "|") + ">",
				Flags:     []cli.Flag{limitFlag},
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit(positionalUsage, 2)
					}
					client := osu()
					u, err := client.FetchUser(c.Context, c.Args().Get(0))
					if err != nil {
						return err
					}
					sets, err := client.FetchUserBeatmapsets(c.Context, u.ID, c.Args().Get(1), c.Int("limit"))
					if err != nil {
						return err
					}
					for i, s := range sets {
						if _, err := fmt.Fprintf(out, "%d. %s - %s (%s) plays %s\n", i+1, s.Artist, s.Title, s.Status, osuapi.Thousands(s.PlayCount)); err != nil {
							return err
						}
					}
					return nil
				},
			},
			{
				Name:      "scores",
				Usage:     "list a user's scores",
				ArgsUsage: "<user> <" + strings.Join(osuapi.ScoreCategories, "|") + ">",
				Flags:     []cli.Flag{limitFlag, &cli.BoolFlag{Name: "fails", Usage: "include failed plays"}},
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit(positionalUsage, 2)
					}
					client := osu()
					u, err := client.FetchUser(c.Context, c.Args().Get(0))
					if err != nil {
						return err
					}
					scores, err := client.FetchUserScores(c.Context, u.ID, c.Args().Get(1), c.Int("limit"), c.Bool("fails"))
					if err != nil {
						return err
					}
					for i, s := range scores {
						if _, err := fmt.Fprintf(out, "%d. %s [%s] %s  pp %s  acc %s%%\n", i+1, s.Beatmapset.Title, s.Beatmap.Version,
							s.Rank, s.PPString(), osuapi.ThousandsFloat(s.Accuracy*100, 2)); err != nil {
							return err
						}
					}
					return nil
				},
			},
			{
				Name:  "skins",
				Usage: "list render farm skins",
				Flags: []cli.Flag{&cli.StringFlag{Name: "search", Usage: "filter by name"}},
				Action: func(c *cli.Context) error {
					catalog := ordr.NewSkinCatalog(ordr.NewClient(cfg.OrdrAPIURL, cfg.OrdrVerificationKey), cache.NewMemory(), cfg.SkinCacheTTL)
					skins, err := catalog.Skins(c.Context)
					if err != nil {
						return err
					}
					q := strings.ToLower(c.String("search"))
					for _, s := range skins {
						if q != "" && !strings.Contains(strings.ToLower(s.Name), q) {
							continue
						}
						if _, err := fmt.Fprintf(out, "%5d  %s by %s\n", s.ID, s.Name, s.Author); err != nil {
							return err
						}
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "settings schema migrations",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "apply all migrations",
						Action: func(c *cli.Context) error {
							database, err := db.Connect(c.Context, cfg.DBDsn)
							if err != nil {
								return err
							}
							defer database.Close()
							if err := db.RunMigrations(database); err != nil {
								return err
							}
							_, err = fmt.Fprintln(out, "migrations applied")
							return err
						},
					},
					{
						Name:  "down",
						Usage: "roll back the most recent migration",
						Action: func(c *cli.Context) error {
							database, err := db.Connect(c.Context, cfg.DBDsn)
							if err != nil {
								return err
							}
							defer database.Close()
							if err := db.MigrateDown(database); err != nil {
								return err
							}
							_, err = fmt.Fprintln(out, "migration rolled back")
							return err
						},
					},
				},
			},
		},
	}
}

func printUser(out io.Writer, u osuapi.User, now time.Time) error {
	_, err := fmt.Fprintf(out, "%s (%d) %s\nrank: #%s (%s #%s)\npp: %s  acc: %s%%\nranks: %s\njoined: %s\nplaystyle: %s\n",
		u.Username, u.ID, u.ProfileURL(),
		osuapi.Thousands(u.Statistics.GlobalRank), u.CountryCodeOrNone(), osuapi.Thousands(u.Statistics.CountryRank),
		u.PP(), u.Accuracy(), u.Ranks(), u.JoinedAgo(now), u.PlaystyleString())
	return err
}
