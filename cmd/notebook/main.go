package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
	"github.com/muesli/termenv"

	"github.com/RamanBirulia/stock-notebook/internal/cli"
	"github.com/RamanBirulia/stock-notebook/internal/client"
	"github.com/RamanBirulia/stock-notebook/internal/i18n"
	"github.com/RamanBirulia/stock-notebook/internal/localstore"
	"github.com/RamanBirulia/stock-notebook/internal/session"
	"github.com/RamanBirulia/stock-notebook/internal/theme"
)

var (
	apiURL     = flag.String("api", envOr("NOTEBOOK_API", client.DefaultBaseURL), "Base URL of the stock-notebook server")
	statePath  = flag.String("state", os.Getenv("NOTEBOOK_STATE"), "Path of the local state file; defaults to the user config dir")
	localesURL = flag.String("locales", os.Getenv("NOTEBOOK_LOCALES"), "Base URL serving /locales/{lng}/translation.json; built-in resources when empty")
	currency   = flag.String("currency", "USD", "Currency used to display amounts")
	plain      = flag.Bool("plain", false, "Print raw markdown instead of styled output")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	app := &cli.App{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
	app.Register(commander)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := setup(ctx, app); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(subcommands.ExitFailure))
	}
	os.Exit(int(commander.Execute(ctx)))
}

func setup(ctx context.Context, app *cli.App) error {
	p := *statePath
	if p == "" {
		var err error
		if p, err = localstore.DefaultPath(); err != nil {
			return err
		}
	}
	store := localstore.NewFileStore(p)

	sess := session.New(store, nil)
	if _, err := sess.Restore(); err != nil {
		return err
	}

	th, err := theme.New(store, theme.TerminalDetector{})
	if err != nil {
		return err
	}
	if termenv.EnvNoColor() {
		*plain = true
	}

	var loader i18n.Loader = i18n.EmbeddedLoader{}
	if *localesURL != "" {
		loader = i18n.NewHTTPLoader(*localesURL, 0)
	}
	loc := i18n.New(loader, store)
	loc.Start(ctx, os.Getenv("LC_ALL"), os.Getenv("LC_MESSAGES"), os.Getenv("LANG"))

	app.Client = client.New(sess, client.Options{BaseURL: *apiURL})
	app.Session = sess
	app.Theme = th
	app.Lang = loc
	app.Store = store
	app.Currency = *currency
	app.Plain = *plain
	return nil
}
