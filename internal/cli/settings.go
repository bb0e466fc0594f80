package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/RamanBirulia/stock-notebook/internal/i18n"
	"github.com/RamanBirulia/stock-notebook/internal/theme"
)

type themeCmd struct{ app *App }

func (*themeCmd) Name() string     { return "theme" }
func (*themeCmd) Synopsis() string { return "show or change the colour theme" }
func (*themeCmd) Usage() string {
	return `theme [light|dark|system|toggle|reset]

  Without an argument prints the current theme. "system" follows the
  terminal background.
`
}
func (*themeCmd) SetFlags(f *flag.FlagSet) {}

func (c *themeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if f.NArg() > 1 {
		fmt.Fprint(a.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	var err error
	switch arg := f.Arg(0); arg {
	case "":
	case "toggle":
		err = a.Theme.Toggle()
	case "reset":
		err = a.Theme.Reset()
	default:
		mode := theme.Mode(arg)
		if !mode.Valid() {
			fmt.Fprint(a.Err, c.Usage())
			return subcommands.ExitUsageError
		}
		err = a.Theme.Set(mode)
	}
	if err != nil {
		return a.fail(err)
	}
	resolved := theme.Light
	if a.Theme.Dark() {
		resolved = theme.Dark
	}
	a.println(a.t("theme.current",
		"mode", a.t("theme."+string(a.Theme.Mode())),
		"resolved", a.t("theme."+string(resolved))))
	return subcommands.ExitSuccess
}

type langCmd struct{ app *App }

func (*langCmd) Name() string     { return "lang" }
func (*langCmd) Synopsis() string { return "show or change the display language" }
func (*langCmd) Usage() string {
	return "lang [en|es|ru]\n"
}
func (*langCmd) SetFlags(f *flag.FlagSet) {}

func (c *langCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if f.NArg() > 1 {
		fmt.Fprint(a.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	if f.NArg() == 0 {
		a.println(a.t("language.current", "language", i18n.DisplayName(a.Lang.Language())))
		return subcommands.ExitSuccess
	}
	lng, err := a.Lang.SetLanguage(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintln(a.Err, err)
		fmt.Fprint(a.Err, c.Usage())
		return subcommands.ExitUsageError
	}
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	a.println(a.t("language.changed", "language", i18n.DisplayName(lng)))
	return subcommands.ExitSuccess
}
