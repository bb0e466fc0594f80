// Package cli is the terminal front end: subcommands that call the API
// client and print markdown reports.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"golang.org/x/term"

	"github.com/RamanBirulia/stock-notebook/internal/client"
	"github.com/RamanBirulia/stock-notebook/internal/i18n"
	"github.com/RamanBirulia/stock-notebook/internal/localstore"
	"github.com/RamanBirulia/stock-notebook/internal/session"
	"github.com/RamanBirulia/stock-notebook/internal/theme"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

const readyTimeout = 5 * time.Second

type App struct {
	Client  *client.Client
	Session *session.Manager
	Theme   *theme.Manager
	Lang    *i18n.Localizer
	Store   localstore.Store

	// Currency is the ISO code amounts are shown in.
	Currency string
	// Plain skips glamour and prints the raw markdown.
	Plain bool

	In  io.Reader
	Out io.Writer
	Err io.Writer

	in *bufio.Reader
}

// Register adds every command to c.
func (a *App) Register(c *subcommands.Commander) {
	c.Register(&registerCmd{app: a}, "account")
	c.Register(&loginCmd{app: a}, "account")
	c.Register(&logoutCmd{app: a}, "account")
	c.Register(&whoamiCmd{app: a}, "account")

	c.Register(&buyCmd{app: a}, "portfolio")
	c.Register(&purchasesCmd{app: a}, "portfolio")
	c.Register(&dashboardCmd{app: a}, "portfolio")
	c.Register(&stockCmd{app: a}, "portfolio")

	c.Register(&chartCmd{app: a}, "market")
	c.Register(&searchCmd{app: a}, "market")
	c.Register(&watchCmd{app: a}, "market")

	c.Register(&themeCmd{app: a}, "settings")
	c.Register(&langCmd{app: a}, "settings")
}

// ready blocks until labels can be rendered. When the configured loader
// fails it retries with the embedded resources.
func (a *App) ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	err := a.Lang.Wait(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("translations: %w", err)
	}
	fmt.Fprintf(a.Err, "warning: %v, using built-in translations\n", err)
	lng := a.Lang.Language()
	a.Lang = i18n.New(i18n.EmbeddedLoader{}, a.Store)
	a.Lang.Start(ctx, lng)
	return a.Lang.Wait(ctx)
}

func (a *App) t(key string, kv ...string) string {
	return a.Lang.T(key, kv...)
}

func (a *App) printMarkdown(md string) {
	if a.Plain {
		fmt.Fprint(a.Out, md)
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(a.Theme.Style()),
		glamour.WithWordWrap(120),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(a.Out, out)
			return
		}
	}
	fmt.Fprint(a.Out, md)
}

func (a *App) println(s string) {
	fmt.Fprintln(a.Out, s)
}

// prompt reads one line from In.
func (a *App) prompt(label string) (string, error) {
	if a.in == nil {
		a.in = bufio.NewReader(a.In)
	}
	fmt.Fprint(a.Err, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptSecret reads a line without echo when In is a terminal and
// falls back to prompt for piped input.
func (a *App) promptSecret(label string) (string, error) {
	f, ok := a.In.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return a.prompt(label)
	}
	fmt.Fprint(a.Err, label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.Err)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// fail reports err and picks the exit status.
func (a *App) fail(err error) subcommands.ExitStatus {
	var verr *validate.Error
	var apiErr *client.APIError
	if st, _ := a.Lang.Status(); st != i18n.Ready {
		fmt.Fprintf(a.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	switch {
	case errors.Is(err, session.ErrNoSession):
		fmt.Fprintln(a.Err, a.t("auth.notSignedIn"))
	case client.IsStatus(err, http.StatusUnauthorized):
		fmt.Fprintln(a.Err, a.t("auth.sessionExpired"))
	case errors.As(err, &verr):
		names := make([]string, 0, len(verr.Fields))
		for name := range verr.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(a.Err, "  %s: %s\n", name, verr.Fields[name])
		}
		return subcommands.ExitUsageError
	case errors.As(err, &apiErr) && len(apiErr.Details) > 0:
		fmt.Fprintln(a.Err, a.t("common.error", "message", apiErr.Message))
		for name, msg := range apiErr.Details {
			fmt.Fprintf(a.Err, "  %s: %s\n", name, msg)
		}
	default:
		fmt.Fprintln(a.Err, a.t("common.error", "message", err.Error()))
	}
	return subcommands.ExitFailure
}
