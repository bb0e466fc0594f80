package cli

import (
	"context"
	"flag"
	"time"

	"github.com/google/subcommands"

	"github.com/RamanBirulia/stock-notebook/internal/models"
	"github.com/RamanBirulia/stock-notebook/internal/validate"
)

type credentials struct {
	username string
	password string
}

func (c *credentials) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Username")
	f.StringVar(&c.password, "p", "", "Password; prompted for when empty")
}

func (c *credentials) resolve(a *App) error {
	if c.password != "" {
		return nil
	}
	pw, err := a.promptSecret(a.t("auth.passwordPrompt"))
	if err != nil {
		return err
	}
	c.password = pw
	return nil
}

type registerCmd struct {
	app *App
	credentials
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an account and sign in" }
func (*registerCmd) Usage() string {
	return `register -u <username> [-p <password>]

  Creates an account. Usernames are 3 to 50 characters of letters, digits,
  '.', '_' or '-'. Passwords are at least 6 characters.
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	if err := c.resolve(a); err != nil {
		return a.fail(err)
	}
	resp, err := a.Client.Register(ctx, validate.RegisterInput{Username: c.username, Password: c.password})
	if err != nil {
		return a.fail(err)
	}
	a.println(a.t("auth.registered", "username", resp.User.Username))
	return subcommands.ExitSuccess
}

type loginCmd struct {
	app *App
	credentials
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in and remember the session" }
func (*loginCmd) Usage() string {
	return `login -u <username> [-p <password>]

  Signs in. The token is kept in the state file until it expires or you
  log out.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	if err := c.resolve(a); err != nil {
		return a.fail(err)
	}
	resp, err := a.Client.Login(ctx, validate.LoginInput{Username: c.username, Password: c.password})
	if err != nil {
		return a.fail(err)
	}
	a.println(a.t("auth.signedIn", "username", resp.User.Username))
	return subcommands.ExitSuccess
}

type logoutCmd struct{ app *App }

func (*logoutCmd) Name() string             { return "logout" }
func (*logoutCmd) Synopsis() string         { return "forget the stored session" }
func (*logoutCmd) Usage() string            { return "logout\n" }
func (*logoutCmd) SetFlags(f *flag.FlagSet) {}

func (c *logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	if err := a.Client.Logout(ctx); err != nil {
		return a.fail(err)
	}
	a.println(a.t("auth.loggedOut"))
	return subcommands.ExitSuccess
}

type whoamiCmd struct {
	app     *App
	offline bool
}

func (*whoamiCmd) Name() string     { return "whoami" }
func (*whoamiCmd) Synopsis() string { return "show the signed-in user" }
func (*whoamiCmd) Usage() string {
	return `whoami [-offline]

  Asks the server who the stored token belongs to. With -offline only the
  local session is inspected.
`
}

func (c *whoamiCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.offline, "offline", false, "Do not contact the server")
}

func (c *whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := c.app
	if err := a.ready(ctx); err != nil {
		return a.fail(err)
	}
	snap := a.Session.Current()
	var user models.UserInfo
	if c.offline {
		if _, err := a.Session.Token(); err != nil {
			return a.fail(err)
		}
		user = snap.User
	} else {
		u, err := a.Client.Me(ctx)
		if err != nil {
			return a.fail(err)
		}
		user = u
	}
	a.println(a.t("auth.signedIn", "username", user.Username))
	if !snap.ExpiresAt.IsZero() {
		a.println(a.t("auth.expiresAt", "time", snap.ExpiresAt.Local().Format(time.DateTime)))
	}
	return subcommands.ExitSuccess
}
