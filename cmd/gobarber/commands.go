package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"gobarber/client/internal/api"
	"gobarber/client/internal/domain"
	"gobarber/client/internal/forms"
)

// access is the route guard: public commands are for signed out users,
// private ones for signed in users.
type access int

const (
	accessAny access = iota
	accessPublic
	accessPrivate
)

type command struct {
	summary string
	access  access
	run     func(ctx context.Context, a *app, args []string) int
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"signin":          {summary: "entra com e-mail e senha", access: accessPublic, run: runSignIn},
		"signout":         {summary: "encerra a sessão", access: accessAny, run: runSignOut},
		"signup":          {summary: "cria uma conta", access: accessPublic, run: runSignUp},
		"forgot-password": {summary: "pede o e-mail de recuperação de senha", access: accessPublic, run: runForgotPassword},
		"reset-password":  {summary: "define uma nova senha", access: accessPublic, run: runResetPassword},
		"whoami":          {summary: "mostra o usuário da sessão", access: accessPrivate, run: runWhoAmI},
		"profile":         {summary: "atualiza o perfil", access: accessPrivate, run: runProfile},
		"avatar":          {summary: "envia um novo avatar", access: accessPrivate, run: runAvatar},
		"dashboard":       {summary: "mostra os agendamentos do dia", access: accessPrivate, run: runDashboard},
		"watch":           {summary: "atualiza o painel periodicamente", access: accessPrivate, run: runWatch},
	}
}

func (a *app) dispatch(ctx context.Context, cmd command, args []string) int {
	switch cmd.access {
	case accessPrivate:
		if !a.session.Authenticated() {
			fmt.Fprintln(a.stderr, msgSignInRequired)
			return exitError
		}
	case accessPublic:
		if u, ok := a.session.User(); ok {
			fmt.Fprintf(a.stderr, msgAlreadySignedIn+"\n", u.Name)
			return exitError
		}
	}
	return cmd.run(ctx, a, args)
}

func newFlagSet(a *app, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(a *app, fs *pflag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(a.stderr, "argumento inesperado: %s\n", fs.Arg(0))
		return exitUsage, false
	}
	return 0, true
}

func runSignIn(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "signin")
	var f forms.SignIn
	fs.StringVar(&f.Email, "email", "", "e-mail")
	fs.StringVar(&f.Password, "password", "", "senha")
	if code, ok := parseFlags(a, fs, args); !ok {
		return code
	}

	if errs := f.Validate(); !errs.Valid() {
		return a.fieldErrors(errs)
	}

	sess, err := a.session.SignIn(ctx, domain.Credentials{Email: f.Email, Password: f.Password})
	if err != nil {
		return a.failure(err, noteAuthFailed)
	}
	fmt.Fprintf(a.stdout, "Bem-vindo, %s\n", sess.User.Name)
	return exitOK
}

func runSignOut(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "signout")
	if code, ok := parseFlags(a, fs, args); !ok {
		return code
	}
	if err := a.session.SignOut(ctx); err != nil {
		a.log.Error("sign out failed", slog.Any("err", err))
		fmt.Fprintln(a.stderr, msgSignOutFailed)
		return exitError
	}
	return exitOK
}

func runSignUp(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "signup")
	var f forms.SignUp
	fs.StringVar(&f.Name, "name", "", "nome")
	fs.StringVar(&f.Email, "email", "", "e-mail")
	fs.StringVar(&f.Password, "password", "", "senha")
	if code, ok := parseFlags(a, fs, args); !ok {
		return code
	}

	if errs := f.Validate(); !errs.Valid() {
		return a.fieldErrors(errs)
	}

	_, err := a.client.CreateUser(ctx, api.CreateUserRequest{Name: f.Name, Email: f.Email, Password: f.Password})
	if err != nil {
		return a.failure(err, noteSignUpFailed)
	}
	a.notify(noteSignedUp)
	return exitOK
}

func runForgotPassword(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "forgot-password")
	var f forms.ForgotPassword
	fs.StringVar(&f.Email, "email", "", "e-mail")
	if code, ok := parseFlags(a, fs, args); !ok {
		return code
	}

	if errs := f.Validate(); !errs.Valid() {
		return a.fieldErrors(errs)
	}

	if err := a.client.ForgotPassword(ctx, f.Email); err != nil {
		return a.failure(err, noteForgotFailed)
	}
	a.notify(noteForgotSent)
	return exitOK
}

func runResetPassword(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "reset-password")
	var f forms.ResetPassword
	var link string
	fs.StringVar(&f.Token, "token", "", "token de recuperação")
	fs.StringVar(&link, "link", "", "link recebido por e-mail")
	fs.StringVar(&f.Password, "password", "", "nova senha")
	fs.StringVar(&f.PasswordConfirmation, "password-confirmation", "", "confirmação da nova senha")
	if code, ok := parseFlags(a, fs, args); !ok {
		return code
	}
	if f.Token == "" && link != "" {
		f.Token = forms.ResetToken(link)
	}

	if errs := f.Validate(); !errs.Valid() {
		return a.fieldErrors(errs)
	}

	err := a.client.ResetPassword(ctx, api.ResetPasswordRequest{
		Token:                f.Token,
		Password:             f.Password,
		PasswordConfirmation: f.PasswordConfirmation,
	})
	if err != nil {
		return a.failure(err, noteResetFailed)
	}
	fmt.Fprintln(a.stdout, "Senha alterada, faça login com a nova senha")
	return exitOK
}

func runWhoAmI(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "whoami")
	if code, ok := parseFlags(a, fs, args); !ok {
		return code
	}

	sess, _ := a.session.Current()
	printUser(a.stdout, sess.User)
	if info, ok := domain.ReadTokenInfo(sess.Token); ok && !info.ExpiresAt.IsZero() {
		expires := info.ExpiresAt.In(a.cfg.Location).Format("02/01/2006 15:04")
		if info.Expired(a.now()) {
			fmt.Fprintf(a.stdout, "Sessão expirada em %s\n", expires)
		} else {
			fmt.Fprintf(a.stdout, "Sessão válida até %s\n", expires)
		}
	}
	return exitOK
}

func runProfile(ctx context.Context, a *app, args []string) int {
	user, _ := a.session.User()

	fs := newFlagSet(a, "profile")
	f := forms.Profile{Name: user.Name, Email: user.Email}
	fs.StringVar(&f.Name, "name", f.Name, "nome")
	fs.StringVar(&f.Email, "email", f.Email, "e-mail")
	fs.StringVar(&f.OldPassword, "old-password", "", "senha atual")
	fs.StringVar(&f.Password, "password", "", "nova senha")
	fs.StringVar(&f.PasswordConfirmation, "password-confirmation", "", "confirmação da nova senha")
	if code, ok := parseFlags(a, fs, args); !ok {
		return code
	}

	if errs := f.Validate(); !errs.Valid() {
		return a.fieldErrors(errs)
	}

	patch, err := a.client.UpdateProfile(ctx, api.UpdateProfileRequest{
		Name:                 f.Name,
		Email:                f.Email,
		OldPassword:          f.OldPassword,
		Password:             f.Password,
		PasswordConfirmation: f.PasswordConfirmation,
	})
	if err != nil {
		return a.failure(err, noteProfileFailed)
	}
	updated, err := a.session.UpdateUser(ctx, patch)
	if err != nil {
		return a.failure(err, noteProfileFailed)
	}
	a.notify(noteProfileUpdated)
	printUser(a.stdout, updated)
	return exitOK
}

func runAvatar(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "avatar")
	var path string
	fs.StringVar(&path, "file", "", "imagem do avatar")
	if code, ok := parseFlags(a, fs, args); !ok {
		return code
	}
	if strings.TrimSpace(path) == "" {
		fmt.Fprintln(a.stderr, "--file é obrigatório")
		return exitUsage
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(a.stderr, "não foi possível abrir %s: %v\n", path, err)
		return exitError
	}
	defer f.Close()

	patch, err := a.client.UpdateAvatar(ctx, filepath.Base(path), f)
	if err != nil {
		return a.failure(err, noteAvatarFailed)
	}
	updated, err := a.session.UpdateUser(ctx, patch)
	if err != nil {
		return a.failure(err, noteAvatarFailed)
	}
	a.notify(noteAvatarUpdated)
	fmt.Fprintf(a.stdout, "Avatar: %s\n", updated.AvatarURL)
	return exitOK
}

func printUser(w io.Writer, u domain.User) {
	fmt.Fprintf(w, "Nome: %s\n", u.Name)
	fmt.Fprintf(w, "E-mail: %s\n", u.Email)
	fmt.Fprintf(w, "ID: %s\n", u.ID)
	if u.AvatarURL != "" {
		fmt.Fprintf(w, "Avatar: %s\n", u.AvatarURL)
	}
}
