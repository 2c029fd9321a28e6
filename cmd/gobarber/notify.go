package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gobarber/client/internal/api"
	"gobarber/client/internal/forms"
	"gobarber/client/internal/session"
)

type notification struct {
	title       string
	description string
}

var (
	noteAuthFailed = notification{
		title:       "Erro na autenticação",
		description: "Ocorreu um erro na autenticação, verifique as credenciais informadas",
	}
	noteSignedUp = notification{
		title:       "Cadastro realizado",
		description: "Você já pode fazer o seu logon",
	}
	noteSignUpFailed = noteAuthFailed
	noteForgotSent   = notification{
		title:       "E-mail de recuperação de senha",
		description: "Enviamos um email para confirmar a recuperação de senha",
	}
	noteForgotFailed = notification{
		title:       "Erro na recuperação de senha",
		description: "Ocorreu um erro na recuperação de senha, verifique as credenciais informadas",
	}
	noteResetFailed = notification{
		title:       "Erro ao resetar senha",
		description: "Ocorreu um erro ao resetar a sua senha, tente novamente",
	}
	noteProfileUpdated = notification{
		title:       "Perfil atualizado",
		description: "Suas informações foram atualizadas",
	}
	noteProfileFailed = notification{
		title:       "Erro na atualização do perfil",
		description: "Ocorreu um erro ao atualizar o perfil, tente novamente",
	}
	noteAvatarUpdated = notification{title: "Avatar atualizado"}
	noteAvatarFailed  = notification{
		title:       "Erro ao atualizar avatar",
		description: "Ocorreu um erro ao enviar o avatar, tente novamente",
	}
	noteOffline = notification{
		title:       "Servidor indisponível",
		description: "Não foi possível conectar ao servidor GoBarber, tente novamente",
	}
	noteSessionExpired = notification{
		title:       "Sessão expirada",
		description: "Faça login novamente com gobarber signin",
	}
)

const (
	msgSignInRequired  = "Faça login para continuar: gobarber signin --email ... --password ..."
	msgAlreadySignedIn = "Você já está autenticado como %s; use gobarber signout antes"
	msgSignOutFailed   = "Não foi possível encerrar a sessão"
)

func writeNotification(w io.Writer, n notification) {
	if n.description == "" {
		fmt.Fprintln(w, n.title)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", n.title, n.description)
}

func (a *app) notify(n notification) {
	writeNotification(a.stdout, n)
}

// failure reports err with the notification for the screen it happened on.
// Transport failures and rejected tokens get their own text.
func (a *app) failure(err error, n notification) int {
	a.log.Warn("command failed", slog.Any("err", err))

	var netErr *api.NetworkError
	var authErr *session.AuthenticationError
	switch {
	case errors.As(err, &netErr):
		n = noteOffline
	case api.IsUnauthorized(err) && !errors.As(err, &authErr) && a.session.Authenticated():
		n = noteSessionExpired
	}
	writeNotification(a.stderr, n)
	return exitError
}

func (a *app) fieldErrors(errs forms.FieldErrors) int {
	for _, field := range errs.Fields() {
		fmt.Fprintf(a.stderr, "%s: %s\n", field, errs[field])
	}
	return exitError
}
