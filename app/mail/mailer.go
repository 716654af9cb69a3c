package mail

import (
	"bytes"
	"context"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/vibast-solutions/ms-go-course/app/entity"
	"github.com/vibast-solutions/ms-go-course/config"
)

const (
	confirmationSubject  = "Confirm your email address"
	passwordResetSubject = "Reset your password"
)

var (
	confirmationText = texttemplate.Must(texttemplate.New("confirmation").Parse(
		`Hi {{.FirstName}},

Thanks for signing up for {{.Course}}. Confirm your email address by opening the link below:

{{.Link}}

If you did not create an account you can ignore this message.
`))

	confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation").Parse(
		`<p>Hi {{.FirstName}},</p>
<p>Thanks for signing up for {{.Course}}. Confirm your email address by clicking the button below.</p>
<p><a href="{{.Link}}">Confirm email</a></p>
<p>If you did not create an account you can ignore this message.</p>
`))

	passwordResetText = texttemplate.Must(texttemplate.New("reset").Parse(
		`Hi {{.FirstName}},

We received a request to reset your password. Open the link below to choose a new one:

{{.Link}}

The link expires in {{.ExpiresIn}}. If you did not ask for a reset you can ignore this message.
`))

	passwordResetHTML = htmltemplate.Must(htmltemplate.New("reset").Parse(
		`<p>Hi {{.FirstName}},</p>
<p>We received a request to reset your password. Click the button below to choose a new one.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>The link expires in {{.ExpiresIn}}. If you did not ask for a reset you can ignore this message.</p>
`))
)

type templateData struct {
	FirstName string
	Course    string
	Link      string
	ExpiresIn string
}

// Mailer renders account mails and hands them to a Sender.
type Mailer struct {
	sender      Sender
	frontendURL string
	courseTitle string
}

func NewMailer(sender Sender, cfg *config.Config) *Mailer {
	return &Mailer{
		sender:      sender,
		frontendURL: strings.TrimRight(cfg.Mail.FrontendURL, "/"),
		courseTitle: cfg.Course.Title,
	}
}

func (m *Mailer) SendConfirmation(ctx context.Context, user *entity.User, token string) error {
	data := templateData{
		FirstName: user.FirstName,
		Course:    m.courseTitle,
		Link:      m.link("/confirm-email", token),
	}
	return m.send(ctx, user, confirmationSubject, confirmationText, confirmationHTML, data)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, user *entity.User, token string, ttl time.Duration) error {
	data := templateData{
		FirstName: user.FirstName,
		Course:    m.courseTitle,
		Link:      m.link("/reset-password", token),
		ExpiresIn: ttl.String(),
	}
	return m.send(ctx, user, passwordResetSubject, passwordResetText, passwordResetHTML, data)
}

func (m *Mailer) link(path, token string) string {
	return m.frontendURL + path + "?token=" + url.QueryEscape(token)
}

func (m *Mailer) send(
	ctx context.Context,
	user *entity.User,
	subject string,
	text *texttemplate.Template,
	html *htmltemplate.Template,
	data templateData,
) error {
	var plain, rich bytes.Buffer
	if err := text.Execute(&plain, data); err != nil {
		return err
	}
	if err := html.Execute(&rich, data); err != nil {
		return err
	}

	return m.sender.Send(ctx, Message{
		To:        user.Email,
		ToName:    strings.TrimSpace(user.FirstName + " " + user.LastName),
		Subject:   subject,
		PlainText: plain.String(),
		HTML:      rich.String(),
	})
}
