package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

const (
	SubjectVerification  = "Tu código de verificación"
	SubjectPasswordReset = "Tu código para resetear la contraseña"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type codeView struct {
	Code    string
	Minutes int
}

func minutes(d time.Duration) int {
	m := int(d.Round(time.Minute) / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

func render(name string, v codeView) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// VerificationCodeMessage is sent when someone asks to prove ownership of an
// address before registering.
func VerificationCodeMessage(to, code string, ttl time.Duration) (Message, error) {
	v := codeView{Code: code, Minutes: minutes(ttl)}
	html, err := render("verification_code.html", v)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: SubjectVerification,
		HTML:    html,
		Text: fmt.Sprintf("Tu código de verificación es %s. Este código expirará en %d minutos.\n"+
			"Si no solicitaste esto, por favor ignora este correo.\n", code, v.Minutes),
	}, nil
}

func PasswordResetMessage(to, code string, ttl time.Duration) (Message, error) {
	v := codeView{Code: code, Minutes: minutes(ttl)}
	html, err := render("password_reset.html", v)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: SubjectPasswordReset,
		HTML:    html,
		Text: fmt.Sprintf("Usa el siguiente código para resetear tu contraseña: %s. Este código expirará en %d minutos.\n"+
			"Si no solicitaste esto, por favor ignora este correo.\n", code, v.Minutes),
	}, nil
}
