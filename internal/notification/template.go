package notification

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

// DefaultClientName is used when a client has no display name.
const DefaultClientName = "Cliente estimado"

// subjectPrefix starts every renewal reminder subject.
const subjectPrefix = "Aviso Importante: Renovación de Servicio - "

// ReminderDateLayout is the dd/MM/yyyy layout shown to clients.
const ReminderDateLayout = "02/01/2006"

// Reminder is the data rendered into a renewal reminder email.
type Reminder struct {
	ClientName  string
	ServiceName string
	RenewalDate time.Time
}

type reminderView struct {
	ClientName  string
	ServiceName string
	Date        string
	Year        int
}

var reminderHTML = htmltemplate.Must(htmltemplate.New("reminder").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1.0">
  <title>Renovación de servicio</title>
</head>
<body style="margin:0;padding:40px;background-color:#f5f5f5;font-family:sans-serif;">
  <table width="600" cellpadding="0" cellspacing="0" role="presentation" align="center"
         style="max-width:600px;width:100%;background-color:#ffffff;border-radius:8px;overflow:hidden;">
    <tr>
      <td style="background-color:#0a0a0a;padding:20px;text-align:center;">
        <img src="https://files.cdn-files-a.com/uploads/9116689/normal_68a01b0de6286.png"
             alt="MM Design Web" style="height:50px;">
      </td>
    </tr>
    <tr>
      <td style="padding:30px;color:#333333;">
        <h1 style="font-size:24px;margin:0 0 20px 0;color:#000000;">Hola {{.ClientName}},</h1>
        <p style="font-size:16px;line-height:1.5;margin:0 0 20px 0;">Esperamos que estés muy bien.</p>
        <p style="font-size:16px;line-height:1.5;margin:0 0 20px 0;">
          Te escribimos para recordarte que tu servicio de <strong>{{.ServiceName}}</strong> vence próximamente.
        </p>
        <div style="background-color:#f9f9f9;border-left:4px solid #8B0000;padding:15px;margin-bottom:20px;">
          <p style="margin:0;font-size:14px;color:#666666;">Fecha de Vencimiento:</p>
          <p style="margin:5px 0 0 0;font-size:18px;font-weight:bold;">{{.Date}}</p>
        </div>
        <p style="font-size:16px;line-height:1.5;margin:0 0 20px 0;">
          Por favor, contáctanos para gestionar la renovación a tiempo y evitar interrupciones en el servicio.
        </p>
        <p style="font-size:16px;line-height:1.5;margin:0;">
          Un saludo,<br><strong>El equipo de MM Design Web</strong>
        </p>
      </td>
    </tr>
    <tr>
      <td style="background-color:#f0f0f0;padding:15px;text-align:center;font-size:12px;color:#888888;">
        &copy; {{.Year}} MM Design Web. Todos los derechos reservados.
      </td>
    </tr>
  </table>
</body>
</html>
`))

var reminderText = texttemplate.Must(texttemplate.New("reminder").Parse(`Hola {{.ClientName}},

Esperamos que estés muy bien.

Te escribimos para recordarte que tu servicio de {{.ServiceName}} vence próximamente.

Fecha de Vencimiento: {{.Date}}

Por favor, contáctanos para gestionar la renovación a tiempo y evitar interrupciones en el servicio.

Un saludo,
El equipo de MM Design Web
`))

// ReminderSubject returns the subject line for a reminder to clientName.
func ReminderSubject(clientName string) string {
	return subjectPrefix + displayClientName(clientName)
}

// FormatReminderDate formats a renewal date as dd/MM/yyyy.
func FormatReminderDate(d time.Time) string {
	return d.Format(ReminderDateLayout)
}

// NewReminderMessage renders r into a Message addressed to to. The year in
// the footer is taken from now.
func NewReminderMessage(to string, r Reminder, now time.Time) (Message, error) {
	view := reminderView{
		ClientName:  displayClientName(r.ClientName),
		ServiceName: r.ServiceName,
		Date:        FormatReminderDate(r.RenewalDate),
		Year:        now.Year(),
	}

	var text, html bytes.Buffer
	if err := reminderText.Execute(&text, view); err != nil {
		return Message{}, fmt.Errorf("rendering reminder text: %w", err)
	}
	if err := reminderHTML.Execute(&html, view); err != nil {
		return Message{}, fmt.Errorf("rendering reminder html: %w", err)
	}

	return Message{
		To:      []string{to},
		Subject: ReminderSubject(r.ClientName),
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}

func displayClientName(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultClientName
	}
	return name
}

// TestSubject is the subject of the sample email used to verify delivery.
const TestSubject = "Prueba de Sistema de Notificaciones - MM Design Web"

// NewTestMessage renders a sample reminder for a fictitious client, dated a
// week after now, with the test subject.
func NewTestMessage(to string, now time.Time) (Message, error) {
	msg, err := NewReminderMessage(to, Reminder{
		ClientName:  "Cliente de Prueba",
		ServiceName: "Mantenimiento Premium",
		RenewalDate: now.AddDate(0, 0, 7),
	}, now)
	if err != nil {
		return Message{}, err
	}
	msg.Subject = TestSubject
	return msg, nil
}
