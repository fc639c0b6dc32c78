// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// # Subjects

const (
	SubjectOTP         = "Your Verification Code is Here!"
	SubjectVerifyEmail = "Verify Your Email Address"
	SubjectTOTPEnabled = "🎉 Two-Factor Authentication Enabled Successfully!"
)

// # Templates

const layout = `{{define "layout"}}<!doctype html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>{{template "title" .}}</title>
    <style>
      body { font-family: Arial, sans-serif; background-color: #f0f4ff; margin: 0; padding: 0; line-height: 1.5; }
      .container { max-width: 600px; margin: 20px auto; background-color: #ffffff; border-radius: 8px; }
      .header { background-color: #007bff; color: #ffffff; padding: 20px; text-align: center; }
      .content { padding: 30px; text-align: center; }
      .otp { font-size: 36px; font-weight: bold; color: #007bff; margin: 20px 0; padding: 10px 20px; display: inline-block; border: 2px solid #007bff; border-radius: 5px; }
      .button { display: inline-block; padding: 12px 24px; background-color: #007bff; color: #ffffff; border-radius: 5px; text-decoration: none; }
      .footer { background-color: #f0f4ff; text-align: center; padding: 15px; font-size: 12px; color: #777777; }
    </style>
  </head>
  <body>
    <div class="container">
      <div class="header"><h1>{{template "title" .}}</h1></div>
      <div class="content">{{template "content" .}}</div>
      <div class="footer"><p>If you did not request this, you can safely ignore this email.</p></div>
    </div>
  </body>
</html>{{end}}`

const otpBody = `{{define "title"}}Your Verification Code{{end}}
{{define "content"}}
  <p>Use the code below to continue. It expires in 5 minutes.</p>
  <div class="otp">{{.Code}}</div>
  <p>Never share this code with anyone.</p>
{{end}}`

const verifyBody = `{{define "title"}}Verify Your Email{{end}}
{{define "content"}}
  <p>Click the button below to confirm your email address. The link expires in 5 minutes.</p>
  <p><a class="button" href="{{.Link}}">Verify Email</a></p>
  <p>Or paste this link into your browser:<br />{{.Link}}</p>
{{end}}`

const totpEnabledBody = `{{define "title"}}Two-Factor Authentication Enabled{{end}}
{{define "content"}}
  <p>Hi {{.FirstName}},</p>
  <p>Authenticator-app two-factor authentication is now active on your account.
  You will be asked for a code from your app the next time you sign in.</p>
  <p>If this wasn't you, reset your password immediately.</p>
{{end}}`

var (
	otpTemplate         = template.Must(template.Must(template.New("otp").Parse(layout)).Parse(otpBody))
	verifyTemplate      = template.Must(template.Must(template.New("verify").Parse(layout)).Parse(verifyBody))
	totpEnabledTemplate = template.Must(template.Must(template.New("totp").Parse(layout)).Parse(totpEnabledBody))
)

func render(tmpl *template.Template, data any) (string, error) {
	var buffer bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buffer, "layout", data); err != nil {
		return "", fmt.Errorf("mailer: render %s: %w", tmpl.Name(), err)
	}
	return buffer.String(), nil
}

// RenderOTP returns the body of the one-time code email.
func RenderOTP(code string) (string, error) {
	return render(otpTemplate, struct{ Code string }{code})
}

// RenderVerificationLink returns the body of the email verification message.
func RenderVerificationLink(link string) (string, error) {
	return render(verifyTemplate, struct{ Link string }{link})
}

// RenderTOTPEnabled returns the body of the enrolment notice.
func RenderTOTPEnabled(firstName string) (string, error) {
	return render(totpEnabledTemplate, struct{ FirstName string }{firstName})
}
