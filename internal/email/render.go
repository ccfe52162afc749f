package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("email").Funcs(emailTemplateFuncs()).ParseFS(templateFS, "templates/*.html"),
)

// magicLinkEmail builds the portal sign-in message.
func magicLinkEmail(to, link string, expiresAt time.Time, now time.Time) (*Email, error) {
	minutes := int(expiresAt.Sub(now).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	data := map[string]any{
		"Link":    link,
		"Minutes": minutes,
		"Company": DefaultFromName,
	}
	html, err := renderTemplate("magic_link.html", data)
	if err != nil {
		return nil, fmt.Errorf("render magic link email: %w", err)
	}

	text := fmt.Sprintf(`Hello,

Use the link below to sign in to your %s customer portal:

%s

This link expires in %d minutes and can be used once.

If you did not ask to sign in, you can ignore this email.
`, DefaultFromName, link, minutes)

	return &Email{
		To:       to,
		Subject:  "Your sign-in link",
		HTMLBody: html,
		TextBody: text,
	}, nil
}

// receiptEmail builds the payment confirmation message.
func receiptEmail(to string, data ReceiptData) (*Email, error) {
	amount := formatAmount(data.AmountCents, data.Currency)
	vars := map[string]any{
		"InvoiceNumber": data.InvoiceNumber,
		"Amount":        amount,
		"PaidAt":        data.PaidAt.Format("January 2, 2006"),
		"Company":       DefaultFromName,
	}
	html, err := renderTemplate("payment_receipt.html", vars)
	if err != nil {
		return nil, fmt.Errorf("render receipt email: %w", err)
	}

	text := fmt.Sprintf(`Thank you for your payment.

Invoice: %s
Amount: %s
Date: %s

%s
`, data.InvoiceNumber, amount, vars["PaidAt"], DefaultFromName)

	return &Email{
		To:       to,
		Subject:  fmt.Sprintf("Payment received for invoice %s", data.InvoiceNumber),
		HTMLBody: html,
		TextBody: text,
	}, nil
}

func renderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatAmount renders cents as "$12.34". Non-USD currencies get a code suffix.
func formatAmount(cents int64, currency string) string {
	s := fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	if currency != "" && !strings.EqualFold(currency, "usd") {
		s += " " + strings.ToUpper(currency)
	}
	return s
}

func emailTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"currentYear": func() int {
			return time.Now().Year()
		},
	}
}
