// Package templates renders reminder content for each escalation stage. The
// email copy is keyed by a coarser template level than the five collections
// stages: several stages deliberately share the day30 final-notice wording.
package templates

import (
	"fmt"
	"strings"

	"recoup/backend/internal/domain"
	"recoup/backend/internal/interest"
	"recoup/backend/internal/money"
)

// TemplateLevel selects the email copy variant.
type TemplateLevel string

const (
	Day5  TemplateLevel = "day5"
	Day15 TemplateLevel = "day15"
	Day30 TemplateLevel = "day30"
)

// LevelFor maps an escalation stage to its template level. Many-to-one on
// purpose: final and agency share the strongest wording.
func LevelFor(level domain.EscalationLevel) TemplateLevel {
	switch level {
	case domain.LevelFirm:
		return Day15
	case domain.LevelFinal, domain.LevelAgency:
		return Day30
	default:
		return Day5
	}
}

// Content is the rendered reminder for one invoice.
type Content struct {
	TemplateLevel TemplateLevel
	Subject       string
	EmailBody     string
	SMSBody       string
}

type Engine struct {
	businessName string
}

func NewEngine(businessName string) *Engine {
	if businessName == "" {
		businessName = "Recoup"
	}
	return &Engine{businessName: businessName}
}

// Render produces the reminder content for an invoice at an escalation
// stage, embedding the current statutory interest breakdown.
func (e *Engine) Render(level domain.EscalationLevel, invoice domain.Invoice, calc interest.Calculation) Content {
	tl := LevelFor(level)
	amount := money.FormatGBPPence(invoice.AmountPence)
	due := invoice.DueDate.Format("2 January 2006")

	var subject string
	var body strings.Builder

	switch tl {
	case Day15:
		subject = fmt.Sprintf("Second Notice: Invoice #%s - %s overdue", invoice.InvoiceNumber, amount)
		fmt.Fprintf(&body, "Dear %s,\n\n", invoice.ClientName)
		fmt.Fprintf(&body, "Invoice #%s for %s was due on %s and remains unpaid after %d days.\n\n",
			invoice.InvoiceNumber, amount, due, calc.DaysOverdue)
		fmt.Fprintf(&body, "Under the Late Payment of Commercial Debts (Interest) Act 1998, statutory interest and recovery costs now apply:\n\n%s\n\n",
			interest.Format(calc))
		body.WriteString("Please arrange payment promptly to prevent further interest accruing.\n")

	case Day30:
		subject = fmt.Sprintf("FINAL NOTICE: Invoice #%s - immediate payment required", invoice.InvoiceNumber)
		fmt.Fprintf(&body, "Dear %s,\n\n", invoice.ClientName)
		fmt.Fprintf(&body, "Despite previous reminders, invoice #%s for %s (due %s) is now %d days overdue.\n\n",
			invoice.InvoiceNumber, amount, due, calc.DaysOverdue)
		fmt.Fprintf(&body, "%s\n\n", interest.Format(calc))
		body.WriteString("Unless full payment is received within 7 days, this debt will be referred to a collections agency without further notice.\n")
		body.WriteString("Even at this late stage, a payment plan can still be arranged if you contact us within 24 hours.\n")

	default:
		subject = fmt.Sprintf("Payment Reminder - Invoice #%s - %s", invoice.InvoiceNumber, amount)
		fmt.Fprintf(&body, "Dear %s,\n\n", invoice.ClientName)
		body.WriteString("I hope this message finds you well.\n\n")
		fmt.Fprintf(&body, "This is a friendly reminder that invoice #%s for %s was due on %s.\n\n",
			invoice.InvoiceNumber, amount, due)
		body.WriteString("We understand that sometimes payments slip through the cracks. If you've already sent payment, please disregard this message.\n")
	}

	fmt.Fprintf(&body, "\nKind regards,\n%s\n", e.businessName)

	return Content{
		TemplateLevel: tl,
		Subject:       subject,
		EmailBody:     body.String(),
		SMSBody:       e.renderSMS(tl, invoice, calc),
	}
}

func (e *Engine) renderSMS(tl TemplateLevel, invoice domain.Invoice, calc interest.Calculation) string {
	amount := money.FormatGBPPence(invoice.AmountPence)
	switch tl {
	case Day30:
		return fmt.Sprintf("FINAL NOTICE: invoice #%s (%s) is %d days overdue. Total owed incl. statutory interest: %s. Pay now to avoid agency referral. - %s",
			invoice.InvoiceNumber, amount, calc.DaysOverdue, money.FormatGBP(calc.TotalOwed), e.businessName)
	case Day15:
		return fmt.Sprintf("Reminder: invoice #%s (%s) is %d days overdue. Statutory interest is now accruing at %s/day. - %s",
			invoice.InvoiceNumber, amount, calc.DaysOverdue, money.FormatGBP(calc.DailyInterest), e.businessName)
	default:
		return fmt.Sprintf("Reminder: invoice #%s for %s was due on %s. - %s",
			invoice.InvoiceNumber, amount, invoice.DueDate.Format("02/01/2006"), e.businessName)
	}
}
