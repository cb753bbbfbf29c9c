package email

import (
	"bytes"
	"fmt"
	"mime"
	"time"

	"greendrake/estate/internal/models"
)

// InvoiceSubject is the subject line of an invoice email.
func InvoiceSubject(inv *models.Invoice) string {
	return fmt.Sprintf("Invoice %s", inv.InvoiceNumber)
}

// ComposeInvoice builds the plain-text message sent to the invoiced partner.
func ComposeInvoice(from string, to *models.Partner, inv *models.Invoice, propertyName string) (string, []byte) {
	subject := InvoiceSubject(inv)

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", mime.QEncoding.Encode("utf-8", to.Name)+" <"+to.Email+">")
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")

	fmt.Fprintf(&b, "Dear %s,\r\n\r\n", to.Name)
	if propertyName != "" {
		fmt.Fprintf(&b, "Please find below invoice %s for the sale of %s.\r\n\r\n", inv.InvoiceNumber, propertyName)
	} else {
		fmt.Fprintf(&b, "Please find below invoice %s.\r\n\r\n", inv.InvoiceNumber)
	}
	for _, item := range inv.Items {
		fmt.Fprintf(&b, "  %-40s %8.2f x %12.2f = %12.2f\r\n", item.Name, item.Quantity, item.PriceUnit, item.Amount)
	}
	fmt.Fprintf(&b, "\r\nTotal: %.2f %s\r\n", inv.Total, inv.CurrencyCode)
	fmt.Fprintf(&b, "Due by: %s\r\n", inv.DueAt.Format("2006-01-02"))
	return subject, b.Bytes()
}
