package render

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/clinicbill/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/clinicbill/internal/payment/domain"
)

const receiptHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>{{.Title}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 32px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      color: #1a1f36;
      background: #ffffff;
    }
    .receipt { max-width: 720px; margin: 0 auto; }
    .header { display: flex; justify-content: space-between; margin-bottom: 24px; }
    h1 { font-size: 22px; margin: 0 0 8px; }
    .label { font-size: 11px; text-transform: uppercase; color: #8792a2; }
    .value { font-size: 14px; margin-bottom: 8px; }
    .void { color: #cd3d64; font-weight: 700; letter-spacing: 1px; }
    table { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
    th { text-align: left; font-size: 11px; color: #8792a2; border-bottom: 1px solid #e3e8ee; padding: 8px 0; }
    td { padding: 10px 0; border-bottom: 1px solid #e3e8ee; font-size: 14px; vertical-align: top; }
    .num { text-align: right; }
    .totals { margin-left: auto; width: 280px; }
    .row { display: flex; justify-content: space-between; padding: 4px 0; font-size: 14px; }
    .grand { border-top: 1px solid #e3e8ee; margin-top: 6px; padding-top: 8px; font-weight: 700; }
  </style>
</head>
<body>
  <div class="receipt">
    <div class="header">
      <div>
        <h1>{{.Title}}</h1>
        <div class="label">Invoice number</div>
        <div class="value">{{.Invoice.Number}}</div>
        <div class="label">Patient</div>
        <div class="value">{{.Invoice.PatientID}}</div>
      </div>
      <div>
        <div class="label">Issued</div>
        <div class="value">{{formatDate .Invoice.FinalizedAt}}</div>
        <div class="label">Payment status</div>
        <div class="value">{{.Invoice.PaymentStatus}}</div>
        {{if .Voided}}<div class="void">VOID</div><div class="value">{{.Invoice.VoidReason}}</div>{{end}}
      </div>
    </div>

    <table>
      <thead>
        <tr>
          <th style="width: 50%;">Description</th>
          <th class="num">Qty</th>
          <th class="num">Price</th>
          <th class="num">Discount</th>
          <th class="num">Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td>{{if .Description}}{{.Description}}{{else}}{{.Type}}{{end}}</td>
          <td class="num">{{formatQuantity .Quantity}}</td>
          <td class="num">{{formatMoney .UnitPrice $.Invoice.Currency}}</td>
          <td class="num">{{formatMoney .Discount $.Invoice.Currency}}</td>
          <td class="num">{{formatMoney .Subtotal $.Invoice.Currency}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      <div class="row"><span>Line total</span><span>{{formatMoney .Invoice.LineSum .Invoice.Currency}}</span></div>
      <div class="row"><span>Discount</span><span>{{formatMoney .Invoice.InvoiceDiscount .Invoice.Currency}}</span></div>
      <div class="row"><span>Service charge</span><span>{{formatMoney .Invoice.ServiceChargeAmount .Invoice.Currency}}</span></div>
      <div class="row"><span>Tax</span><span>{{formatMoney .Invoice.TaxAmount .Invoice.Currency}}</span></div>
      <div class="row grand"><span>Total</span><span>{{formatMoney .Invoice.TotalAmount .Invoice.Currency}}</span></div>
      <div class="row"><span>Paid</span><span>{{formatMoney .Invoice.PaidAmount .Invoice.Currency}}</span></div>
      {{if .Invoice.RefundedAmount.IsPositive}}<div class="row"><span>Refunded</span><span>{{formatMoney .Invoice.RefundedAmount .Invoice.Currency}}</span></div>{{end}}
      <div class="row grand"><span>Amount due</span><span>{{formatMoney .Invoice.AmountDue .Invoice.Currency}}</span></div>
    </div>

    {{if .Payments}}
    <table>
      <thead>
        <tr><th>Date</th><th>Type</th><th>Method</th><th class="num">Amount</th></tr>
      </thead>
      <tbody>
        {{range .Payments}}
        <tr>
          <td>{{formatDate .PaidAt}}</td>
          <td>{{.Type}}</td>
          <td>{{.Method}}</td>
          <td class="num">{{formatMoney .Amount .Currency}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </div>
</body>
</html>
`

// ReceiptInput is everything printed on a receipt.
type ReceiptInput struct {
	Title    string
	Invoice  invoicedomain.Invoice
	Items    []invoicedomain.InvoiceItem
	Payments []paymentdomain.InvoicePayment
}

type receiptView struct {
	ReceiptInput
	Voided bool
}

type Renderer interface {
	RenderReceipt(input ReceiptInput) (string, error)
}

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"formatMoney":    formatMoney,
		"formatDate":     formatDate,
		"formatQuantity": formatQuantity,
	}
	return &HTMLRenderer{
		tpl: template.Must(template.New("receipt").Funcs(funcs).Parse(receiptHTMLTemplate)),
	}
}

// RenderReceipt renders a final or void invoice. Drafts have no number and
// are rejected with ErrInvoiceNotPrintable.
func (r *HTMLRenderer) RenderReceipt(input ReceiptInput) (string, error) {
	if input.Invoice.DocStatus == invoicedomain.DocStatusDraft {
		return "", invoicedomain.ErrInvoiceNotPrintable
	}
	if strings.TrimSpace(input.Title) == "" {
		input.Title = "Invoice " + input.Invoice.Number()
	}

	var buf bytes.Buffer
	view := receiptView{
		ReceiptInput: input,
		Voided:       input.Invoice.DocStatus == invoicedomain.DocStatusVoid,
	}
	if err := r.tpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatMoney(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	return currency + " " + amount.StringFixed(2)
}

// formatDate accepts time.Time or *time.Time.
func formatDate(value any) string {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v != nil {
			t = *v
		}
	}
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

func formatQuantity(value decimal.Decimal) string {
	return value.String()
}
