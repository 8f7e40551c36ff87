package billing

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"text/tabwriter"
	"time"
)

// DefaultCurrency is the symbol printed before amounts when none is configured.
const DefaultCurrency = "₹"

// Receipt is a printable snapshot of a bill.
type Receipt struct {
	Title    string
	Currency string
	IssuedAt time.Time
	Lines    []Line
	Total    float64
}

func NewReceipt(title, currency string, lines []Line) Receipt {
	if title == "" {
		title = "Current Bill"
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	cp := make([]Line, len(lines))
	copy(cp, lines)
	return Receipt{
		Title:    title,
		Currency: currency,
		IssuedAt: time.Now(),
		Lines:    cp,
		Total:    Total(cp),
	}
}

// Money renders an amount with the receipt currency. Rounding happens here only.
func (r Receipt) Money(v float64) string {
	return r.Currency + strconv.FormatFloat(v, 'f', 2, 64)
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<html>
  <head>
    <title>{{.Title}}</title>
    <style>
      body { font-family: Arial; padding: 20px; }
      table { width: 100%; border-collapse: collapse; margin-top: 16px; }
      th, td { border: 1px solid #000; padding: 8px; }
      h2 { text-align: center; }
    </style>
  </head>
  <body>
    <h2>{{.Title}}</h2>
    <table>
      <thead>
        <tr><th>Name</th><th>Price</th><th>Quantity</th><th>Amount</th></tr>
      </thead>
      <tbody>
{{- range .Lines}}
        <tr><td>{{.Name}}</td><td>{{$.Money .Price}}</td><td>{{.Quantity}}</td><td>{{$.Money .Amount}}</td></tr>
{{- end}}
      </tbody>
    </table>
    <p style="margin-top: 20px; font-weight: bold;">Total: {{.Money .Total}}</p>
  </body>
</html>
`))

// WriteHTML renders the receipt as a printable page.
func (r Receipt) WriteHTML(w io.Writer) error {
	return receiptTemplate.Execute(w, r)
}

// WriteText renders the receipt as aligned plain text.
func (r Receipt) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t\t\t\n", r.Title)
	fmt.Fprintf(tw, "%s\t\t\t\n", r.IssuedAt.Format("2006-01-02 15:04"))
	fmt.Fprintln(tw, "Name\tPrice\tQty\tAmount")
	for _, l := range r.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", l.Name, r.Money(l.Price), l.Quantity, r.Money(l.Amount()))
	}
	fmt.Fprintf(tw, "Total\t\t\t%s\n", r.Money(r.Total))
	return tw.Flush()
}
