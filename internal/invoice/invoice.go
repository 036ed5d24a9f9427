package invoice

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/primadev/licensehub/internal/license"
)

var months = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// Renderer draws paid-invoice PDFs for issued licenses.
type Renderer struct {
	brand    string
	tagline  string
	item     string
	location *time.Location
	printer  *message.Printer
}

type Options struct {
	Brand    string
	Tagline  string
	Item     string // line item shown when the license carries no app name
	Location *time.Location
}

func NewRenderer(opts Options) *Renderer {
	if opts.Brand == "" {
		opts.Brand = "PRIMADEV"
	}

	if opts.Tagline == "" {
		opts.Tagline = "Software Solutions"
	}

	if opts.Item == "" {
		opts.Item = "Lisensi Aplikasi"
	}

	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Renderer{
		brand:    opts.Brand,
		tagline:  opts.Tagline,
		item:     opts.Item,
		location: opts.Location,
		printer:  message.NewPrinter(language.Indonesian),
	}
}

// Number derives the invoice number from a license key.
func Number(key string) string {
	code := strings.ReplaceAll(strings.TrimPrefix(key, license.KeyPrefix+"-"), "-", "")
	if len(code) > 8 {
		code = code[:8]
	}

	return "INV-" + strings.ToUpper(code)
}

// FormatIDR formats an amount in rupiah with Indonesian digit grouping.
func (r *Renderer) FormatIDR(amount int64) string {
	return r.printer.Sprintf("Rp %d", amount)
}

func (r *Renderer) formatDate(t time.Time) string {
	t = t.In(r.location)
	return fmt.Sprintf("%d %s %d", t.Day(), months[t.Month()-1], t.Year())
}

// Render writes the invoice for lic to w.
func (r *Renderer) Render(w io.Writer, lic *license.License) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(Number(lic.Key), true)
	pdf.SetAuthor(r.brand, true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTextColor(79, 70, 229)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.Text(50, 70, r.brand)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(50, 90, r.tagline)

	pdf.SetFont("Helvetica", "", 20)
	pdf.SetXY(400, 50)
	pdf.CellFormat(150, 24, "INVOICE", "", 0, "R", false, 0, "")

	pdf.TransformBegin()
	pdf.TransformRotate(10, 520, 95)
	pdf.SetDrawColor(34, 197, 94)
	pdf.SetLineWidth(2)
	pdf.Rect(480, 80, 80, 30, "D")
	pdf.SetTextColor(34, 197, 94)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(480, 80)
	pdf.CellFormat(80, 30, "PAID", "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetDrawColor(226, 232, 240)
	pdf.SetLineWidth(1)
	pdf.Line(50, 130, 550, 130)

	const top = 150.0

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 116, 139)
	pdf.Text(50, top+10, "Ditagihkan Kepada:")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(50, top+25, tr(orDefault(lic.Name, "Pelanggan")))

	pdf.SetFont("Helvetica", "", 9)
	pdf.Text(50, top+40, tr(orDefault(lic.Email, "-")))

	paid := lic.CreatedAt
	if lic.LastRenewalDate != nil {
		paid = *lic.LastRenewalDate
	}

	if paid.IsZero() {
		paid = time.Now()
	}

	details := [][2]string{
		{"No. Invoice:", Number(lic.Key)},
		{"Tanggal Bayar:", r.formatDate(paid)},
		{"Metode Bayar:", orDefault(lic.PaymentMethod, "Transfer")},
		{"Transaction ID:", orDefault(lastTransaction(lic), "-")},
	}

	for i, d := range details {
		y := top + float64(i)*15

		pdf.SetTextColor(100, 116, 139)
		pdf.SetXY(350, y)
		pdf.CellFormat(80, 12, d[0], "", 0, "L", false, 0, "")

		pdf.SetTextColor(0, 0, 0)
		pdf.SetXY(430, y)
		pdf.CellFormat(120, 12, tr(d[1]), "", 0, "R", false, 0, "")
	}

	const tableTop = 240.0

	pdf.SetFillColor(241, 245, 249)
	pdf.Rect(50, tableTop, 500, 25, "F")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(60, tableTop+16, "DESKRIPSI")
	pdf.Text(300, tableTop+16, "TIPE")
	pdf.SetXY(400, tableTop)
	pdf.CellFormat(140, 25, "HARGA", "", 0, "R", false, 0, "")

	const itemY = tableTop + 35

	item := r.item
	if lic.AppName != "" {
		item = "Lisensi " + lic.AppName
	}

	price := r.FormatIDR(lic.Price)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Text(60, itemY+10, tr(item))
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 116, 139)
	pdf.Text(60, itemY+25, "License Key: "+lic.Key)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(300, itemY+10, strings.ToUpper(orDefault(string(lic.Type), "Standard")))
	pdf.SetXY(400, itemY)
	pdf.CellFormat(140, 12, price, "", 0, "R", false, 0, "")

	pdf.Line(50, itemY+35, 550, itemY+35)

	const totalY = itemY + 50

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(300, totalY+12, "TOTAL LUNAS")
	pdf.SetTextColor(34, 197, 94)
	pdf.SetXY(400, totalY)
	pdf.CellFormat(140, 16, price, "", 0, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(148, 163, 184)
	pdf.SetXY(50, 700)
	pdf.CellFormat(500, 12, "Bukti pembayaran ini sah dan diterbitkan secara otomatis oleh sistem.", "", 2, "C", false, 0, "")
	pdf.CellFormat(500, 12, "Terima kasih atas kepercayaan Anda.", "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing invoice pdf: %w", err)
	}

	return nil
}

func lastTransaction(lic *license.License) string {
	if lic.LastTransactionID != "" {
		return lic.LastTransactionID
	}

	return lic.TransactionID
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
