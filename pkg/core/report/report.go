// Package report renders ratio, FCFF and WACC results as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"statement_metrics/pkg/core/fcff"
	"statement_metrics/pkg/core/ratios"
	"statement_metrics/pkg/core/valuation"
)

// Input is everything one report shows. Nil sections are rendered with
// their error.
type Input struct {
	Ticker    string
	Generated time.Time
	Ratios    *ratios.Report
	FCFF      *fcff.Components
	FCFFErr   error
	WACC      *valuation.Result
	WACCErr   error
}

const markdownTemplate = `# {{.Ticker}} statement metrics

_Generated {{.Generated.Format "2006-01-02 15:04 MST"}}_
{{range $fam := families}}
## {{title $fam}}

| Ratio | Value |
|---|---:|
{{range definitions $fam}}| {{.Label}} | {{ratio $.Ratios .Key}} |
{{end}}{{end}}
## Free cash flow to firm
{{if .FCFF}}
| Period | NOPAT | D&A | Capex | ΔNWC | FCFF | Tax rate |
|---|---:|---:|---:|---:|---:|---:|
{{range .FCFF.Rows}}| {{.Period}} | {{num .NOPAT}} | {{num .DA}} | {{num .CapexOut}} | {{num .DeltaNWC}} | {{num .FCFF}} | {{pct .TaxRate}} |
{{end}}
Tax rate source: {{.FCFF.TaxSource}}.
{{else}}
_Unavailable: {{errText .FCFFErr}}_
{{end}}
## Cost of capital
{{if .WACC}}
| Component | Value |
|---|---:|
| Cost of equity | {{pct .WACC.CostOfEquity}} |
| Cost of debt | {{pct .WACC.CostOfDebt}} |
| Tax rate | {{pct .WACC.TaxRate}} |
| Equity weight | {{pct .WACC.WeightEquity}} |
| Debt weight | {{pct .WACC.WeightDebt}} |
| **WACC** | **{{pct .WACC.WACC}}** |
{{else}}
_Unavailable: {{errText .WACCErr}}_
{{end}}`

var funcs = template.FuncMap{
	"families": func() []ratios.Family { return ratios.Families },
	"title": func(f ratios.Family) string {
		s := string(f)
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"definitions": func(f ratios.Family) []ratios.Definition {
		var out []ratios.Definition
		for _, d := range ratios.Definitions() {
			if d.Family == f {
				out = append(out, d)
			}
		}
		return out
	},
	"ratio":   ratioCell,
	"num":     func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pct":     func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) },
	"errText": errText,
}

var tmpl = template.Must(template.New("report").Funcs(funcs).Parse(markdownTemplate))

func ratioCell(r *ratios.Report, key string) string {
	if r == nil {
		return "n/a"
	}
	v, ok := r.Get(key)
	switch {
	case !ok:
		return "n/a"
	case !v.OK:
		return "n/a (" + v.Kind.String() + ")"
	case math.IsInf(v.Number, 1):
		return "∞"
	case math.IsInf(v.Number, -1):
		return "-∞"
	}
	return fmt.Sprintf("%.4f", v.Number)
}

func errText(err error) string {
	if err == nil {
		return "not computed"
	}
	return err.Error()
}

// Markdown renders the report document.
func Markdown(in Input) (string, error) {
	if in.Generated.IsZero() {
		in.Generated = time.Now().UTC()
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML converts Markdown to an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.String(), nil
}

// Page renders a standalone HTML page.
func Page(in Input) (string, error) {
	doc, err := Markdown(in)
	if err != nil {
		return "", err
	}
	body, err := HTML(doc)
	if err != nil {
		return "", err
	}
	return "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>" +
		template.HTMLEscapeString(in.Ticker) + " statement metrics</title></head><body>\n" +
		body + "</body></html>\n", nil
}
