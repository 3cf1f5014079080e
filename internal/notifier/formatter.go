package notifier

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"VolSentinel/internal/calculator"
	"VolSentinel/internal/model"
)

// FormatFetchReport summarises one fetch run: bar counts per series, the
// volatility premium and the files written.
func FormatFetchReport(equity, volIndex *model.PriceSeries, premium *model.PremiumSummary, files []string, errs []error) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📥 <b>VolSentinel fetch</b> | %s\n\n", time.Now().Format("2006-01-02")))

	for _, s := range []*model.PriceSeries{equity, volIndex} {
		if s == nil || s.Len() == 0 {
			continue
		}
		last := s.Bars[s.Len()-1]
		b.WriteString(fmt.Sprintf("%s: %d bars, last close %.2f (%s)\n",
			html.EscapeString(s.Symbol), s.Len(), last.Close, last.Time.Format("2006-01-02")))
		if n := len(s.RealizedVol); n > 0 && s.RealizedVol[n-1].Valid {
			b.WriteString(fmt.Sprintf("  realized vol (21d): %.2f%%\n", s.RealizedVol[n-1].Float64))
		}
	}

	if premium != nil {
		b.WriteString("\n")
		b.WriteString(FormatPremiumSummary(*premium))
	}

	if len(files) > 0 {
		b.WriteString("\n💾 <b>Files</b>\n")
		for _, f := range files {
			b.WriteString("  " + html.EscapeString(filepath.Base(f)) + "\n")
		}
	}
	if len(errs) > 0 {
		b.WriteString("\n⚠️ <b>Errors</b>\n")
		for _, err := range errs {
			b.WriteString("  " + html.EscapeString(err.Error()) + "\n")
		}
	}
	return b.String()
}

// FormatPremiumSummary formats realized-minus-implied volatility statistics.
func FormatPremiumSummary(s model.PremiumSummary) string {
	var b strings.Builder
	b.WriteString("📊 <b>Volatility premium</b> (realized − index)\n")
	if s.Count == 0 {
		b.WriteString("  no overlapping observations\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("  latest: %+.2f (%s)\n", s.Latest, s.LatestDate.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("  mean: %+.2f | std: %.2f\n", s.Mean, s.StdDev))
	b.WriteString(fmt.Sprintf("  min: %+.2f | max: %+.2f | n=%d\n", s.Min, s.Max, s.Count))
	return b.String()
}

// FormatVolatilityReport lists the latest row of an estimator table.
func FormatVolatilityReport(source string, date time.Time, readings []calculator.Reading) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Volatility</b> | %s | %s\n\n", html.EscapeString(source), date.Format("2006-01-02")))
	if len(readings) == 0 {
		b.WriteString("no values\n")
		return b.String()
	}
	for _, r := range readings {
		switch r.Column {
		case calculator.ColClose:
			b.WriteString(fmt.Sprintf("Close: %.2f\n", r.Value))
		case calculator.ColDailyReturn:
			b.WriteString(fmt.Sprintf("Log return: %+.4f\n", r.Value))
		default:
			b.WriteString(fmt.Sprintf("%s: %.2f%%\n", strings.TrimSuffix(r.Column, "_Vol"), r.Value))
		}
	}
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "🤖 <b>VolSentinel</b>\n\n" +
		"/fetch - fetch prices now and report\n" +
		"/premium - latest volatility premium\n" +
		"/help - this message\n"
}
