package report

import (
	"fmt"
	"strings"

	"gouplift/domain/run"
	"gouplift/domain/uplift"
)

// Markdown renders the run as a Markdown summary: manifest, balance,
// significance tables, then one section per uplift pair.
func Markdown(r *run.Report) string {
	var b strings.Builder
	m := r.Manifest

	fmt.Fprintf(&b, "# Uplift run %s\n\n", m.RunID)
	b.WriteString("| Parameter | Value |\n|---|---|\n")
	mdRow(&b, "Fingerprint", string(m.Fingerprint))
	mdRow(&b, "Data source", m.DataSource)
	mdRow(&b, "Records", fmt.Sprint(m.RecordCount))
	mdRow(&b, "Outcome", string(m.Outcome))
	mdRow(&b, "Seed", fmt.Sprint(m.Seed))
	mdRow(&b, "Train fraction", num(m.TrainFraction, 2))
	mdRow(&b, "Bootstrap", fmt.Sprintf("B=%d, seed %d", m.BootstrapResamples, m.BootstrapSeed))
	mdRow(&b, "Classifier", m.Classifier)
	mdRow(&b, "Margin per conversion", money(m.Economics.MarginPerConversion))
	mdRow(&b, "Cost per email", money(m.Economics.CostPerEmail))
	mdRow(&b, "Created", m.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	mdRow(&b, "Failures", fmt.Sprint(r.FailureCount()))
	b.WriteString("\n")

	if r.Balance != nil {
		b.WriteString("## Randomization balance\n\n")
		b.WriteString("| Arm | Variable | N | Mean | Std |\n|---|---|---:|---:|---:|\n")
		for _, row := range r.Balance.Rows {
			mdRow(&b, row.Arm.Label(), row.Variable, fmt.Sprint(row.N), num(row.Mean, 3), num(row.StdDev, 3))
		}
		fmt.Fprintf(&b, "\nMax standardized difference: %s\n\n", num(r.Balance.MaxStdDiff, 4))
	}

	if len(r.Conversion) > 0 {
		b.WriteString("## Conversion tests\n\n")
		b.WriteString("| Comparison | Rate T | Rate C | Abs lift | Rel lift | z | p | Note |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|---|\n")
		for _, c := range r.Conversion {
			if c.Result == nil {
				mdRow(&b, c.Pair.String(), "", "", "", "", "", "", conversionNote(c))
				continue
			}
			res := c.Result
			mdRow(&b, c.Pair.String(),
				percent(res.RateTreatment), percent(res.RateControl),
				percent(res.AbsLift), percent(res.RelLift),
				num(res.Z, 3), pvalue(res.PValue), conversionNote(c))
		}
		b.WriteString("\n")
	}

	if len(r.Spend) > 0 {
		b.WriteString("## Spend tests\n\n")
		b.WriteString("| Comparison | Mean T | Mean C | Diff | t | df | p | 95% CI | Note |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|---|---|\n")
		for _, s := range r.Spend {
			if s.Result == nil {
				mdRow(&b, s.Pair.String(), "", "", "", "", "", "", "", spendNote(s))
				continue
			}
			res := s.Result
			mdRow(&b, s.Pair.String(),
				num(res.MeanTreatment, 4), num(res.MeanControl, 4), num(res.MeanDiff, 4),
				num(res.T, 3), num(res.DF, 1), pvalue(res.PValue),
				interval(res.CI, 4), spendNote(s))
		}
		b.WriteString("\n")
	}

	for _, e := range r.Uplift {
		writePairMarkdown(&b, e)
	}
	return b.String()
}

func writePairMarkdown(b *strings.Builder, e run.PairEvaluation) {
	fmt.Fprintf(b, "## Uplift: %s\n\n", e.Pair)
	if e.Failure != nil {
		fmt.Fprintf(b, "Evaluation failed: %s\n\n", mdEscape(failureNote(e.Failure)))
		return
	}
	fmt.Fprintf(b, "Classifier `%s`, %d training rows, %d holdout rows.\n\n", e.Classifier, e.TrainSize, e.Holdout)
	if e.Qini != nil {
		fmt.Fprintf(b, "- Qini AUC: %s\n", num(e.Qini.AUC, 4))
		fmt.Fprintf(b, "- Qini coefficient: %s\n", num(e.Qini.Coefficient, 4))
		fmt.Fprintf(b, "- Incremental gain at 100%%: %s\n\n", num(e.Qini.Curve.Final(), 2))
	}
	if len(e.ROI) > 0 {
		b.WriteString("| k | Uplift@k | Mailed | Incr. conv. | Revenue | Cost | Net profit | Realized uplift |\n")
		b.WriteString("|---:|---:|---:|---:|---:|---:|---:|---:|\n")
		for _, row := range e.ROI {
			mdRow(b, num(row.K, 2), num(row.UpliftAtK, 5), fmt.Sprint(row.NMailed),
				num(row.IncrementalConversions, 2), money(row.RevenueGain),
				money(row.EmailCost), money(row.NetProfit), num(row.RealizedUpliftAtK, 5))
		}
		if best, ok := uplift.BestByProfit(e.ROI); ok {
			fmt.Fprintf(b, "\nBest k by net profit: **%s** (%s)\n", num(best.K, 2), money(best.NetProfit))
		}
		b.WriteString("\n")
	}
	for _, kf := range e.KFailures {
		fmt.Fprintf(b, "- k=%v rejected: %s\n", kf.K, mdEscape(kf.Message))
	}
	if len(e.KFailures) > 0 {
		b.WriteString("\n")
	}
}

func mdRow(b *strings.Builder, cells ...string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(mdEscape(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, "|", `\|`)
}
