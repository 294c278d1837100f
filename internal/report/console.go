package report

import (
	"fmt"
	"io"

	"gouplift/domain/run"
	"gouplift/domain/uplift"

	"github.com/olekukonko/tablewriter"
)

// Console prints run reports as terminal tables
type Console struct {
	out io.Writer
}

// NewConsole creates a console printer writing to out
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// PrintSignificance prints the balance check and both test tables
func (c *Console) PrintSignificance(r *run.Report) {
	if r.Balance != nil {
		fmt.Fprintf(c.out, "\nRandomization balance (max standardized diff %s)\n", num(r.Balance.MaxStdDiff, 4))
		table := tablewriter.NewWriter(c.out)
		table.Header("Arm", "Variable", "N", "Mean", "Std")
		for _, row := range r.Balance.Rows {
			table.Append(row.Arm.Label(), row.Variable, fmt.Sprint(row.N), num(row.Mean, 3), num(row.StdDev, 3))
		}
		table.Render()
	}

	if len(r.Conversion) > 0 {
		fmt.Fprintln(c.out, "\nConversion z-tests")
		table := tablewriter.NewWriter(c.out)
		table.Header("Comparison", "Rate T", "Rate C", "Abs lift", "Rel lift", "z", "p", "Note")
		for _, o := range r.Conversion {
			if o.Result == nil {
				table.Append(o.Pair.String(), "", "", "", "", "", "", conversionNote(o))
				continue
			}
			res := o.Result
			table.Append(o.Pair.String(),
				percent(res.RateTreatment), percent(res.RateControl),
				percent(res.AbsLift), percent(res.RelLift),
				num(res.Z, 3), pvalue(res.PValue), conversionNote(o))
		}
		table.Render()
	}

	if len(r.Spend) > 0 {
		fmt.Fprintln(c.out, "\nSpend Welch t-tests")
		table := tablewriter.NewWriter(c.out)
		table.Header("Comparison", "Diff", "t", "df", "p", "95% CI", "Note")
		for _, o := range r.Spend {
			if o.Result == nil {
				table.Append(o.Pair.String(), "", "", "", "", "", spendNote(o))
				continue
			}
			res := o.Result
			table.Append(o.Pair.String(), num(res.MeanDiff, 4), num(res.T, 3),
				num(res.DF, 1), pvalue(res.PValue), interval(res.CI, 4), spendNote(o))
		}
		table.Render()
	}
}

// PrintUplift prints Qini summaries and the ROI table for every pair
func (c *Console) PrintUplift(r *run.Report) {
	for _, e := range r.Uplift {
		fmt.Fprintf(c.out, "\nUplift %s\n", e.Pair)
		if e.Failure != nil {
			fmt.Fprintf(c.out, "  failed: %s\n", failureNote(e.Failure))
			continue
		}
		if e.Qini != nil {
			fmt.Fprintf(c.out, "  Qini AUC %s | coefficient %s | train %d | holdout %d\n",
				num(e.Qini.AUC, 4), num(e.Qini.Coefficient, 4), e.TrainSize, e.Holdout)
		}

		table := tablewriter.NewWriter(c.out)
		table.Header("k", "Uplift@k", "Mailed", "Incr conv", "Revenue", "Cost", "Net profit")
		for _, row := range e.ROI {
			table.Append(num(row.K, 2), num(row.UpliftAtK, 5), fmt.Sprint(row.NMailed),
				num(row.IncrementalConversions, 2), money(row.RevenueGain),
				money(row.EmailCost), money(row.NetProfit))
		}
		table.Render()

		if best, ok := uplift.BestByProfit(e.ROI); ok {
			fmt.Fprintf(c.out, "  best k=%s net %s\n", num(best.K, 2), money(best.NetProfit))
		}
		for _, kf := range e.KFailures {
			fmt.Fprintf(c.out, "  k=%v rejected: %s\n", kf.K, kf.Message)
		}
	}
}

// Print writes the whole report
func (c *Console) Print(r *run.Report) {
	fmt.Fprintf(c.out, "Run %s (%s) records=%d outcome=%s failures=%d\n",
		r.Manifest.RunID, r.Manifest.Fingerprint.Short(), r.Manifest.RecordCount, r.Manifest.Outcome, r.FailureCount())
	c.PrintSignificance(r)
	c.PrintUplift(r)
}
