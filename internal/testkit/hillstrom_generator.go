package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"

	"gouplift/domain/core"
	"gouplift/domain/experiment"
)

// HillstromGeneratorConfig configures the synthetic e-mail experiment
type HillstromGeneratorConfig struct {
	CustomersPerArm int     `json:"customers_per_arm"`
	BaseConversion  float64 `json:"base_conversion"`
	// ResponsiveLift is added to the conversion probability of customers the
	// e-mail speaks to (men for MensEmail, women for WomensEmail) with
	// recency below ResponsiveRecency.
	ResponsiveLift    float64 `json:"responsive_lift"`
	ResponsiveRecency int     `json:"responsive_recency"`
	// BackgroundLift is the lift for everyone else who gets an e-mail
	BackgroundLift float64 `json:"background_lift"`
	SpendMean      float64 `json:"spend_mean"`
	Seed           int64   `json:"seed"`
}

// DefaultHillstromConfig returns a population with a strong, learnable
// uplift pattern, large enough for stable Qini estimates
func DefaultHillstromConfig() HillstromGeneratorConfig {
	return HillstromGeneratorConfig{
		CustomersPerArm:   2000,
		BaseConversion:    0.04,
		ResponsiveLift:    0.25,
		ResponsiveRecency: 7,
		BackgroundLift:    0.0,
		SpendMean:         110,
		Seed:              42,
	}
}

// HillstromGenerator generates records shaped like the Hillstrom data
type HillstromGenerator struct {
	config HillstromGeneratorConfig
	rng    *rand.Rand
}

// NewHillstromGenerator creates a new generator
func NewHillstromGenerator(config HillstromGeneratorConfig) *HillstromGenerator {
	return &HillstromGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

var (
	zipCodes = []string{"Urban", "Surburban", "Rural"}
	channels = []string{"Phone", "Web", "Multichannel"}
)

// GenerateRecords emits CustomersPerArm records for each arm, interleaved,
// with IDs 0..3n-1
func (g *HillstromGenerator) GenerateRecords() []experiment.Record {
	n := g.config.CustomersPerArm
	records := make([]experiment.Record, 0, 3*n)
	id := core.RecordID(0)
	for i := 0; i < n; i++ {
		for _, arm := range experiment.AllArms {
			records = append(records, g.customer(id, arm))
			id++
		}
	}
	return records
}

func (g *HillstromGenerator) customer(id core.RecordID, arm experiment.Arm) experiment.Record {
	recency := 1 + g.rng.Intn(12)
	history := 29.99 + g.rng.ExpFloat64()*220
	mens := g.rng.Intn(2)
	womens := g.rng.Intn(2)
	if mens == 0 && womens == 0 {
		womens = 1
	}
	newbie := g.rng.Intn(2)
	zip := zipCodes[g.rng.Intn(len(zipCodes))]
	channel := channels[g.rng.Intn(len(channels))]

	p := g.config.BaseConversion
	if history > 500 {
		p += 0.01
	}
	responsive := recency < g.config.ResponsiveRecency
	switch arm {
	case experiment.MensEmail:
		if mens == 1 && responsive {
			p += g.config.ResponsiveLift
		} else {
			p += g.config.BackgroundLift
		}
	case experiment.WomensEmail:
		if womens == 1 && responsive {
			p += g.config.ResponsiveLift
		} else {
			p += g.config.BackgroundLift
		}
	}
	if p > 1 {
		p = 1
	}

	conversion := g.rng.Float64() < p
	visit := conversion || g.rng.Float64() < 3*p
	spend := 0.0
	if conversion {
		spend = g.config.SpendMean * (0.5 + g.rng.ExpFloat64()*0.5)
		// whole cents, as written by HillstromRow
		spend = math.Round(spend*100) / 100
	}

	return experiment.NewRecord(id, arm, visit, conversion, spend,
		map[string]float64{
			experiment.ColRecency: float64(recency),
			experiment.ColHistory: history,
			experiment.ColMens:    float64(mens),
			experiment.ColWomens:  float64(womens),
			experiment.ColNewbie:  float64(newbie),
		},
		map[string]string{
			experiment.ColHistorySegment: historySegment(history),
			experiment.ColZipCode:        zip,
			experiment.ColChannel:        channel,
		})
}

func historySegment(history float64) string {
	switch {
	case history < 100:
		return "1) $0 - $100"
	case history < 200:
		return "2) $100 - $200"
	case history < 350:
		return "3) $200 - $350"
	case history < 500:
		return "4) $350 - $500"
	case history < 750:
		return "5) $500 - $750"
	case history < 1000:
		return "6) $750 - $1,000"
	default:
		return "7) $1,000 +"
	}
}

// HillstromHeader is the column order of the public Hillstrom CSV
var HillstromHeader = []string{
	"recency", "history_segment", "history", "mens", "womens", "zip_code",
	"newbie", "channel", "segment", "visit", "conversion", "spend",
}

// WriteCSV writes records in the public Hillstrom CSV layout
func WriteCSV(w io.Writer, records []experiment.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HillstromHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(HillstromRow(r)); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// HillstromRow renders one record as a Hillstrom row in HillstromHeader order
func HillstromRow(r experiment.Record) []string {
	num := func(name string) string {
		v, _ := r.Numeric(name)
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	cat := func(name string) string {
		v, _ := r.Category(name)
		return v
	}
	b := func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	}
	return []string{
		num(experiment.ColRecency),
		cat(experiment.ColHistorySegment),
		num(experiment.ColHistory),
		num(experiment.ColMens),
		num(experiment.ColWomens),
		cat(experiment.ColZipCode),
		num(experiment.ColNewbie),
		cat(experiment.ColChannel),
		r.Arm.Label(),
		b(r.Visit),
		b(r.Conversion),
		strconv.FormatFloat(r.Spend, 'f', 2, 64),
	}
}
