package split

import (
	"fmt"
	"math"
	"sort"

	"gouplift/domain/experiment"
	apperrors "gouplift/internal/errors"
	"gouplift/ports"
)

// DefaultTrainFraction is the share of each stratum assigned to training
const DefaultTrainFraction = 0.7

const splitStream = "split/stratified"

// Config defines partitioning parameters
type Config struct {
	TrainFraction float64
	Seed          int64
	// StratifyByOutcome additionally stratifies each arm by the selected
	// outcome, keeping rare conversions balanced between the splits
	StratifyByOutcome bool
	Outcome           experiment.Outcome
}

// DefaultConfig returns a 70/30 split stratified by arm and conversion
func DefaultConfig() Config {
	return Config{
		TrainFraction:     DefaultTrainFraction,
		Seed:              42,
		StratifyByOutcome: true,
		Outcome:           experiment.OutcomeConversion,
	}
}

// Result holds both partitions, each sorted by record ID
type Result struct {
	Train   []experiment.Record
	Holdout []experiment.Record
	Stats   Statistics
}

// Statistics provides metadata about the partitioning
type Statistics struct {
	Total         int            `json:"total"`
	TrainSize     int            `json:"train_size"`
	HoldoutSize   int            `json:"holdout_size"`
	TrainRatio    float64        `json:"train_ratio"`
	Strata        map[string]int `json:"strata"`
	Seed          int64          `json:"seed"`
	PartitionMode string         `json:"partition_mode"`
}

// Partitioner implements seeded, stratified train/holdout splitting
type Partitioner struct {
	rng ports.RNGPort
}

// NewPartitioner creates a partitioner drawing from the given streams
func NewPartitioner(rng ports.RNGPort) *Partitioner {
	return &Partitioner{rng: rng}
}

// Split partitions records into train and holdout. Records are put in ID
// order first, so the same seed and the same record set give the same split
// whatever the input order.
func (p *Partitioner) Split(records []experiment.Record, cfg Config) (*Result, error) {
	if math.IsNaN(cfg.TrainFraction) || cfg.TrainFraction <= 0 || cfg.TrainFraction >= 1 {
		return nil, apperrors.ConfigError("train fraction must be in (0,1), got %v", cfg.TrainFraction)
	}
	if len(records) == 0 {
		return nil, apperrors.DataError("cannot split an empty record set")
	}

	strata := p.groupByStrata(experiment.SortByID(records), cfg)
	keys := make([]string, 0, len(strata))
	for k := range strata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rng := p.rng.Stream(splitStream, cfg.Seed)
	var train, holdout []experiment.Record
	sizes := make(map[string]int, len(keys))
	for _, key := range keys {
		stratum := strata[key]
		sizes[key] = len(stratum)

		rng.Shuffle(len(stratum), func(i, j int) {
			stratum[i], stratum[j] = stratum[j], stratum[i]
		})
		nTrain := int(math.Round(float64(len(stratum)) * cfg.TrainFraction))
		train = append(train, stratum[:nTrain]...)
		holdout = append(holdout, stratum[nTrain:]...)
	}

	train = experiment.SortByID(train)
	holdout = experiment.SortByID(holdout)
	if err := validateArms(train, holdout); err != nil {
		return nil, err
	}

	mode := "stratified_arm"
	if cfg.StratifyByOutcome {
		mode = "stratified_arm_outcome"
	}
	return &Result{
		Train:   train,
		Holdout: holdout,
		Stats: Statistics{
			Total:         len(records),
			TrainSize:     len(train),
			HoldoutSize:   len(holdout),
			TrainRatio:    float64(len(train)) / float64(len(records)),
			Strata:        sizes,
			Seed:          cfg.Seed,
			PartitionMode: mode,
		},
	}, nil
}

// groupByStrata keys each record by arm, and by outcome when configured.
// Input order within a stratum is preserved.
func (p *Partitioner) groupByStrata(records []experiment.Record, cfg Config) map[string][]experiment.Record {
	strata := make(map[string][]experiment.Record)
	for _, r := range records {
		key := string(r.Arm)
		if cfg.StratifyByOutcome {
			key = fmt.Sprintf("%s|%t", r.Arm, r.Outcome(cfg.Outcome))
		}
		strata[key] = append(strata[key], r)
	}
	return strata
}

// validateArms requires every arm present in the data to keep at least two
// records on each side of the split
func validateArms(train, holdout []experiment.Record) error {
	trainByArm := experiment.ByArm(train)
	holdoutByArm := experiment.ByArm(holdout)
	for _, arm := range experiment.AllArms {
		nt, nh := len(trainByArm[arm]), len(holdoutByArm[arm])
		if nt+nh == 0 {
			continue
		}
		if nt < 2 || nh < 2 {
			return apperrors.DataError("arm %s has too few records after split (train=%d, holdout=%d)", arm, nt, nh)
		}
	}
	return nil
}
