package cmd

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var methods = predict.Set{"fifo", "average"}

// Completion describes the subcommands and flags for shell completion.
func Completion() *complete.Command {
	return &complete.Command{
		Sub: map[string]*complete.Command{
			"trades": {
				Flags: map[string]complete.Predictor{
					"security": predict.Something,
					"on":       predict.Something,
					"method":   methods,
					"period":   predict.Set{"day", "week", "month", "quarter", "year"},
					"d":        predict.Something,
				},
			},
			"categories": {
				Flags: map[string]complete.Predictor{
					"taxonomy":    predict.Files("*.json"),
					"on":          predict.Something,
					"method":      methods,
					"by-currency": predict.Nothing,
				},
			},
			"fmt": {
				Flags: map[string]complete.Predictor{"o": predict.Files("*.jsonl")},
			},
			"topic": {
				Flags: map[string]complete.Predictor{"l": predict.Nothing},
				Args: predict.Set{"ledger", "market", "taxonomy", "trades", "performance"},
			},
		},
		Flags: map[string]complete.Predictor{
			"ledger":  predict.Files("*.jsonl"),
			"market":  predict.Files("*.jsonl"),
			"c":       predict.Something,
			"v":       predict.Nothing,
			"workers": predict.Something,
		},
	}
}
