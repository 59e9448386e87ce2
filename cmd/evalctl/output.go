package main

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitFailure, errors.Wrap(err, "json encode"))
	}
	return nil
}

// rowsOf renders entities as their column records.
func rowsOf(entities []domain.Entity) []domain.Record {
	out := make([]domain.Record, len(entities))
	for i, e := range entities {
		out[i] = e.Values()
	}
	return out
}
