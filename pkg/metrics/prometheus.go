package metrics

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// WriteText writes every metric family gathered from g in the Prometheus text
// exposition format. A nil gatherer means the default registry.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	families, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrap(err, "encode metrics")
		}
	}
	return nil
}
