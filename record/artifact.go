// Package record implements the worker-side event recorder and the durable
// artifact format it writes. An artifact is the serialized event log of one
// worker; the aggregator in package replay reads them back in rank order.
package record

import (
	"fmt"
	"path/filepath"
)

// ArtifactName returns the deterministic file name for one worker's event
// log: "{suite}_{config}_{rank}", with the configuration segment omitted
// for non-parameterized runs (config < 0).
func ArtifactName(suite string, config, rank int) string {
	if config >= 0 {
		return fmt.Sprintf("%s_%d_%d", suite, config, rank)
	}
	return fmt.Sprintf("%s_%d", suite, rank)
}

// ArtifactPath joins the artifact directory and the deterministic name.
// An empty dir resolves against the process working directory.
func ArtifactPath(dir, suite string, config, rank int) string {
	return filepath.Join(dir, ArtifactName(suite, config, rank))
}
