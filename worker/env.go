package worker

import (
	"fmt"
	"os"
	"strconv"
)

// Rank and size discovery for the native backend. The parallel runtime's
// launcher exposes each process's position through environment variables;
// the exact names differ per runtime, so several conventions are probed in
// order.

var rankVars = []string{
	"OMPI_COMM_WORLD_RANK",
	"PMIX_RANK",
	"PMI_RANK",
	"SLURM_PROCID",
}

var sizeVars = []string{
	"OMPI_COMM_WORLD_SIZE",
	"PMI_SIZE",
	"SLURM_NTASKS",
}

// DiscoverRank returns this process's rank as published by the launcher.
func DiscoverRank() (int, error) {
	return probeEnv("rank", rankVars)
}

// DiscoverSize returns the worker-group size as published by the launcher.
func DiscoverSize() (int, error) {
	return probeEnv("size", sizeVars)
}

func probeEnv(what string, names []string) (int, error) {
	for _, name := range names {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("parsing %s from %s=%q: %w", what, name, v, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("no %s variable found in environment (tried %v), was this process started by a parallel launcher?", what, names)
}
