package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rankrunner/rankrunner/types"
)

// The artifact encoding is line-oriented JSON: a header record on the first
// line, then one event per line. A versioned text encoding keeps artifacts
// readable by any implementation language, unlike a runtime-specific object
// stream.

// Encode writes the event log to w in the versioned artifact encoding.
func Encode(w io.Writer, log *types.EventLog) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(log.Header); err != nil {
		return fmt.Errorf("encoding artifact header: %w", err)
	}
	for i, e := range log.Events {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding event %d: %w", i, err)
		}
	}
	return nil
}

// Decode reads an event log from r. A malformed line or an unknown
// encoding version is a decoding error; the caller treats it as artifact
// corruption.
func Decode(r io.Reader) (*types.EventLog, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading artifact header: %w", err)
		}
		return nil, fmt.Errorf("artifact is empty")
	}

	var header types.LogHeader
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return nil, fmt.Errorf("decoding artifact header: %w", err)
	}
	if header.Version != types.LogVersion {
		return nil, fmt.Errorf("artifact version %d is not supported (want %d)", header.Version, types.LogVersion)
	}

	log := &types.EventLog{Header: header}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e types.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("decoding event %d: %w", len(log.Events), err)
		}
		// Kind is deliberately not checked here: an unrecognized kind is a
		// protocol mismatch surfaced at replay time, not artifact corruption.
		log.Events = append(log.Events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return log, nil
}
