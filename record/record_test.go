package record

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankrunner/rankrunner/types"
)

func TestArtifactName(t *testing.T) {
	assert.Equal(t, "pkg.Suite_3", ArtifactName("pkg.Suite", -1, 3))
	assert.Equal(t, "pkg.Suite_1_0", ArtifactName("pkg.Suite", 1, 0))
}

func TestArtifactPathDefaultsToWorkingDirectory(t *testing.T) {
	assert.Equal(t, "pkg.Suite_0", ArtifactPath("", "pkg.Suite", -1, 0))
	assert.Equal(t, filepath.Join("out", "pkg.Suite_2_1"), ArtifactPath("out", "pkg.Suite", 2, 1))
}

func sampleLog(rank int) *types.EventLog {
	suite := types.TestID{Suite: "pkg.Suite", Config: -1}
	id := func(m string) types.TestID { return types.TestID{Suite: "pkg.Suite", Config: -1, Method: m} }
	return &types.EventLog{
		Header: types.LogHeader{
			Version: types.LogVersion,
			Suite:   "pkg.Suite",
			Config:  -1,
			Rank:    rank,
			Created: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		Events: []types.Event{
			{Kind: types.SuiteStarted, Test: suite},
			{Kind: types.TestStarted, Test: id("alwaysPasses")},
			{Kind: types.TestFinished, Test: id("alwaysPasses")},
			{Kind: types.TestStarted, Test: id("failsOnZero")},
			{Kind: types.TestFailed, Test: id("failsOnZero"), Failure: "rank 0 always fails: want 1, got 0"},
			{Kind: types.TestFinished, Test: id("failsOnZero")},
			{Kind: types.TestIgnored, Test: id("notYetImplemented")},
			{Kind: types.SuiteFinished, Test: suite},
		},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	in := sampleLog(0)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in))

	out, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, in.Header, out.Header)
	require.Len(t, out.Events, len(in.Events))
	for i := range in.Events {
		assert.Equal(t, in.Events[i], out.Events[i], "event %d", i)
	}
}

func TestDecodeRejectsEmptyArtifact(t *testing.T) {
	_, err := Decode(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty")
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	in := sampleLog(0)
	in.Header.Version = 99
	require.NoError(t, Encode(&buf, in))

	_, err := Decode(&buf)
	assert.ErrorContains(t, err, "version 99")
}

func TestDecodeRejectsMalformedLine(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleLog(0)))
	buf.WriteString("{not json\n")

	_, err := Decode(&buf)
	assert.Error(t, err)
}

func TestDecodeKeepsUnknownKindsForReplay(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleLog(0)))
	buf.WriteString(`{"kind":"test-run-started","test":{"suite":"pkg.Suite","config":-1}}` + "\n")

	out, err := Decode(&buf)
	require.NoError(t, err)
	last := out.Events[len(out.Events)-1]
	assert.Equal(t, types.EventKind("test-run-started"), last.Kind)
}

func TestRecorderWritesArtifactOnClose(t *testing.T) {
	dir := t.TempDir()
	path := ArtifactPath(dir, "pkg.Suite", -1, 1)

	rec, err := NewRecorder(path, "pkg.Suite", -1, 1)
	require.NoError(t, err)

	// The artifact file exists as soon as the recorder is constructed.
	_, err = os.Stat(path)
	require.NoError(t, err)

	suite := types.TestID{Suite: "pkg.Suite", Config: -1}
	method := types.TestID{Suite: "pkg.Suite", Config: -1, Method: "alwaysPasses"}
	rec.SuiteStarted(suite)
	rec.TestStarted(method)
	rec.TestFinished(method)
	rec.SuiteFinished(suite)
	require.NoError(t, rec.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	log, err := Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 1, log.Header.Rank)
	assert.Equal(t, "pkg.Suite", log.Header.Suite)
	require.Len(t, log.Events, 4)
	assert.Equal(t, types.SuiteStarted, log.Events[0].Kind)
	assert.Equal(t, types.SuiteFinished, log.Events[3].Kind)
	assert.NoError(t, log.Validate())
}

func TestRecorderCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(filepath.Join(dir, "a"), "s", -1, 0)
	require.NoError(t, err)

	suite := types.TestID{Suite: "s", Config: -1}
	rec.SuiteStarted(suite)
	rec.SuiteFinished(suite)
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())
}

func TestRecorderPanicsOnEventAfterClose(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(filepath.Join(dir, "a"), "s", -1, 0)
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	assert.Panics(t, func() {
		rec.TestStarted(types.TestID{Suite: "s", Config: -1, Method: "m"})
	})
}
