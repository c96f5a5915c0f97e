package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ragscore/internal/agreement"
	"github.com/ahrav/go-ragscore/internal/domain"
)

func TestBuildRootCmd_Subcommands(t *testing.T) {
	root := buildRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"evaluate", "correlate", "ensemble", "human-scores", "agreement", "worker"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestParseWeights(t *testing.T) {
	w, err := parseWeights(map[string]string{"a": "0.25", "b": "2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 0.25, "b": 2}, w)

	w, err = parseWeights(nil)
	require.NoError(t, err)
	assert.Nil(t, w)

	_, err = parseWeights(map[string]string{"a": "heavy"})
	require.Error(t, err)
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func readRecords(t *testing.T, path string) []domain.ScoreRecord {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []domain.ScoreRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r domain.ScoreRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		out = append(out, r)
	}
	require.NoError(t, sc.Err())
	return out
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	root := buildRootCmd()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.Execute()
}

func TestEnsembleCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scores.jsonl")
	out := filepath.Join(dir, "ensemble.jsonl")
	writeLines(t, in,
		`{"gen_uuid":"g1","type":"faithfulness","name":"a","score":1,"success":true}`,
		`{"gen_uuid":"g1","type":"faithfulness","name":"b","score":0,"success":false}`,
		`{"gen_uuid":"g2","type":"faithfulness","name":"a","score":1,"success":true}`,
		`{"gen_uuid":"g2","type":"faithfulness","name":"b","score":1,"success":true}`,
		`{"gen_uuid":"g1","type":"formatting","name":"c","score":1,"success":true}`,
	)

	err := runCLI(t, "ensemble", "-i", in, "-a", "faithfulness", "-e", "a", "-e", "b", "-s", "average", "-o", out)
	require.NoError(t, err)

	recs := readRecords(t, out)
	require.Len(t, recs, 2)
	assert.Equal(t, "g1", recs[0].GenerationID)
	assert.InDelta(t, 0.5, recs[0].Value, 1e-9)
	assert.False(t, recs[0].Success)
	assert.InDelta(t, 1.0, recs[1].Value, 1e-9)
}

func TestAgreementCommand_WithPairs(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "annotations.jsonl")
	out := filepath.Join(dir, "agreement.json")
	writeLines(t, in,
		`{"user":"r1","q_id":"i1","question":"is_faithful","value":"YES"}`,
		`{"user":"r2","q_id":"i1","question":"is_faithful","value":"YES"}`,
		`{"user":"r1","q_id":"i2","question":"is_faithful","value":"NO"}`,
		`{"user":"r2","q_id":"i2","question":"is_faithful","value":"NO"}`,
	)

	err := runCLI(t, "agreement", "-i", in, "-q", "is_faithful", "--pairs", "-o", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc agreementOutput
	require.NoError(t, json.Unmarshal(data, &doc))

	require.Len(t, doc.Reports, 1)
	assert.Equal(t, "is_faithful", doc.Reports[0].Question)
	require.NotNil(t, doc.Reports[0].AveragePairwiseAgreement)
	assert.InDelta(t, 1.0, *doc.Reports[0].AveragePairwiseAgreement, 1e-9)

	require.Contains(t, doc.Pairs, "is_faithful")
	assert.Equal(t, []agreement.PairCount{{Pair: "r1-r2", Agreements: 2}}, doc.Pairs["is_faithful"])
}
