// internal/cli/cli_test.go
package bayesbatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/mwiater/bayesbatch/internal/pipeline"
	"github.com/mwiater/bayesbatch/internal/providers"
)

const cliDesigns = `eg:
  - name: Wisc
    state: wisconsin
    pay: 1
    nballs: 6
    ndraws_from_cage: 6
    cage_a_balls_marked_n: 4
    cage_b_balls_marked_n: 3
    nballs_prior_cage: 6
    nsubjects: 1
    trials:
      - priors: 2
        ndraws: 4
`

type submitOnlyProvider struct{ submits int }

func (p *submitOnlyProvider) Upload(ctx context.Context, filename string, content []byte, purpose string) (providers.FileRef, error) {
	return providers.FileRef{ID: "file-1", Filename: filename, Purpose: purpose}, nil
}

func (p *submitOnlyProvider) SubmitBatch(ctx context.Context, inputFileID, endpoint, window string) (providers.Batch, error) {
	p.submits++
	return providers.Batch{ID: fmt.Sprintf("batch-%d", p.submits), InputFileID: inputFileID, Status: providers.StatusValidating}, nil
}

func (p *submitOnlyProvider) BatchStatus(ctx context.Context, id string) (providers.Batch, error) {
	return providers.Batch{ID: id, Status: providers.StatusInProgress}, nil
}

func (p *submitOnlyProvider) FetchContent(ctx context.Context, id string) ([]byte, error) {
	return nil, fmt.Errorf("no content for %s", id)
}

func writeCLIConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	designs := filepath.Join(dir, "designs.yaml")
	if err := os.WriteFile(designs, []byte(cliDesigns), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := map[string]any{
		"runsDir":      filepath.Join(dir, "runs"),
		"designsPath":  designs,
		"models":       []string{"gpt-a"},
		"instructions": []string{"reasoning"},
		"runs": map[string]any{
			"wisconsin": map[string]string{"domain": "eg", "state": "wisconsin"},
		},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRunSendThenShowJobs(t *testing.T) {
	path, dir := writeCLIConfig(t)
	provider := &submitOnlyProvider{}
	orig := newProvider
	newProvider = func(task string) (providers.BatchProvider, error) { return provider, nil }
	t.Cleanup(func() { newProvider = orig })

	out, err := executeRoot(t, "--config", path, "--env", "", "run", "-r", "wisconsin", "-t", pipeline.TaskSend)
	if err != nil {
		t.Fatalf("run send: %v\n%s", err, out)
	}
	if provider.submits != 1 {
		t.Fatalf("expected one submission, got %d", provider.submits)
	}
	if !strings.Contains(out, "job__gpt-a__") {
		t.Fatalf("summary should name the job:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "runs", "wisconsin", "wisconsin.log")); err != nil {
		t.Fatalf("expected the run log: %v", err)
	}

	out, err = executeRoot(t, "--config", path, "--env", "", "show", "jobs", "-r", "wisconsin")
	if err != nil {
		t.Fatalf("show jobs: %v\n%s", err, out)
	}
	if !strings.Contains(out, providers.StatusValidating) || !strings.Contains(out, "batch-1") {
		t.Fatalf("show jobs should report the submitted batch:\n%s", out)
	}
	if !strings.Contains(out, "All jobs completed: false") {
		t.Fatalf("unexpected completion line:\n%s", out)
	}
	if strings.Contains(out, "InputFileID") {
		t.Fatalf("info records are dumped only with --verbose:\n%s", out)
	}

	t.Cleanup(func() { showJobsVerbose = false })
	out, err = executeRoot(t, "--config", path, "--env", "", "show", "jobs", "-r", "wisconsin", "--verbose")
	if err != nil {
		t.Fatalf("show jobs --verbose: %v\n%s", err, out)
	}
	if !strings.Contains(out, "InputFileID") || !strings.Contains(out, "file-1") {
		t.Fatalf("verbose output should dump the info record:\n%s", out)
	}
}

func TestRunRejectsUnknownTask(t *testing.T) {
	path, _ := writeCLIConfig(t)
	if _, err := executeRoot(t, "--config", path, "--env", "", "run", "-r", "wisconsin", "-t", "explode"); err == nil {
		t.Fatal("expected error for unknown task")
	}
}

func TestShowConfig(t *testing.T) {
	path, _ := writeCLIConfig(t)
	out, err := executeRoot(t, "--config", path, "--env", "", "show", "config")
	if err != nil {
		t.Fatalf("show config: %v", err)
	}
	for _, want := range []string{"Config file: " + path, "gpt-a", "wisconsin"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPrintTasksListsEveryTask(t *testing.T) {
	var out bytes.Buffer
	printTasks(&out)
	for _, task := range pipeline.Tasks {
		if !strings.Contains(out.String(), task) {
			t.Fatalf("missing task %s:\n%s", task, out.String())
		}
	}
}

func TestColorStatus(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	tests := map[string]string{
		"":                         "not sent",
		providers.StatusCompleted:  providers.StatusCompleted,
		providers.StatusInProgress: providers.StatusInProgress,
		providers.StatusFailed:     providers.StatusFailed,
	}
	for status, want := range tests {
		if got := colorStatus(status); got != want {
			t.Errorf("colorStatus(%q) = %q, want %q", status, got, want)
		}
	}
}
