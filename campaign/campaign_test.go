package campaign

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/perfgo/benchcamp/config"
	"github.com/perfgo/benchcamp/executor"
	"github.com/perfgo/benchcamp/history"
	"github.com/perfgo/benchcamp/ledger"
	"github.com/perfgo/benchcamp/model"
	"github.com/perfgo/benchcamp/report"
)

func testConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
name: smoke
kind: throughput
matrix:
  repetitions: 2
  direction: rx
  interface: [bridge, vfio]
  num_vms: [1, 2]
key: [interface]
duration: 1s
out_dir: %s
%s`, t.TempDir(), extra)))
	require.NoError(t, err)
	require.NoError(t, cfg.Resolve())
	return cfg
}

// recorder is a step that writes a parsable rate log per repetition.
type recorder struct {
	mu           sync.Mutex
	reconfigured []string
	runs         []string
	fail         func(model.Run) error
}

func (s *recorder) step() executor.Step {
	return executor.StepFuncs{
		ReconfigureFunc: func(_ context.Context, r model.Record) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.reconfigured = append(s.reconfigured, r.Str("interface"))
			return nil
		},
		RunFunc: func(_ context.Context, run model.Run, out executor.Output) error {
			s.mu.Lock()
			s.runs = append(s.runs, fmt.Sprintf("%s/%d", run.Record.Identity(), run.Repetition))
			s.mu.Unlock()
			if s.fail != nil {
				if err := s.fail(run); err != nil {
					return err
				}
			}
			var b strings.Builder
			for i := 0; i < 6; i++ {
				fmt.Fprintf(&b, "Rx rate: %d\n", 1000+i)
			}
			return os.WriteFile(out.Path, []byte(b.String()), 0o644)
		},
	}
}

func TestPlan(t *testing.T) {
	cfg := testConfig(t, "")
	r := New(Options{Logger: zerolog.Nop()})

	plan, err := r.Plan(cfg)
	require.NoError(t, err)

	// vfio with 2 VMs is excluded by the kind
	require.Len(t, plan.Records, 3)
	require.Equal(t, 3, plan.Estimate.Records)
	require.Equal(t, 6, plan.Estimate.Runs)
	require.Equal(t, 2, plan.Estimate.Reconfigurations)
	// 6 runs x (1s + 2s) + 3 records x 35s
	require.Equal(t, 123*time.Second, plan.Estimate.Total())

	var buf bytes.Buffer
	require.NoError(t, plan.Write(&buf))
	require.Contains(t, buf.String(), "Campaign smoke (throughput): 3 records")
	require.Contains(t, buf.String(), "Total: 2m3s")
}

func TestRun_PlanOnly(t *testing.T) {
	cfg := testConfig(t, "plan_only: true\n")
	var buf bytes.Buffer
	r := New(Options{Logger: zerolog.Nop(), Out: &buf})

	res, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, res.Campaign)
	require.Contains(t, buf.String(), "Reconfiguration key: interface")
	_, err = os.Stat(cfg.CampaignDir())
	require.True(t, os.IsNotExist(err), "plan-only must not create the campaign directory")
}

func TestRun(t *testing.T) {
	cfg := testConfig(t, "")
	rec := &recorder{}
	r := New(Options{Logger: zerolog.Nop(), Step: rec.step(), Args: []string{"benchcamp", "run"}})

	res, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	require.Equal(t, []string{"bridge", "vfio"}, rec.reconfigured)
	require.Equal(t, []string{
		"direction_rx_interface_bridge_num_vms_1/0",
		"direction_rx_interface_bridge_num_vms_1/1",
		"direction_rx_interface_bridge_num_vms_2/0",
		"direction_rx_interface_bridge_num_vms_2/1",
		"direction_rx_interface_vfio_num_vms_1/0",
		"direction_rx_interface_vfio_num_vms_1/1",
	}, rec.runs)

	meta, err := history.Read(cfg.CampaignDir())
	require.NoError(t, err)
	require.Equal(t, model.CampaignCompleted, meta.Status)
	require.Equal(t, 3, meta.Done)
	require.Equal(t, 3, meta.Records)
	require.False(t, meta.Resumed)
	require.Equal(t, res.Campaign.ID, meta.ID)

	require.NotNil(t, res.Summary)
	require.Len(t, res.Summary.Stats, 3)
	require.Empty(t, res.Summary.Failed)
	require.FileExists(t, report.SummaryPath(cfg.CampaignDir(), "throughput"))
	require.FileExists(t, filepath.Join(cfg.CampaignDir(), MetricsFile))

	data, err := os.ReadFile(ledger.FilePath(cfg.CampaignDir()))
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(string(data), "\n"))

	// everything is done; a second launch runs nothing
	rec2 := &recorder{}
	res, err = New(Options{Logger: zerolog.Nop(), Step: rec2.step()}).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Empty(t, rec2.runs)
	require.Empty(t, rec2.reconfigured)
	require.True(t, res.Campaign.Resumed)
}

func TestRun_StopsOnFailureAndResumes(t *testing.T) {
	cfg := testConfig(t, "ledger: sqlite\n")
	boom := errors.New("pktgen crashed")
	rec := &recorder{fail: func(run model.Run) error {
		if run.Record.Str("interface") == "vfio" {
			return boom
		}
		return nil
	}}

	_, err := New(Options{Logger: zerolog.Nop(), Step: rec.step()}).Run(context.Background(), cfg)
	require.ErrorIs(t, err, boom)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, "direction_rx_interface_vfio_num_vms_1", runErr.Identity)
	require.Equal(t, 0, runErr.Repetition)

	meta, err := history.Read(cfg.CampaignDir())
	require.NoError(t, err)
	require.Equal(t, model.CampaignFailed, meta.Status)
	require.Equal(t, 2, meta.Done)
	require.Equal(t, 1, meta.Failed)

	// resume with a working step: only the failed record runs
	rec2 := &recorder{}
	res, err := New(Options{Logger: zerolog.Nop(), Step: rec2.step()}).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"vfio"}, rec2.reconfigured)
	require.Len(t, rec2.runs, 2)
	require.True(t, res.Campaign.Resumed)
	require.Equal(t, 3, res.Campaign.Done)
}

func TestRun_ContinueOnError(t *testing.T) {
	cfg := testConfig(t, "continue_on_error: true\n")
	rec := &recorder{fail: func(run model.Run) error {
		if run.Record.Int("num_vms") == 2 && run.Repetition == 1 {
			return errors.New("link down")
		}
		return nil
	}}

	res, err := New(Options{Logger: zerolog.Nop(), Step: rec.step()}).Run(context.Background(), cfg)
	require.ErrorContains(t, err, "direction_rx_interface_bridge_num_vms_2: repetition 1: link down")
	require.Equal(t, []string{"bridge", "vfio"}, rec.reconfigured)
	require.Len(t, rec.runs, 6)
	require.Equal(t, 2, res.Campaign.Done)
	require.Equal(t, 1, res.Campaign.Failed)
	require.Equal(t, model.CampaignFailed, res.Campaign.Status)

	// the failed record has one artifact missing and shows up in the summary
	require.Equal(t, map[string]int{"direction_rx_interface_bridge_num_vms_2": 1}, res.Summary.Failed)
}

func TestRun_ReconfigureFailure(t *testing.T) {
	cfg := testConfig(t, "continue_on_error: true\n")
	calls := 0
	step := executor.StepFuncs{
		ReconfigureFunc: func(_ context.Context, r model.Record) error {
			calls++
			if r.Str("interface") == "bridge" {
				return errors.New("reboot timed out")
			}
			return nil
		},
	}

	res, err := New(Options{Logger: zerolog.Nop(), Step: step}).Run(context.Background(), cfg)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, -1, runErr.Repetition)
	// each bridge record retries the reconfiguration, then vfio
	require.Equal(t, 3, calls)
	require.Equal(t, 2, res.Campaign.Failed)
	require.Equal(t, 1, res.Campaign.Done)
}

func TestRun_Interrupted(t *testing.T) {
	cfg := testConfig(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{fail: func(run model.Run) error {
		if run.Record.Str("interface") == "vfio" {
			cancel()
			return ctx.Err()
		}
		return nil
	}}

	res, err := New(Options{Logger: zerolog.Nop(), Step: rec.step()}).Run(ctx, cfg)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, model.CampaignInterrupted, res.Campaign.Status)
	require.Nil(t, res.Summary)
	require.Equal(t, 2, res.Campaign.Done)
	require.Zero(t, res.Campaign.Failed)
}

func TestRun_InterruptedKeepsFailures(t *testing.T) {
	cfg := testConfig(t, "continue_on_error: true\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{fail: func(run model.Run) error {
		switch {
		case run.Record.Str("interface") == "vfio":
			cancel()
			return ctx.Err()
		case run.Record.Int("num_vms") == 1:
			return errors.New("link down")
		}
		return nil
	}}

	res, err := New(Options{Logger: zerolog.Nop(), Step: rec.step()}).Run(ctx, cfg)
	require.ErrorIs(t, err, context.Canceled)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, "direction_rx_interface_bridge_num_vms_1", runErr.Identity)
	require.ErrorContains(t, err, "link down")
	require.Equal(t, model.CampaignInterrupted, res.Campaign.Status)
	require.Equal(t, 1, res.Campaign.Done)
	require.Equal(t, 1, res.Campaign.Failed)
}

func TestRun_Fresh(t *testing.T) {
	cfg := testConfig(t, "")
	_, err := New(Options{Logger: zerolog.Nop(), Step: (&recorder{}).step()}).Run(context.Background(), cfg)
	require.NoError(t, err)

	cfg.Fresh = true
	rec := &recorder{}
	res, err := New(Options{Logger: zerolog.Nop(), Step: rec.step()}).Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, rec.runs, 6)
	require.False(t, res.Campaign.Resumed)
}

func TestRun_NoStep(t *testing.T) {
	_, err := New(Options{Logger: zerolog.Nop()}).Run(context.Background(), testConfig(t, ""))
	require.True(t, model.IsConfigError(err))
}
