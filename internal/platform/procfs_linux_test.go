//go:build linux

package platform

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
)

type fixtureProc struct {
	pid     string
	stat    string
	cmdline string
	io      string
	noIO    bool
}

func writeProcTree(t *testing.T, procs ...fixtureProc) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "stat"),
		[]byte("cpu  100 0 100 100 0 0 0 0 0 0\ncpu0 100 0 100 100 0 0 0 0 0 0\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "self"), 0o755))

	for _, p := range procs {
		dir := filepath.Join(root, p.pid)
		require.NoError(t, os.Mkdir(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(p.stat), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), []byte(p.cmdline), 0o644))
		if !p.noIO {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "io"), []byte(p.io), 0o644))
		}
	}
	return root
}

func collect(t *testing.T, p *Procfs) (map[int32]harvest.RawProcess, int) {
	t.Helper()
	seq, err := p.Processes(context.Background())
	require.NoError(t, err)

	out := make(map[int32]harvest.RawProcess)
	failed := 0
	for raw, err := range seq {
		if err != nil {
			failed++
			continue
		}
		out[raw.PID] = raw
	}
	return out, failed
}

func fixture() []fixtureProc {
	return []fixtureProc{
		{
			pid:     "1",
			stat:    "1 (systemd) S 0 1 1 0 -1 4194560 100 0 0 0 250 50 0 0 20 0 1 0 5 1000 30 0\n",
			cmdline: "/sbin/init\x00splash\x00",
			io:      "read_bytes: 1000\nwrite_bytes: 2000\n",
		},
		{
			pid:     "2",
			stat:    "2 (kthreadd) S 0 0 0 0 -1 2129984 0 0 0 0 0 3 0 0 20 0 1 0 5 0 0 0\n",
			cmdline: "",
			noIO:    true,
		},
		{
			pid:     "77",
			stat:    "garbage",
			cmdline: "x",
		},
	}
}

func TestProcfs_GlobalCPU(t *testing.T) {
	p := NewProcfs(Options{ProcRoot: writeProcTree(t)})
	idle, nonIdle, err := p.GlobalCPU(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, idle)
	assert.Equal(t, 200.0, nonIdle)
}

func TestProcfs_GlobalCPUMissing(t *testing.T) {
	p := NewProcfs(Options{ProcRoot: t.TempDir()})
	_, _, err := p.GlobalCPU(context.Background())
	assert.Error(t, err)
}

func TestProcfs_Processes(t *testing.T) {
	for _, workers := range []int{0, 4} {
		p := NewProcfs(Options{ProcRoot: writeProcTree(t, fixture()...), ConcurrentReads: workers})
		got, failed := collect(t, p)

		assert.Equal(t, 1, failed, "workers=%d", workers)
		require.Len(t, got, 2, "workers=%d", workers)

		initProc := got[1]
		assert.Equal(t, "systemd", initProc.Name)
		assert.Equal(t, "S", initProc.StateCode)
		assert.Equal(t, uint64(300), initProc.CPUTicks)
		assert.Equal(t, uint64(30*os.Getpagesize()), initProc.RSSBytes)
		assert.Equal(t, []string{"/sbin/init", "splash"}, initProc.Cmdline)
		assert.Equal(t, harvest.IOCounters{ReadBytes: 1000, WriteBytes: 2000}, initProc.IO)
		assert.NoError(t, initProc.IOErr)
		require.NotNil(t, initProc.OwnerID)
		assert.Equal(t, uint32(os.Getuid()), *initProc.OwnerID)

		kthread := got[2]
		assert.Empty(t, kthread.Cmdline)
		assert.NoError(t, kthread.CmdlineErr)
		assert.Error(t, kthread.IOErr)
		assert.Equal(t, int32(0), kthread.ParentPID)
	}
}

func TestProcfs_ConcurrentEarlyStop(t *testing.T) {
	procs := make([]fixtureProc, 0, 50)
	for i := 100; i < 150; i++ {
		pid := strconv.Itoa(i)
		procs = append(procs, fixtureProc{
			pid:     pid,
			stat:    pid + " (w) R 1 1 1 0 -1 0 0 0 0 0 1 1 0 0 20 0 1 0 5 0 0 0\n",
			cmdline: "w\x00",
		})
	}
	p := NewProcfs(Options{ProcRoot: writeProcTree(t, procs...), ConcurrentReads: 8})

	seq, err := p.Processes(context.Background())
	require.NoError(t, err)
	n := 0
	for range seq {
		n++
		if n == 5 {
			break
		}
	}
	assert.Equal(t, 5, n)
}

func TestProcfs_CancelledContextStopsSequence(t *testing.T) {
	p := NewProcfs(Options{ProcRoot: writeProcTree(t, fixture()...)})
	ctx, cancel := context.WithCancel(context.Background())
	seq, err := p.Processes(ctx)
	require.NoError(t, err)
	cancel()

	n := 0
	for range seq {
		n++
	}
	assert.Zero(t, n)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Options{})
	require.NoError(t, err)
	assert.IsType(t, &Procfs{}, p)

	p, err = NewProvider(Options{Backend: BackendGopsutil})
	require.NoError(t, err)
	assert.IsType(t, &Gopsutil{}, p)

	_, err = NewProvider(Options{Backend: "wmi"})
	assert.Error(t, err)
}
