package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
)

func TestParseCPULine(t *testing.T) {
	tests := []struct {
		line        string
		wantIdle    float64
		wantNonIdle float64
	}{
		{"cpu 100 0 100 100", 100, 200},
		{"cpu 100 0 100 100 15 15 15 15 15 15", 115, 245},
		{"cpu  1 1 1 1 1 1 1 1 1 1", 2, 6},
		{"cpu  0 0 0 0 0 0 0 0 0 0", 0, 0},
		{"cpu", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			idle, nonIdle, err := parseCPULine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIdle, idle)
			assert.Equal(t, tt.wantNonIdle, nonIdle)
		})
	}
}

func TestParseCPULine_Errors(t *testing.T) {
	_, _, err := parseCPULine("cpu0 1 2 3 4")
	assert.ErrorIs(t, err, ErrNoCPULine)

	_, _, err = parseCPULine("")
	assert.ErrorIs(t, err, ErrNoCPULine)

	_, _, err = parseCPULine("cpu 1 2 x 4")
	assert.ErrorIs(t, err, ErrMalformedStat)
}

func statLine(comm string) string {
	// state ppid pgrp session tty tpgid flags minflt cminflt majflt cmajflt
	// utime stime cutime cstime prio nice threads itreal start vsize rss ...
	return "1234 (" + comm + ") S 1 1234 1234 0 -1 4194560 100 0 0 0 " +
		"250 50 0 0 20 0 1 0 5000 123456789 300 18446744073709551615\n"
}

func TestParseStat(t *testing.T) {
	st, err := parseStat([]byte(statLine("bash")))
	require.NoError(t, err)
	assert.Equal(t, procStat{comm: "bash", state: "S", ppid: 1, utime: 250, stime: 50, rssPages: 300}, st)
}

func TestParseStat_CommWithParensAndSpaces(t *testing.T) {
	st, err := parseStat([]byte(statLine("Web Content (x)")))
	require.NoError(t, err)
	assert.Equal(t, "Web Content (x)", st.comm)
	assert.Equal(t, uint64(250), st.utime)
}

func TestParseStat_Malformed(t *testing.T) {
	for _, in := range []string{
		"",
		"1234 bash S 1",
		"1234 (bash)",
		"1234 (bash) S 1 2 3",
		"1234 (bash) S x 1234 1234 0 -1 4194560 100 0 0 0 250 50 0 0 20 0 1 0 5000 1 300",
	} {
		_, err := parseStat([]byte(in))
		assert.ErrorIs(t, err, ErrMalformedStat, "input %q", in)
	}
}

func TestParseIO(t *testing.T) {
	data := []byte("rchar: 5000\nwchar: 100\nsyscr: 10\nsyscw: 2\n" +
		"read_bytes: 4096\nwrite_bytes: 8192\ncancelled_write_bytes: 0\n")
	io, err := parseIO(data)
	require.NoError(t, err)
	assert.Equal(t, harvest.IOCounters{ReadBytes: 4096, WriteBytes: 8192}, io)

	_, err = parseIO([]byte("read_bytes: lots\n"))
	assert.ErrorIs(t, err, ErrMalformedStat)
}

func TestParseCmdline(t *testing.T) {
	assert.Equal(t, []string{"/usr/bin/python3", "-m", "http.server"},
		parseCmdline([]byte("/usr/bin/python3\x00-m\x00http.server\x00")))
	assert.Equal(t, []string{"nginx: worker process"}, parseCmdline([]byte("nginx: worker process")))

	empty := parseCmdline(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
