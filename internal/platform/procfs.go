package platform

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Guliveer/vitalis/harvester/internal/harvest"
)

// parseCPULine extracts idle and non-idle totals from the aggregate line of
// /proc/stat. idle is idle+iowait; non-idle is user+nice+system+irq+softirq+steal.
// guest and guest_nice are already counted in user and nice. Fields missing on
// older kernels count as 0.
func parseCPULine(line string) (idle, nonIdle float64, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "cpu" {
		return 0, 0, ErrNoCPULine
	}

	var v [8]float64
	for i, f := range fields[1:] {
		if i == len(v) {
			break
		}
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: cpu field %d: %q", ErrMalformedStat, i+1, f)
		}
		v[i] = n
	}

	user, nice, system, idleTicks, iowait, irq, softirq, steal := v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7]
	return idleTicks + iowait, user + nice + system + irq + softirq + steal, nil
}

// procStat is the subset of /proc/<pid>/stat the sampler needs.
type procStat struct {
	comm     string
	state    string
	ppid     int32
	utime    uint64
	stime    uint64
	rssPages uint64
}

// parseStat parses /proc/<pid>/stat. comm may contain spaces and parentheses,
// so it is taken between the first '(' and the last ')'.
func parseStat(data []byte) (procStat, error) {
	var st procStat

	open := bytes.IndexByte(data, '(')
	end := bytes.LastIndexByte(data, ')')
	if open < 0 || end < open || end+2 > len(data) {
		return st, ErrMalformedStat
	}
	st.comm = string(data[open+1 : end])

	// Indexes are relative to the field after comm: state is 0, rss is 21.
	fields := bytes.Fields(data[end+2:])
	if len(fields) < 22 {
		return st, fmt.Errorf("%w: %d fields after comm", ErrMalformedStat, len(fields))
	}

	st.state = string(fields[0])
	ppid, err := strconv.ParseInt(string(fields[1]), 10, 32)
	if err != nil {
		return st, fmt.Errorf("%w: ppid: %w", ErrMalformedStat, err)
	}
	st.ppid = int32(ppid)

	if st.utime, err = strconv.ParseUint(string(fields[11]), 10, 64); err != nil {
		return st, fmt.Errorf("%w: utime: %w", ErrMalformedStat, err)
	}
	if st.stime, err = strconv.ParseUint(string(fields[12]), 10, 64); err != nil {
		return st, fmt.Errorf("%w: stime: %w", ErrMalformedStat, err)
	}
	// rss is signed in the kernel; a negative value is treated as 0.
	if rss, err := strconv.ParseInt(string(fields[21]), 10, 64); err == nil && rss > 0 {
		st.rssPages = uint64(rss)
	}
	return st, nil
}

// parseIO reads read_bytes and write_bytes from /proc/<pid>/io.
func parseIO(data []byte) (harvest.IOCounters, error) {
	var io harvest.IOCounters
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		var dst *uint64
		switch key {
		case "read_bytes":
			dst = &io.ReadBytes
		case "write_bytes":
			dst = &io.WriteBytes
		default:
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return harvest.IOCounters{}, fmt.Errorf("%w: %s: %w", ErrMalformedStat, key, err)
		}
		*dst = n
	}
	return io, sc.Err()
}

// parseCmdline splits a NUL-separated argument vector. An empty file (kernel
// threads, zombies) yields an empty, non-nil slice.
func parseCmdline(data []byte) []string {
	data = bytes.TrimRight(data, "\x00")
	if len(data) == 0 {
		return []string{}
	}
	return strings.Split(string(data), "\x00")
}
