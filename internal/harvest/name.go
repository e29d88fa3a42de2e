package harvest

import "strings"

// maxStatNameLen is the comm length at which the kernel may have truncated
// the name. Names this long are taken from the command line instead.
const maxStatNameLen = 15

// processNames derives the display name and command string of a process.
func processNames(raw *RawProcess) (name, command string) {
	name = raw.Name
	if raw.CmdlineErr != nil {
		return name, name
	}
	if len(raw.Cmdline) == 0 {
		// Kernel threads have an empty command line.
		return name, "[" + name + "]"
	}

	command = strings.Join(raw.Cmdline, " ")
	if len(name) >= maxStatNameLen {
		if exe := executableName(raw.Cmdline[0]); exe != "" {
			name = exe
		}
	}
	return name, command
}

// executableName returns the last path element of a command line's first
// token, or "" when the token is not a path.
func executableName(arg0 string) string {
	if i := strings.LastIndexByte(arg0, '/'); i >= 0 {
		return arg0[i+1:]
	}
	return ""
}

var stateLabels = map[string]string{
	"R": "Running",
	"S": "Sleeping",
	"D": "Disk Sleep",
	"Z": "Zombie",
	"T": "Stopped",
	"t": "Tracing",
	"X": "Dead",
	"x": "Dead",
	"I": "Idle",
	"W": "Waking",
	"K": "Wakekill",
	"P": "Parked",
}

// StateLabel maps a one-letter process state to a display label.
func StateLabel(code string) string {
	if label, ok := stateLabels[code]; ok {
		return label
	}
	return "Unknown"
}
