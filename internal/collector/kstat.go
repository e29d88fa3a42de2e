package collector

import (
	"bufio"
	"bytes"
	"strings"
)

// parseKstat reads a Linux SPL kstat file ("name type data" rows) into a map
// of name to the row's last field. Header rows are kept as well; callers look
// up the names they need.
func parseKstat(data []byte) map[string]string {
	out := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		out[fields[0]] = fields[len(fields)-1]
	}
	return out
}
