package google

import (
	"fmt"
	"strconv"
	"strings"
)

// findRow returns the 1-based sheet row whose id column equals id, or 0.
func findRow(values [][]interface{}, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) <= idColumn {
			continue
		}
		if cols[idColumn] == want {
			return i + 1
		}
	}
	return 0
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
