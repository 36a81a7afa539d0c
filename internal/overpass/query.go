package overpass

import (
	"fmt"
	"strings"
	"time"
)

// AreaQuery selects nodes carrying one tag inside a named area.
type AreaQuery struct {
	Area     string        // value of the area's name tag, e.g. "Berlin"
	Boundary string        // value of the area's boundary tag; empty skips the filter
	TagKey   string        // e.g. "amenity"
	TagValue string        // e.g. "cafe"
	Limit    int           // maximum number of elements to output; <= 0 outputs all
	Timeout  time.Duration // server-side query timeout; 0 uses the server default
}

// String renders the query as Overpass QL.
func (q AreaQuery) String() string {
	var b strings.Builder

	b.WriteString("[out:json]")
	if secs := int(q.Timeout / time.Second); secs > 0 {
		fmt.Fprintf(&b, "[timeout:%d]", secs)
	}
	b.WriteString(";\n")

	fmt.Fprintf(&b, "area[%s=%s]", quote("name"), quote(q.Area))
	if q.Boundary != "" {
		fmt.Fprintf(&b, "[%s=%s]", quote("boundary"), quote(q.Boundary))
	}
	b.WriteString("->.searchArea;\n")

	fmt.Fprintf(&b, "node(area.searchArea)[%s=%s];\n", quote(q.TagKey), quote(q.TagValue))

	if q.Limit > 0 {
		fmt.Fprintf(&b, "out %d;", q.Limit)
	} else {
		b.WriteString("out;")
	}

	return b.String()
}

// quote renders s as an Overpass QL string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}
