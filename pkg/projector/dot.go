package projector

import (
	"fmt"
	"html"
	"strings"

	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// dotNode carries the Graphviz identity and styling of a projected node
type dotNode struct {
	id    int64
	dotID string
	attrs []encoding.Attribute
}

func (n dotNode) ID() int64                        { return n.id }
func (n dotNode) DOTID() string                    { return n.dotID }
func (n dotNode) Attributes() []encoding.Attribute { return n.attrs }

type attributes []encoding.Attribute

func (a attributes) Attributes() []encoding.Attribute { return a }

// dotGraph adds graph-wide default attributes to the directed graph
type dotGraph struct {
	*simple.DirectedGraph
}

func (g dotGraph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return attributes{{Key: "rankdir", Value: "LR"}},
		attributes{{Key: "fontsize", Value: "12"}, {Key: "fontname", Value: "Helvetica bold"}},
		attributes{}
}

// RenderDOT encodes the projected graph in Graphviz DOT, filling nodes with
// their legend color and appending the legend as an HTML table node.
// Self links are dropped because a simple directed graph cannot hold them.
func RenderDOT(data *GraphData) ([]byte, error) {
	g := dotGraph{simple.NewDirectedGraph()}
	ids := make(map[string]int64, len(data.Nodes)+1)

	var next int64
	addNode := func(id string, attrs []encoding.Attribute) {
		if _, ok := ids[id]; ok {
			return
		}
		ids[id] = next
		g.AddNode(dotNode{id: next, dotID: id, attrs: attrs})
		next++
	}

	for _, n := range data.Nodes {
		attrs := []encoding.Attribute{{Key: "label", Value: quoteLabel(n.Label)}}
		if color := ColorOf(n.Category); color != "" {
			attrs = append(attrs,
				encoding.Attribute{Key: "style", Value: "filled"},
				encoding.Attribute{Key: "color", Value: color})
		} else {
			attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dashed"})
		}
		addNode(n.ID, attrs)
	}

	for _, e := range data.Edges {
		from, okFrom := ids[e.Source]
		to, okTo := ids[e.Target]
		if !okFrom || !okTo {
			return nil, fmt.Errorf("edge %s -> %s references an unknown node", e.Source, e.Target)
		}
		if from == to || g.HasEdgeFromTo(from, to) {
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(from), g.Node(to)))
	}

	addNode("legend", []encoding.Attribute{
		{Key: "shape", Value: "plaintext"},
		{Key: "label", Value: legendHTML(data.Legend)},
	})

	out, err := dot.Marshal(g, "DataMap", "", "\t")
	if err != nil {
		return nil, fmt.Errorf("encoding DOT: %w", err)
	}
	return out, nil
}

// labelEscaper escapes the two characters that are special inside a quoted DOT string
var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quoteLabel quotes a user-supplied name so a value like "<b>x</b>" stays a
// plain string instead of becoming an HTML-like label.
func quoteLabel(s string) string {
	return `"` + labelEscaper.Replace(s) + `"`
}

// legendHTML renders the legend as a Graphviz HTML-like label
func legendHTML(legend []LegendEntry) string {
	var b strings.Builder
	b.WriteString(`<<table border="0" cellborder="0" cellspacing="2" cellpadding="2">`)
	b.WriteString(`<tr><td colspan="2" align="left"><b>Legend</b></td></tr>`)
	for _, entry := range legend {
		fmt.Fprintf(&b, `<tr><td width="20" height="20" bgcolor="%s"> </td><td align="left">%s</td></tr>`,
			html.EscapeString(entry.Color), html.EscapeString(entry.Label))
	}
	b.WriteString(`</table>>`)
	return b.String()
}
