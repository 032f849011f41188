// Package projector turns a Data Map into a node/edge graph description that
// any graph rendering backend can draw.
package projector

import (
	"net/url"

	"github.com/cvsubs74/dm-consent/pkg/datamap"
)

// Category is the visual class of a node
type Category string

const (
	CategoryProcessingActivity Category = "Processing Activity"
	CategoryAsset              Category = "Asset"
	CategoryModel              Category = "Model"
	CategoryVendor             Category = "Vendor"
	CategoryDataElement        Category = "Data Element"
	// CategoryUnresolved marks placeholder nodes for link endpoints that are
	// not a known entity
	CategoryUnresolved Category = "Unresolved"
)

// EdgeKind distinguishes element containment from recorded links
type EdgeKind string

const (
	EdgeElement EdgeKind = "element"
	EdgeLink    EdgeKind = "link"
)

// GraphNode represents a node in the data map graph
type GraphNode struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Category Category `json:"category"`
	Parent   string   `json:"parent,omitempty"` // owning entity for Data Element nodes
}

// GraphEdge represents a directed edge in the data map graph
type GraphEdge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// LegendEntry maps a category label to its fill color
type LegendEntry struct {
	Label    string   `json:"label"`
	Category Category `json:"category"`
	Color    string   `json:"color"`
}

// GraphData holds the projected graph for visualization
type GraphData struct {
	Nodes  []GraphNode   `json:"nodes"`
	Edges  []GraphEdge   `json:"edges"`
	Legend []LegendEntry `json:"legend"`
}

// Legend is the fixed category color key
var Legend = []LegendEntry{
	{Label: "Processing Activities", Category: CategoryProcessingActivity, Color: "lightblue"},
	{Label: "Assets", Category: CategoryAsset, Color: "salmon"},
	{Label: "Models", Category: CategoryModel, Color: "yellow"},
	{Label: "Vendors", Category: CategoryVendor, Color: "orange"},
	{Label: "Data Elements", Category: CategoryDataElement, Color: "grey"},
}

// ColorOf returns the legend color for a category, or "" if it has none
func ColorOf(c Category) string {
	for _, e := range Legend {
		if e.Category == c {
			return e.Color
		}
	}
	return ""
}

// Node ID namespaces. Entity names are escaped so that a '/' inside a name
// can never forge another node's ID.
const (
	nsProcessingActivity = "processing_activity"
	nsAsset              = "asset"
	nsModel              = "model"
	nsVendor             = "vendor"
	nsUnresolved         = "unresolved"
)

// NodeID returns the node ID for an entity name in a namespace
func NodeID(namespace, name string) string {
	return namespace + "/" + url.PathEscape(name)
}

func elementNodeID(parentID, element string) string {
	return parentID + "/element/" + url.PathEscape(element)
}

// Project builds the graph description of store. It never fails: an empty
// store yields no nodes, no edges and the legend.
func Project(store *datamap.Store) *GraphData {
	g := &GraphData{
		Nodes:  make([]GraphNode, 0),
		Edges:  make([]GraphEdge, 0),
		Legend: append([]LegendEntry(nil), Legend...),
	}

	addEntities := func(entities []datamap.Entity, namespace string, category Category) {
		for _, entity := range entities {
			id := NodeID(namespace, entity.Name)
			g.Nodes = append(g.Nodes, GraphNode{ID: id, Label: entity.Name, Category: category})

			// Elements are not shared between parents: each parent gets its own child node
			for _, element := range entity.Elements {
				childID := elementNodeID(id, element)
				g.Nodes = append(g.Nodes, GraphNode{
					ID:       childID,
					Label:    element,
					Category: CategoryDataElement,
					Parent:   id,
				})
				g.Edges = append(g.Edges, GraphEdge{Source: id, Target: childID, Kind: EdgeElement})
			}
		}
	}

	addEntities(store.Entities(datamap.ProcessingActivities), nsProcessingActivity, CategoryProcessingActivity)
	addEntities(store.Entities(datamap.Assets), nsAsset, CategoryAsset)

	for _, model := range store.Models() {
		g.Nodes = append(g.Nodes, GraphNode{ID: NodeID(nsModel, model.Name), Label: model.Name, Category: CategoryModel})
	}
	for _, vendor := range store.Vendors() {
		g.Nodes = append(g.Nodes, GraphNode{ID: NodeID(nsVendor, vendor), Label: vendor, Category: CategoryVendor})
	}

	r := newResolver(store)
	for _, link := range store.Links() {
		source := r.resolve(link.Source, sourceOrder)
		target := r.resolve(link.Target, targetOrder)
		for _, id := range []string{source, target} {
			if placeholder, ok := r.takePlaceholder(id); ok {
				g.Nodes = append(g.Nodes, placeholder)
			}
		}
		g.Edges = append(g.Edges, GraphEdge{Source: source, Target: target, Kind: EdgeLink})
	}

	return g
}

// Links carry bare names. A name may exist in several collections, so each
// endpoint is resolved by trying collections in the order that matches how
// the integrations create links: sources are usually Processing Activities
// or Assets, targets are usually Assets, Vendors or Models.
var (
	sourceOrder = []string{nsProcessingActivity, nsAsset, nsModel, nsVendor}
	targetOrder = []string{nsAsset, nsVendor, nsModel, nsProcessingActivity}
)

type resolver struct {
	known        map[string]map[string]bool // namespace -> names
	placeholders map[string]GraphNode
	emitted      map[string]bool
}

func newResolver(store *datamap.Store) *resolver {
	r := &resolver{
		known: map[string]map[string]bool{
			nsProcessingActivity: {},
			nsAsset:              {},
			nsModel:              {},
			nsVendor:             {},
		},
		placeholders: make(map[string]GraphNode),
		emitted:      make(map[string]bool),
	}
	for _, e := range store.Entities(datamap.ProcessingActivities) {
		r.known[nsProcessingActivity][e.Name] = true
	}
	for _, e := range store.Entities(datamap.Assets) {
		r.known[nsAsset][e.Name] = true
	}
	for _, m := range store.Models() {
		r.known[nsModel][m.Name] = true
	}
	for _, v := range store.Vendors() {
		r.known[nsVendor][v] = true
	}
	return r
}

func (r *resolver) resolve(name string, order []string) string {
	for _, ns := range order {
		if r.known[ns][name] {
			return NodeID(ns, name)
		}
	}
	id := NodeID(nsUnresolved, name)
	if _, ok := r.placeholders[id]; !ok {
		r.placeholders[id] = GraphNode{ID: id, Label: name, Category: CategoryUnresolved}
	}
	return id
}

// takePlaceholder returns the placeholder node for id the first time it is asked
func (r *resolver) takePlaceholder(id string) (GraphNode, bool) {
	node, ok := r.placeholders[id]
	if !ok || r.emitted[id] {
		return GraphNode{}, false
	}
	r.emitted[id] = true
	return node, true
}
