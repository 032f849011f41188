package datamap

// Collection identifies one of the named entity collections that carry Data Elements
type Collection string

const (
	ProcessingActivities Collection = "processing_activities"
	Assets               Collection = "assets"
)

// Entity is a Processing Activity or Asset with its attached Data Elements
type Entity struct {
	Name     string   `json:"name"`
	Elements []string `json:"elements"`
}

// Model is an AI model record linked to the Processing Activity it serves
type Model struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Purpose     string `json:"purpose"`
}

// Link is a directed association: Source references or contains Target
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// entitySet is an insertion-ordered map of entity name to element list
type entitySet struct {
	order    []string
	elements map[string][]string
}

func newEntitySet() *entitySet {
	return &entitySet{elements: make(map[string][]string)}
}

func (s *entitySet) upsert(name string, elements []string) {
	existing, ok := s.elements[name]
	if !ok {
		s.order = append(s.order, name)
		existing = make([]string, 0, len(elements))
	}
	s.elements[name] = unionInOrder(existing, elements)
}

func (s *entitySet) list() []Entity {
	out := make([]Entity, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, Entity{Name: name, Elements: copyStrings(s.elements[name])})
	}
	return out
}

// unionInOrder appends the members of add that are not already in base,
// keeping the first-seen order of both lists
func unionInOrder(base, add []string) []string {
	seen := make(map[string]bool, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, e := range base {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	for _, e := range add {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Store holds one session's Data Map: Processing Activities, Assets,
// Vendors, Models and the links between them.
//
// A Store is not safe for concurrent use. Callers serialize access,
// see session.Session.
type Store struct {
	activities *entitySet
	assets     *entitySet

	vendors   []string
	vendorSet map[string]bool

	modelOrder []string
	models     map[string]Model

	links *linkGraph
}

// NewStore creates an empty Data Map
func NewStore() *Store {
	return &Store{
		activities: newEntitySet(),
		assets:     newEntitySet(),
		vendorSet:  make(map[string]bool),
		models:     make(map[string]Model),
		links:      newLinkGraph(),
	}
}

func (s *Store) collection(c Collection) *entitySet {
	switch c {
	case ProcessingActivities:
		return s.activities
	case Assets:
		return s.assets
	default:
		return nil
	}
}

// UpsertEntity inserts name into the collection, or merges elements into the
// existing entry by set union. Unknown collections are ignored.
func (s *Store) UpsertEntity(c Collection, name string, elements []string) {
	set := s.collection(c)
	if set == nil {
		return
	}
	set.upsert(name, elements)
}

// Entities returns the entities of a collection in insertion order
func (s *Store) Entities(c Collection) []Entity {
	set := s.collection(c)
	if set == nil {
		return nil
	}
	return set.list()
}

// Entity looks up a single entity
func (s *Store) Entity(c Collection, name string) (Entity, bool) {
	set := s.collection(c)
	if set == nil {
		return Entity{}, false
	}
	elements, ok := set.elements[name]
	if !ok {
		return Entity{}, false
	}
	return Entity{Name: name, Elements: copyStrings(elements)}, true
}

// HasEntity reports whether name is present in the collection
func (s *Store) HasEntity(c Collection, name string) bool {
	set := s.collection(c)
	if set == nil {
		return false
	}
	_, ok := set.elements[name]
	return ok
}

// AddLink records source -> target unless that exact pair already exists.
// Returns true when a new link was added.
func (s *Store) AddLink(source, target string) bool {
	return s.links.add(Link{Source: source, Target: target})
}

// HasLink reports whether the exact ordered pair is recorded
func (s *Store) HasLink(source, target string) bool {
	return s.links.has(Link{Source: source, Target: target})
}

// Links returns all links in insertion order
func (s *Store) Links() []Link {
	out := make([]Link, len(s.links.order))
	copy(out, s.links.order)
	return out
}

// AddVendor adds name to the vendor set. Returns true if it was new.
func (s *Store) AddVendor(name string) bool {
	if s.vendorSet[name] {
		return false
	}
	s.vendorSet[name] = true
	s.vendors = append(s.vendors, name)
	return true
}

// HasVendor reports whether name is a known vendor in this map
func (s *Store) HasVendor(name string) bool {
	return s.vendorSet[name]
}

// Vendors returns vendor names in insertion order
func (s *Store) Vendors() []string {
	return copyStrings(s.vendors)
}

// AddModel inserts or overwrites the model record and links purpose -> name
func (s *Store) AddModel(name, description, purpose string) {
	if _, exists := s.models[name]; !exists {
		s.modelOrder = append(s.modelOrder, name)
	}
	s.models[name] = Model{Name: name, Description: description, Purpose: purpose}
	s.AddLink(purpose, name)
}

// Model looks up a model by name
func (s *Store) Model(name string) (Model, bool) {
	m, ok := s.models[name]
	return m, ok
}

// Models returns models in insertion order
func (s *Store) Models() []Model {
	out := make([]Model, 0, len(s.modelOrder))
	for _, name := range s.modelOrder {
		out = append(out, s.models[name])
	}
	return out
}

// Downstream returns every name reachable from name by following links,
// ordered by when each name first appeared in a link. name itself is not
// included.
func (s *Store) Downstream(name string) []string {
	return s.links.reachableFrom(name)
}

// Cycles returns groups of names that reach each other through links, such
// as a vendor engagement named after one of its own vendors. Self-links are
// not cycles.
func (s *Store) Cycles() [][]string {
	return s.links.cycles()
}

// IsEmpty reports whether the map holds no entities, vendors, models or links
func (s *Store) IsEmpty() bool {
	return len(s.activities.order) == 0 &&
		len(s.assets.order) == 0 &&
		len(s.vendors) == 0 &&
		len(s.modelOrder) == 0 &&
		len(s.links.order) == 0
}

// Snapshot is a serializable copy of a Store
type Snapshot struct {
	ProcessingActivities []Entity `json:"processingActivities"`
	Assets               []Entity `json:"assets"`
	Vendors              []string `json:"vendors"`
	Models               []Model  `json:"models"`
	Links                []Link   `json:"links"`
}

// Snapshot copies the current state
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		ProcessingActivities: s.Entities(ProcessingActivities),
		Assets:               s.Entities(Assets),
		Vendors:              s.Vendors(),
		Models:               s.Models(),
		Links:                s.Links(),
	}
}
