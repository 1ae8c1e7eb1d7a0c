package telemetry

// screenGraph is the default screen-graph table: a name to list-of-neighbors
// mapping plus the name->id assignment the backend expects. spec.md
// describes this table only as a pure function supplied by an external
// navigation module; this is a small, reasonable default for the sample
// driver, and callers wire their own by setting Producer.Graph.
var screenGraph = map[string][]string{
	"chats_list_tab":  {"chat_view", "contacts_tab", "settings_tab", "search"},
	"chat_view":       {"chats_list_tab", "chat_info", "media_viewer"},
	"chat_info":       {"chat_view", "contacts_tab"},
	"contacts_tab":    {"chats_list_tab", "contact_profile"},
	"contact_profile": {"contacts_tab", "chat_view"},
	"settings_tab":    {"chats_list_tab", "profile_edit"},
	"profile_edit":    {"settings_tab"},
	"search":          {"chats_list_tab", "chat_view"},
	"media_viewer":    {"chat_view"},
}

var screenIDs = buildScreenIDs(screenGraph)

func buildScreenIDs(graph map[string][]string) map[string]uint32 {
	names := make([]string, 0, len(graph))
	for name := range graph {
		names = append(names, name)
	}
	sortStrings(names)
	ids := make(map[string]uint32, len(names))
	for i, name := range names {
		ids[name] = uint32(i + 1)
	}
	return ids
}

// sortStrings is a tiny insertion sort; the screen graph is small enough
// that pulling in "sort" for this one call isn't worth it, and id
// assignment only needs a stable order, not a fast one.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// ScreenGraph is a pure navigation source: given the current screen name, it
// returns the next screen name, and it assigns a stable numeric id to every
// screen name it knows about (spec.md section 4.4, "external navigation
// module"). NextScreen must be deterministic given the same rng draw and
// ScreenID must be stable for the lifetime of a process.
type ScreenGraph interface {
	NextScreen(current string, pick func(n int) int) string
	ScreenID(name string) uint32
}

// defaultGraph implements ScreenGraph over the package-level screenGraph
// table.
type defaultGraph struct{}

// DefaultScreenGraph returns the built-in screen graph described above.
func DefaultScreenGraph() ScreenGraph { return defaultGraph{} }

func (defaultGraph) NextScreen(current string, pick func(n int) int) string {
	neighbors, ok := screenGraph[current]
	if !ok || len(neighbors) == 0 {
		return "chats_list_tab"
	}
	return neighbors[pick(len(neighbors))]
}

func (defaultGraph) ScreenID(name string) uint32 {
	if id, ok := screenIDs[name]; ok {
		return id
	}
	return 0
}
