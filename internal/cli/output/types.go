package output

// JSON documents written by commands in ModeJSON.

// WalkNode is one entry of a script order.
type WalkNode struct {
	Urn         string `json:"urn"`
	SchemaBound bool   `json:"schema_bound"`
	Root        bool   `json:"root"`
}

// WalkOutput is the result of the walk command.
type WalkOutput struct {
	Direction  string     `json:"direction"`
	Nodes      []WalkNode `json:"nodes"`
	Discovered int        `json:"discovered"`
	Total      int        `json:"total"`
}

// DiscoverOutput is the result of the discover command.
type DiscoverOutput struct {
	Behavior string              `json:"behavior"`
	Objects  []string            `json:"objects"`
	Children map[string][]string `json:"children,omitempty"`
}

// TreeNode is one node of a dependency tree dump.
type TreeNode struct {
	Urn         string     `json:"urn"`
	SchemaBound bool       `json:"schema_bound"`
	Cycle       bool       `json:"cycle,omitempty"`
	Links       []TreeNode `json:"links,omitempty"`
}

// TreeOutput is the result of the tree command.
type TreeOutput struct {
	Direction string     `json:"direction"`
	Roots     []TreeNode `json:"roots"`
}

// ImportOutput is the result of the import command.
type ImportOutput struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Objects      int    `json:"objects"`
	Dependencies int    `json:"dependencies"`
	Children     int    `json:"children"`
}

// ImportHistoryEntry is one past import.
type ImportHistoryEntry struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	Objects    int    `json:"objects"`
	ImportedAt string `json:"imported_at"`
}
