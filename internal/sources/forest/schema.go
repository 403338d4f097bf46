package forest

// SeedNode is one node in the seed file: a bookmark when URL is set, a
// folder otherwise.
type SeedNode struct {
	Title    string     `yaml:"title"`
	URL      string     `yaml:"url,omitempty"`
	Children []SeedNode `yaml:"children,omitempty"`
}

// SeedContainer is one top-level native container and its contents.
type SeedContainer struct {
	Title    string     `yaml:"title"`
	Children []SeedNode `yaml:"children,omitempty"`
}

// ForestConfig is the root structure of a forest seed file.
type ForestConfig struct {
	Containers []SeedContainer `yaml:"containers"`
}
