package homepage

import "gopkg.in/yaml.v3"

// Document is the shared top-level shape of Homepage's services.yaml and
// bookmarks.yaml: a list of groups, each a list of named items. The item
// body differs between the two files and is decoded lazily.
type Document []map[string][]map[string]yaml.Node

// ServiceProps is an item body in services.yaml
type ServiceProps struct {
	Href        string                 `yaml:"href"`
	Icon        string                 `yaml:"icon,omitempty"`
	Description string                 `yaml:"description,omitempty"`
	Target      string                 `yaml:"target,omitempty"`
	Ping        string                 `yaml:"ping,omitempty"`
	SiteMonitor string                 `yaml:"siteMonitor,omitempty"`
	Widget      map[string]interface{} `yaml:"widget,omitempty"`
}

// BookmarkEntry is an item body in bookmarks.yaml. Each bookmark name maps
// to a list holding a single entry.
type BookmarkEntry struct {
	Icon        string `yaml:"icon"`
	Abbr        string `yaml:"abbr"`
	Href        string `yaml:"href"`
	Description string `yaml:"description,omitempty"`
}
