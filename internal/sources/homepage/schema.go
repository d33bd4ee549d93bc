package homepage

// Both Homepage files share one outer shape:
//
//	- Group:
//	    - Name: <value>
//
// In bookmarks.yaml <value> is a one-element list of BookmarkEntry, in
// services.yaml it is a ServiceProps mapping.

// BookmarkEntry is one bookmark in bookmarks.yaml.
type BookmarkEntry struct {
	Icon string `yaml:"icon"`
	Abbr string `yaml:"abbr"`
	Href string `yaml:"href"`
}

// ServiceProps is the subset of a services.yaml entry the importer reads.
type ServiceProps struct {
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Entry is one link found in either file, in file order.
type Entry struct {
	Group string
	Name  string
	Href  string
	// Line is the 1-based line of Name in the file.
	Line int
}
