package model

// FlatElement is an element with a path breadcrumb and parent link instead
// of children.
type FlatElement struct {
	Element
	Parent string `yaml:"parent,omitempty" json:"parent,omitempty"`
	Path   string `yaml:"path,omitempty"   json:"path,omitempty"`
}

// FlattenElements converts a tree of elements into a flat list in depth-first
// order. Each element gets a path string showing its location in the tree
// using compact role codes joined with " > ".
func FlattenElements(elements []Element) []FlatElement {
	var result []FlatElement
	for _, el := range elements {
		flattenRecursive(el, "", "", &result)
	}
	return result
}

func flattenRecursive(el Element, parentID, parentPath string, result *[]FlatElement) {
	currentPath := MapRole(el.Role)
	if parentPath != "" {
		currentPath = parentPath + " > " + currentPath
	}

	flat := FlatElement{
		Element: el,
		Parent:  parentID,
		Path:    currentPath,
	}
	flat.Children = nil
	*result = append(*result, flat)

	for _, child := range el.Children {
		flattenRecursive(child, el.ID, currentPath, result)
	}
}

// ChildIDs returns the IDs of the direct children of el.
func ChildIDs(el Element) []string {
	if len(el.Children) == 0 {
		return nil
	}
	ids := make([]string, 0, len(el.Children))
	for _, c := range el.Children {
		ids = append(ids, c.ID)
	}
	return ids
}
