package model

import "testing"

func TestFlattenElements_Basic(t *testing.T) {
	elements := []Element{
		{ID: "ok", Role: "AXButton", Title: "OK"},
		{ID: "hello", Role: "AXStaticText", Value: "Hello"},
	}
	result := FlattenElements(elements)
	if len(result) != 2 {
		t.Fatalf("expected 2 flat elements, got %d", len(result))
	}
	if result[0].Path != "btn" {
		t.Errorf("expected path 'btn', got %q", result[0].Path)
	}
	if result[1].Path != "txt" {
		t.Errorf("expected path 'txt', got %q", result[1].Path)
	}
}

func TestFlattenElements_NestedPath(t *testing.T) {
	elements := []Element{
		{
			ID: "main", Role: "AXWindow", Title: "Main",
			Children: []Element{
				{
					ID: "nav", Role: "AXToolbar", Title: "Nav",
					Children: []Element{
						{ID: "back", Role: "AXButton", Title: "Back"},
					},
				},
			},
		},
	}
	result := FlattenElements(elements)
	if len(result) != 3 {
		t.Fatalf("expected 3 flat elements, got %d", len(result))
	}
	if result[0].Path != "window" {
		t.Errorf("expected path 'window', got %q", result[0].Path)
	}
	if result[1].Path != "window > toolbar" {
		t.Errorf("expected path 'window > toolbar', got %q", result[1].Path)
	}
	if result[2].Path != "window > toolbar > btn" {
		t.Errorf("expected path 'window > toolbar > btn', got %q", result[2].Path)
	}
}

func TestFlattenElements_ParentLinks(t *testing.T) {
	elements := []Element{
		{
			ID: "group", Role: "AXGroup",
			Children: []Element{
				{ID: "submit", Role: "AXButton", Title: "Submit"},
				{ID: "label", Role: "AXStaticText", Value: "Label"},
			},
		},
	}
	result := FlattenElements(elements)
	if len(result) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(result))
	}
	if result[0].Parent != "" {
		t.Errorf("root should have no parent, got %q", result[0].Parent)
	}
	for _, el := range result[1:] {
		if el.Parent != "group" {
			t.Errorf("%s: expected parent 'group', got %q", el.ID, el.Parent)
		}
	}
}

func TestFlattenElements_DropsChildren(t *testing.T) {
	elements := []Element{
		{ID: "w", Role: "AXWindow", Children: []Element{{ID: "b", Role: "AXButton"}}},
	}
	result := FlattenElements(elements)
	if len(result[0].Children) != 0 {
		t.Errorf("flat element should not carry children, got %d", len(result[0].Children))
	}
	if got := ChildIDs(elements[0]); len(got) != 1 || got[0] != "b" {
		t.Errorf("ChildIDs = %v, want [b]", got)
	}
}

func TestFlattenElements_NoChildren(t *testing.T) {
	result := FlattenElements(nil)
	if len(result) != 0 {
		t.Errorf("expected 0 elements for nil input, got %d", len(result))
	}
}
