package search

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDescribeFirstItemRootArray(t *testing.T) {
	var raw any
	fixture := `[{"score":17.6,"show":{"id":1,"name":"Under the Dome"}},{"score":12.1,"show":{"id":2}}]`
	if err := json.Unmarshal([]byte(fixture), &raw); err != nil {
		t.Fatal(err)
	}

	spec := ProviderSpec{Name: "tvmaze", ResultsPath: ""}
	got := DescribeFirstItem(spec, raw)
	want := []string{"score", "show"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DescribeFirstItem = %v, want %v", got, want)
	}
}

func TestDescribeFirstItemNestedPath(t *testing.T) {
	var raw any
	fixture := `{"data":{"children":[{"kind":"t3","data":{"title":"X"}}]}}`
	if err := json.Unmarshal([]byte(fixture), &raw); err != nil {
		t.Fatal(err)
	}

	spec := ProviderSpec{Name: "reddit", ResultsPath: "data.children"}
	got := DescribeFirstItem(spec, raw)
	want := []string{"data", "kind"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DescribeFirstItem = %v, want %v", got, want)
	}
}

func TestDescribeFirstItemDegenerateShapes(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
		path    string
	}{
		{"absent path", `{"other":[]}`, "results"},
		{"not an array", `{"results":{"a":1}}`, "results"},
		{"empty array", `{"results":[]}`, "results"},
		{"first element not an object", `{"results":["plain string"]}`, "results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw any
			if err := json.Unmarshal([]byte(tt.fixture), &raw); err != nil {
				t.Fatal(err)
			}
			got := DescribeFirstItem(ProviderSpec{ResultsPath: tt.path}, raw)
			if len(got) != 0 {
				t.Errorf("Expected empty key list, got %v", got)
			}
		})
	}
}
