package ai

import (
	"testing"
)

func TestUnmarshalFlexible(t *testing.T) {
	type node struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}

	tests := []struct {
		name  string
		input string
		want  node
	}{
		{
			name:  "valid json object",
			input: `{"id":"Alice","type":"Person"}`,
			want:  node{ID: "Alice", Type: "Person"},
		},
		{
			name:  "unquoted keys and single quotes",
			input: `{id: 'Alice', type: 'Person'}`,
			want:  node{ID: "Alice", Type: "Person"},
		},
		{
			name:  "trailing comma",
			input: `{"id":"Alice","type":"Person",}`,
			want:  node{ID: "Alice", Type: "Person"},
		},
		{
			name:  "missing end bracket",
			input: `{"id":"Alice","type":"Person"`,
			want:  node{ID: "Alice", Type: "Person"},
		},
		{
			name:  "double-encoded string",
			input: `"{\"id\": \"Alice\", \"type\": \"Person\"}"`,
			want:  node{ID: "Alice", Type: "Person"},
		},
		{
			name:  "doubled leading brace",
			input: "{\n{\n  \"id\": \"Alice\", \"type\": \"Person\"\n}\n",
			want:  node{ID: "Alice", Type: "Person"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got node
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_Array(t *testing.T) {
	type node struct {
		ID string `json:"id"`
	}

	var got []node
	if err := UnmarshalFlexible(`[{id:'A'},{id:'B',}]`, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "A" || got[1].ID != "B" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want nodes A,B", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type node struct {
		ID string `json:"id"`
	}

	var got node
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}
