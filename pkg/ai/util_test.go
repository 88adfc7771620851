package ai

import "testing"

func TestUnmarshalFlexible(t *testing.T) {
	type extraction struct {
		Entities []struct {
			Name string `json:"name"`
		} `json:"entities"`
	}

	tests := []struct {
		name      string
		input     string
		wantCount int
	}{
		{
			name:      "plain json",
			input:     `{"entities":[{"name":"Redis"}]}`,
			wantCount: 1,
		},
		{
			name:      "json code fence",
			input:     "```json\n{\"entities\":[{\"name\":\"Redis\"}]}\n```",
			wantCount: 1,
		},
		{
			name:      "bare code fence",
			input:     "```\n{\"entities\":[{\"name\":\"Redis\"}]}\n```",
			wantCount: 1,
		},
		{
			name:      "prose around object",
			input:     "Here is the result:\n{\"entities\":[{\"name\":\"Redis\"}]}\nHope that helps.",
			wantCount: 1,
		},
		{
			name:      "trailing comma repaired",
			input:     `{"entities":[{"name":"Redis"},]}`,
			wantCount: 1,
		},
		{
			name:      "unquoted key repaired",
			input:     `{entities: [{name: "Redis"}]}`,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got extraction
			if err := UnmarshalFlexible(tt.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if len(got.Entities) != tt.wantCount {
				t.Errorf("got %d entities, want %d", len(got.Entities), tt.wantCount)
			}
		})
	}
}

func TestUnmarshalFlexible_NoObject(t *testing.T) {
	var out map[string]any
	if err := UnmarshalFlexible("no json here at all", &out); err == nil {
		t.Error("expected error for input without a JSON object")
	}
}

func TestExtractJSONObject(t *testing.T) {
	got, ok := ExtractJSONObject(`leading {"a": {"b": 1}} trailing`)
	if !ok {
		t.Fatal("expected an object span")
	}
	if got != `{"a": {"b": 1}}` {
		t.Errorf("ExtractJSONObject() = %q", got)
	}

	if _, ok := ExtractJSONObject("nothing"); ok {
		t.Error("expected no object span")
	}
}
