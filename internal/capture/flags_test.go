package capture

import (
	"encoding/json"
	"testing"
)

func TestFlagNamesCanonicalOrder(t *testing.T) {
	f := FlagIndexed | FlagDrawcall | FlagInstanced

	got := f.Names()
	want := []string{"Drawcall", "Indexed", "Instanced"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}
}

func TestFlagsJSONRoundTrip(t *testing.T) {
	f := FlagClear | FlagClearDepthStencil

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `["Clear","ClearDepthStencil"]` {
		t.Fatalf("Marshal() = %s, want name list", data)
	}

	var back ActionFlags
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back != f {
		t.Fatalf("round trip = %v, want %v", back, f)
	}
}

func TestFlagsUnmarshalRejectsUnknownName(t *testing.T) {
	var f ActionFlags
	if err := json.Unmarshal([]byte(`["Drawcall","Teleport"]`), &f); err == nil {
		t.Fatal("Unmarshal() error = nil, want unknown flag error")
	}
}

func TestIsMarker(t *testing.T) {
	cases := []struct {
		flags ActionFlags
		want  bool
	}{
		{FlagPushMarker, true},
		{FlagSetMarker, true},
		{FlagPopMarker, true},
		{FlagDrawcall | FlagIndexed, false},
	}
	for _, tc := range cases {
		if got := tc.flags.IsMarker(); got != tc.want {
			t.Fatalf("IsMarker(%v) = %v, want %v", tc.flags.Names(), got, tc.want)
		}
	}
}
