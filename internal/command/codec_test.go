package command

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/talgya/hamlet/internal/buildings"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

func TestDecodeJSON(t *testing.T) {
	cmd, err := DecodeJSON([]byte(`{
		"type": "place_building",
		"id": "cmd-1",
		"player": 3,
		"tick": 12,
		"params": {"type": "farm", "x": "4", "y": "5", "rotation": "90"}
	}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	want := PlaceBuilding{
		Base:     Base{CmdID: "cmd-1", By: 3, AtTick: 12},
		Type:     buildings.Farm,
		Origin:   world.Coord{X: 4, Y: 5},
		Rotation: buildings.Rot90,
	}
	if cmd != engine.Command(want) {
		t.Errorf("decoded %+v, want %+v", cmd, want)
	}
}

func TestDecodeDefaults(t *testing.T) {
	cmd, err := Decode(Envelope{Type: "Spawn-Family", ID: "a", Params: map[string]string{"x": "1", "y": "2"}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	sf := cmd.(SpawnFamily)
	if sf.Adults != 2 || sf.Children != 0 || sf.At != (world.Coord{X: 1, Y: 2}) {
		t.Errorf("defaults = %+v", sf)
	}

	cmd, err = Decode(Envelope{Type: "transfer_resources", ID: "b", Params: map[string]string{
		"to": "4", "resource": "stone", "amount": "3",
	}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tr := cmd.(TransferResources)
	if tr.From != VillageStock || tr.To != 4 || tr.Resource != economy.Stone {
		t.Errorf("transfer = %+v", tr)
	}
}

func TestDecodeUnknownKindSuggests(t *testing.T) {
	_, err := Decode(Envelope{Type: "asign_job", ID: "x"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
	if !strings.Contains(err.Error(), `did you mean "assign_job"`) {
		t.Errorf("no hint in %q", err)
	}
}

func TestDecodeBadParams(t *testing.T) {
	tests := []struct {
		name  string
		env   Envelope
		inErr string
	}{
		{"missing", Envelope{Type: "assign_job", ID: "x", Params: map[string]string{"building": "1"}}, `"family": missing`},
		{"not a number", Envelope{Type: "move_person", ID: "x", Params: map[string]string{"person": "1", "x": "east", "y": "2"}}, `"x": not an integer`},
		{"unknown param", Envelope{Type: "wake_family", ID: "x", Params: map[string]string{"family": "1", "loud": "yes"}}, `"loud": not a parameter`},
		{"bad species", Envelope{Type: "spawn_wildlife", ID: "x", Params: map[string]string{"species": "dear", "x": "1", "y": "1"}}, `deer`},
		{"empty id", Envelope{Type: "sleep_family", Params: map[string]string{"family": "1"}}, "empty id"},
		{"same ledger", Envelope{Type: "transfer_resources", ID: "x", Params: map[string]string{"resource": "food", "amount": "1"}}, "must differ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.env)
			if !errors.Is(err, ErrBadParam) {
				t.Fatalf("err = %v, want ErrBadParam", err)
			}
			if !strings.Contains(err.Error(), tt.inErr) {
				t.Errorf("%q does not mention %q", err, tt.inErr)
			}
		})
	}
}

func TestDecodeJSONRejectsMalformedEnvelope(t *testing.T) {
	for _, raw := range []string{
		`{"type": "hunt", "id": "x"}`,
		`{"type": "hunt", "id": "x", "tick": -1}`,
		`{"type": "Hunt!", "id": "x", "tick": 1}`,
		`{"type": "hunt", "id": "x", "tick": 1, "params": {"person": 1}}`,
		`{"type": "hunt", "id": "x", "tick": 1, "priority": "high"}`,
	} {
		if _, err := DecodeJSON([]byte(raw)); !errors.Is(err, ErrBadParam) {
			t.Errorf("DecodeJSON(%s) = %v, want ErrBadParam", raw, err)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	b := Base{CmdID: "r", By: 2, AtTick: 9}
	cmds := []engine.Command{
		SpawnFamily{Base: b, Name: "Miller", At: world.Coord{X: 3, Y: 4}, Adults: 1, Children: 2},
		PlaceBuilding{Base: b, Type: buildings.Storehouse, Origin: world.Coord{X: 1, Y: 1}, Rotation: buildings.Rot270},
		AssignConstruction{Base: b, Building: 5, Family: 2, Count: 3},
		AssignJob{Base: b, Building: 5, Family: 2},
		UnassignWorker{Base: b, Person: 7},
		SetHome{Base: b, Family: 2, Building: 5},
		Gather{Base: b, Person: 7, At: world.Coord{X: 9, Y: 0}},
		MovePerson{Base: b, Person: 7, To: world.Coord{X: 0, Y: 9}},
		SleepFamily{Base: b, Family: 2},
		WakeFamily{Base: b, Family: 2},
		TransferResources{Base: b, From: 5, To: VillageStock, Resource: economy.Tools, Amount: 4},
		SpawnWildlife{Base: b, Species: wildlife.Fox, At: world.Coord{X: 6, Y: 6}},
		Hunt{Base: b, Person: 7, Target: 11, Damage: 12.5},
	}
	seen := make(map[engine.Kind]bool)
	for _, c := range cmds {
		env, err := Encode(c)
		if err != nil {
			t.Fatalf("Encode(%T): %v", c, err)
		}
		got, err := Decode(env)
		if err != nil {
			t.Fatalf("Decode(%s): %v", env.Type, err)
		}
		if !reflect.DeepEqual(got, c) {
			t.Errorf("%s: round trip gave %+v, want %+v", env.Type, got, c)
		}
		seen[c.Kind()] = true
	}
	for _, k := range Kinds() {
		if !seen[k] {
			t.Errorf("kind %s is not covered", k)
		}
	}
}
