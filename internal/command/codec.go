package command

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/buildings"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/names"
	"github.com/talgya/hamlet/internal/wildlife"
)

// Envelope is the wire form of a command. Params are always strings so the
// format stays flat and language neutral.
type Envelope struct {
	Type   string            `json:"type"`
	ID     string            `json:"id"`
	Player uint64            `json:"player,omitempty"`
	Tick   uint64            `json:"tick"`
	Params map[string]string `json:"params,omitempty"`
}

//go:embed envelope.schema.json
var envelopeSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func envelopeSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("envelope.schema.json", envelopeSchemaJSON)
	})
	return schema, schemaErr
}

type decodeFunc func(b Base, r *paramReader) engine.Command

// decoders is the closed table of every command kind.
var decoders = map[engine.Kind]decodeFunc{
	KindSpawnFamily: func(b Base, r *paramReader) engine.Command {
		c := SpawnFamily{
			Base:     b,
			Name:     r.optStr("name", ""),
			At:       r.coord(),
			Adults:   r.optInt("adults", 2),
			Children: r.optInt("children", 0),
		}
		r.check(c.Adults >= 0, "adults", "must not be negative")
		r.check(c.Children >= 0, "children", "must not be negative")
		r.check(c.Adults+c.Children > 0, "adults", "a family needs at least one member")
		return c
	},
	KindPlaceBuilding: func(b Base, r *paramReader) engine.Command {
		c := PlaceBuilding{Base: b, Origin: r.coord()}
		var err error
		if name := r.str("type"); name != "" {
			c.Type, err = buildings.ParseType(name)
			r.wrap("type", err)
		}
		c.Rotation, err = buildings.ParseRotation(r.optInt("rotation", 0))
		r.wrap("rotation", err)
		return c
	},
	KindAssignConstruction: func(b Base, r *paramReader) engine.Command {
		c := AssignConstruction{
			Base:     b,
			Building: r.id("building"),
			Family:   r.id("family"),
			Count:    r.optInt("count", 1),
		}
		r.check(c.Count >= 1, "count", "must be at least 1")
		return c
	},
	KindAssignJob: func(b Base, r *paramReader) engine.Command {
		return AssignJob{Base: b, Building: r.id("building"), Family: r.id("family")}
	},
	KindUnassignWorker: func(b Base, r *paramReader) engine.Command {
		return UnassignWorker{Base: b, Person: agents.PersonID(r.id("person"))}
	},
	KindSetHome: func(b Base, r *paramReader) engine.Command {
		return SetHome{Base: b, Family: r.id("family"), Building: r.id("building")}
	},
	KindGather: func(b Base, r *paramReader) engine.Command {
		return Gather{Base: b, Person: agents.PersonID(r.id("person")), At: r.coord()}
	},
	KindMovePerson: func(b Base, r *paramReader) engine.Command {
		return MovePerson{Base: b, Person: agents.PersonID(r.id("person")), To: r.coord()}
	},
	KindSleepFamily: func(b Base, r *paramReader) engine.Command {
		return SleepFamily{Base: b, Family: r.id("family")}
	},
	KindWakeFamily: func(b Base, r *paramReader) engine.Command {
		return WakeFamily{Base: b, Family: r.id("family")}
	},
	KindTransferResources: func(b Base, r *paramReader) engine.Command {
		c := TransferResources{
			Base:   b,
			From:   r.optID("from", VillageStock),
			To:     r.optID("to", VillageStock),
			Amount: r.int("amount"),
		}
		if name := r.str("resource"); name != "" {
			var err error
			c.Resource, err = economy.ParseResource(name)
			r.wrap("resource", err)
		}
		r.check(c.Amount > 0, "amount", "must be positive")
		r.check(c.From != c.To, "to", "must differ from from")
		return c
	},
	KindSpawnWildlife: func(b Base, r *paramReader) engine.Command {
		c := SpawnWildlife{Base: b, At: r.coord()}
		if name := r.str("species"); name != "" {
			var err error
			c.Species, err = wildlife.ParseSpecies(name)
			r.wrap("species", err)
		}
		return c
	},
	KindHunt: func(b Base, r *paramReader) engine.Command {
		c := Hunt{
			Base:   b,
			Person: agents.PersonID(r.id("person")),
			Target: r.id("wildlife"),
			Damage: r.optFloat("damage", 0),
		}
		r.check(c.Damage >= 0, "damage", "must not be negative")
		return c
	},
}

// Kinds returns every command kind the codec knows, sorted.
func Kinds() []engine.Kind {
	out := make([]engine.Kind, 0, len(decoders))
	for k := range decoders {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func kindNames() []string {
	ks := Kinds()
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return out
}

// Decode turns an envelope into a command. Unknown kinds wrap
// ErrUnknownKind; missing or malformed params wrap ErrBadParam.
func Decode(env Envelope) (engine.Command, error) {
	kind := engine.Kind(names.Normalize(env.Type))
	dec, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("%q%s: %w", env.Type, names.Hint(env.Type, kindNames()), ErrUnknownKind)
	}
	if env.ID == "" {
		return nil, fmt.Errorf("%s: empty id: %w", kind, ErrBadParam)
	}
	base := Base{CmdID: engine.CommandID(env.ID), By: engine.PlayerID(env.Player), AtTick: env.Tick}
	r := newParamReader(kind, env.Params)
	cmd := dec(base, r)
	if err := r.err(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// DecodeJSON validates raw JSON against the envelope schema and decodes it.
func DecodeJSON(data []byte) (engine.Command, error) {
	s, err := envelopeSchema()
	if err != nil {
		return nil, fmt.Errorf("compile envelope schema: %w", err)
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := s.Validate(raw); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w: %w", err, ErrBadParam)
	}
	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return Decode(env)
}

// Encode turns a command into its envelope. Decode(Encode(c)) yields a
// command equal to c.
func Encode(cmd engine.Command) (Envelope, error) {
	env := Envelope{
		Type:   string(cmd.Kind()),
		ID:     string(cmd.ID()),
		Player: uint64(cmd.Player()),
		Tick:   cmd.TargetTick(),
	}
	p := make(map[string]string)
	switch c := cmd.(type) {
	case SpawnFamily:
		if c.Name != "" {
			p["name"] = c.Name
		}
		p["x"], p["y"] = itoa(c.At.X), itoa(c.At.Y)
		p["adults"], p["children"] = itoa(c.Adults), itoa(c.Children)
	case PlaceBuilding:
		p["type"] = c.Type.String()
		p["x"], p["y"] = itoa(c.Origin.X), itoa(c.Origin.Y)
		p["rotation"] = itoa(int(c.Rotation))
	case AssignConstruction:
		p["building"], p["family"] = idString(c.Building), idString(c.Family)
		p["count"] = itoa(c.Count)
	case AssignJob:
		p["building"], p["family"] = idString(c.Building), idString(c.Family)
	case UnassignWorker:
		p["person"] = idString(uint64(c.Person))
	case SetHome:
		p["family"], p["building"] = idString(c.Family), idString(c.Building)
	case Gather:
		p["person"] = idString(uint64(c.Person))
		p["x"], p["y"] = itoa(c.At.X), itoa(c.At.Y)
	case MovePerson:
		p["person"] = idString(uint64(c.Person))
		p["x"], p["y"] = itoa(c.To.X), itoa(c.To.Y)
	case SleepFamily:
		p["family"] = idString(c.Family)
	case WakeFamily:
		p["family"] = idString(c.Family)
	case TransferResources:
		p["from"], p["to"] = idString(c.From), idString(c.To)
		p["resource"] = c.Resource.String()
		p["amount"] = itoa(c.Amount)
	case SpawnWildlife:
		p["species"] = c.Species.String()
		p["x"], p["y"] = itoa(c.At.X), itoa(c.At.Y)
	case Hunt:
		p["person"], p["wildlife"] = idString(uint64(c.Person)), idString(c.Target)
		if c.Damage != 0 {
			p["damage"] = ftoa(c.Damage)
		}
	default:
		return Envelope{}, fmt.Errorf("encode %T: %w", cmd, ErrUnknownKind)
	}
	env.Params = p
	return env, nil
}
