package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelforge.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// roundtrip marshals a Go message and decodes it generically so the schema
// sees exactly what goes over the wire.
func roundtrip(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "client_name":"panel",
	  "machines":["furnace"]
	}`), &hello)
	validate(compile(t, "hello.schema.json"), hello)

	validate(compile(t, "welcome.schema.json"), roundtrip(t, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "4b1d7a3e-2f0c-4a57-9d6b-0d8c1f1e2a10",
		WorldID:         "overworld",
		Tick:            12,
		WorldParams:     protocol.WorldParams{TickRateHz: 20, ChunkSize: 16, Seed: 7},
		Catalogs:        protocol.CatalogDigests{ItemsDigest: "deadbeef", RecipesDigest: "deadbeef", Recipes: 3},
	}))

	validate(compile(t, "machine_update.schema.json"), roundtrip(t, protocol.MachineUpdate{
		Type:              protocol.TypeMachineUpdate,
		ProtocolVersion:   protocol.Version,
		Tick:              40,
		Pos:               [3]int{1, 2, -3},
		Machine:           "furnace",
		State:             "on",
		Progress:          0.5,
		RecipeID:          7,
		Recipe:            "bronze",
		Temperature:       612.5,
		TargetTemperature: 1100,
		FuelLeft:          20,
		FuelTotal:         80,
		Status:            "heating 612/950",
	}))

	validate(compile(t, "error.schema.json"), roundtrip(t, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            protocol.ErrProtoVersion,
		Message:         "unsupported protocol version",
	}))
}

func TestSchemas_RejectBadMachineUpdate(t *testing.T) {
	s := compile(t, "machine_update.schema.json")
	cases := map[string]string{
		"bad state":     `{"type":"MACHINE_UPDATE","protocol_version":"1.0","tick":1,"pos":[0,0,0],"machine":"m","state":"BUSY","progress":0,"power":0,"temperature":20,"target_temperature":20,"status":"idle"}`,
		"short pos":     `{"type":"MACHINE_UPDATE","protocol_version":"1.0","tick":1,"pos":[0,0],"machine":"m","state":"on","progress":0,"power":0,"temperature":20,"target_temperature":20,"status":"idle"}`,
		"below zero":    `{"type":"MACHINE_UPDATE","protocol_version":"1.0","tick":1,"pos":[0,0,0],"machine":"m","state":"on","progress":0,"power":0,"temperature":-300,"target_temperature":20,"status":"idle"}`,
		"unknown field": `{"type":"MACHINE_UPDATE","protocol_version":"1.0","tick":1,"pos":[0,0,0],"machine":"m","state":"on","progress":0,"power":0,"temperature":20,"target_temperature":20,"status":"idle","hp":3}`,
	}
	for name, raw := range cases {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		if err := s.Validate(v); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
