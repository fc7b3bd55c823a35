package protocol

// HELLO (observer -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	// Machines narrows updates to these machine types; empty means all.
	Machines []string `json:"machines,omitempty"`
}

// WELCOME (server -> observer)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz int   `json:"tick_rate_hz"`
	ChunkSize  int   `json:"chunk_size"`
	Seed       int64 `json:"seed"`
}

type CatalogDigests struct {
	ItemsDigest   string `json:"items_digest"`
	RecipesDigest string `json:"recipes_digest"`
	Recipes       int    `json:"recipes"`
}

// MACHINE_UPDATE (server -> observer), pushed after every state-changing
// event of one machine.
type MachineUpdate struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	WorldID         string `json:"world_id,omitempty"`

	Pos     [3]int `json:"pos"`
	Machine string `json:"machine"`
	State   string `json:"state"`

	Progress      float64 `json:"progress"`
	Power         int64   `json:"power"`
	PowerCapacity int64   `json:"power_capacity,omitempty"`
	RecipeID      int32   `json:"recipe_id,omitempty"`
	Recipe        string  `json:"recipe,omitempty"`

	Temperature       float64 `json:"temperature"`
	TargetTemperature float64 `json:"target_temperature"`
	FuelLeft          float64 `json:"fuel_left,omitempty"`
	FuelTotal         float64 `json:"fuel_total,omitempty"`

	Status string `json:"status"`
}

// ERROR (server -> observer)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
