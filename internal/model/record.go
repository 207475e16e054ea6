package model

import "time"

// RunStatus represents the current state of a generation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// SampleRecord is one generated identity. Field names follow the JSONL
// output schema; empty fields are emitted so consumers see a stable shape.
type SampleRecord struct {
	Name           string `json:"name"`
	MiddleName     string `json:"middle_name"`
	Surnames       string `json:"surnames"`
	City           string `json:"city"`
	State          string `json:"state"`
	StateAbbr      string `json:"state_abbr"`
	CEP            string `json:"cep"`
	Street         string `json:"street"`
	Neighborhood   string `json:"neighborhood"`
	BuildingNumber string `json:"building_number"`
	CPF            string `json:"cpf"`
	RG             string `json:"rg"`
	PIS            string `json:"pis"`
	CNPJ           string `json:"cnpj"`
	CEI            string `json:"cei"`
	Phone          string `json:"phone"`
}

// RunParams captures the request that produced a run, persisted alongside it
// for reproducibility.
type RunParams struct {
	Quantity   int    `json:"quantity"`
	Seed       uint64 `json:"seed,omitempty"`
	AllData    bool   `json:"all_data,omitempty"`
	OnlyCEP    bool   `json:"only_cep,omitempty"`
	CityOnly   bool   `json:"city_only,omitempty"`
	APILookup  bool   `json:"api_lookup,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	TimePeriod string `json:"time_period,omitempty"`
}

// GenerationRun is a persisted record of one sample-generation invocation.
type GenerationRun struct {
	ID          string    `json:"id"`
	Params      RunParams `json:"params"`
	RecordCount int       `json:"record_count"`
	Status      RunStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CEPLookup is a persisted trace of one bridge lookup, kept for aggregate
// stats on API usage.
type CEPLookup struct {
	ID        string    `json:"id"`
	CEP       string    `json:"cep"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
