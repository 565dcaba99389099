package domain

// Table is a tabular asset. Its rows live in a separate Dataset record so the
// dataset can be swapped (re-import) without touching the table itself.
type Table struct {
	Asset     `yaml:",inline"`
	DatasetID string `json:"datasetId,omitempty"`
	// SourceURL, when set, is where dataset rows are lazily fetched from.
	SourceURL string `json:"sourceUrl,omitempty"`
	RowCount  int    `json:"rowCount,omitempty"`
}

// Flow composes tables and a model into a runnable pipeline.
type Flow struct {
	Asset    `yaml:",inline"`
	TableIDs []string `json:"tableIds,omitempty"`
	ModelID  string   `json:"modelId,omitempty"`
}

// Replay is one execution of a Flow.
type Replay struct {
	Asset  `yaml:",inline"`
	FlowID string `json:"flowId"`
}

// Model is a trained (or in-training) predictor.
type Model struct {
	Asset        `yaml:",inline"`
	ExperimentID string `json:"experimentId,omitempty"`
	TableID      string `json:"tableId,omitempty"`
	JobType      string `json:"jobType,omitempty"`
}

// CVModel is a computer-vision model trained over an Album.
type CVModel struct {
	Asset   `yaml:",inline"`
	AlbumID string `json:"albumId,omitempty"`
}

// Album is a collection of images.
type Album struct {
	Asset      `yaml:",inline"`
	ImageCount int `json:"imageCount,omitempty"`
}

// Prediction applies a model to a table and materializes an output table.
type Prediction struct {
	Asset         `yaml:",inline"`
	ModelID       string `json:"modelId"`
	InputTableID  string `json:"inputTableId,omitempty"`
	OutputTableID string `json:"outputTableId,omitempty"`
}

// Diaa is a disparate-impact analysis over a model. Re-running it creates a
// fresh output model and rewires OutputModelID.
type Diaa struct {
	Asset         `yaml:",inline"`
	ModelID       string `json:"modelId"`
	OutputModelID string `json:"outputModelId,omitempty"`
}

// ScriptDeployment publishes a user script as a callable endpoint.
type ScriptDeployment struct {
	Asset    `yaml:",inline"`
	ScriptID string `json:"scriptId"`
}

// OnlineAPI exposes a model for synchronous scoring.
type OnlineAPI struct {
	Asset   `yaml:",inline"`
	ModelID string `json:"modelId"`
}
