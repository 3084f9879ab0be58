package types

import "time"

type ChunkType string

const (
	ChunkDefinition ChunkType = "definition"
	ChunkComparison ChunkType = "comparison"
	ChunkChecklist  ChunkType = "checklist"
	ChunkExample    ChunkType = "example"
	ChunkGuide      ChunkType = "guide"
	ChunkPattern    ChunkType = "pattern"
	ChunkWarning    ChunkType = "warning"
	ChunkGeneral    ChunkType = "general"
)

type DocumentStatus string

const (
	StatusActive  DocumentStatus = "active"
	StatusDeleted DocumentStatus = "deleted"
)

type Document struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	TotalChunks int            `json:"totalChunks"`
	Status      DocumentStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type Chunk struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"documentId"`
	Section       string    `json:"section"`
	ParentSection string    `json:"parentSection"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags"`
	ChunkType     ChunkType `json:"chunkType"`
	Language      string    `json:"language"`
	Version       string    `json:"version"`
	Embedding     []float32 `json:"-"`
}

// SearchResult is a chunk joined with its owning document's display name
// and the cosine similarity to the query vector.
type SearchResult struct {
	ID            string    `json:"id"`
	Document      string    `json:"document"`
	Section       string    `json:"section"`
	ParentSection string    `json:"parentSection"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags"`
	ChunkType     ChunkType `json:"chunkType"`
	Similarity    float64   `json:"similarity"`
}

type SearchOptions struct {
	Limit     int
	Tags      []string
	Threshold float64
}

type ChunkStats struct {
	TotalChunks int               `json:"totalChunks"`
	AvgLength   int               `json:"avgLength"`
	MinLength   int               `json:"minLength"`
	MaxLength   int               `json:"maxLength"`
	ByType      map[ChunkType]int `json:"byType"`
	ByTag       map[string]int    `json:"byTag"`
}

type ProcessResult struct {
	DocumentID  string     `json:"documentId"`
	FileName    string     `json:"fileName"`
	TotalChunks int        `json:"totalChunks"`
	Stats       ChunkStats `json:"stats"`
	Status      string     `json:"status"`
}
