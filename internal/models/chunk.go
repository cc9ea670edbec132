package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Vector stores an embedding as a JSON column.
type Vector []float64

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]float64(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (v *Vector) Scan(value interface{}) error {
	if v == nil {
		return fmt.Errorf("models.Vector: Scan on nil pointer")
	}
	if value == nil {
		*v = Vector{}
		return nil
	}
	var raw []byte
	switch t := value.(type) {
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return fmt.Errorf("models.Vector: unsupported Scan type %T", value)
	}
	return json.Unmarshal(raw, (*[]float64)(v))
}

// ChunkModel is a retrieval-index entry: a text chunk with structured
// metadata and its embedding. The vision service is its only owner.
type ChunkModel struct {
	Base
	Text       string `json:"text"        gorm:"type:longtext;not null"`
	SourceFile string `json:"source_file" gorm:"size:255;index"`
	Breed      string `json:"breed"       gorm:"size:128;index"`
	DocType    string `json:"doc_type"    gorm:"size:64;index"`
	ChunkIndex int    `json:"chunk_index"`
	Embedding  Vector `json:"-"           gorm:"type:longtext"`
}

func (ChunkModel) TableName() string { return "rag_chunks" }
