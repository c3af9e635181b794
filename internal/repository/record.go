package repository

import (
	"maps"
	"time"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/internal/analyzer"
)

// Record is a stored string together with its computed properties.
type Record struct {
	ID         string              `json:"id"`
	Value      string              `json:"value"`
	Properties analyzer.Properties `json:"properties"`
	CreatedAt  time.Time           `json:"created_at"`
}

// clone returns a copy that shares no mutable state with r.
func (r Record) clone() Record {
	r.Properties.CharacterFrequency = maps.Clone(r.Properties.CharacterFrequency)
	return r
}
