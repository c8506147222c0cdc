package models

import "time"

// StoredLandscape is a landscape document kept in the engine_landscapes table.
type StoredLandscape struct {
	Name       string    `json:"name"`
	SourceType string    `json:"source_type"`
	Document   Document  `json:"document"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Source converts the row to a LandscapeSource. An empty source type means database.
func (s *StoredLandscape) Source() LandscapeSource {
	typ := s.SourceType
	if typ == "" {
		typ = SourceTypeDatabase
	}
	return LandscapeSource{Name: s.Name, Type: typ, Document: s.Document}
}

// LandscapeInfo describes an available or loaded landscape without its document.
type LandscapeInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path,omitempty"`
}
