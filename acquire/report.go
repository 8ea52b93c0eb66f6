package acquire

import (
	"encoding/json"
	"io"
	"time"
)

// EntityStatus is the outcome for one entity.
type EntityStatus string

const (
	EntityDone     EntityStatus = "done"
	EntityNotFound EntityStatus = "not_found"
	EntityFailed   EntityStatus = "failed"
	EntityInvalid  EntityStatus = "invalid"
)

// DocumentStatus is the outcome for one document type of one entity.
type DocumentStatus string

const (
	DocumentSaved           DocumentStatus = "saved"
	DocumentUnavailable     DocumentStatus = "unavailable"
	DocumentDownloadTimeout DocumentStatus = "download_timeout"
	DocumentDownloadFailed  DocumentStatus = "download_failed"
	DocumentOrganizeFailed  DocumentStatus = "organize_failed"
)

// Report is the record of one run.
type Report struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Entities   []EntityReport `json:"entities"`
}

// EntityReport records one entity.
type EntityReport struct {
	ID        string           `json:"id"`
	Status    EntityStatus     `json:"status"`
	Error     string           `json:"error,omitempty"`
	Documents []DocumentReport `json:"documents,omitempty"`
}

// DocumentReport records one document type.
type DocumentReport struct {
	Type    string         `json:"type"`
	Status  DocumentStatus `json:"status"`
	File    string         `json:"file,omitempty"` // name in the download dir
	Path    string         `json:"path,omitempty"` // organized artifact
	Pages   int            `json:"pages,omitempty"`
	Warning string         `json:"warning,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Summary counts outcomes across the run.
type Summary struct {
	Entities  int `json:"entities"`
	Done      int `json:"done"`
	NotFound  int `json:"not_found"`
	Failed    int `json:"failed"`
	Invalid   int `json:"invalid"`
	Artifacts int `json:"artifacts"`
}

// Summary computes outcome counts.
func (r *Report) Summary() Summary {
	s := Summary{Entities: len(r.Entities)}
	for _, e := range r.Entities {
		switch e.Status {
		case EntityDone:
			s.Done++
		case EntityNotFound:
			s.NotFound++
		case EntityFailed:
			s.Failed++
		case EntityInvalid:
			s.Invalid++
		}
		for _, d := range e.Documents {
			if d.Status == DocumentSaved {
				s.Artifacts++
			}
		}
	}
	return s
}

// Artifacts returns the organized paths in run order.
func (r *Report) Artifacts() []string {
	var out []string
	for _, e := range r.Entities {
		for _, d := range e.Documents {
			if d.Status == DocumentSaved {
				out = append(out, d.Path)
			}
		}
	}
	return out
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
