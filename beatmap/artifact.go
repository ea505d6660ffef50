package beatmap

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// Note is one entry of the persisted beatmap artifact consumed by the game
// and timeline UI. The shape is an external contract.
type Note struct {
	ID   string  `json:"id"`
	Time float64 `json:"time"`
	Type HitType `json:"type"`
}

// Artifact is the persisted beatmap: time-ordered typed notes with stable
// identifiers.
type Artifact struct {
	Notes []Note `json:"notes"`
}

// NewArtifact builds an artifact from classified hits, assigning each note a
// fresh uuid and ordering by time.
func NewArtifact(hits []ClassifiedHit) *Artifact {
	notes := make([]Note, len(hits))
	for i, hit := range hits {
		notes[i] = Note{
			ID:   uuid.NewString(),
			Time: hit.Time,
			Type: hit.Type,
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Time < notes[j].Time
	})

	return &Artifact{Notes: notes}
}

// MarshalIndent renders the artifact as indented JSON for file storage
func (a *Artifact) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(a, "", "    ")
}
