package models

import "time"

// MediaType is the kind of demonstration media attached to an exercise.
type MediaType string

const (
	MediaImage   MediaType = "image"
	MediaVideo   MediaType = "video"
	MediaYouTube MediaType = "youtube"
)

// ExerciseType is the default way an exercise is logged.
type ExerciseType string

const (
	ExerciseWeightReps     ExerciseType = "weight_reps"
	ExerciseTime           ExerciseType = "time"
	ExerciseBodyweightReps ExerciseType = "bodyweight_reps"
)

// UnknownExerciseTitle is shown when a step references an exercise that no
// longer exists in the catalog.
const UnknownExerciseTitle = "Unknown Exercise"

// MediaItem points at demonstration media for an exercise.
type MediaItem struct {
	ID           string    `json:"id" yaml:"id"`
	Type         MediaType `json:"type" yaml:"type"`
	URL          string    `json:"url" yaml:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
}

// Exercise is an entry in the exercise library.
type Exercise struct {
	ID                  int64        `json:"id" yaml:"id,omitempty"`
	Title               string       `json:"title" yaml:"title"`
	MuscleGroup         string       `json:"muscle_group" yaml:"muscle_group"`
	PrimaryEquipmentIDs []int64      `json:"primary_equipment_ids" yaml:"primary_equipment_ids,omitempty"`
	Media               []MediaItem  `json:"media" yaml:"media,omitempty"`
	DefaultType         ExerciseType `json:"default_type" yaml:"default_type"`
	CreatedAt           time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt           time.Time    `json:"updated_at" yaml:"-"`
}

// ExerciseMeta is the display projection of an exercise used during playback.
type ExerciseMeta struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	MuscleGroup string      `json:"muscle_group"`
	Media       []MediaItem `json:"media,omitempty"`
}

// Meta returns the display projection of e.
func (e Exercise) Meta() ExerciseMeta {
	return ExerciseMeta{
		ID:          e.ID,
		Title:       e.Title,
		MuscleGroup: e.MuscleGroup,
		Media:       e.Media,
	}
}

// ExerciseLookup resolves an exercise id to its display metadata.
type ExerciseLookup func(id int64) (ExerciseMeta, bool)

// Catalog is an in-memory exercise index.
type Catalog map[int64]ExerciseMeta

// NewCatalog indexes exercises by ID.
func NewCatalog(exercises []Exercise) Catalog {
	c := make(Catalog, len(exercises))
	for _, e := range exercises {
		c[e.ID] = e.Meta()
	}
	return c
}

// Lookup implements ExerciseLookup.
func (c Catalog) Lookup(id int64) (ExerciseMeta, bool) {
	m, ok := c[id]
	return m, ok
}
