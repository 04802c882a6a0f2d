package models

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const maxNameLength = 100

// ValidationErrors maps a field path to a validation message key.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func checkName(errs ValidationErrors, field, value string) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		errs[field] = "required"
	case utf8.RuneCountInString(value) > maxNameLength:
		errs[field] = fmt.Sprintf("max_length:%d", maxNameLength)
	}
}

// Validate checks a routine before it is stored.
func (r Routine) Validate() error {
	errs := ValidationErrors{}
	checkName(errs, "name", r.Name)

	if len(r.Series) == 0 {
		errs["series"] = "min_items:1"
	}
	for i, s := range r.Series {
		path := fmt.Sprintf("series[%d]", i)
		if s.Type != SeriesStandard && s.Type != SeriesSuperset {
			errs[path+".type"] = "unsupported"
		}
		if len(s.Exercises) == 0 {
			errs[path+".exercises"] = "empty_series"
		}
		for j, ex := range s.Exercises {
			exPath := fmt.Sprintf("%s.exercises[%d]", path, j)
			if ex.ExerciseID <= 0 {
				errs[exPath+".exercise_id"] = "required"
			}
			if ex.RestAfter < 0 {
				errs[exPath+".rest_after"] = "min:0"
			}
			for k, set := range ex.Sets {
				switch set.Type {
				case SetWarmup, SetWorking, SetFailure:
				default:
					errs[fmt.Sprintf("%s.sets[%d].type", exPath, k)] = "unsupported"
				}
			}
		}
	}
	return errs.orNil()
}

// Validate checks an exercise before it is stored.
func (e Exercise) Validate() error {
	errs := ValidationErrors{}
	checkName(errs, "title", e.Title)
	switch e.DefaultType {
	case "", ExerciseWeightReps, ExerciseTime, ExerciseBodyweightReps:
	default:
		errs["default_type"] = "unsupported"
	}
	return errs.orNil()
}
