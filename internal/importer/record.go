package importer

import (
	"time"

	"github.com/claude/stitch/internal/storage"
)

// Record builds the import_logs row for a finished import.
func Record(source string, st *Stats, importErr error, took time.Duration) storage.ImportLog {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	} else if len(st.RejectedRoutines) > 0 {
		status = "partial"
	}
	ms := int(took.Milliseconds())

	return storage.ImportLog{
		Source:            source,
		Status:            status,
		FilesRead:         st.FilesProcessed,
		ExercisesReceived: st.ExercisesReceived,
		ExercisesCreated:  st.ExercisesCreated,
		ExercisesUpdated:  st.ExercisesUpdated,
		RoutinesReceived:  st.RoutinesReceived,
		RoutinesCreated:   st.RoutinesCreated,
		RoutinesUpdated:   st.RoutinesUpdated,
		DurationMs:        &ms,
		ErrorMessage:      errMsg,
	}
}
