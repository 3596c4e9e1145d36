package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	suggestionsCreated  atomic.Int64
	suggestionsApproved atomic.Int64
	suggestionsRejected atomic.Int64
	runsStarted         atomic.Int64
	runsCompleted       atomic.Int64
	runsFailed          atomic.Int64
	runsCancelled       atomic.Int64
)

func IncSuggestionCreated()  { suggestionsCreated.Add(1) }
func IncSuggestionApproved() { suggestionsApproved.Add(1) }
func IncSuggestionRejected() { suggestionsRejected.Add(1) }
func IncRunStarted()         { runsStarted.Add(1) }
func IncRunCompleted()       { runsCompleted.Add(1) }
func IncRunFailed()          { runsFailed.Add(1) }
func IncRunCancelled()       { runsCancelled.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP aibob_suggestions_created_total Number of suggestions created.\n")
	fmt.Fprintf(w, "# TYPE aibob_suggestions_created_total counter\n")
	fmt.Fprintf(w, "aibob_suggestions_created_total %d\n", suggestionsCreated.Load())

	fmt.Fprintf(w, "# HELP aibob_suggestions_approved_total Number of suggestions approved.\n")
	fmt.Fprintf(w, "# TYPE aibob_suggestions_approved_total counter\n")
	fmt.Fprintf(w, "aibob_suggestions_approved_total %d\n", suggestionsApproved.Load())

	fmt.Fprintf(w, "# HELP aibob_suggestions_rejected_total Number of suggestions rejected.\n")
	fmt.Fprintf(w, "# TYPE aibob_suggestions_rejected_total counter\n")
	fmt.Fprintf(w, "aibob_suggestions_rejected_total %d\n", suggestionsRejected.Load())

	fmt.Fprintf(w, "# HELP aibob_pipeline_runs_started_total Number of processing runs started.\n")
	fmt.Fprintf(w, "# TYPE aibob_pipeline_runs_started_total counter\n")
	fmt.Fprintf(w, "aibob_pipeline_runs_started_total %d\n", runsStarted.Load())

	fmt.Fprintf(w, "# HELP aibob_pipeline_runs_completed_total Number of processing runs completed.\n")
	fmt.Fprintf(w, "# TYPE aibob_pipeline_runs_completed_total counter\n")
	fmt.Fprintf(w, "aibob_pipeline_runs_completed_total %d\n", runsCompleted.Load())

	fmt.Fprintf(w, "# HELP aibob_pipeline_runs_failed_total Number of processing runs failed.\n")
	fmt.Fprintf(w, "# TYPE aibob_pipeline_runs_failed_total counter\n")
	fmt.Fprintf(w, "aibob_pipeline_runs_failed_total %d\n", runsFailed.Load())

	fmt.Fprintf(w, "# HELP aibob_pipeline_runs_cancelled_total Number of processing runs cancelled.\n")
	fmt.Fprintf(w, "# TYPE aibob_pipeline_runs_cancelled_total counter\n")
	fmt.Fprintf(w, "aibob_pipeline_runs_cancelled_total %d\n", runsCancelled.Load())
}

func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WritePrometheus(w)
	}
}
