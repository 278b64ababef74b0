package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/formacoach/tally/internal/workout"
)

// IndexForSearch writes the generated summary into the search table so the
// coach surface can retrieve past sessions. Best-effort: a failure here is the
// caller's to log, never to fail a save on. The embedding column is populated
// asynchronously by the embedding worker listening on the saved event.
func (s *Store) IndexForSearch(ctx context.Context, w *workout.Workout, summary string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO workout_search (workout_id, user_id, discipline, workout_date, summary)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workout_id) DO UPDATE SET summary = EXCLUDED.summary`,
		w.ID, w.UserID, w.Discipline, nullIfEmpty(w.Date), summary,
	)
	if err != nil {
		return &PersistenceError{Op: "index for search", Err: err}
	}
	return nil
}

// SearchSimilar returns the user's nearest workout summaries by embedding
// distance. Rows indexed before their embedding backfill are excluded.
func (s *Store) SearchSimilar(ctx context.Context, userID string, embedding []float64, limit int) ([]SearchHit, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT workout_id, discipline, summary, 1 - (embedding <=> $2) AS similarity
		FROM workout_search
		WHERE user_id = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3`,
		userID, pgVector(embedding), limit,
	)
	if err != nil {
		return nil, &PersistenceError{Op: "search similar", Err: err}
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.WorkoutID, &h.Discipline, &h.Summary, &h.Similarity); err != nil {
			return nil, &PersistenceError{Op: "scan search hit", Err: err}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "iterate search hits", Err: err}
	}
	return hits, nil
}

type SearchHit struct {
	WorkoutID  uuid.UUID `json:"workout_id"`
	Discipline string    `json:"discipline"`
	Summary    string    `json:"summary"`
	Similarity float64   `json:"similarity"`
}

// LinkToTemplate connects a saved workout to the training-program template it
// fulfilled. Returns false when the template is unknown; best-effort for the
// save path.
func (s *Store) LinkToTemplate(ctx context.Context, workoutID uuid.UUID, templateID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO template_completions (id, template_id, workout_id, completed_at)
		SELECT $1, t.id, $2, now() FROM program_templates t WHERE t.id = $3
		ON CONFLICT DO NOTHING`,
		uuid.New(), workoutID, templateID,
	)
	if err != nil {
		return false, &PersistenceError{Op: "link template", Err: err}
	}
	return tag.RowsAffected() > 0, nil
}
