package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/formacoach/tally/internal/workout"
)

// SaveWorkout writes a validated workout across the workout tables.
// Tables: workouts, workout_exercises, workout_sets, workout_segments, workout_stations.
func (s *Store) SaveWorkout(ctx context.Context, w *workout.Workout, summary string) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, &PersistenceError{Op: "begin tx", Err: err}
	}
	defer tx.Rollback(ctx)

	workoutID := w.ID
	if workoutID == uuid.Nil {
		workoutID = uuid.New()
	}

	specific, err := json.Marshal(w.DisciplineSpecific)
	if err != nil {
		return uuid.Nil, &PersistenceError{Op: "marshal discipline_specific", Err: err}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO workouts (id, user_id, discipline, title, workout_date, duration_minutes,
			perceived_exertion, intensity, notes, discipline_specific, confidence, completeness,
			generation_method, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())`,
		workoutID, w.UserID, w.Discipline, w.Title, nullIfEmpty(w.Date), w.DurationMinutes,
		w.PerceivedExertion, w.Intensity, w.Notes, specific, w.Confidence, w.Completeness,
		w.GenerationMethod, summary,
	)
	if err != nil {
		return uuid.Nil, &PersistenceError{Op: "insert workout", Err: err}
	}

	if err := insertExercises(ctx, tx, workoutID, 0, w.Exercises); err != nil {
		return uuid.Nil, err
	}
	for _, r := range w.Rounds {
		if err := insertExercises(ctx, tx, workoutID, r.Number, r.Exercises); err != nil {
			return uuid.Nil, err
		}
	}

	for i, seg := range w.Segments {
		_, err = tx.Exec(ctx, `
			INSERT INTO workout_segments (id, workout_id, position, activity, duration_minutes, distance_meters, pace)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.New(), workoutID, i, seg.Activity, seg.DurationMinutes, seg.DistanceMeters, seg.Pace,
		)
		if err != nil {
			return uuid.Nil, &PersistenceError{Op: "insert segment", Err: err}
		}
	}

	for i, st := range w.Stations {
		_, err = tx.Exec(ctx, `
			INSERT INTO workout_stations (id, workout_id, position, name, work_seconds, rest_seconds)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), workoutID, i, st.Name, st.WorkSeconds, st.RestSeconds,
		)
		if err != nil {
			return uuid.Nil, &PersistenceError{Op: "insert station", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, &PersistenceError{Op: "commit", Err: err}
	}

	return workoutID, nil
}

func insertExercises(ctx context.Context, tx pgx.Tx, workoutID uuid.UUID, round int, exercises []workout.Exercise) error {
	for i, ex := range exercises {
		exerciseID := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO workout_exercises (id, workout_id, round_number, position, name, notes)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			exerciseID, workoutID, round, i, ex.Name, ex.Notes,
		)
		if err != nil {
			return &PersistenceError{Op: "insert exercise", Err: err}
		}

		for j, set := range ex.Sets {
			_, err := tx.Exec(ctx, `
				INSERT INTO workout_sets (id, exercise_id, position, reps, weight_lbs, distance_meters, duration_seconds, rest_seconds)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				uuid.New(), exerciseID, j, set.Reps, set.WeightLbs, set.DistanceMeters, set.DurationSeconds, set.RestSeconds,
			)
			if err != nil {
				return &PersistenceError{Op: "insert set", Err: err}
			}
		}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// GetWorkout fetches one workout header row.
func (s *Store) GetWorkout(ctx context.Context, id uuid.UUID) (*WorkoutRow, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, discipline, coalesce(title, ''), coalesce(workout_date::text, ''),
			duration_minutes, confidence, completeness, coalesce(summary, ''), created_at::text
		FROM workouts WHERE id = $1`, id)

	var w WorkoutRow
	err := row.Scan(&w.ID, &w.UserID, &w.Discipline, &w.Title, &w.Date,
		&w.DurationMinutes, &w.Confidence, &w.Completeness, &w.Summary, &w.CreatedAt)
	if err != nil {
		return nil, &PersistenceError{Op: "get workout", Err: err}
	}
	return &w, nil
}

// ListUserWorkouts returns a user's most recent workouts, newest first.
func (s *Store) ListUserWorkouts(ctx context.Context, userID string, limit int) ([]WorkoutRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, discipline, coalesce(title, ''), coalesce(workout_date::text, ''),
			duration_minutes, confidence, completeness, coalesce(summary, ''), created_at::text
		FROM workouts WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "list workouts", Err: err}
	}
	defer rows.Close()

	var out []WorkoutRow
	for rows.Next() {
		var w WorkoutRow
		if err := rows.Scan(&w.ID, &w.UserID, &w.Discipline, &w.Title, &w.Date,
			&w.DurationMinutes, &w.Confidence, &w.Completeness, &w.Summary, &w.CreatedAt); err != nil {
			return nil, &PersistenceError{Op: "scan workout", Err: err}
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "iterate workouts", Err: err}
	}
	return out, nil
}

type WorkoutRow struct {
	ID              uuid.UUID `json:"id"`
	UserID          string    `json:"user_id"`
	Discipline      string    `json:"discipline"`
	Title           string    `json:"title,omitempty"`
	Date            string    `json:"date,omitempty"`
	DurationMinutes float64   `json:"duration_minutes,omitempty"`
	Confidence      float64   `json:"confidence"`
	Completeness    float64   `json:"completeness"`
	Summary         string    `json:"summary,omitempty"`
	CreatedAt       string    `json:"created_at"`
}
