package store

// SQL statements for the star schema. Column order matches the Values()
// methods of the sparketl row types.

const (
	insertSongSQL = `
		INSERT INTO songs (song_id, title, artist_id, year, duration)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (song_id) DO NOTHING
	`

	insertArtistSQL = `
		INSERT INTO artists (artist_id, name, location, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (artist_id) DO NOTHING
	`

	upsertUserSQL = `
		INSERT INTO users (user_id, first_name, last_name, gender, level)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name  = EXCLUDED.last_name,
			gender     = EXCLUDED.gender,
			level      = EXCLUDED.level
	`

	insertTimeSQL = `
		INSERT INTO time (start_time, hour, day, week, month, year, weekday)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (start_time) DO NOTHING
	`

	insertSongPlaySQL = `
		INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	// findSongsSQL matches on title, artist name and exact duration.
	// Parameter $4: maximum number of rows
	findSongsSQL = `
		SELECT s.song_id, s.artist_id
		FROM songs s
		JOIN artists a ON s.artist_id = a.artist_id
		WHERE s.title = $1 AND a.name = $2 AND s.duration = $3
		ORDER BY s.song_id
		LIMIT $4
	`
)
