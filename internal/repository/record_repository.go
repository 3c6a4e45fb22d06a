package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jiseti/reporting-api/internal/model"
)

// Default listing window when the client supplies no paging values.
const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// RecordRepo provides CRUD operations for records and their media rows.
// All methods are pure data access: they assume the caller has already
// run the policy checks.  Methods with a Tx suffix participate in a
// transaction owned by the caller, who must commit or roll back.
type RecordRepo struct {
	db *sql.DB
}

// NewRecordRepo returns a new RecordRepo bound to the given database.
func NewRecordRepo(db *sql.DB) *RecordRepo { return &RecordRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *RecordRepo) DB() *sql.DB { return r.db }

// RecordPatch is a partial update of a record's mutable fields.  A nil
// pointer leaves the corresponding column untouched.
type RecordPatch struct {
	Title       *string
	Description *string
	Latitude    *float64
	Longitude   *float64
}

// Empty reports whether the patch changes nothing.
func (p RecordPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Latitude == nil && p.Longitude == nil
}

// Create inserts a new draft record owned by the given citizen and
// returns it with its generated id and creation timestamp populated.
func (r *RecordRepo) Create(ctx context.Context, ownerID uint64, rtype model.RecordType, title, description string, lat, lon *float64) (model.Record, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO records (type, title, description, status, latitude, longitude, user_id) VALUES (?,?,?,?,?,?,?)",
		string(rtype), title, description, string(model.StatusDraft), lat, lon, ownerID)
	if err != nil {
		return model.Record{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Record{}, err
	}
	rec := model.Record{
		ID:          uint64(id),
		Type:        rtype,
		Title:       title,
		Description: description,
		Status:      model.StatusDraft,
		Latitude:    lat,
		Longitude:   lon,
		UserID:      ownerID,
		Media:       []model.Media{},
	}
	// Read back created_at so the response carries the DB's timestamp.
	err = r.db.QueryRowContext(ctx,
		"SELECT created_at FROM records WHERE id=?", rec.ID).Scan(&rec.CreatedAt)
	if err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

// GetByID fetches a record and its media.  Returns ErrRecordNotFound
// when the id matches no row.
func (r *RecordRepo) GetByID(ctx context.Context, id uint64) (model.Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx,
		"SELECT id,type,title,description,status,latitude,longitude,user_id,created_at FROM records WHERE id=? LIMIT 1", id))
	if err != nil {
		return model.Record{}, err
	}
	media, err := r.MediaByRecord(ctx, rec.ID)
	if err != nil {
		return model.Record{}, err
	}
	rec.Media = media
	return rec, nil
}

// GetByIDForUpdateTx fetches a record inside the caller's transaction
// and locks its row, serializing concurrent edits, deletes and status
// changes against the same record.  Media is not loaded.
func (r *RecordRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Record, error) {
	return scanRecord(tx.QueryRowContext(ctx,
		"SELECT id,type,title,description,status,latitude,longitude,user_id,created_at FROM records WHERE id=? FOR UPDATE", id))
}

func scanRecord(row *sql.Row) (model.Record, error) {
	var rec model.Record
	var lat, lon sql.NullFloat64
	err := row.Scan(&rec.ID, &rec.Type, &rec.Title, &rec.Description, &rec.Status,
		&lat, &lon, &rec.UserID, &rec.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Record{}, ErrRecordNotFound
		}
		return model.Record{}, err
	}
	if lat.Valid {
		v := lat.Float64
		rec.Latitude = &v
	}
	if lon.Valid {
		v := lon.Float64
		rec.Longitude = &v
	}
	return rec, nil
}

// UpdateFieldsTx applies a partial patch to a record.  Only the fields
// present in the patch are written; everything else keeps its value.
// An empty patch is a no-op.
func (r *RecordRepo) UpdateFieldsTx(ctx context.Context, tx *sql.Tx, id uint64, patch RecordPatch) error {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	if patch.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *patch.Description)
	}
	if patch.Latitude != nil {
		sets = append(sets, "latitude=?")
		args = append(args, *patch.Latitude)
	}
	if patch.Longitude != nil {
		sets = append(sets, "longitude=?")
		args = append(args, *patch.Longitude)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := tx.ExecContext(ctx,
		"UPDATE records SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// DeleteTx removes a record together with all of its media rows.  The
// media delete runs first so no media row can outlive its record even
// when the schema lacks a cascading foreign key.
func (r *RecordRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM media WHERE record_id=?", id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM records WHERE id=?", id)
	return err
}

// SetStatusTx overwrites the record's status.
func (r *RecordRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.Status) error {
	_, err := tx.ExecContext(ctx, "UPDATE records SET status=? WHERE id=?", string(status), id)
	return err
}

// AddMediaTx appends a media row to a record and returns it with its
// generated id.  It runs in the caller's transaction so an insert can
// never race a cascading delete of the same record.
func (r *RecordRepo) AddMediaTx(ctx context.Context, tx *sql.Tx, recordID uint64, imageURL, videoURL *string) (model.Media, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO media (image_url, video_url, record_id) VALUES (?,?,?)",
		imageURL, videoURL, recordID)
	if err != nil {
		return model.Media{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Media{}, err
	}
	return model.Media{ID: uint64(id), ImageURL: imageURL, VideoURL: videoURL, RecordID: recordID}, nil
}

// MediaByRecord returns all media rows attached to a record, oldest
// first.  A record without media yields an empty slice.
func (r *RecordRepo) MediaByRecord(ctx context.Context, recordID uint64) ([]model.Media, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, image_url, video_url, record_id FROM media WHERE record_id=? ORDER BY id", recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	media := make([]model.Media, 0)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return media, nil
}

func scanMedia(rows *sql.Rows) (model.Media, error) {
	var m model.Media
	var img, vid sql.NullString
	if err := rows.Scan(&m.ID, &img, &vid, &m.RecordID); err != nil {
		return model.Media{}, err
	}
	if img.Valid {
		v := img.String
		m.ImageURL = &v
	}
	if vid.Valid {
		v := vid.String
		m.VideoURL = &v
	}
	return m, nil
}

// List returns one page of records (media included) plus the total row
// count and the number of pages.  Non-positive paging values fall back
// to the defaults.  A page past the end yields an empty slice, not an
// error.
func (r *RecordRepo) List(ctx context.Context, page, perPage int) ([]model.Record, int, int, error) {
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM records").Scan(&total); err != nil {
		return nil, 0, 0, err
	}
	pages := (total + perPage - 1) / perPage

	offset := (page - 1) * perPage
	rows, err := r.db.QueryContext(ctx,
		"SELECT id,type,title,description,status,latitude,longitude,user_id,created_at FROM records ORDER BY id LIMIT ? OFFSET ?",
		perPage, offset)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	records := make([]model.Record, 0, perPage)
	index := make(map[uint64]int)
	for rows.Next() {
		var rec model.Record
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Title, &rec.Description, &rec.Status,
			&lat, &lon, &rec.UserID, &rec.CreatedAt); err != nil {
			return nil, 0, 0, err
		}
		if lat.Valid {
			v := lat.Float64
			rec.Latitude = &v
		}
		if lon.Valid {
			v := lon.Float64
			rec.Longitude = &v
		}
		rec.Media = []model.Media{}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}
	if len(records) == 0 {
		return records, total, pages, nil
	}

	// Load media for the whole page in one query.
	ids := make([]interface{}, 0, len(records))
	placeholders := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
		placeholders = append(placeholders, "?")
	}
	mrows, err := r.db.QueryContext(ctx,
		"SELECT id, image_url, video_url, record_id FROM media WHERE record_id IN ("+strings.Join(placeholders, ",")+") ORDER BY record_id, id",
		ids...)
	if err != nil {
		return nil, 0, 0, err
	}
	defer mrows.Close()
	for mrows.Next() {
		m, err := scanMedia(mrows)
		if err != nil {
			return nil, 0, 0, err
		}
		if i, ok := index[m.RecordID]; ok {
			records[i].Media = append(records[i].Media, m)
		}
	}
	if err := mrows.Err(); err != nil {
		return nil, 0, 0, err
	}
	return records, total, pages, nil
}
