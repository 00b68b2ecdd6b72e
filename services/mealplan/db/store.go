package db

import (
	"context"
	"database/sql"
	"errors"
)

// Store persists the canteen directory and one serialized day menu per
// (canteen, date). The menu value is an opaque serialization compared
// byte-for-byte by the caller, a changed day overwrites the cached one
// wholesale.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) GetDayJSON(ctx context.Context, canteenID int64, date string) (string, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`select json_text from meals where canteen_id = ? and date = ?`,
		canteenID, date,
	)
	var jsonText string
	err := row.Scan(&jsonText)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return jsonText, true, nil
}

func (s Store) PutDayJSON(ctx context.Context, canteenID int64, date string, jsonText string) error {
	_, err := s.db.ExecContext(
		ctx,
		`replace into meals (canteen_id, date, json_text) values (?, ?, ?)`,
		canteenID, date, jsonText,
	)
	return err
}

func (s Store) ListDays(ctx context.Context, canteenID int64) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`select date from meals where canteen_id = ? order by date`,
		canteenID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var date string
		err := rows.Scan(&date)
		if err != nil {
			return nil, err
		}
		days = append(days, date)
	}
	return days, rows.Err()
}

func (s Store) GetCanteens(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `select canteen_id, canteen_name from canteens`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	canteens := map[int64]string{}
	for rows.Next() {
		var id int64
		var name string
		err := rows.Scan(&id, &name)
		if err != nil {
			return nil, err
		}
		canteens[id] = name
	}
	return canteens, rows.Err()
}

func (s Store) AddCanteen(ctx context.Context, id int64, name string) error {
	_, err := s.db.ExecContext(
		ctx,
		`replace into canteens (canteen_id, canteen_name) values (?, ?)`,
		id, name,
	)
	return err
}
