// Package gtfs provides read access to the loaded static GTFS schedule
// tables, plus the record-writing entry points the (out-of-scope) static
// loader uses to populate them.
package gtfs

import (
	"fmt"
	"github.com/jmoiron/sqlx"

	"time"
)

// DataSetTransaction contains required data for recording new gtfs records owned by a DataSet
type DataSetTransaction struct {
	DS DataSet
	Tx *sqlx.Tx
}

// DataSet encompasses a gtfs schedule available from a source at a point in time.
//The same source will be loaded over time.
// Each record from a gtfs file shares the DataSet.Id value as part of the primary key.
type DataSet struct {
	Id  int64
	URL string
	// ETag is the ETag header if available from the source web site for the gtfs file. Is empty if not available
	ETag string `db:"e_tag"`
	// LastModifiedTimestamp is the unix epoch seconds the source web site provided for the last time the gtfs file was modified
	// is 0 if not available
	LastModifiedTimestamp int64      `db:"last_modified_timestamp"`
	DownloadedAt          time.Time  `db:"downloaded_at"`
	SavedAt               *time.Time `db:"saved_at"`
	ReplacedAt            *time.Time `db:"replaced_at"`
}

func (d DataSet) String() string {
	lastModified := ""
	if d.LastModifiedTimestamp != 0 {
		lastModTime := time.Unix(d.LastModifiedTimestamp, 0)
		lastModified = formatTime(&lastModTime)
	}
	return fmt.Sprintf("DataSet id:%d, url:%s, ETag:%s, lastModified:%s savedAt:%s replacedAt:%s",
		d.Id, d.URL, d.ETag, lastModified, formatTime(d.SavedAt), formatTime(d.ReplacedAt))
}

func formatTime(time *time.Time) string {
	if time == nil {
		return ""
	}
	return time.Format("2006-01-02T15:04:05")
}

// GetLatestDataSet retrieves the latest DataSet that is active
func GetLatestDataSet(db *sqlx.DB) (*DataSet, error) {
	return GetDataSetAt(db, time.Now())
}

// GetDataSetAt retrieves the DataSet that was active at a time
func GetDataSetAt(db *sqlx.DB, at time.Time) (*DataSet, error) {
	query := "select * from data_set " +
		"where $1 between saved_at and replaced_at order by saved_at desc limit 1"
	ds := DataSet{}
	err := db.Get(&ds, db.Rebind(query), at)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve DataSet at %v, error: %w", at, err)
	}
	return &ds, nil
}
