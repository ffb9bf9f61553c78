// Package meta encodes and decodes the JSON metadata sidecar of a document.
//
// Decoding tries every known schema, newest first, and converts the first
// match into the current in-memory shape. Encoding always writes the
// current schema. A new on-disk version is supported by prepending its
// decoder to schemas; older entries stay so existing files keep loading.
package meta

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/mdcal/internal/models"
)

// ErrDecode is returned when metadata matches none of the known schemas.
var ErrDecode = errors.New("metadata matches no known schema")

type schema struct {
	name   string
	decode func(data []byte) (models.DocumentMeta, error)
}

var schemas = []schema{
	{name: "range", decode: decodeRange},
	{name: "single-date", decode: decodeSingleDate},
}

// Decode parses a metadata file.
func Decode(data []byte) (models.DocumentMeta, error) {
	var errs []error
	for _, s := range schemas {
		m, err := s.decode(data)
		if err == nil {
			return m, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}
	return models.DocumentMeta{}, fmt.Errorf("%w: %w", ErrDecode, errors.Join(errs...))
}

// Encode renders m in the current schema, indented with two spaces.
func Encode(m models.DocumentMeta) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("meta: encode: %w", err)
	}
	return data, nil
}

// rangeMeta is the current schema: a start/end date pair.
type rangeMeta struct {
	Title     *string `json:"title"`
	StartDate *int64  `json:"startDate"`
	EndDate   *int64  `json:"endDate"`
	Status    *string `json:"status"`
	CreatedAt *int64  `json:"createdAt"`
	UpdatedAt *int64  `json:"updatedAt"`
}

func decodeRange(data []byte) (models.DocumentMeta, error) {
	var raw rangeMeta
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.DocumentMeta{}, err
	}
	if err := required(map[string]bool{
		"title":     raw.Title != nil,
		"startDate": raw.StartDate != nil,
		"endDate":   raw.EndDate != nil,
		"createdAt": raw.CreatedAt != nil,
		"updatedAt": raw.UpdatedAt != nil,
	}); err != nil {
		return models.DocumentMeta{}, err
	}
	return models.DocumentMeta{
		Title:     *raw.Title,
		StartDate: *raw.StartDate,
		EndDate:   *raw.EndDate,
		Status:    statusOrDefault(raw.Status),
		CreatedAt: *raw.CreatedAt,
		UpdatedAt: *raw.UpdatedAt,
	}, nil
}

// singleDateMeta is the schema written before date ranges existed.
type singleDateMeta struct {
	Title     *string `json:"title"`
	Date      *int64  `json:"date"`
	Status    *string `json:"status"`
	CreatedAt *int64  `json:"createdAt"`
	UpdatedAt *int64  `json:"updatedAt"`
}

func decodeSingleDate(data []byte) (models.DocumentMeta, error) {
	var raw singleDateMeta
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.DocumentMeta{}, err
	}
	if err := required(map[string]bool{
		"title":     raw.Title != nil,
		"date":      raw.Date != nil,
		"createdAt": raw.CreatedAt != nil,
		"updatedAt": raw.UpdatedAt != nil,
	}); err != nil {
		return models.DocumentMeta{}, err
	}
	return models.DocumentMeta{
		Title:     *raw.Title,
		StartDate: *raw.Date,
		EndDate:   *raw.Date,
		Status:    statusOrDefault(raw.Status),
		CreatedAt: *raw.CreatedAt,
		UpdatedAt: *raw.UpdatedAt,
	}, nil
}

func required(present map[string]bool) error {
	var missing []string
	for _, field := range []string{"title", "startDate", "endDate", "date", "createdAt", "updatedAt"} {
		if ok, checked := present[field]; checked && !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields %v", missing)
	}
	return nil
}

func statusOrDefault(s *string) string {
	if s == nil {
		return models.DefaultStatus
	}
	return *s
}
