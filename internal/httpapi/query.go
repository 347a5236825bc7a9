package httpapi

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dmehra2102/todo-realtime/internal/domain"
)

// parseQuery reads a find query from a raw query string. The string is walked
// pair by pair instead of through url.Values so that $sort keys keep the order
// in which they were written.
func parseQuery(raw string) (*domain.Query, error) {
	query := &domain.Query{}

	for pair := range strings.SplitSeq(raw, "&") {
		if pair == "" {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, domain.NewValidationError("query", "invalid query parameter %q", rawKey)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, domain.NewValidationError(key, "invalid value for %q", key)
		}

		switch {
		case key == "completed":
			if value != "true" && value != "false" {
				return nil, domain.NewValidationError(key, "completed must be true or false")
			}
			completed := value == "true"
			query.Completed = &completed

		case key == "$skip":
			n, err := nonNegativeInt(key, value)
			if err != nil {
				return nil, err
			}
			query.Skip = n

		case key == "$limit":
			n, err := nonNegativeInt(key, value)
			if err != nil {
				return nil, err
			}
			query.Limit = &n

		case strings.HasPrefix(key, "$sort[") && strings.HasSuffix(key, "]"):
			field := strings.TrimSuffix(strings.TrimPrefix(key, "$sort["), "]")
			if field == "" {
				return nil, domain.NewValidationError("$sort", "sort field is required")
			}
			var dir domain.SortDirection
			switch value {
			case "1":
				dir = domain.SortAscending
			case "-1":
				dir = domain.SortDescending
			default:
				return nil, domain.NewValidationError("$sort", "sort direction for %q must be 1 or -1", field)
			}
			// A repeated field keeps its first position and takes the latest direction.
			if i := slices.IndexFunc(query.Sort, func(k domain.SortKey) bool { return k.Field == field }); i >= 0 {
				query.Sort[i].Direction = dir
				continue
			}
			query.Sort = append(query.Sort, domain.SortKey{Field: field, Direction: dir})

		case strings.HasPrefix(key, "$"):
			return nil, domain.NewValidationError(key, "unsupported query operator %q", key)

		default:
			if query.Where == nil {
				query.Where = make(map[string]string)
			}
			query.Where[key] = value
		}
	}

	return query, nil
}

func nonNegativeInt(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "%s must be a non-negative integer", name)
	}
	return n, nil
}
