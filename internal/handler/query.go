package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/google/uuid"
)

// parsePage reads from/size with the API defaults.
func parsePage(q url.Values) (model.Page, error) {
	p := model.DefaultPage
	var err error
	if v := q.Get("from"); v != "" {
		if p.From, err = strconv.Atoi(v); err != nil {
			return p, model.Pagination("from must be an integer, got %q", v)
		}
	}
	if v := q.Get("size"); v != "" {
		if p.Size, err = strconv.Atoi(v); err != nil {
			return p, model.Pagination("size must be an integer, got %q", v)
		}
	}
	return p, p.Validate()
}

// listParam accepts both repeated keys and comma separated values.
func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func uuidListParam(q url.Values, key string) ([]string, error) {
	ids := listParam(q, key)
	for i, v := range ids {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, model.Validation("%s must contain uuids, got %q", key, v)
		}
		ids[i] = id.String()
	}
	return ids, nil
}

func timeParam(q url.Values, key string) (*time.Time, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(model.DateTimeLayout, v, time.UTC)
	if err != nil {
		return nil, model.Validation("%s must match %q, got %q", key, model.DateTimeLayout, v)
	}
	return &t, nil
}

func boolParam(q url.Values, key string) (*bool, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, model.Validation("%s must be a boolean, got %q", key, v)
	}
	return &b, nil
}

// parseAdminFilter reads GET /admin/events parameters.
func parseAdminFilter(r *http.Request) (model.EventFilter, error) {
	q := r.URL.Query()
	var (
		f   model.EventFilter
		err error
	)
	if f.Initiators, err = uuidListParam(q, "users"); err != nil {
		return f, err
	}
	for _, s := range listParam(q, "states") {
		st, err := model.ParseEventState(s)
		if err != nil {
			return f, err
		}
		f.States = append(f.States, st)
	}
	if f.Categories, err = uuidListParam(q, "categories"); err != nil {
		return f, err
	}
	if f.RangeStart, err = timeParam(q, "rangeStart"); err != nil {
		return f, err
	}
	if f.RangeEnd, err = timeParam(q, "rangeEnd"); err != nil {
		return f, err
	}
	return f, nil
}

// parsePublicFilter reads GET /events parameters.
func parsePublicFilter(r *http.Request) (model.EventFilter, error) {
	q := r.URL.Query()
	var (
		f   model.EventFilter
		err error
	)
	f.Text = strings.TrimSpace(q.Get("text"))
	if f.Categories, err = uuidListParam(q, "categories"); err != nil {
		return f, err
	}
	if f.Paid, err = boolParam(q, "paid"); err != nil {
		return f, err
	}
	if f.RangeStart, err = timeParam(q, "rangeStart"); err != nil {
		return f, err
	}
	if f.RangeEnd, err = timeParam(q, "rangeEnd"); err != nil {
		return f, err
	}
	only, err := boolParam(q, "onlyAvailable")
	if err != nil {
		return f, err
	}
	f.OnlyAvailable = only != nil && *only
	if f.Sort, err = model.ParseEventSort(q.Get("sort")); err != nil {
		return f, err
	}
	return f, nil
}
